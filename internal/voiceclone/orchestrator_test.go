package voiceclone

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/msrishav-28/Living-Heirloom/internal/records"
	"github.com/msrishav-28/Living-Heirloom/internal/vault"
)

type stubCloneService struct {
	cloneID    string
	cloneErr   error
	audio      []byte
	synthErr   error
	cloneCalls int
	synthCalls int
}

func (s *stubCloneService) Clone(context.Context, string, []VoiceSample) (string, error) {
	s.cloneCalls++
	return s.cloneID, s.cloneErr
}

func (s *stubCloneService) Synthesize(context.Context, string, string) ([]byte, error) {
	s.synthCalls++
	return s.audio, s.synthErr
}

func newTestOrchestrator(t *testing.T, client CloneService) (*Orchestrator, *records.MemoryStore) {
	t.Helper()
	v, err := vault.NewVault(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	store := records.NewMemoryStore()
	return NewOrchestrator(client, store, v, Limits{}, nil), store
}

func goodSamples(n int) []VoiceSample {
	out := make([]VoiceSample, n)
	for i := range out {
		out[i] = VoiceSample{
			Data:     make([]byte, 4096),
			Filename: fmt.Sprintf("take_%d.wav", i+1),
			Duration: 10,
		}
	}
	return out
}

func TestValidateSamples(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	cases := []struct {
		name    string
		samples []VoiceSample
		wantMsg string
	}{
		{"too few", goodSamples(2), "need at least 3"},
		{"empty data", append(goodSamples(2), VoiceSample{Filename: "take_3.wav"}), "is empty"},
		{"too small", append(goodSamples(2), VoiceSample{Data: make([]byte, 100), Filename: "take_3.wav"}), "too small"},
		{"too large", append(goodSamples(2), VoiceSample{Data: make([]byte, 11<<20), Filename: "take_3.wav"}), "byte limit"},
		{"too short", append(goodSamples(2), VoiceSample{Data: make([]byte, 4096), Filename: "take_3.wav", Duration: 1}), "shorter than"},
		{"too long", append(goodSamples(2), VoiceSample{Data: make([]byte, 4096), Filename: "take_3.wav", Duration: 600}), "longer than"},
	}
	for _, tc := range cases {
		err := o.ValidateSamples(tc.samples)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
		if !strings.Contains(err.Error(), tc.wantMsg) {
			t.Fatalf("%s: message %q missing %q", tc.name, err.Error(), tc.wantMsg)
		}
	}

	if err := o.ValidateSamples(goodSamples(3)); err != nil {
		t.Fatalf("valid samples rejected: %v", err)
	}
	// Zero duration means unmeasured and is accepted.
	samples := goodSamples(3)
	samples[0].Duration = 0
	if err := o.ValidateSamples(samples); err != nil {
		t.Fatalf("unmeasured duration rejected: %v", err)
	}
}

func TestValidateSamplesReportsFirstViolationOnly(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	samples := goodSamples(3)
	samples[0].Data = nil
	samples[1].Duration = 1
	err := o.ValidateSamples(samples)
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected first violation (empty), got %v", err)
	}
}

func TestCloneVoiceRemoteSuccess(t *testing.T) {
	ctx := context.Background()
	client := &stubCloneService{cloneID: "el-voice-1"}
	o, store := newTestOrchestrator(t, client)

	model, err := o.CloneVoice(ctx, "  Grandma  ", goodSamples(3))
	if err != nil {
		t.Fatalf("CloneVoice: %v", err)
	}
	if model.ID != "el-voice-1" || model.Origin != records.OriginRemote || model.Quality != records.QualityHigh {
		t.Fatalf("unexpected model: %+v", model)
	}
	if model.Name != "Grandma" {
		t.Fatalf("name not trimmed: %q", model.Name)
	}
	if len(model.SampleRefs) != 3 {
		t.Fatalf("expected 3 sealed samples, got %d", len(model.SampleRefs))
	}
	for _, ref := range model.SampleRefs {
		if _, err := store.GetSampleBlob(ctx, ref); err != nil {
			t.Fatalf("sample blob %s missing: %v", ref, err)
		}
	}
	if _, err := store.GetVoiceModel(ctx, model.ID); err != nil {
		t.Fatalf("model not persisted: %v", err)
	}
}

func TestCloneVoiceRemoteFailureKeepsLocalRecord(t *testing.T) {
	ctx := context.Background()
	client := &stubCloneService{cloneErr: errors.New("service unavailable")}
	o, store := newTestOrchestrator(t, client)

	model, err := o.CloneVoice(ctx, "Grandpa", goodSamples(3))
	if err != nil {
		t.Fatalf("CloneVoice: %v", err)
	}
	if model.Origin != records.OriginLocal || model.Quality != records.QualityMedium {
		t.Fatalf("unexpected fallback model: %+v", model)
	}
	if model.ID == "" {
		t.Fatal("local record has no id")
	}

	// The local record participates in the catalog like any other.
	if err := o.SetActive(ctx, model.ID); err != nil {
		t.Fatalf("SetActive on local record: %v", err)
	}
	got, err := store.GetVoiceModel(ctx, model.ID)
	if err != nil {
		t.Fatalf("GetVoiceModel: %v", err)
	}
	if !got.IsActive {
		t.Fatal("local record not active after SetActive")
	}
}

func TestCloneVoiceRejectsEmptyName(t *testing.T) {
	o, _ := newTestOrchestrator(t, &stubCloneService{cloneID: "x"})
	if _, err := o.CloneVoice(context.Background(), "   ", goodSamples(3)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSynthesizeSpeechValidation(t *testing.T) {
	ctx := context.Background()
	o, _ := newTestOrchestrator(t, &stubCloneService{audio: []byte("mp3")})

	if _, err := o.SynthesizeSpeech(ctx, "   ", "v1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty text: expected ErrValidation, got %v", err)
	}
	if _, err := o.SynthesizeSpeech(ctx, strings.Repeat("a", 5001), "v1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("long text: expected ErrValidation, got %v", err)
	}
	if _, err := o.SynthesizeSpeech(ctx, "hello", "missing"); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown voice: expected ErrValidation, got %v", err)
	}
}

func TestSynthesizeSpeechCountsTextLimitInRunes(t *testing.T) {
	ctx := context.Background()
	client := &stubCloneService{cloneID: "el-3", audio: []byte("mp3")}
	o, _ := newTestOrchestrator(t, client)

	model, err := o.CloneVoice(ctx, "Grandma", goodSamples(3))
	if err != nil {
		t.Fatalf("CloneVoice: %v", err)
	}

	// 4000 characters but 12000 bytes; must pass the 5000-character cap.
	if _, err := o.SynthesizeSpeech(ctx, strings.Repeat("語", 4000), model.ID); err != nil {
		t.Fatalf("multibyte text under the limit rejected: %v", err)
	}
	if _, err := o.SynthesizeSpeech(ctx, strings.Repeat("語", 5001), model.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("5001 characters: expected ErrValidation, got %v", err)
	}
}

func TestSynthesizeSpeechLocalModelNoNetwork(t *testing.T) {
	ctx := context.Background()
	client := &stubCloneService{cloneErr: errors.New("down"), audio: []byte("mp3")}
	o, _ := newTestOrchestrator(t, client)

	model, err := o.CloneVoice(ctx, "Mom", goodSamples(3))
	if err != nil {
		t.Fatalf("CloneVoice: %v", err)
	}

	_, err = o.SynthesizeSpeech(ctx, "read this aloud", model.ID)
	if !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("expected ErrUnsupportedOperation, got %v", err)
	}
	if client.synthCalls != 0 {
		t.Fatalf("local synthesis touched the network %d times", client.synthCalls)
	}
}

func TestSynthesizeSpeechRemote(t *testing.T) {
	ctx := context.Background()
	client := &stubCloneService{cloneID: "el-1", audio: []byte("audio-bytes")}
	o, _ := newTestOrchestrator(t, client)

	model, err := o.CloneVoice(ctx, "Dad", goodSamples(3))
	if err != nil {
		t.Fatalf("CloneVoice: %v", err)
	}

	audio, err := o.SynthesizeSpeech(ctx, "hello family", model.ID)
	if err != nil {
		t.Fatalf("SynthesizeSpeech: %v", err)
	}
	if string(audio) != "audio-bytes" {
		t.Fatalf("audio = %q", audio)
	}

	client.audio = nil
	if _, err := o.SynthesizeSpeech(ctx, "hello again", model.ID); !errors.Is(err, ErrRemoteService) {
		t.Fatalf("empty audio: expected ErrRemoteService, got %v", err)
	}

	client.audio = []byte("x")
	client.synthErr = errors.New("rate limited")
	if _, err := o.SynthesizeSpeech(ctx, "hello once more", model.ID); !errors.Is(err, ErrRemoteService) {
		t.Fatalf("provider error: expected ErrRemoteService, got %v", err)
	}
}

func TestDeleteModelRemovesSamples(t *testing.T) {
	ctx := context.Background()
	client := &stubCloneService{cloneID: "el-2"}
	o, store := newTestOrchestrator(t, client)

	model, err := o.CloneVoice(ctx, "Aunt May", goodSamples(3))
	if err != nil {
		t.Fatalf("CloneVoice: %v", err)
	}
	if err := o.DeleteModel(ctx, model.ID); err != nil {
		t.Fatalf("DeleteModel: %v", err)
	}
	if _, err := store.GetVoiceModel(ctx, model.ID); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("model still present: %v", err)
	}
	for _, ref := range model.SampleRefs {
		if _, err := store.GetSampleBlob(ctx, ref); !errors.Is(err, records.ErrNotFound) {
			t.Fatalf("sample %s still present: %v", ref, err)
		}
	}
	if err := o.DeleteModel(ctx, model.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("double delete: expected ErrValidation, got %v", err)
	}
}

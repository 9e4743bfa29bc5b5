package voiceclone

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/msrishav-28/Living-Heirloom/internal/fallback"
	"github.com/msrishav-28/Living-Heirloom/internal/observability"
	"github.com/msrishav-28/Living-Heirloom/internal/records"
	"github.com/msrishav-28/Living-Heirloom/internal/vault"
)

const (
	minSampleBytes     = 1 << 10
	minSampleDuration  = 3.0
	maxSampleDuration  = 120.0
	defaultMaxFileSize = 10 << 20
)

// Limits bound what the orchestrator accepts from callers.
type Limits struct {
	RequiredSamples int
	MaxFileSize     int64
	MaxTextLength   int
}

func (l Limits) withDefaults() Limits {
	if l.RequiredSamples <= 0 {
		l.RequiredSamples = 3
	}
	if l.MaxFileSize <= 0 {
		l.MaxFileSize = defaultMaxFileSize
	}
	if l.MaxTextLength <= 0 {
		l.MaxTextLength = 5000
	}
	return l
}

// Orchestrator drives voice cloning. The remote provider is the
// preferred path; when it fails the clone still succeeds as a local
// record so the user's samples are never lost.
type Orchestrator struct {
	client  CloneService
	store   records.Store
	vault   *vault.Vault
	limits  Limits
	metrics *observability.Metrics
}

func NewOrchestrator(client CloneService, store records.Store, v *vault.Vault, limits Limits, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		client:  client,
		store:   store,
		vault:   v,
		limits:  limits.withDefaults(),
		metrics: metrics,
	}
}

// ValidateSamples checks the sample set and reports only the first
// violation found, so the user fixes one thing at a time.
func (o *Orchestrator) ValidateSamples(samples []VoiceSample) error {
	if len(samples) < o.limits.RequiredSamples {
		return fmt.Errorf("%w: need at least %d voice samples, got %d",
			ErrValidation, o.limits.RequiredSamples, len(samples))
	}
	for i, sample := range samples {
		name := sample.Filename
		if name == "" {
			name = fmt.Sprintf("sample %d", i+1)
		}
		switch {
		case len(sample.Data) == 0:
			return fmt.Errorf("%w: %s is empty", ErrValidation, name)
		case len(sample.Data) < minSampleBytes:
			return fmt.Errorf("%w: %s is too small (%d bytes, minimum %d)",
				ErrValidation, name, len(sample.Data), minSampleBytes)
		case int64(len(sample.Data)) > o.limits.MaxFileSize:
			return fmt.Errorf("%w: %s exceeds the %d byte limit",
				ErrValidation, name, o.limits.MaxFileSize)
		case sample.Duration != 0 && sample.Duration < minSampleDuration:
			return fmt.Errorf("%w: %s is shorter than %.0f seconds",
				ErrValidation, name, minSampleDuration)
		case sample.Duration > maxSampleDuration:
			return fmt.Errorf("%w: %s is longer than %.0f seconds",
				ErrValidation, name, maxSampleDuration)
		}
	}
	return nil
}

// CloneVoice validates the samples, seals them into the store, and
// creates a voice model. A remote provider failure degrades to a local
// record with the same shape rather than failing the operation.
func (o *Orchestrator) CloneVoice(ctx context.Context, name string, samples []VoiceSample) (records.VoiceModel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return records.VoiceModel{}, fmt.Errorf("%w: voice name must not be empty", ErrValidation)
	}
	if err := o.ValidateSamples(samples); err != nil {
		return records.VoiceModel{}, err
	}

	refs, err := o.sealSamples(ctx, samples)
	if err != nil {
		return records.VoiceModel{}, err
	}

	result := fallback.Run(ctx,
		func(ctx context.Context) (records.VoiceModel, error) {
			if o.client == nil {
				return records.VoiceModel{}, errors.New("no remote clone provider configured")
			}
			voiceID, err := o.client.Clone(ctx, name, samples)
			if err != nil {
				return records.VoiceModel{}, err
			}
			return records.VoiceModel{
				ID:      voiceID,
				Origin:  records.OriginRemote,
				Quality: records.QualityHigh,
			}, nil
		},
		nil,
		func() records.VoiceModel {
			return records.VoiceModel{
				ID:      uuid.NewString(),
				Origin:  records.OriginLocal,
				Quality: records.QualityMedium,
			}
		},
	)
	if result.FailedErr != nil {
		log.Printf("voiceclone: remote clone failed, keeping local record: %v", result.FailedErr)
	}

	model := result.Value
	model.Name = name
	model.CreatedAt = time.Now().UTC()
	model.SampleRefs = refs
	if err := o.store.SaveVoiceModel(ctx, model); err != nil {
		return records.VoiceModel{}, fmt.Errorf("persist voice model: %w", err)
	}
	if o.metrics != nil {
		o.metrics.VoiceClones.WithLabelValues(string(model.Origin)).Inc()
	}
	return model, nil
}

func (o *Orchestrator) sealSamples(ctx context.Context, samples []VoiceSample) ([]string, error) {
	refs := make([]string, 0, len(samples))
	for _, sample := range samples {
		blob, err := o.vault.Encrypt(string(sample.Data))
		if err != nil {
			return nil, fmt.Errorf("seal voice sample: %w", err)
		}
		ref := uuid.NewString()
		if err := o.store.SaveSampleBlob(ctx, ref, blob); err != nil {
			return nil, fmt.Errorf("persist voice sample: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// SynthesizeSpeech renders text with a cloned voice. Local models
// cannot synthesize; that is reported without touching the network and
// without falling back.
func (o *Orchestrator) SynthesizeSpeech(ctx context.Context, text, voiceID string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text must not be empty", ErrValidation)
	}
	if utf8.RuneCountInString(text) > o.limits.MaxTextLength {
		return nil, fmt.Errorf("%w: text exceeds %d characters", ErrValidation, o.limits.MaxTextLength)
	}

	model, err := o.store.GetVoiceModel(ctx, voiceID)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown voice model %q", ErrValidation, voiceID)
		}
		return nil, fmt.Errorf("resolve voice model: %w", err)
	}
	if model.Origin == records.OriginLocal {
		return nil, fmt.Errorf("%w: voice %q exists only as a local record", ErrUnsupportedOperation, model.Name)
	}
	if o.client == nil {
		return nil, fmt.Errorf("%w: no synthesis provider configured", ErrRemoteService)
	}

	audio, err := o.client.Synthesize(ctx, model.ID, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteService, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: provider returned no audio", ErrRemoteService)
	}
	return audio, nil
}

func (o *Orchestrator) ListModels(ctx context.Context) ([]records.VoiceModel, error) {
	return o.store.ListVoiceModels(ctx)
}

func (o *Orchestrator) SetActive(ctx context.Context, id string) error {
	err := o.store.SetActiveVoiceModel(ctx, id)
	if errors.Is(err, records.ErrNotFound) {
		return fmt.Errorf("%w: unknown voice model %q", ErrValidation, id)
	}
	return err
}

// DeleteModel removes the model and its sealed samples.
func (o *Orchestrator) DeleteModel(ctx context.Context, id string) error {
	model, err := o.store.GetVoiceModel(ctx, id)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return fmt.Errorf("%w: unknown voice model %q", ErrValidation, id)
		}
		return err
	}
	for _, ref := range model.SampleRefs {
		if err := o.store.DeleteSampleBlob(ctx, ref); err != nil {
			log.Printf("voiceclone: delete sample %s: %v", ref, err)
		}
	}
	return o.store.DeleteVoiceModel(ctx, id)
}

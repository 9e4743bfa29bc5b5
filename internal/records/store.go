package records

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/msrishav-28/Living-Heirloom/internal/vault"
)

var ErrNotFound = errors.New("record not found in store")

// Store persists voice models, heirloom content, and sealed sample
// blobs. Implementations must be safe for concurrent use.
type Store interface {
	SaveVoiceModel(ctx context.Context, model VoiceModel) error
	GetVoiceModel(ctx context.Context, id string) (VoiceModel, error)
	ListVoiceModels(ctx context.Context) ([]VoiceModel, error)
	SetActiveVoiceModel(ctx context.Context, id string) error
	DeleteVoiceModel(ctx context.Context, id string) error

	SaveContent(ctx context.Context, record ContentRecord) error
	GetContent(ctx context.Context, id string) (ContentRecord, error)
	ListContent(ctx context.Context) ([]ContentRecord, error)

	SaveSampleBlob(ctx context.Context, ref string, blob vault.EncryptedBlob) error
	GetSampleBlob(ctx context.Context, ref string) (vault.EncryptedBlob, error)
	DeleteSampleBlob(ctx context.Context, ref string) error

	Close() error
}

type MemoryStore struct {
	mu      sync.RWMutex
	voices  map[string]VoiceModel
	content map[string]ContentRecord
	samples map[string]vault.EncryptedBlob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		voices:  make(map[string]VoiceModel),
		content: make(map[string]ContentRecord),
		samples: make(map[string]vault.EncryptedBlob),
	}
}

func (s *MemoryStore) SaveVoiceModel(_ context.Context, model VoiceModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voices[model.ID] = cloneVoiceModel(model)
	return nil
}

func (s *MemoryStore) GetVoiceModel(_ context.Context, id string) (VoiceModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	model, ok := s.voices[id]
	if !ok {
		return VoiceModel{}, ErrNotFound
	}
	return cloneVoiceModel(model), nil
}

func (s *MemoryStore) ListVoiceModels(_ context.Context) ([]VoiceModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]VoiceModel, 0, len(s.voices))
	for _, model := range s.voices {
		out = append(out, cloneVoiceModel(model))
	}
	sortVoiceModels(out)
	return out, nil
}

func (s *MemoryStore) SetActiveVoiceModel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.voices[id]; !ok {
		return ErrNotFound
	}
	for key, model := range s.voices {
		model.IsActive = key == id
		s.voices[key] = model
	}
	return nil
}

func (s *MemoryStore) DeleteVoiceModel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.voices[id]; !ok {
		return ErrNotFound
	}
	delete(s.voices, id)
	return nil
}

func (s *MemoryStore) SaveContent(_ context.Context, record ContentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[record.ID] = cloneContentRecord(record)
	return nil
}

func (s *MemoryStore) GetContent(_ context.Context, id string) (ContentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.content[id]
	if !ok {
		return ContentRecord{}, ErrNotFound
	}
	return cloneContentRecord(record), nil
}

func (s *MemoryStore) ListContent(_ context.Context) ([]ContentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ContentRecord, 0, len(s.content))
	for _, record := range s.content {
		out = append(out, cloneContentRecord(record))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) SaveSampleBlob(_ context.Context, ref string, blob vault.EncryptedBlob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples[ref] = blob
	return nil
}

func (s *MemoryStore) GetSampleBlob(_ context.Context, ref string) (vault.EncryptedBlob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.samples[ref]
	if !ok {
		return vault.EncryptedBlob{}, ErrNotFound
	}
	return blob, nil
}

func (s *MemoryStore) DeleteSampleBlob(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.samples, ref)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func cloneVoiceModel(model VoiceModel) VoiceModel {
	out := model
	out.SampleRefs = append([]string(nil), model.SampleRefs...)
	return out
}

func cloneContentRecord(record ContentRecord) ContentRecord {
	out := record
	if record.Encrypted != nil {
		blob := *record.Encrypted
		out.Encrypted = &blob
	}
	return out
}

func sortVoiceModels(models []VoiceModel) {
	sort.Slice(models, func(i, j int) bool {
		if models[i].CreatedAt.Equal(models[j].CreatedAt) {
			return models[i].ID < models[j].ID
		}
		return models[i].CreatedAt.After(models[j].CreatedAt)
	})
}

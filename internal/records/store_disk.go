package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/msrishav-28/Living-Heirloom/internal/vault"
)

const (
	voicePrefix   = "voice/"
	contentPrefix = "content/"
	samplePrefix  = "sample/"
)

// DiskStore keeps records in a local badger database. Sample blobs
// dominate its footprint, so they are held under a byte quota and the
// oldest ones give way first when a new save would exceed it.
type DiskStore struct {
	db         *badger.DB
	quotaBytes int64
}

type sampleEntry struct {
	Blob      vault.EncryptedBlob `json:"blob"`
	CreatedAt time.Time           `json:"created_at"`
}

func NewDiskStore(dir string, quotaBytes int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open disk store: %w", err)
	}
	return &DiskStore{db: db, quotaBytes: quotaBytes}, nil
}

func (s *DiskStore) SaveVoiceModel(_ context.Context, model VoiceModel) error {
	return s.setJSON(voicePrefix+model.ID, model)
}

func (s *DiskStore) GetVoiceModel(_ context.Context, id string) (VoiceModel, error) {
	var model VoiceModel
	if err := s.getJSON(voicePrefix+id, &model); err != nil {
		return VoiceModel{}, err
	}
	return model, nil
}

func (s *DiskStore) ListVoiceModels(_ context.Context) ([]VoiceModel, error) {
	var out []VoiceModel
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(voicePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var model VoiceModel
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &model)
			}); err != nil {
				return err
			}
			out = append(out, model)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list voice models: %w", err)
	}
	sortVoiceModels(out)
	return out, nil
}

func (s *DiskStore) SetActiveVoiceModel(ctx context.Context, id string) error {
	models, err := s.ListVoiceModels(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, model := range models {
		model.IsActive = model.ID == id
		if model.IsActive {
			found = true
		}
		if err := s.setJSON(voicePrefix+model.ID, model); err != nil {
			return err
		}
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func (s *DiskStore) DeleteVoiceModel(_ context.Context, id string) error {
	return s.delete(voicePrefix + id)
}

func (s *DiskStore) SaveContent(_ context.Context, record ContentRecord) error {
	return s.setJSON(contentPrefix+record.ID, record)
}

func (s *DiskStore) GetContent(_ context.Context, id string) (ContentRecord, error) {
	var record ContentRecord
	if err := s.getJSON(contentPrefix+id, &record); err != nil {
		return ContentRecord{}, err
	}
	return record, nil
}

func (s *DiskStore) ListContent(_ context.Context) ([]ContentRecord, error) {
	var out []ContentRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(contentPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record ContentRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			}); err != nil {
				return err
			}
			out = append(out, record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *DiskStore) SaveSampleBlob(_ context.Context, ref string, blob vault.EncryptedBlob) error {
	entry := sampleEntry{Blob: blob, CreatedAt: time.Now().UTC()}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal sample blob: %w", err)
	}
	if err := s.reclaimSampleSpace(int64(len(data))); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(samplePrefix+ref), data)
	})
}

func (s *DiskStore) GetSampleBlob(_ context.Context, ref string) (vault.EncryptedBlob, error) {
	var entry sampleEntry
	if err := s.getJSON(samplePrefix+ref, &entry); err != nil {
		return vault.EncryptedBlob{}, err
	}
	return entry.Blob, nil
}

func (s *DiskStore) DeleteSampleBlob(_ context.Context, ref string) error {
	err := s.delete(samplePrefix + ref)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// reclaimSampleSpace drops the oldest sample blobs until incoming bytes
// fit under the quota. Voice and content records are never evicted.
func (s *DiskStore) reclaimSampleSpace(incoming int64) error {
	if s.quotaBytes <= 0 {
		return nil
	}

	type candidate struct {
		key       string
		size      int64
		createdAt time.Time
	}
	var (
		total      int64
		candidates []candidate
	)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(samplePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var entry sampleEntry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return err
			}
			size := item.EstimatedSize()
			total += size
			candidates = append(candidates, candidate{
				key:       string(item.KeyCopy(nil)),
				size:      size,
				createdAt: entry.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan sample blobs: %w", err)
	}
	if total+incoming <= s.quotaBytes {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].createdAt.Before(candidates[j].createdAt)
	})
	return s.db.Update(func(txn *badger.Txn) error {
		for _, c := range candidates {
			if total+incoming <= s.quotaBytes {
				break
			}
			if err := txn.Delete([]byte(c.key)); err != nil {
				return err
			}
			total -= c.size
		}
		return nil
	})
}

func (s *DiskStore) Close() error { return s.db.Close() }

func (s *DiskStore) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *DiskStore) getJSON(key string, v any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get record %s: %w", key, err)
	}
	return nil
}

func (s *DiskStore) delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			return err
		}
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

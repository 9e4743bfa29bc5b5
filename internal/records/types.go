package records

import (
	"fmt"
	"time"

	"github.com/msrishav-28/Living-Heirloom/internal/vault"
)

type VoiceOrigin string

const (
	OriginRemote VoiceOrigin = "remote"
	OriginLocal  VoiceOrigin = "local"
)

type VoiceQuality string

const (
	QualityHigh   VoiceQuality = "high"
	QualityMedium VoiceQuality = "medium"
	QualityLow    VoiceQuality = "low"
)

// VoiceModel describes a cloned voice. SampleRefs point at sealed
// sample blobs held by the same store.
type VoiceModel struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Origin     VoiceOrigin  `json:"origin"`
	Quality    VoiceQuality `json:"quality"`
	IsActive   bool         `json:"is_active"`
	CreatedAt  time.Time    `json:"created_at"`
	SampleRefs []string     `json:"sample_refs,omitempty"`
}

// ContentRecord is a generated heirloom piece. Body holds plaintext
// only until Seal runs; after that the encrypted blob is authoritative.
type ContentRecord struct {
	ID        string               `json:"id"`
	SessionID string               `json:"session_id,omitempty"`
	Title     string               `json:"title"`
	Body      string               `json:"body"`
	Encrypted *vault.EncryptedBlob `json:"encrypted,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// Seal encrypts the record body in place. The plaintext is replaced
// with a sentinel so the two forms never persist together.
func (r *ContentRecord) Seal(v *vault.Vault) error {
	if r.Encrypted != nil {
		return nil
	}
	blob, err := v.Encrypt(r.Body)
	if err != nil {
		return fmt.Errorf("seal content record: %w", err)
	}
	r.Encrypted = &blob
	r.Body = vault.PlaintextSentinel
	return nil
}

// Open returns the record body, decrypting when sealed. Decryption
// failures surface as sentinel text, never as an error.
func (r *ContentRecord) Open(v *vault.Vault) string {
	if r.Encrypted == nil {
		return r.Body
	}
	return v.Decrypt(*r.Encrypted)
}

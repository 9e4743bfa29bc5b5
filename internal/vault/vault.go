package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// ErrValidation is returned for caller input the vault refuses to seal.
var ErrValidation = errors.New("invalid input")

const (
	keySize   = 32
	saltSize  = 16
	nonceSize = 12

	scryptN = 32768
	scryptR = 8
	scryptP = 1

	// PlaintextSentinel replaces plaintext in a record once its encrypted
	// form exists, so the two never co-persist.
	PlaintextSentinel = "[encrypted]"

	// Decrypt never fails; these sentinels tell the caller which kind of
	// failure occurred so it can decide whether a retry makes sense.
	DecryptMalformedSentinel = "content encrypted — unable to decrypt (malformed data)"
	DecryptAuthSentinel      = "content encrypted — unable to decrypt (wrong key or corrupted data)"

	keyFileName = "vault.key"
)

// EncryptedBlob is ciphertext plus the parameters needed to open it.
// All fields are base64 so records serialize as plain text.
type EncryptedBlob struct {
	Ciphertext string `json:"ciphertext"`
	Salt       string `json:"salt"`
	IV         string `json:"iv"`
}

// Vault performs authenticated at-rest encryption. With a passphrase,
// each blob's key is derived via scrypt from the passphrase and the
// blob's salt. Without one, a random key is generated once and persisted
// next to the store; anyone with access to that directory can decrypt,
// which is the accepted trade-off for a zero-configuration setup.
type Vault struct {
	passphrase string
	staticKey  []byte
}

// NewVault creates a vault. dir is only used to persist the generated
// key when passphrase is empty.
func NewVault(dir, passphrase string) (*Vault, error) {
	v := &Vault{passphrase: strings.TrimSpace(passphrase)}
	if v.passphrase != "" {
		return v, nil
	}

	key, err := loadOrCreateKey(dir)
	if err != nil {
		return nil, fmt.Errorf("vault key setup: %w", err)
	}
	v.staticKey = key
	return v, nil
}

func loadOrCreateKey(dir string) ([]byte, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, keyFileName)

	raw, err := os.ReadFile(path)
	if err == nil {
		key, decodeErr := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
		if decodeErr == nil && len(key) == keySize {
			return key, nil
		}
		return nil, fmt.Errorf("key file %s is corrupted", path)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0o600); err != nil {
		return nil, err
	}
	return key, nil
}

func (v *Vault) keyFor(salt []byte) ([]byte, error) {
	if v.passphrase == "" {
		return v.staticKey, nil
	}
	return scrypt.Key([]byte(v.passphrase), salt, scryptN, scryptR, scryptP, keySize)
}

// Encrypt seals plaintext with AES-256-GCM under a fresh salt and nonce.
// Empty plaintext is a caller error, never silently sealed.
func (v *Vault) Encrypt(plaintext string) (EncryptedBlob, error) {
	if plaintext == "" {
		return EncryptedBlob{}, fmt.Errorf("%w: plaintext must not be empty", ErrValidation)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return EncryptedBlob{}, fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return EncryptedBlob{}, fmt.Errorf("generate nonce: %w", err)
	}

	key, err := v.keyFor(salt)
	if err != nil {
		return EncryptedBlob{}, fmt.Errorf("derive key: %w", err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return EncryptedBlob{}, err
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return EncryptedBlob{
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		IV:         base64.StdEncoding.EncodeToString(nonce),
	}, nil
}

// Decrypt opens a blob. It never returns an error: structural problems
// and authentication failures each yield a distinct sentinel string.
func (v *Vault) Decrypt(blob EncryptedBlob) string {
	sealed, err := base64.StdEncoding.DecodeString(blob.Ciphertext)
	if err != nil {
		return DecryptMalformedSentinel
	}
	salt, err := base64.StdEncoding.DecodeString(blob.Salt)
	if err != nil || len(salt) != saltSize {
		return DecryptMalformedSentinel
	}
	nonce, err := base64.StdEncoding.DecodeString(blob.IV)
	if err != nil || len(nonce) != nonceSize {
		return DecryptMalformedSentinel
	}

	key, err := v.keyFor(salt)
	if err != nil {
		return DecryptMalformedSentinel
	}
	gcm, err := newGCM(key)
	if err != nil {
		return DecryptMalformedSentinel
	}
	if len(sealed) < gcm.Overhead() {
		return DecryptMalformedSentinel
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return DecryptAuthSentinel
	}
	return string(plaintext)
}

// IsSentinel reports whether s is one of the vault's failure or
// placeholder markers rather than real content.
func IsSentinel(s string) bool {
	switch s {
	case PlaintextSentinel, DecryptMalformedSentinel, DecryptAuthSentinel:
		return true
	default:
		return false
	}
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return gcm, nil
}

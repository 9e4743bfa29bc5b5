package vault

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestVault(t *testing.T, passphrase string) *Vault {
	t.Helper()
	v, err := NewVault(t.TempDir(), passphrase)
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	return v
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	for _, passphrase := range []string{"", "family-secret"} {
		v := newTestVault(t, passphrase)

		blob, err := v.Encrypt("grandma's bread recipe")
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		if got := v.Decrypt(blob); got != "grandma's bread recipe" {
			t.Fatalf("Decrypt = %q", got)
		}
	}
}

func TestEncryptEmptyPlaintext(t *testing.T) {
	v := newTestVault(t, "")
	if _, err := v.Encrypt(""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestEncryptUsesFreshSaltAndNonce(t *testing.T) {
	v := newTestVault(t, "pass")

	a, err := v.Encrypt("same text")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := v.Encrypt("same text")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a.Salt == b.Salt {
		t.Fatal("salt reused across encryptions")
	}
	if a.IV == b.IV {
		t.Fatal("nonce reused across encryptions")
	}
	if a.Ciphertext == b.Ciphertext {
		t.Fatal("identical ciphertext for identical plaintext")
	}
}

func TestDecryptMalformedBlob(t *testing.T) {
	v := newTestVault(t, "")

	cases := []EncryptedBlob{
		{Ciphertext: "not base64!!", Salt: encode(make([]byte, saltSize)), IV: encode(make([]byte, nonceSize))},
		{Ciphertext: encode([]byte("x")), Salt: "bad", IV: encode(make([]byte, nonceSize))},
		{Ciphertext: encode([]byte("x")), Salt: encode(make([]byte, 4)), IV: encode(make([]byte, nonceSize))},
		{Ciphertext: encode([]byte("x")), Salt: encode(make([]byte, saltSize)), IV: encode(make([]byte, 3))},
		{Ciphertext: encode([]byte("short")), Salt: encode(make([]byte, saltSize)), IV: encode(make([]byte, nonceSize))},
	}
	for i, blob := range cases {
		if got := v.Decrypt(blob); got != DecryptMalformedSentinel {
			t.Fatalf("case %d: got %q, want malformed sentinel", i, got)
		}
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	v := newTestVault(t, "pass")

	blob, err := v.Encrypt("a letter to my grandchildren")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(blob.Ciphertext)
	raw[0] ^= 0xff
	blob.Ciphertext = encode(raw)

	if got := v.Decrypt(blob); got != DecryptAuthSentinel {
		t.Fatalf("got %q, want auth sentinel", got)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	a, err := NewVault(dir, "right")
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	b, err := NewVault(dir, "wrong")
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}

	blob, err := a.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if got := b.Decrypt(blob); got != DecryptAuthSentinel {
		t.Fatalf("got %q, want auth sentinel", got)
	}
}

func TestGeneratedKeyPersists(t *testing.T) {
	dir := t.TempDir()
	a, err := NewVault(dir, "")
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	blob, err := a.Encrypt("keep me")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	b, err := NewVault(dir, "")
	if err != nil {
		t.Fatalf("NewVault reopen: %v", err)
	}
	if got := b.Decrypt(blob); got != "keep me" {
		t.Fatalf("Decrypt after reopen = %q", got)
	}
}

func TestCorruptedKeyFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, keyFileName), []byte("garbage"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	if _, err := NewVault(dir, ""); err == nil || !strings.Contains(err.Error(), "corrupted") {
		t.Fatalf("expected corrupted key error, got %v", err)
	}
}

func TestIsSentinel(t *testing.T) {
	for _, s := range []string{PlaintextSentinel, DecryptMalformedSentinel, DecryptAuthSentinel} {
		if !IsSentinel(s) {
			t.Fatalf("IsSentinel(%q) = false", s)
		}
	}
	if IsSentinel("real content") {
		t.Fatal("IsSentinel matched real content")
	}
}

func encode(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

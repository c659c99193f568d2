package cryptox_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/kyfplatform/kyf-api/pkg/cryptox"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newEngine(t *testing.T) *cryptox.Engine {
	t.Helper()
	e, err := cryptox.NewEngine(testKey, 4)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

// --- Engine construction ---

func TestNewEngine_RejectsBadKeys(t *testing.T) {
	if _, err := cryptox.NewEngine("not-hex", 4); err == nil {
		t.Fatal("expected error for non-hex key")
	}
	if _, err := cryptox.NewEngine("aabbcc", 4); err == nil {
		t.Fatal("expected error for short key")
	}
}

// --- Encrypt / Decrypt ---

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	e := newEngine(t)

	plaintext := []byte(`{"sub":"user-1","iss":"KYF"}`)
	blob, err := e.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	got, err := e.Decrypt(blob)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("round trip mismatch: got %q", got)
	}
}

func TestEncrypt_NondeterministicNonce(t *testing.T) {
	e := newEngine(t)

	a, _ := e.Encrypt([]byte("same input"))
	b, _ := e.Encrypt([]byte("same input"))
	if a == b {
		t.Fatal("two encryptions of the same plaintext must differ")
	}
}

func TestDecrypt_RejectsTamperedCiphertext(t *testing.T) {
	e := newEngine(t)

	blob, err := e.Encrypt([]byte("sensitive"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	raw, _ := base64.RawURLEncoding.DecodeString(blob)
	raw[len(raw)-1] ^= 0x01
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	if _, err := e.Decrypt(tampered); err == nil {
		t.Fatal("expected decrypt failure for tampered blob")
	}
}

func TestDecrypt_RejectsGarbage(t *testing.T) {
	e := newEngine(t)

	cases := []string{
		"",
		"!!!not base64!!!",
		base64.RawURLEncoding.EncodeToString([]byte("short")),
	}
	for _, c := range cases {
		if _, err := e.Decrypt(c); err == nil {
			t.Fatalf("expected decrypt failure for input %q", c)
		}
	}
}

func TestDecrypt_RejectsWrongKey(t *testing.T) {
	e := newEngine(t)
	other, err := cryptox.NewEngine(strings.Repeat("ff", 32), 4)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	blob, _ := e.Encrypt([]byte("cross-key"))
	if _, err := other.Decrypt(blob); err == nil {
		t.Fatal("expected decrypt failure under a different key")
	}
}

// --- Hash / Compare ---

func TestHashCompare(t *testing.T) {
	e := newEngine(t)

	digest, err := e.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if digest == "correct horse" {
		t.Fatal("digest must not equal the input")
	}

	if !e.Compare("correct horse", digest) {
		t.Fatal("Compare should accept the original secret")
	}
	if e.Compare("wrong secret", digest) {
		t.Fatal("Compare should reject a different secret")
	}
	if e.Compare("correct horse", "not-a-bcrypt-digest") {
		t.Fatal("Compare should reject a malformed digest")
	}
}

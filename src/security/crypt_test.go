package security

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	secrets := []string{
		"api-key-123",
		"",
		"a longer secret with spaces and symbols !@#$%",
	}

	for _, secret := range secrets {
		encoded, err := EncryptString(secret)
		if err != nil {
			t.Fatalf("encrypt failed: %v", err)
		}
		if encoded == secret && secret != "" {
			t.Fatalf("ciphertext must not equal plaintext")
		}

		decoded, err := DecryptString(encoded)
		if err != nil {
			t.Fatalf("decrypt failed: %v", err)
		}
		if decoded != secret {
			t.Fatalf("round trip mismatch: want %q, got %q", secret, decoded)
		}
	}
}

func TestEncryptProducesFreshNonce(t *testing.T) {
	first, err := EncryptString("api-key-123")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	second, err := EncryptString("api-key-123")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if first == second {
		t.Fatalf("two encryptions of the same value must differ")
	}
}

func TestDecryptRejectsTamperedValue(t *testing.T) {
	encoded, err := EncryptString("api-key-123")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("unexpected encoding: %v", err)
	}
	sealed[len(sealed)-1] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(sealed)

	if _, err := DecryptString(tampered); err == nil {
		t.Fatalf("tampered ciphertext must fail to decrypt")
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	if _, err := DecryptString("not base64 at all %%%"); err == nil {
		t.Fatalf("invalid base64 must fail")
	}
	short := base64.StdEncoding.EncodeToString([]byte("short"))
	if _, err := DecryptString(short); err == nil || !strings.Contains(err.Error(), "too short") {
		t.Fatalf("truncated value must fail, got %v", err)
	}
}

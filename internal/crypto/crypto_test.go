package crypto

import (
	"encoding/base64"
	"strings"
	"sync"
	"testing"
)

func newTestEncryptor(t *testing.T) *Encryptor {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	enc, err := NewEncryptor(key)
	if err != nil {
		t.Fatalf("NewEncryptor() error = %v", err)
	}
	return enc
}

func TestNewEncryptorKeyLength(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33, 64} {
		if _, err := NewEncryptor(make([]byte, n)); err != ErrInvalidKey {
			t.Errorf("NewEncryptor(%d bytes) error = %v, want ErrInvalidKey", n, err)
		}
	}

	if _, err := NewEncryptor(make([]byte, 32)); err != nil {
		t.Errorf("NewEncryptor(32 bytes) error = %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	enc := newTestEncryptor(t)

	plaintexts := []string{
		"AIzaSyD-example-gemini-key",
		"gsk_example_groq_key_0123456789",
		`{"provider":"gemini","enabled":true}`,
		strings.Repeat("k", 4096),
		"ÐºÐ»ÑŽÑ‡ å¯† üîê",
		"line1\nline2\r\nline3",
	}

	for _, pt := range plaintexts {
		ct, err := enc.Encrypt(pt)
		if err != nil {
			t.Fatalf("Encrypt(%.20q) error = %v", pt, err)
		}
		if ct == pt {
			t.Fatalf("Encrypt(%.20q) returned the plaintext", pt)
		}
		if _, err := base64.StdEncoding.DecodeString(ct); err != nil {
			t.Fatalf("ciphertext is not base64: %v", err)
		}

		got, err := enc.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if got != pt {
			t.Errorf("Decrypt() = %.20q, want %.20q", got, pt)
		}
	}
}

func TestEmptyStringPassesThrough(t *testing.T) {
	enc := newTestEncryptor(t)

	ct, err := enc.Encrypt("")
	if err != nil || ct != "" {
		t.Errorf("Encrypt(\"\") = %q, %v; want \"\", nil", ct, err)
	}
	pt, err := enc.Decrypt("")
	if err != nil || pt != "" {
		t.Errorf("Decrypt(\"\") = %q, %v; want \"\", nil", pt, err)
	}
}

func TestNonceUniqueness(t *testing.T) {
	enc := newTestEncryptor(t)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ct, err := enc.Encrypt("same key material")
		if err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}
		if seen[ct] {
			t.Fatal("duplicate ciphertext, nonce reuse")
		}
		seen[ct] = true
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	a := newTestEncryptor(t)
	b := newTestEncryptor(t)

	ct, _ := a.Encrypt("user provider key")
	if _, err := b.Decrypt(ct); err == nil {
		t.Error("Decrypt() with a different key should fail")
	}
}

func TestDecryptRejectsTampering(t *testing.T) {
	enc := newTestEncryptor(t)
	ct, _ := enc.Encrypt("user provider key")
	raw, _ := base64.StdEncoding.DecodeString(ct)

	tampers := map[string]func([]byte) []byte{
		"nonce bit flip": func(d []byte) []byte { d[0] ^= 1; return d },
		"body bit flip":  func(d []byte) []byte { d[len(d)/2] ^= 1; return d },
		"tag bit flip":   func(d []byte) []byte { d[len(d)-1] ^= 1; return d },
		"truncated":      func(d []byte) []byte { return d[:len(d)-4] },
		"extended":       func(d []byte) []byte { return append(d, 0xAB) },
	}

	for name, tamper := range tampers {
		t.Run(name, func(t *testing.T) {
			cp := append([]byte(nil), raw...)
			mangled := base64.StdEncoding.EncodeToString(tamper(cp))
			if _, err := enc.Decrypt(mangled); err == nil {
				t.Error("Decrypt() accepted tampered ciphertext")
			}
		})
	}
}

func TestDecryptRejectsMalformedInput(t *testing.T) {
	enc := newTestEncryptor(t)

	bad := []string{
		"not base64 at all!!!",
		base64.StdEncoding.EncodeToString([]byte("x")),
		base64.StdEncoding.EncodeToString(make([]byte, 12)), // nonce only
	}
	for _, ct := range bad {
		if _, err := enc.Decrypt(ct); err == nil {
			t.Errorf("Decrypt(%q) should have failed", ct)
		}
	}
}

func TestGenerateKeyIsRandom(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		key, err := GenerateKey()
		if err != nil {
			t.Fatalf("GenerateKey() error = %v", err)
		}
		if len(key) != 32 {
			t.Fatalf("GenerateKey() length = %d, want 32", len(key))
		}
		if seen[string(key)] {
			t.Fatal("GenerateKey() produced a duplicate")
		}
		seen[string(key)] = true
	}
}

func TestConcurrentUse(t *testing.T) {
	enc := newTestEncryptor(t)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				pt := strings.Repeat("x", id+j+1)
				ct, err := enc.Encrypt(pt)
				if err != nil {
					errs <- err
					return
				}
				got, err := enc.Decrypt(ct)
				if err != nil {
					errs <- err
					return
				}
				if got != pt {
					errs <- ErrInvalidCipher
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		t.Fatalf("concurrent encrypt/decrypt failed: %v", err)
	}
}

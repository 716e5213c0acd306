package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"
)

// sealWithNonce encrypts plaintext under a caller-chosen nonce, standing in
// for the provisioning flow's encrypt side in tests.
func sealWithNonce(key, nonce, plaintext []byte, aad string) (ciphertext, iv, tag []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, nil, err
	}
	aead, err := cipher.NewGCMWithNonceSize(block, len(nonce))
	if err != nil {
		return nil, nil, nil, err
	}
	sealed := aead.Seal(nil, nonce, plaintext, []byte(aad))
	split := len(sealed) - aead.Overhead()
	return sealed[:split], nonce, sealed[split:], nil
}

func TestDecryptEnvelope_RoundTrip(t *testing.T) {
	masterKey := []byte("scheduler-master-key")
	plaintext := []byte(`{"username":"parent01","password":"s3cret"}`)

	secret, err := EncryptEnvelope(plaintext, masterKey)
	if err != nil {
		t.Fatalf("EncryptEnvelope failed: %v", err)
	}

	got, err := New(masterKey).DecryptEnvelope(secret)
	if err != nil {
		t.Fatalf("DecryptEnvelope failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("plaintext = %q; want %q", got, plaintext)
	}
}

func TestDecryptEnvelope_WrongMasterKey(t *testing.T) {
	secret, err := EncryptEnvelope([]byte("payload"), []byte("right-key"))
	if err != nil {
		t.Fatalf("EncryptEnvelope failed: %v", err)
	}

	_, err = New([]byte("wrong-key")).DecryptEnvelope(secret)
	if !errors.Is(err, ErrAuthentication) {
		t.Errorf("DecryptEnvelope error = %v; want ErrAuthentication", err)
	}
}

// flipBit corrupts a single bit of a hex-encoded field.
func flipBit(t *testing.T, hexField string) string {
	raw, err := hex.DecodeString(hexField)
	if err != nil {
		t.Fatalf("decode hex: %v", err)
	}
	raw[0] ^= 0x01
	return hex.EncodeToString(raw)
}

func TestDecryptEnvelope_TamperDetected(t *testing.T) {
	masterKey := []byte("master")

	cases := []struct {
		name   string
		mutate func(*EnvelopeSecret)
	}{
		{"ciphertext", func(s *EnvelopeSecret) { s.Ciphertext = flipBit(t, s.Ciphertext) }},
		{"payload tag", func(s *EnvelopeSecret) { s.Tag = flipBit(t, s.Tag) }},
		{"wrapped DEK", func(s *EnvelopeSecret) { s.WrappedDEK = flipBit(t, s.WrappedDEK) }},
		{"wrapped tag", func(s *EnvelopeSecret) { s.WrappedTag = flipBit(t, s.WrappedTag) }},
		{"payload IV", func(s *EnvelopeSecret) { s.IV = flipBit(t, s.IV) }},
		{"wrapped IV", func(s *EnvelopeSecret) { s.WrappedIV = flipBit(t, s.WrappedIV) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			secret, err := EncryptEnvelope([]byte("sensitive"), masterKey)
			if err != nil {
				t.Fatalf("EncryptEnvelope failed: %v", err)
			}
			tc.mutate(secret)

			got, err := New(masterKey).DecryptEnvelope(secret)
			if !errors.Is(err, ErrAuthentication) {
				t.Errorf("DecryptEnvelope error = %v; want ErrAuthentication", err)
			}
			if got != nil {
				t.Errorf("DecryptEnvelope returned %q on tampered input; want nil", got)
			}
		})
	}
}

func TestOpenSecret(t *testing.T) {
	masterKey := []byte("master")
	secret, err := EncryptEnvelope([]byte("plaintext"), masterKey)
	if err != nil {
		t.Fatalf("EncryptEnvelope failed: %v", err)
	}
	raw, err := json.Marshal(secret)
	if err != nil {
		t.Fatalf("marshal secret: %v", err)
	}

	got, err := New(masterKey).OpenSecret(string(raw))
	if err != nil {
		t.Fatalf("OpenSecret failed: %v", err)
	}
	if string(got) != "plaintext" {
		t.Errorf("OpenSecret = %q; want %q", got, "plaintext")
	}
}

func TestOpenSecret_BadJSON(t *testing.T) {
	_, err := New([]byte("master")).OpenSecret("not-a-json")
	if err == nil {
		t.Fatal("OpenSecret did not return error for malformed JSON")
	}
}

func TestDecryptEnvelope_MissingField(t *testing.T) {
	secret, err := EncryptEnvelope([]byte("payload"), []byte("master"))
	if err != nil {
		t.Fatalf("EncryptEnvelope failed: %v", err)
	}
	secret.WrappedIV = ""

	_, err = New([]byte("master")).DecryptEnvelope(secret)
	if err == nil {
		t.Fatal("DecryptEnvelope did not return error for missing field")
	}
}

// Secrets written by the provisioning flow carry 16-byte IVs; the vault must
// accept those alongside the 12-byte nonces EncryptEnvelope emits.
func TestDecrypt_LongIV(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	iv := bytes.Repeat([]byte{0x07}, 16)

	ciphertext, _, tag, err := sealWithNonce(key, iv, []byte("legacy"), aadPayload)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	got, err := Decrypt(ciphertext, key, iv, tag)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if string(got) != "legacy" {
		t.Errorf("Decrypt = %q; want %q", got, "legacy")
	}
}

// Package vault implements the two-layer envelope-encryption scheme used to
// store portal credentials at rest. A payload is encrypted under a per-secret
// data-encryption key (DEK) with AES-256-GCM, and the DEK itself is wrapped
// under a key derived from the process-wide master key. Recovering a plaintext
// therefore requires unwrapping the DEK first; the master key never encrypts
// bulk data directly, and raw key material never leaves this package.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrAuthentication is returned when an authentication tag fails to verify,
// meaning the master key is wrong or the stored secret was tampered with or
// corrupted. Decryption fails closed; partially decrypted bytes are never
// returned.
var ErrAuthentication = errors.New("vault: authentication failed")

// Additional authenticated data labels bind each ciphertext to its layer, so
// a wrapped DEK can never be fed to the payload cipher or vice versa.
const (
	aadWrap    = "graker-dek-wrapping"
	aadPayload = "graker-dek-encryption"
)

// dekSize is the size in bytes of a data-encryption key (AES-256).
const dekSize = 32

// EnvelopeSecret is the stored form of an envelope-encrypted value. All six
// fields are produced together at encryption time and are only meaningful as
// a unit; each is hex-encoded for storage inside a JSON column.
type EnvelopeSecret struct {
	// Ciphertext is the AES-GCM-encrypted payload.
	Ciphertext string `json:"encryptedData"`
	// IV is the nonce used for the payload layer.
	IV string `json:"iv"`
	// Tag is the authentication tag for the payload layer.
	Tag string `json:"tag"`
	// WrappedDEK is the DEK encrypted under the derived master key.
	WrappedDEK string `json:"wrappedDEK"`
	// WrappedIV is the nonce used for the wrapping layer.
	WrappedIV string `json:"wrappedIV"`
	// WrappedTag is the authentication tag for the wrapping layer.
	WrappedTag string `json:"wrappedTag"`
}

// Vault decrypts envelope secrets with a process-wide master key.
type Vault struct {
	masterKey []byte
}

// New creates a Vault holding the given master key. The key may be of any
// length; the wrapping layer always derives a fixed-size AES key from it.
func New(masterKey []byte) *Vault {
	return &Vault{masterKey: masterKey}
}

// UnwrapDEK recovers a data-encryption key from its wrapped form. The AES key
// for the wrapping layer is the SHA-256 digest of the master key, so master
// keys of any length are accepted. Returns ErrAuthentication if tag
// verification fails.
func UnwrapDEK(wrapped, masterKey, iv, tag []byte) ([]byte, error) {
	derived := sha256.Sum256(masterKey)
	return gcmOpen(derived[:], iv, wrapped, tag, aadWrap)
}

// Decrypt performs authenticated decryption of a payload ciphertext with the
// given DEK. Returns ErrAuthentication if tag verification fails.
func Decrypt(ciphertext, key, iv, tag []byte) ([]byte, error) {
	return gcmOpen(key, iv, ciphertext, tag, aadPayload)
}

// DecryptEnvelope recovers the plaintext of an envelope secret: it unwraps
// the DEK under the vault's master key, then decrypts the payload with it.
// This is the sole entry point used by the rest of the system.
func (v *Vault) DecryptEnvelope(secret *EnvelopeSecret) ([]byte, error) {
	fields, err := secret.decode()
	if err != nil {
		return nil, err
	}
	dek, err := UnwrapDEK(fields.wrappedDEK, v.masterKey, fields.wrappedIV, fields.wrappedTag)
	if err != nil {
		return nil, err
	}
	return Decrypt(fields.ciphertext, dek, fields.iv, fields.tag)
}

// OpenSecret parses a JSON-serialized EnvelopeSecret, as stored by the
// provisioning flow, and decrypts it.
func (v *Vault) OpenSecret(raw string) ([]byte, error) {
	var secret EnvelopeSecret
	if err := json.Unmarshal([]byte(raw), &secret); err != nil {
		return nil, fmt.Errorf("parse envelope secret: %w", err)
	}
	return v.DecryptEnvelope(&secret)
}

// EncryptEnvelope produces an envelope secret for the given plaintext: a
// fresh random DEK encrypts the payload, and the DEK is wrapped under the
// master key. The provisioning flow uses this form; here it is the inverse
// primitive for DecryptEnvelope.
func EncryptEnvelope(plaintext, masterKey []byte) (*EnvelopeSecret, error) {
	dek := make([]byte, dekSize)
	if _, err := rand.Read(dek); err != nil {
		return nil, fmt.Errorf("generate DEK: %w", err)
	}

	ciphertext, iv, tag, err := gcmSeal(dek, plaintext, aadPayload)
	if err != nil {
		return nil, err
	}

	derived := sha256.Sum256(masterKey)
	wrapped, wrappedIV, wrappedTag, err := gcmSeal(derived[:], dek, aadWrap)
	if err != nil {
		return nil, err
	}

	return &EnvelopeSecret{
		Ciphertext: hex.EncodeToString(ciphertext),
		IV:         hex.EncodeToString(iv),
		Tag:        hex.EncodeToString(tag),
		WrappedDEK: hex.EncodeToString(wrapped),
		WrappedIV:  hex.EncodeToString(wrappedIV),
		WrappedTag: hex.EncodeToString(wrappedTag),
	}, nil
}

// envelopeFields holds the raw bytes of a decoded EnvelopeSecret.
type envelopeFields struct {
	ciphertext, iv, tag               []byte
	wrappedDEK, wrappedIV, wrappedTag []byte
}

func (s *EnvelopeSecret) decode() (*envelopeFields, error) {
	var f envelopeFields
	var err error
	for _, fld := range []struct {
		name string
		src  string
		dst  *[]byte
	}{
		{"encryptedData", s.Ciphertext, &f.ciphertext},
		{"iv", s.IV, &f.iv},
		{"tag", s.Tag, &f.tag},
		{"wrappedDEK", s.WrappedDEK, &f.wrappedDEK},
		{"wrappedIV", s.WrappedIV, &f.wrappedIV},
		{"wrappedTag", s.WrappedTag, &f.wrappedTag},
	} {
		if fld.src == "" {
			return nil, fmt.Errorf("envelope secret: missing field %s", fld.name)
		}
		if *fld.dst, err = hex.DecodeString(fld.src); err != nil {
			return nil, fmt.Errorf("envelope secret: decode %s: %w", fld.name, err)
		}
	}
	return &f, nil
}

// gcmOpen decrypts ciphertext||tag with AES-GCM. The nonce size is taken from
// the stored IV so secrets written with 12- or 16-byte nonces both verify.
func gcmOpen(key, iv, ciphertext, tag []byte, aad string) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, len(iv))
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	plaintext, err := aead.Open(nil, iv, sealed, []byte(aad))
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

// gcmSeal encrypts plaintext with AES-GCM under a fresh random nonce and
// returns ciphertext, nonce, and tag separately, matching the stored form.
func gcmSeal(key, plaintext []byte, aad string) (ciphertext, nonce, tag []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create AEAD: %w", err)
	}
	nonce = make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nil, nonce, plaintext, []byte(aad))
	split := len(sealed) - aead.Overhead()
	return sealed[:split], nonce, sealed[split:], nil
}

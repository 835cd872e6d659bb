// Package crypto provides the cryptographic envelope for hygienectl vaults.
//
// This package implements PBKDF2-SHA256 key derivation and AES-256-GCM
// authenticated encryption of JSON-serializable records.
//
// # Security Features
//
//   - AES-256-GCM authenticated encryption
//   - PBKDF2-HMAC-SHA256 key derivation (100,000 iterations)
//   - Fresh 96-bit IV from crypto/rand for every encryption
//   - Secure memory wiping for key material
//
// # Example Usage
//
//	salt, _ := crypto.GenerateSalt()
//	key := crypto.DeriveKey("master password", salt)
//	defer crypto.SecureWipe(key)
//
//	env, err := crypto.Encrypt(key, map[string]string{"check": "VALID"})
//
//	var out map[string]string
//	err = crypto.Decrypt(key, env.IV, env.Ciphertext, &out)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 and cipher parameters.
const (
	// PBKDF2Iterations is the PBKDF2-HMAC-SHA256 iteration count.
	PBKDF2Iterations = 100_000

	// KeyLength is the length of encryption keys in bytes (256 bits).
	KeyLength = 32

	// SaltLength is the length of the per-vault salt in bytes.
	SaltLength = 16

	// NonceLength is the length of GCM nonces (IVs) in bytes (96 bits).
	NonceLength = 12
)

// Sentinel errors returned by crypto functions.
var (
	// ErrInvalidKeyLength indicates the key is not 32 bytes.
	ErrInvalidKeyLength = errors.New("crypto: invalid key length, must be 32 bytes")

	// ErrInvalidNonceLength indicates the nonce is not 12 bytes.
	ErrInvalidNonceLength = errors.New("crypto: invalid nonce length, must be 12 bytes")

	// ErrDecryptionFailed indicates decryption, tag verification or decoding failed.
	ErrDecryptionFailed = errors.New("crypto: decryption failed")

	// ErrCiphertextTooShort indicates the ciphertext is shorter than the GCM tag.
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")
)

// Envelope is the storage form of an encrypted value.
type Envelope struct {
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`
}

// GenerateSalt returns SaltLength bytes from crypto/rand.
func GenerateSalt() ([]byte, error) {
	return randomBytes(SaltLength)
}

// GenerateIV returns NonceLength bytes from crypto/rand.
func GenerateIV() ([]byte, error) {
	return randomBytes(NonceLength)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("crypto: failed to read random bytes: %w", err)
	}
	return b, nil
}

// DeriveKey derives a 256-bit AES key from a password using PBKDF2-HMAC-SHA256.
// The result is deterministic for a given password and salt.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, PBKDF2Iterations, KeyLength, sha256.New)
}

// Encrypt serializes plaintext as JSON and seals it under key with a fresh IV.
func Encrypt(key []byte, plaintext any) (*Envelope, error) {
	data, err := json.Marshal(plaintext)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to encode plaintext: %w", err)
	}
	defer SecureWipe(data)

	ciphertext, iv, err := Seal(key, data)
	if err != nil {
		return nil, err
	}
	return &Envelope{IV: iv, Ciphertext: ciphertext}, nil
}

// Decrypt opens ciphertext and decodes the JSON payload into out.
//
// Every failure (wrong key, corrupted or truncated bytes, bad IV length,
// undecodable payload) is reported as ErrDecryptionFailed so callers cannot
// tell the causes apart.
func Decrypt(key, iv, ciphertext []byte, out any) error {
	plaintext, err := Open(key, ciphertext, iv)
	if err != nil {
		if errors.Is(err, ErrInvalidKeyLength) {
			return err
		}
		return ErrDecryptionFailed
	}
	defer SecureWipe(plaintext)

	if err := json.Unmarshal(plaintext, out); err != nil {
		return ErrDecryptionFailed
	}
	return nil
}

// Seal encrypts plaintext using AES-256-GCM authenticated encryption.
//
// A cryptographically secure random 12-byte nonce is generated for every
// call. The authentication tag is appended to the ciphertext.
func Seal(key, plaintext []byte) (ciphertext []byte, nonce []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce, err = GenerateIV()
	if err != nil {
		return nil, nil, err
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Open decrypts ciphertext produced by Seal, verifying the authentication tag.
func Open(key, ciphertext, nonce []byte) (plaintext []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(nonce) != NonceLength {
		return nil, ErrInvalidNonceLength
	}

	if len(ciphertext) < gcm.Overhead() {
		return nil, ErrCiphertextTooShort
	}

	plaintext, err = gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}
	return gcm, nil
}

// SecureWipe overwrites a byte slice with zeros in a way that prevents
// compiler optimization from removing the operation.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// b is still "in use" after the loop, so the stores above stay.
	runtime.KeepAlive(b)
}

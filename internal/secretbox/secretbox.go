// Package secretbox encrypts tenant gateway secrets at rest.
//
// Values are stored as "nonceHex:tagHex:ciphertextHex". Anything that does
// not parse as that envelope is treated as legacy plaintext and returned
// unchanged, so tenants onboarded before encryption keep working. Callers
// get an explicit outcome and are expected to log and count fallbacks.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyIterations = 10000
	keyLen        = 32
	tagLen        = 16
)

var ErrMissingMasterSecret = errors.New("missing_master_secret")

// DecryptOutcome reports how a stored value was turned into a usable secret.
type DecryptOutcome string

const (
	// OutcomeDecrypted means the envelope parsed and the AEAD opened.
	OutcomeDecrypted DecryptOutcome = "decrypted"
	// OutcomePlaintext means the value was not an envelope and was passed through.
	OutcomePlaintext DecryptOutcome = "plaintext"
	// OutcomeUnreadable means the value looked like an envelope but failed to
	// open; the raw value is passed through for the caller to decide.
	OutcomeUnreadable DecryptOutcome = "unreadable"
)

// Codec seals and opens gateway secrets with AES-256-GCM.
type Codec struct {
	aead cipher.AEAD
}

// New derives the data key from the master secret via PBKDF2-SHA256.
// The salt is derived from the master secret itself so that every node
// sharing the secret derives the same key without extra coordination.
func New(masterSecret string) (*Codec, error) {
	if strings.TrimSpace(masterSecret) == "" {
		return nil, ErrMissingMasterSecret
	}

	salt := sha256.Sum256([]byte(masterSecret))
	key := pbkdf2.Key([]byte(masterSecret), salt[:], keyIterations, keyLen, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return &Codec{aead: aead}, nil
}

// Encrypt seals plaintext into the envelope format. Empty input stays empty.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-tagLen]
	tag := sealed[len(sealed)-tagLen:]

	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt opens an envelope. Values that are not envelopes, or that fail to
// open, are returned unchanged with a non-Decrypted outcome.
func (c *Codec) Decrypt(value string) (string, DecryptOutcome) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return value, OutcomePlaintext
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != c.aead.NonceSize() {
		return value, OutcomeUnreadable
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagLen {
		return value, OutcomeUnreadable
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return value, OutcomeUnreadable
	}

	plaintext, err := c.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return value, OutcomeUnreadable
	}

	return string(plaintext), OutcomeDecrypted
}

package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	KeySize   = 32
	NonceSize = 12
	TagSize   = 16
)

// Suite names an AEAD construction.
type Suite string

const (
	AES256GCM        Suite = "aes-256-gcm"
	ChaCha20Poly1305 Suite = "chacha20-poly1305"
)

// DefaultSuite is used for new profiles.
const DefaultSuite = AES256GCM

// ParseSuite validates a suite name. An empty name selects DefaultSuite.
func ParseSuite(name string) (Suite, error) {
	switch Suite(name) {
	case "":
		return DefaultSuite, nil
	case AES256GCM, ChaCha20Poly1305:
		return Suite(name), nil
	default:
		return "", fmt.Errorf("aead: unsupported suite %q", name)
	}
}

// Engine seals and opens payloads for one suite.
type Engine struct {
	suite Suite
	rand  io.Reader
}

// New returns an Engine for suite.
func New(suite Suite) (*Engine, error) {
	s, err := ParseSuite(string(suite))
	if err != nil {
		return nil, err
	}
	return &Engine{suite: s, rand: rand.Reader}, nil
}

// Suite returns the engine's suite.
func (e *Engine) Suite() Suite { return e.suite }

// NewNonce returns a fresh random 96-bit nonce.
func (e *Engine) NewNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(e.rand, nonce); err != nil {
		return nil, fmt.Errorf("aead: generating nonce: %w", err)
	}
	return nonce, nil
}

// Seal encrypts plaintext and returns ciphertext with the tag appended.
func (e *Engine) Seal(key, nonce, plaintext, ad []byte) ([]byte, error) {
	c, err := e.cipher(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("aead: nonce must be %d bytes, got %d", NonceSize, len(nonce))
	}
	return c.Seal(nil, nonce, plaintext, ad), nil
}

// Open authenticates and decrypts sealed. Any tamper or wrong key returns
// ErrAuthentication.
func (e *Engine) Open(key, nonce, sealed, ad []byte) ([]byte, error) {
	c, err := e.cipher(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize || len(sealed) < TagSize {
		return nil, kerrors.ErrAuthentication
	}
	pt, err := c.Open(nil, nonce, sealed, ad)
	if err != nil {
		return nil, kerrors.ErrAuthentication
	}
	return pt, nil
}

func (e *Engine) cipher(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("aead: key must be %d bytes, got %d", KeySize, len(key))
	}
	switch e.suite {
	case ChaCha20Poly1305:
		return chacha20poly1305.New(key)
	default:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	}
}

// Split separates a sealed payload into ciphertext and tag.
func Split(sealed []byte) (ciphertext, tag []byte) {
	n := len(sealed) - TagSize
	return sealed[:n:n], sealed[n:]
}

// Join reassembles a sealed payload from ciphertext and tag.
func Join(ciphertext, tag []byte) []byte {
	out := make([]byte, 0, len(ciphertext)+len(tag))
	out = append(out, ciphertext...)
	return append(out, tag...)
}

const (
	recordDomain  = "keyclave/record/v1"
	profileDomain = "keyclave/profile/v1"
)

// RecordAD returns the associated data binding a record id and version.
func RecordAD(id string, version uint64) []byte {
	ad := make([]byte, 0, len(recordDomain)+4+len(id)+8)
	ad = append(ad, recordDomain...)
	ad = binary.BigEndian.AppendUint32(ad, uint32(len(id)))
	ad = append(ad, id...)
	return binary.BigEndian.AppendUint64(ad, version)
}

// ProfileAD returns the associated data for a profile envelope such as the
// verification value or the TOTP secret.
func ProfileAD(purpose string) []byte {
	ad := make([]byte, 0, len(profileDomain)+1+len(purpose))
	ad = append(ad, profileDomain...)
	ad = append(ad, '/')
	return append(ad, purpose...)
}

package records

import (
	"crypto/subtle"

	"github.com/PolarWolf314/keyclave/internal/aead"
	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
	"github.com/PolarWolf314/keyclave/internal/models"
)

// Profile envelope purposes, bound into the associated data.
const (
	PurposeVerification = "verification"
	PurposeTOTP         = "totp"
)

// verificationValue is the known plaintext sealed in the verification envelope.
var verificationValue = []byte("keyclave verification value v1\x00")

// SealEnvelope seals plaintext under key for a profile purpose.
func SealEnvelope(engine *aead.Engine, key []byte, purpose string, plaintext []byte) (models.Envelope, error) {
	nonce, err := engine.NewNonce()
	if err != nil {
		return models.Envelope{}, err
	}
	sealed, err := engine.Seal(key, nonce, plaintext, aead.ProfileAD(purpose))
	if err != nil {
		return models.Envelope{}, err
	}
	return models.Envelope{Nonce: nonce, Ciphertext: sealed}, nil
}

// OpenEnvelope opens a profile envelope sealed for purpose.
func OpenEnvelope(engine *aead.Engine, key []byte, purpose string, env models.Envelope) ([]byte, error) {
	return engine.Open(key, env.Nonce, env.Ciphertext, aead.ProfileAD(purpose))
}

// NewVerification seals the verification value under key.
func NewVerification(engine *aead.Engine, key []byte) (models.Envelope, error) {
	return SealEnvelope(engine, key, PurposeVerification, verificationValue)
}

// Verify reports whether key opens the verification envelope. Any failure,
// whether a wrong key or a corrupted envelope, yields ErrInvalidPassphrase.
// The plaintext comparison runs in constant time.
func Verify(engine *aead.Engine, key []byte, env models.Envelope) error {
	plaintext, err := OpenEnvelope(engine, key, PurposeVerification, env)
	if err != nil {
		return kerrors.ErrInvalidPassphrase
	}
	if subtle.ConstantTimeCompare(plaintext, verificationValue) != 1 {
		return kerrors.ErrInvalidPassphrase
	}
	return nil
}

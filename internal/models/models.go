// Package models defines the persisted vault data model shared by the
// storage backends and the vault engine.
package models

import (
	"fmt"
	"math"
	"time"

	"github.com/PolarWolf314/keyclave/internal/aead"
	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
	"github.com/PolarWolf314/keyclave/internal/kdf"
)

// Provenance sources.
const (
	SourceManual   = "manual"
	SourceMarkdown = "markdown"
	SourceDotenv   = "dotenv"
	SourceBundle   = "bundle"
)

const (
	MaxNameLength = 256
	MaxValueSize  = 1024 * 1024
)

// Envelope is a value sealed under the profile key.
type Envelope struct {
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Profile is the single per-vault record holding KDF inputs and the
// verification envelope. It never contains key material.
type Profile struct {
	Salt            []byte     `json:"salt"`
	KDF             kdf.Params `json:"kdf_params"`
	Suite           aead.Suite `json:"suite"`
	Verification    Envelope   `json:"verification_envelope"`
	AutoLockSeconds int        `json:"auto_lock_seconds"`
	SealCount       uint64     `json:"seal_count"`
	TOTP            *Envelope  `json:"totp,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	RotatedAt       time.Time  `json:"rotated_at,omitempty"`
}

// AutoLock returns the idle timeout. Zero disables auto-lock.
func (p Profile) AutoLock() time.Duration {
	return time.Duration(p.AutoLockSeconds) * time.Second
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	out := p
	out.Salt = append([]byte(nil), p.Salt...)
	out.Verification = p.Verification.clone()
	if p.TOTP != nil {
		t := p.TOTP.clone()
		out.TOTP = &t
	}
	return out
}

func (e Envelope) clone() Envelope {
	return Envelope{
		Nonce:      append([]byte(nil), e.Nonce...),
		Ciphertext: append([]byte(nil), e.Ciphertext...),
	}
}

// Provenance records how a secret entered the vault.
type Provenance struct {
	Source     string    `json:"source"`
	ImportedAt time.Time `json:"imported_at"`
	Confidence float64   `json:"confidence"`
}

// Metadata is the plaintext part of a record.
type Metadata struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Provider    string     `json:"provider"`
	ProjectPath string     `json:"project_path"`
	Provenance  Provenance `json:"provenance"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Validate checks the fields a caller supplies on create.
func (m Metadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", kerrors.ErrInvalidMetadata)
	}
	if len(m.Name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d bytes", kerrors.ErrInvalidMetadata, MaxNameLength)
	}
	c := m.Provenance.Confidence
	if math.IsNaN(c) || c < 0 || c > 1 {
		return fmt.Errorf("%w: confidence must be within [0,1]", kerrors.ErrInvalidMetadata)
	}
	return nil
}

// Record is a sealed secret as persisted.
type Record struct {
	Metadata
	Version    uint64 `json:"version"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
	Tag        []byte `json:"tag"`
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	out.Nonce = append([]byte(nil), r.Nonce...)
	out.Ciphertext = append([]byte(nil), r.Ciphertext...)
	out.Tag = append([]byte(nil), r.Tag...)
	return out
}

package kdf

import (
	"crypto/rand"
	"fmt"
	"io"

	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
	"golang.org/x/crypto/argon2"
)

const (
	// KeyBytes is the derived key length.
	KeyBytes = 32

	// MinSaltBytes is the shortest salt Derive accepts.
	MinSaltBytes = 16

	// DefaultMemoryKiB is the default Argon2id memory cost (128 MiB).
	DefaultMemoryKiB = 128 * 1024

	// FallbackMemoryKiB is the memory cost used when the default cannot be allocated (64 MiB).
	FallbackMemoryKiB = 64 * 1024

	DefaultIterations  = 3
	DefaultParallelism = 4
)

// Params are the Argon2id cost parameters stored with a profile.
type Params struct {
	MemoryKiB   uint32 `json:"memory_kib" toml:"memory_kib"`
	Iterations  uint32 `json:"iterations" toml:"iterations"`
	Parallelism uint8  `json:"parallelism" toml:"parallelism"`
	KeyLen      uint32 `json:"key_len" toml:"key_len"`
}

// Limits bounds the costs accepted from parameters that did not come from the
// local vault, such as an imported bundle.
type Limits struct {
	MaxMemoryKiB   uint32
	MaxIterations  uint32
	MaxParallelism uint8
}

// ImportLimits returns the bounds applied to bundle parameters.
func ImportLimits() Limits {
	return Limits{
		MaxMemoryKiB:   DefaultMemoryKiB,
		MaxIterations:  10,
		MaxParallelism: 16,
	}
}

// Clamp lowers any cost in p that exceeds l.
func (l Limits) Clamp(p Params) Params {
	p.MemoryKiB = min(p.MemoryKiB, l.MaxMemoryKiB)
	p.Iterations = min(p.Iterations, l.MaxIterations)
	p.Parallelism = min(p.Parallelism, l.MaxParallelism)
	return p
}

// Check returns ErrKdfParamsRejected if any cost in p exceeds l.
func (l Limits) Check(p Params) error {
	switch {
	case p.MemoryKiB > l.MaxMemoryKiB:
		return fmt.Errorf("%w: memory %d KiB above %d KiB", kerrors.ErrKdfParamsRejected, p.MemoryKiB, l.MaxMemoryKiB)
	case p.Iterations > l.MaxIterations:
		return fmt.Errorf("%w: %d iterations above %d", kerrors.ErrKdfParamsRejected, p.Iterations, l.MaxIterations)
	case p.Parallelism > l.MaxParallelism:
		return fmt.Errorf("%w: parallelism %d above %d", kerrors.ErrKdfParamsRejected, p.Parallelism, l.MaxParallelism)
	}
	return nil
}

// DefaultParams returns the parameters used for new profiles.
func DefaultParams() Params {
	return Params{
		MemoryKiB:   DefaultMemoryKiB,
		Iterations:  DefaultIterations,
		Parallelism: DefaultParallelism,
		KeyLen:      KeyBytes,
	}
}

// MemoryBytes returns the memory cost in bytes.
func (p Params) MemoryBytes() uint64 {
	return uint64(p.MemoryKiB) * 1024
}

// Validate reports whether the parameters can be passed to Argon2id.
func (p Params) Validate() error {
	if p.Iterations < 1 {
		return fmt.Errorf("kdf: iterations must be at least 1")
	}
	if p.Parallelism < 1 {
		return fmt.Errorf("kdf: parallelism must be at least 1")
	}
	if p.MemoryKiB < 8*uint32(p.Parallelism) {
		return fmt.Errorf("kdf: memory must be at least %d KiB for %d lanes", 8*uint32(p.Parallelism), p.Parallelism)
	}
	if p.KeyLen != KeyBytes {
		return fmt.Errorf("kdf: key length must be %d bytes, got %d", KeyBytes, p.KeyLen)
	}
	return nil
}

// Engine derives keys. The zero value is not usable; use New.
type Engine struct {
	guard MemoryGuard
}

// New returns an Engine that checks memory costs against guard.
// A nil guard uses NewLimitGuard(0).
func New(guard MemoryGuard) *Engine {
	if guard == nil {
		guard = NewLimitGuard(0)
	}
	return &Engine{guard: guard}
}

// NewSalt returns MinSaltBytes of cryptographically secure randomness.
func NewSalt() ([]byte, error) {
	salt := make([]byte, MinSaltBytes)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("kdf: generating salt: %w", err)
	}
	return salt, nil
}

// Derive returns the key for passphrase, salt and p.
// Returns ErrKdfResource if the memory cost cannot be allocated.
func (e *Engine) Derive(passphrase, salt []byte, p Params) ([]byte, error) {
	if len(salt) < MinSaltBytes {
		return nil, fmt.Errorf("kdf: salt must be at least %d bytes, got %d", MinSaltBytes, len(salt))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := e.guard.Reserve(p.MemoryBytes()); err != nil {
		return nil, fmt.Errorf("%w: %d KiB: %v", kerrors.ErrKdfResource, p.MemoryKiB, err)
	}

	return argon2.IDKey(passphrase, salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLen), nil
}

// DeriveWithFallback derives with p, retrying once at FallbackMemoryKiB if the
// memory cost cannot be allocated. The returned Params are the ones actually
// used and must be persisted by the caller.
//
// Returns ErrKdfUnavailable if the fallback also fails.
func (e *Engine) DeriveWithFallback(passphrase, salt []byte, p Params) ([]byte, Params, error) {
	key, err := e.Derive(passphrase, salt, p)
	if err == nil {
		return key, p, nil
	}
	if !isResource(err) {
		return nil, Params{}, err
	}
	if p.MemoryKiB <= FallbackMemoryKiB {
		return nil, Params{}, fmt.Errorf("%w: %v", kerrors.ErrKdfUnavailable, err)
	}

	fallback := p
	fallback.MemoryKiB = FallbackMemoryKiB
	key, err = e.Derive(passphrase, salt, fallback)
	if err != nil {
		return nil, Params{}, fmt.Errorf("%w: %v", kerrors.ErrKdfUnavailable, err)
	}
	return key, fallback, nil
}

// DeriveExisting derives with the stored parameters of an existing profile.
// A resource failure here is fatal because a different cost would yield a
// different key.
func (e *Engine) DeriveExisting(passphrase, salt []byte, p Params) ([]byte, error) {
	key, err := e.Derive(passphrase, salt, p)
	if err != nil && isResource(err) {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrKdfUnavailable, err)
	}
	return key, err
}

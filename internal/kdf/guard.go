package kdf

import (
	"errors"
	"fmt"
	"math"
	"runtime/debug"

	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
)

// MemoryGuard decides whether a KDF memory cost can be allocated.
type MemoryGuard interface {
	Reserve(bytes uint64) error
}

// GuardFunc adapts a function to MemoryGuard.
type GuardFunc func(bytes uint64) error

// Reserve calls f.
func (f GuardFunc) Reserve(bytes uint64) error { return f(bytes) }

// LimitGuard rejects costs above MaxBytes. When MaxBytes is zero the Go
// runtime soft memory limit is used if one is set, otherwise half of the
// physical memory.
type LimitGuard struct {
	MaxBytes uint64
}

// NewLimitGuard returns a LimitGuard with the given ceiling in MiB.
func NewLimitGuard(maxMiB uint64) LimitGuard {
	return LimitGuard{MaxBytes: maxMiB * 1024 * 1024}
}

// Reserve implements MemoryGuard.
func (g LimitGuard) Reserve(bytes uint64) error {
	limit := g.MaxBytes
	if limit == 0 {
		limit = defaultLimit()
	}
	if limit == 0 {
		return nil
	}
	if bytes > limit {
		return fmt.Errorf("requested %d MiB exceeds limit of %d MiB", bytes>>20, limit>>20)
	}
	return nil
}

// defaultLimit is the ceiling used when none is configured, or 0 for none.
func defaultLimit() uint64 {
	// A negative input reads the current limit without changing it.
	if soft := debug.SetMemoryLimit(-1); soft > 0 && soft != math.MaxInt64 {
		return uint64(soft)
	}
	return physicalMemory() / 2
}

func isResource(err error) bool {
	return errors.Is(err, kerrors.ErrKdfResource)
}

// Package kdf derives vault keys from a passphrase using Argon2id.
//
// # Parameters
//
// Cost parameters are fixed per profile at creation and stored alongside the
// salt so that later derivations (unlock, verification) are reproducible:
//
//   - Memory: 128 MiB by default, 64 MiB when the default cannot be allocated
//   - Iterations: 3
//   - Parallelism: 4
//   - Key length: 32 bytes
//
// # Fallback
//
// DeriveWithFallback is used only when a fresh salt is in play (profile
// creation, key rotation, bundle export). It retries once at FallbackMemoryKiB
// and returns the effective Params, which the caller must persist. Derive is
// used for existing profiles; it never changes the parameters.
//
// # Memory Guards
//
// Go cannot recover from a failed large allocation, so the engine consults a
// MemoryGuard before calling Argon2. LimitGuard compares the cost against a
// configured ceiling, the runtime soft memory limit, or half of the physical
// memory, in that order.
//
// Parameters read from a bundle are checked against ImportLimits before any
// derivation, so a crafted file cannot request unbounded work.
package kdf

// Package session holds the unlocked vault key in memory.
//
// A Session is an explicit object owned by the application context. It is
// either Locked (no key held) or Unlocked. The key is zeroed whenever the
// session leaves the Unlocked state: explicit Lock, idle timeout, rotation
// commit (the old key) and shutdown.
//
// # Auto-lock
//
// Every access through WithKey refreshes the activity timestamp. An access
// that finds the session idle for at least the timeout locks it and fails
// with ErrLocked. Run drives the same check from a background ticker so the
// key does not linger in memory between accesses. Suspend and Resume bracket
// key rotation; while suspended the timeout is not enforced.
package session

// Package records implements create, read, update and delete over sealed
// secret records.
//
// Store is the only component that calls the AEAD engine with the live
// session key. Every operation requires an unlocked session, refreshes its
// activity timestamp, and fails with ErrBusy while a key rotation holds the
// store exclusively.
//
// Each seal uses a fresh random nonce, and the associated data binds the
// record id and version so a ciphertext cannot be moved between records or
// replayed at an older version.
package records

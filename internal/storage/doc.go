// Package storage persists the vault profile and sealed records.
//
// Storage sits below the encryption boundary: it only ever sees salts,
// parameters, nonces, ciphertexts and plaintext metadata. Derived keys and
// secret values never reach a Backend.
//
// # Backends
//
//   - SQLiteBackend: a single SQLite database (WAL journal). Default.
//   - FileBackend: a single JSON document replaced atomically on every write.
//
// # Rotation Commit
//
// CommitRotation must replace the profile and every record in one
// all-or-nothing step. SQLiteBackend uses one transaction; FileBackend writes
// the whole new document to a temporary file and renames it over the old one.
// An interruption at any point leaves either the old or the new state.
package storage

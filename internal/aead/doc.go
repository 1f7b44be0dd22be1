// Package aead seals and opens vault payloads with authenticated encryption.
//
// Two suites are supported, both with 256-bit keys, 96-bit nonces and
// 128-bit tags:
//
//   - aes-256-gcm (default)
//   - chacha20-poly1305
//
// Every Seal call must use a nonce from NewNonce. Nonces are random, so the
// number of seals under a single key is bounded: after MaxSealsPerKey seals
// the probability of a repeated nonce exceeds 2^-32. Profiles count their
// seals and RotationAdvised reports when a new key should be rotated in,
// well before that ceiling.
//
// Associated data binds a record's id and version (RecordAD) so that a
// ciphertext copied onto another record, or replayed from an older version,
// fails authentication.
package aead

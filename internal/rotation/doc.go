// Package rotation re-encrypts every record under a new passphrase-derived
// key with all-or-nothing semantics.
//
// Rotation is snapshot-then-swap. A new key is derived with a fresh salt,
// every record is opened under the live key and sealed under the new one
// into a staging set, and the stored records are not touched. If any step
// fails the staging set is discarded and ErrRotationFailure is returned.
// Only when every record has been staged is the new profile committed
// together with all staged records in a single backend operation, after
// which the session swaps keys and zeroes the old one.
//
// The context may cancel rotation up to the commit. The commit itself runs
// to completion regardless of cancellation.
package rotation

// Package errors provides typed error values for the KeyClave vault.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. This makes
// error handling more robust and refactoring-safe.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Key derivation errors: ErrKdfResource (recoverable, triggers the
//     low-memory fallback), ErrKdfUnavailable (fatal) and
//     ErrKdfParamsRejected (untrusted costs out of bounds)
//   - Session errors: ErrInvalidPassphrase, ErrInvalidTOTP, ErrLocked, ErrBusy
//   - Integrity errors: ErrAuthentication (tamper or wrong key, never retried)
//   - Record errors: ErrNotFound, ErrInvalidMetadata, ErrSecretExists
//   - File errors: ErrFileNotFound
//   - Profile errors: ErrProfileExists, ErrProfileNotFound
//   - Rotation errors: ErrRotationFailure, ErrRotationCancelled
//
// # Usage
//
// Return errors from internal packages:
//
//	if !s.Unlocked() {
//	    return errors.ErrLocked
//	}
//
// Handle errors in the CLI layer:
//
//	result, err := workflows.Rotate(ctx, opts)
//	if errors.Is(err, kerrors.ErrRotationFailure) {
//	    // Tell the user no changes were made
//	}
//
// Wrap errors with additional context, never with key material or values:
//
//	return fmt.Errorf("reading record %s: %w", id, errors.ErrNotFound)
package errors

package errors

import "errors"

// Key derivation errors.
var (
	// ErrKdfResource indicates the configured KDF memory cost could not be allocated.
	ErrKdfResource = errors.New("key derivation memory cost could not be allocated")

	// ErrKdfUnavailable indicates key derivation failed even at the fallback memory cost.
	ErrKdfUnavailable = errors.New("key derivation is unavailable")

	// ErrKdfParamsRejected indicates parameters read from outside the vault
	// exceed the costs this build is willing to run.
	ErrKdfParamsRejected = errors.New("key derivation parameters exceed allowed limits")
)

// Session errors indicate the vault is in the wrong state for the request.
var (
	// ErrInvalidPassphrase indicates the passphrase did not unlock the profile.
	// It is also returned for a corrupted profile so the two are indistinguishable.
	ErrInvalidPassphrase = errors.New("incorrect passphrase")

	// ErrInvalidTOTP indicates the one-time code was missing or wrong.
	ErrInvalidTOTP = errors.New("incorrect one-time code")

	// ErrLocked indicates the vault must be unlocked first.
	ErrLocked = errors.New("vault is locked")

	// ErrBusy indicates a rotation or unlock is already in progress.
	ErrBusy = errors.New("vault is busy")
)

// Integrity errors.
var (
	// ErrAuthentication indicates a ciphertext failed authentication (tamper or wrong key).
	ErrAuthentication = errors.New("authentication failed")
)

// Record errors.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("secret not found")

	// ErrInvalidMetadata indicates record metadata or value failed validation.
	ErrInvalidMetadata = errors.New("invalid secret metadata")

	// ErrSecretExists indicates a secret with the same name is already stored.
	ErrSecretExists = errors.New("secret already exists")
)

// File errors.
var (
	// ErrFileNotFound indicates an input file does not exist.
	ErrFileNotFound = errors.New("file not found")
)

// Profile errors.
var (
	// ErrProfileExists indicates a profile has already been created for this vault.
	ErrProfileExists = errors.New("profile already exists")

	// ErrProfileNotFound indicates the vault has not been initialized.
	ErrProfileNotFound = errors.New("profile has not been initialized")
)

// Rotation errors. Both guarantee the original key and records are intact.
var (
	// ErrRotationFailure indicates rotation was rolled back; no changes were made.
	ErrRotationFailure = errors.New("key rotation failed, no changes made")

	// ErrRotationCancelled indicates rotation was aborted before the swap began.
	ErrRotationCancelled = errors.New("key rotation cancelled, no changes made")
)

package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/PolarWolf314/keyclave/internal/audit"
	"github.com/PolarWolf314/keyclave/internal/totp"
)

// TOTPEnableOptions configures the TOTP enable workflow.
type TOTPEnableOptions struct {
	VaultOptions

	// Secret is the base32 secret from TOTPEnroll.
	Secret string

	// Code proves the authenticator app holds Secret.
	Code string
}

// TOTPEnroll generates a new secret and otpauth URL for account. Nothing is
// stored until TOTPEnable succeeds.
func TOTPEnroll(account string) (*totp.Enrollment, error) {
	e, err := totp.New().Generate(account)
	if err != nil {
		return nil, fmt.Errorf("generating TOTP secret: %w", err)
	}
	return &e, nil
}

// TOTPEnable seals opts.Secret into the profile once opts.Code verifies
// against it. Later unlocks require a code.
//
// Returns ErrInvalidTOTP if the code does not match the secret.
func TOTPEnable(ctx context.Context, opts TOTPEnableOptions) error {
	v, log, err := unlockVault(ctx, opts.VaultOptions)
	if err != nil {
		return err
	}
	defer v.Close()

	if err := v.EnableTOTP(ctx, opts.Secret, opts.Code); err != nil {
		return err
	}

	log.Record(audit.Entry{Operation: audit.OpTOTPEnable})
	return nil
}

// TOTPDisable removes the second factor. opts.TOTPCode both unlocks the
// vault and confirms the change.
//
// Returns ErrInvalidTOTP if the code is wrong.
func TOTPDisable(ctx context.Context, opts VaultOptions) error {
	v, log, err := unlockVault(ctx, opts)
	if err != nil {
		return err
	}
	defer v.Close()

	if err := v.DisableTOTP(ctx, opts.TOTPCode); err != nil {
		return err
	}

	log.Record(audit.Entry{Operation: audit.OpTOTPDisable})
	return nil
}

// SetAutoLockOptions configures the auto-lock workflow.
type SetAutoLockOptions struct {
	VaultOptions

	// Timeout is the new idle timeout. Zero disables auto-lock.
	Timeout time.Duration
}

// SetAutoLock persists a new idle timeout in the profile.
func SetAutoLock(ctx context.Context, opts SetAutoLockOptions) error {
	v, log, err := unlockVault(ctx, opts.VaultOptions)
	if err != nil {
		return err
	}
	defer v.Close()

	if err := v.SetAutoLock(ctx, opts.Timeout); err != nil {
		return err
	}

	log.Record(audit.Entry{Operation: audit.OpSettings, Detail: "auto_lock=" + opts.Timeout.String()})
	return nil
}

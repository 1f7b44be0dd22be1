package workflows

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/PolarWolf314/keyclave/internal/audit"
	"github.com/PolarWolf314/keyclave/internal/configs"
	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
	"github.com/PolarWolf314/keyclave/internal/storage"
	"github.com/PolarWolf314/keyclave/internal/totp"
	"github.com/PolarWolf314/keyclave/internal/vault"
)

// autoLockInterval is how often an unlocked vault checks its idle timeout.
const autoLockInterval = time.Second

// VaultOptions identifies and unlocks a vault. It is embedded in the
// options of every workflow that touches secrets.
type VaultOptions struct {
	// Settings selects the vault directory, backend and costs.
	Settings configs.Settings

	// Passphrase unlocks the vault.
	Passphrase []byte

	// TOTPCode is the current one-time code when TOTP is enabled.
	TOTPCode string

	// Verifier replaces the default TOTP verifier.
	Verifier totp.Verifier

	// Now replaces time.Now.
	Now func() time.Time
}

func (o VaultOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o VaultOptions) vaultOptions() vault.Options {
	dir := o.Settings.VaultDir
	return vault.Options{
		Params:   o.Settings.Params(),
		Suite:    o.Settings.AEADSuite(),
		AutoLock: o.Settings.AutoLock(),
		Guard:    o.Settings.Guard(),
		TOTP:     o.Verifier,
		Now:      o.Now,
		OnAutoLock: func() {
			audit.New(dir).Record(audit.Entry{Operation: audit.OpAutoLock})
		},
	}
}

// openVault opens the configured vault Locked.
//
// Returns ErrProfileNotFound if the vault has not been initialized.
func openVault(ctx context.Context, opts VaultOptions) (*vault.Vault, error) {
	if _, err := os.Stat(opts.Settings.VaultDir); os.IsNotExist(err) {
		return nil, kerrors.ErrProfileNotFound
	}

	backend, err := storage.Open(ctx, opts.Settings.StorageKind(), opts.Settings.VaultDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	v, err := vault.Open(ctx, backend, opts.vaultOptions())
	if err != nil {
		backend.Close()
		return nil, err
	}
	return v, nil
}

// unlockVault opens and unlocks the configured vault. Failed attempts are
// recorded in the audit log. The caller must Close the vault.
func unlockVault(ctx context.Context, opts VaultOptions) (*vault.Vault, *audit.Log, error) {
	v, err := openVault(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	log := audit.New(opts.Settings.VaultDir)
	if err := v.Unlock(ctx, opts.Passphrase, opts.TOTPCode); err != nil {
		v.Close()
		if errors.Is(err, kerrors.ErrInvalidPassphrase) || errors.Is(err, kerrors.ErrInvalidTOTP) {
			log.Record(audit.Entry{Operation: audit.OpUnlockFail, Detail: err.Error()})
		}
		return nil, nil, err
	}
	if v.Profile().AutoLock() > 0 {
		v.StartAutoLock(ctx, autoLockInterval)
	}
	return v, log, nil
}

package workflows

import (
	"context"

	"github.com/PolarWolf314/keyclave/internal/storage"
	"github.com/PolarWolf314/keyclave/internal/vault"
)

// StatusOptions configures the status workflow. No passphrase is needed.
type StatusOptions struct {
	VaultOptions
}

// StatusResult describes the vault.
type StatusResult struct {
	vault.Status

	VaultDir string
	Backend  storage.Kind
}

// Status reports vault health from stored metadata without unlocking.
//
// Returns ErrProfileNotFound if the vault has not been initialized.
func Status(ctx context.Context, opts StatusOptions) (*StatusResult, error) {
	v, err := openVault(ctx, opts.VaultOptions)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	st, err := v.Status(ctx)
	if err != nil {
		return nil, err
	}

	return &StatusResult{
		Status:   st,
		VaultDir: opts.Settings.VaultDir,
		Backend:  opts.Settings.StorageKind(),
	}, nil
}

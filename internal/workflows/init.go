package workflows

import (
	"context"
	"fmt"
	"os"

	"github.com/PolarWolf314/keyclave/internal/aead"
	"github.com/PolarWolf314/keyclave/internal/audit"
	"github.com/PolarWolf314/keyclave/internal/kdf"
	"github.com/PolarWolf314/keyclave/internal/storage"
	"github.com/PolarWolf314/keyclave/internal/vault"
)

// InitOptions configures the init workflow.
type InitOptions struct {
	VaultOptions
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	// VaultDir is where the vault was created.
	VaultDir string

	// Backend is the storage backend in use.
	Backend storage.Kind

	// Suite is the AEAD suite of the new profile.
	Suite aead.Suite

	// Params are the KDF costs actually stored in the profile.
	Params kdf.Params

	// Fallback reports that the configured memory cost could not be
	// allocated and the lower fallback cost was used.
	Fallback bool
}

// Init creates the vault directory and a new profile protected by
// opts.Passphrase.
//
// Returns ErrProfileExists if the vault has already been initialized.
func Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	dir := opts.Settings.VaultDir
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating vault directory: %w", err)
	}

	backend, err := storage.Open(ctx, opts.Settings.StorageKind(), dir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	v, err := vault.Create(ctx, backend, opts.Passphrase, opts.vaultOptions())
	if err != nil {
		backend.Close()
		return nil, err
	}
	defer v.Close()

	p := v.Profile()

	audit.New(dir).Record(audit.Entry{Operation: audit.OpInit, Detail: string(p.Suite)})

	return &InitResult{
		VaultDir: dir,
		Backend:  opts.Settings.StorageKind(),
		Suite:    p.Suite,
		Params:   p.KDF,
		Fallback: p.KDF.MemoryKiB < opts.Settings.Params().MemoryKiB,
	}, nil
}

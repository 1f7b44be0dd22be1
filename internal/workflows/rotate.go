package workflows

import (
	"context"

	"github.com/PolarWolf314/keyclave/internal/aead"
	"github.com/PolarWolf314/keyclave/internal/audit"
	"github.com/PolarWolf314/keyclave/internal/kdf"
	"github.com/PolarWolf314/keyclave/internal/rotation"
)

// RotateOptions configures the rotate workflow.
type RotateOptions struct {
	VaultOptions

	// NewPassphrase derives the new key. It may equal the current one to
	// refresh the salt and nonces.
	NewPassphrase []byte

	// Params are new KDF costs. Zero keeps the current profile's costs.
	Params kdf.Params

	// Suite switches the AEAD suite. Empty keeps the current one.
	Suite aead.Suite
}

// RotateResult contains the outcome of a rotate operation.
type RotateResult struct {
	// Records is the number of secrets re-encrypted.
	Records int

	// Suite is the AEAD suite after rotation.
	Suite aead.Suite

	// Params are the KDF costs stored in the new profile.
	Params kdf.Params

	// Fallback reports that the lower fallback memory cost was used.
	Fallback bool
}

// Rotate re-encrypts every secret under a key derived from
// opts.NewPassphrase. The swap is all or nothing.
//
// Returns ErrRotationFailure or ErrRotationCancelled if rotation did not
// complete; in both cases no changes were made.
// Returns ErrBusy if another rotation is running.
func Rotate(ctx context.Context, opts RotateOptions) (*RotateResult, error) {
	v, log, err := unlockVault(ctx, opts.VaultOptions)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	res, err := v.Rotate(ctx, rotation.Request{
		Passphrase: opts.NewPassphrase,
		Params:     opts.Params,
		Suite:      opts.Suite,
	})
	if err != nil {
		log.Record(audit.Entry{Operation: audit.OpRotateFail, Detail: err.Error()})
		return nil, err
	}

	log.Record(audit.Entry{Operation: audit.OpRotate, Count: res.Records, Detail: string(res.Profile.Suite)})

	return &RotateResult{
		Records:  res.Records,
		Suite:    res.Profile.Suite,
		Params:   res.Profile.KDF,
		Fallback: res.Fallback,
	}, nil
}

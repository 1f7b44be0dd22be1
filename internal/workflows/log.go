package workflows

import (
	"context"

	"github.com/PolarWolf314/keyclave/internal/audit"
	"github.com/PolarWolf314/keyclave/internal/configs"
)

// LogOptions configures the log workflow.
type LogOptions struct {
	Settings configs.Settings

	// Operation keeps only entries for this operation when set.
	Operation string

	// Limit keeps the most recent entries. Zero keeps all.
	Limit int
}

// Log reads the audit trail, oldest first. The audit log is not encrypted
// and holds no values, so no passphrase is needed.
func Log(ctx context.Context, opts LogOptions) ([]audit.Entry, error) {
	entries, err := audit.New(opts.Settings.VaultDir).ReadEntries()
	if err != nil {
		return nil, err
	}

	if opts.Operation != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.Operation == opts.Operation {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[len(entries)-opts.Limit:]
	}
	return entries, nil
}

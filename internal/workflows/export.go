package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/keyclave/internal/audit"
	"github.com/PolarWolf314/keyclave/internal/bundle"
	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
	"github.com/PolarWolf314/keyclave/internal/importer"
	"github.com/PolarWolf314/keyclave/internal/kdf"
	"github.com/PolarWolf314/keyclave/internal/utils"
)

// ExportFormat selects what Export writes.
type ExportFormat string

const (
	// FormatBundle writes an encrypted bundle readable with Import.
	FormatBundle ExportFormat = "bundle"

	// FormatDotenv merges plaintext KEY=VALUE lines into a dotenv file,
	// backing up the previous file first.
	FormatDotenv ExportFormat = "dotenv"
)

// ExportOptions configures the export workflow.
type ExportOptions struct {
	VaultOptions

	// Refs limits the export to these names or ids. Empty exports all.
	Refs []string

	// Format defaults to FormatBundle.
	Format ExportFormat

	// OutputPath is where the bundle or dotenv file is written.
	OutputPath string

	// BundlePassphrase protects the bundle. Unused for FormatDotenv.
	BundlePassphrase []byte
}

// ExportResult contains the outcome of an export operation.
type ExportResult struct {
	// OutputPath is the bundle location.
	OutputPath string

	// Count is the number of secrets exported.
	Count int

	// Backup is the copy of the previous dotenv file, if there was one.
	Backup string

	// Replaced lists dotenv keys whose existing assignment was overwritten.
	Replaced []string
}

// Export writes secrets to an encrypted bundle readable with Import, or
// merges them into a dotenv file.
//
// Returns ErrNotFound if a requested ref does not exist.
func Export(ctx context.Context, opts ExportOptions) (*ExportResult, error) {
	if opts.OutputPath == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if opts.Format == "" {
		opts.Format = FormatBundle
	}
	if opts.Format != FormatBundle && opts.Format != FormatDotenv {
		return nil, fmt.Errorf("unknown export format %q", opts.Format)
	}

	v, log, err := unlockVault(ctx, opts.VaultOptions)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	store := v.Records()
	ids := make([]string, 0, len(opts.Refs))
	if len(opts.Refs) == 0 {
		all, err := store.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, m := range all {
			ids = append(ids, m.ID)
		}
	} else {
		for _, ref := range opts.Refs {
			m, err := findSecret(ctx, store, ref)
			if err != nil {
				return nil, err
			}
			ids = append(ids, m.ID)
		}
	}

	entries := make([]importer.BundleEntry, 0, len(ids))
	for _, id := range ids {
		meta, value, err := store.Read(ctx, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, importer.BundleEntry{
			Name:        meta.Name,
			Value:       string(value),
			Provider:    meta.Provider,
			ProjectPath: meta.ProjectPath,
			Source:      meta.Provenance.Source,
		})
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0700); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	result := &ExportResult{OutputPath: opts.OutputPath, Count: len(entries)}
	if opts.Format == FormatDotenv {
		if err := writeDotenv(opts.OutputPath, entries, result); err != nil {
			return nil, err
		}
	} else {
		data, err := bundle.Seal(entries, opts.BundlePassphrase, kdf.New(opts.Settings.Guard()), bundle.Options{
			Params: opts.Settings.Params(),
			Suite:  opts.Settings.AEADSuite(),
		})
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(opts.OutputPath, data, 0600); err != nil {
			return nil, fmt.Errorf("writing bundle: %w", err)
		}
	}

	log.Record(audit.Entry{
		Operation: audit.OpExport,
		Count:     len(entries),
		Detail:    string(opts.Format) + ":" + filepath.Base(opts.OutputPath),
	})

	return result, nil
}

// writeDotenv backs up path and replaces it with entries merged in.
func writeDotenv(path string, entries []importer.BundleEntry, result *ExportResult) error {
	for _, e := range entries {
		if !importer.IsDotenvKey(e.Name) {
			return fmt.Errorf("%w: %q is not a valid dotenv key", kerrors.ErrInvalidMetadata, e.Name)
		}
	}

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	mode := os.FileMode(0600)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	backup, err := utils.BackupFile(path)
	if err != nil {
		return err
	}
	result.Backup = backup

	updates := make([]importer.DotenvEntry, len(entries))
	for i, e := range entries {
		updates[i] = importer.DotenvEntry{Key: e.Name, Value: e.Value, File: path}
	}
	merged, replaced := importer.MergeDotenv(existing, updates)
	result.Replaced = replaced

	if err := utils.WriteFileAtomic(path, merged, mode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

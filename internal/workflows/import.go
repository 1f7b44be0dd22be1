package workflows

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/PolarWolf314/keyclave/internal/audit"
	"github.com/PolarWolf314/keyclave/internal/bundle"
	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
	"github.com/PolarWolf314/keyclave/internal/importer"
	"github.com/PolarWolf314/keyclave/internal/kdf"
	"github.com/PolarWolf314/keyclave/internal/session"
)

// DefaultMinConfidence drops markdown findings below this score.
const DefaultMinConfidence = 0.6

// ImportOptions configures the import workflow.
type ImportOptions struct {
	VaultOptions

	// Kind selects the source format.
	Kind importer.Kind

	// Paths are files, directories or globs. For dotenv imports an empty
	// list searches Root recursively. For bundles exactly one file is read.
	Paths []string

	// Root resolves relative paths. Empty uses the working directory.
	Root string

	// ProjectPath is recorded on sources that do not carry one.
	ProjectPath string

	// BundlePassphrase opens a bundle.
	BundlePassphrase []byte

	// MinConfidence filters markdown findings. Zero uses DefaultMinConfidence.
	MinConfidence float64

	// Overwrite replaces the value of secrets whose name already exists
	// instead of skipping them.
	Overwrite bool

	// DryRun reports what would change without writing.
	DryRun bool
}

// ImportResult contains the outcome of an import operation.
type ImportResult struct {
	// Files are the source files that were read.
	Files []string

	// Added, Updated and Skipped are secret names by outcome.
	Added   []string
	Updated []string
	Skipped []string

	// Findings describe every normalized candidate, in source order.
	Findings []Finding

	// DryRun indicates nothing was written.
	DryRun bool
}

// Finding describes an import candidate without its value.
type Finding struct {
	Name       string
	Provider   string
	Confidence float64
}

// Import normalizes secrets from opts.Paths and stores them.
//
// Returns ErrFileNotFound if an explicitly named file does not exist.
// Returns ErrAuthentication if a bundle cannot be opened with
// opts.BundlePassphrase.
func Import(ctx context.Context, opts ImportOptions) (*ImportResult, error) {
	root := opts.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting current directory: %w", err)
		}
		root = wd
	}

	files, items, err := collectItems(opts, root)
	if err != nil {
		return nil, err
	}

	now := opts.now()
	candidates := make([]importer.Candidate, 0, len(items))
	defer func() {
		for _, c := range candidates {
			session.Wipe(c.Value)
		}
	}()
	for _, it := range items {
		c, err := it.Normalize(now, opts.ProjectPath)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	v, log, err := unlockVault(ctx, opts.VaultOptions)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	store := v.Records()
	result := &ImportResult{Files: files, DryRun: opts.DryRun}
	seen := make(map[string]bool)

	for _, c := range candidates {
		result.Findings = append(result.Findings, Finding{Name: c.Name, Provider: c.Provider, Confidence: c.Provenance.Confidence})
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if seen[c.Name] {
			result.Skipped = append(result.Skipped, c.Name)
			continue
		}
		seen[c.Name] = true

		existing, err := store.FindByName(ctx, c.Name)
		switch {
		case err == nil && !opts.Overwrite:
			result.Skipped = append(result.Skipped, c.Name)
		case err == nil:
			if !opts.DryRun {
				if err := store.Replace(ctx, existing.ID, c.Metadata(), c.Value); err != nil {
					return nil, fmt.Errorf("updating %s: %w", c.Name, err)
				}
			}
			result.Updated = append(result.Updated, c.Name)
		case errors.Is(err, kerrors.ErrNotFound):
			if !opts.DryRun {
				if _, err := store.Create(ctx, c.Metadata(), c.Value); err != nil {
					return nil, fmt.Errorf("adding %s: %w", c.Name, err)
				}
			}
			result.Added = append(result.Added, c.Name)
		default:
			return nil, err
		}
	}

	if !opts.DryRun {
		log.Record(audit.Entry{
			Operation: audit.OpImport,
			Count:     len(result.Added) + len(result.Updated),
			Detail:    string(opts.Kind),
		})
	}

	return result, nil
}

func collectItems(opts ImportOptions, root string) ([]string, []importer.Item, error) {
	switch opts.Kind {
	case importer.KindDotenv:
		return collectDotenv(opts.Paths, root)
	case importer.KindMarkdown:
		threshold := opts.MinConfidence
		if threshold == 0 {
			threshold = DefaultMinConfidence
		}
		return collectMarkdown(opts.Paths, root, threshold)
	case importer.KindBundle:
		return collectBundle(opts)
	default:
		return nil, nil, fmt.Errorf("unknown import kind %q", opts.Kind)
	}
}

func collectDotenv(paths []string, root string) ([]string, []importer.Item, error) {
	var files []string
	var err error
	if len(paths) == 0 {
		files, err = importer.DiscoverDotenv(root)
	} else {
		files, err = importer.ResolveFiles(paths, root, importer.IsDotenvFile)
	}
	if err != nil {
		return nil, nil, err
	}

	var items []importer.Item
	for _, f := range files {
		entries, err := importer.ParseDotenvFile(f)
		if err != nil {
			return nil, nil, err
		}
		for _, e := range entries {
			items = append(items, importer.FromDotenv(e))
		}
	}
	return files, items, nil
}

func collectMarkdown(paths []string, root string, threshold float64) ([]string, []importer.Item, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	files, err := importer.ResolveFiles(paths, root, importer.IsMarkdownFile)
	if err != nil {
		return nil, nil, err
	}

	var all []importer.MarkdownFinding
	for _, f := range files {
		findings, err := importer.ScanMarkdownFile(f)
		if err != nil {
			return nil, nil, err
		}
		all = append(all, findings...)
	}

	var items []importer.Item
	for _, finding := range importer.AggregateFindings(all) {
		if finding.Confidence >= threshold {
			items = append(items, importer.FromMarkdown(finding))
		}
	}
	return files, items, nil
}

func collectBundle(opts ImportOptions) ([]string, []importer.Item, error) {
	if len(opts.Paths) != 1 {
		return nil, nil, fmt.Errorf("bundle import expects exactly one file")
	}
	path := opts.Paths[0]

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading bundle: %w", err)
	}

	entries, err := bundle.Open(data, opts.BundlePassphrase, kdf.New(opts.Settings.Guard()))
	if err != nil {
		return nil, nil, err
	}

	items := make([]importer.Item, len(entries))
	for i, e := range entries {
		items[i] = importer.FromBundle(e)
	}
	return []string{path}, items, nil
}

package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/PolarWolf314/keyclave/internal/audit"
	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
	"github.com/PolarWolf314/keyclave/internal/importer"
	"github.com/PolarWolf314/keyclave/internal/models"
	"github.com/PolarWolf314/keyclave/internal/records"
	"github.com/PolarWolf314/keyclave/internal/utils"
)

// AddOptions configures the add workflow.
type AddOptions struct {
	VaultOptions

	// Name is the secret name, e.g. GITHUB_TOKEN.
	Name string

	// Value is the plaintext. The caller keeps ownership.
	Value []byte

	// Provider overrides provider detection.
	Provider string

	// ProjectPath associates the secret with a project. Empty uses the
	// enclosing project of the working directory.
	ProjectPath string
}

// AddResult contains the outcome of an add operation.
type AddResult struct {
	ID       string
	Name     string
	Provider string
}

// Add stores a new secret.
//
// Returns ErrSecretExists if a secret with the same name is already stored.
// Returns ErrInvalidMetadata if the name or value fails validation.
func Add(ctx context.Context, opts AddOptions) (*AddResult, error) {
	v, log, err := unlockVault(ctx, opts.VaultOptions)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	store := v.Records()
	if _, err := store.FindByName(ctx, opts.Name); err == nil {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrSecretExists, opts.Name)
	} else if !errors.Is(err, kerrors.ErrNotFound) {
		return nil, err
	}

	provider := opts.Provider
	if provider == "" {
		provider = importer.DetectProvider(opts.Name, string(opts.Value))
	}
	projectPath := opts.ProjectPath
	if projectPath == "" {
		if p, err := utils.ProjectPath(); err == nil {
			projectPath = p
		}
	}

	meta := models.Metadata{
		Name:        opts.Name,
		Provider:    provider,
		ProjectPath: projectPath,
		Provenance:  models.Provenance{Source: models.SourceManual, Confidence: 1},
	}
	id, err := store.Create(ctx, meta, opts.Value)
	if err != nil {
		return nil, err
	}

	log.Record(audit.Entry{Operation: audit.OpAdd, RecordID: id, Name: opts.Name})

	return &AddResult{ID: id, Name: opts.Name, Provider: provider}, nil
}

// GetOptions configures the get workflow.
type GetOptions struct {
	VaultOptions

	// Ref is a secret name or id.
	Ref string
}

// GetResult contains a decrypted secret. Callers should wipe Value once used.
type GetResult struct {
	Metadata models.Metadata
	Value    []byte
}

// Get decrypts one secret.
//
// Returns ErrNotFound if no secret matches opts.Ref.
// Returns ErrAuthentication if the stored ciphertext was tampered with.
func Get(ctx context.Context, opts GetOptions) (*GetResult, error) {
	v, log, err := unlockVault(ctx, opts.VaultOptions)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	meta, err := findSecret(ctx, v.Records(), opts.Ref)
	if err != nil {
		return nil, err
	}

	meta, value, err := v.Records().Read(ctx, meta.ID)
	if err != nil {
		return nil, err
	}

	log.Record(audit.Entry{Operation: audit.OpGet, RecordID: meta.ID, Name: meta.Name})

	return &GetResult{Metadata: meta, Value: value}, nil
}

// ListOptions configures the list workflow.
type ListOptions struct {
	VaultOptions

	// Provider keeps only secrets from this provider when set.
	Provider string

	// ProjectPath keeps only secrets for this project when set.
	ProjectPath string
}

// List returns the metadata of stored secrets in creation order.
func List(ctx context.Context, opts ListOptions) ([]models.Metadata, error) {
	v, _, err := unlockVault(ctx, opts.VaultOptions)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	all, err := v.Records().List(ctx)
	if err != nil {
		return nil, err
	}

	out := all[:0]
	for _, m := range all {
		if opts.Provider != "" && m.Provider != opts.Provider {
			continue
		}
		if opts.ProjectPath != "" && m.ProjectPath != opts.ProjectPath {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// UpdateOptions configures the update workflow.
type UpdateOptions struct {
	VaultOptions

	// Ref is a secret name or id.
	Ref string

	// Value is the new plaintext. Nil reseals the current value under a
	// fresh nonce.
	Value []byte
}

// Update replaces a secret's value.
//
// Returns ErrNotFound if no secret matches opts.Ref.
func Update(ctx context.Context, opts UpdateOptions) (*models.Metadata, error) {
	v, log, err := unlockVault(ctx, opts.VaultOptions)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	meta, err := findSecret(ctx, v.Records(), opts.Ref)
	if err != nil {
		return nil, err
	}

	if err := v.Records().Update(ctx, meta.ID, opts.Value); err != nil {
		return nil, err
	}

	detail := ""
	if opts.Value == nil {
		detail = "reseal"
	}
	log.Record(audit.Entry{Operation: audit.OpUpdate, RecordID: meta.ID, Name: meta.Name, Detail: detail})

	return &meta, nil
}

// RemoveOptions configures the remove workflow.
type RemoveOptions struct {
	VaultOptions

	// Ref is a secret name or id.
	Ref string
}

// Remove deletes a secret.
//
// Returns ErrNotFound if no secret matches opts.Ref.
func Remove(ctx context.Context, opts RemoveOptions) (*models.Metadata, error) {
	v, log, err := unlockVault(ctx, opts.VaultOptions)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	meta, err := findSecret(ctx, v.Records(), opts.Ref)
	if err != nil {
		return nil, err
	}

	if err := v.Records().Delete(ctx, meta.ID); err != nil {
		return nil, err
	}

	log.Record(audit.Entry{Operation: audit.OpRemove, RecordID: meta.ID, Name: meta.Name})

	return &meta, nil
}

// findSecret resolves ref as a name, oldest match first, then as an id.
func findSecret(ctx context.Context, store *records.Store, ref string) (models.Metadata, error) {
	list, err := store.List(ctx)
	if err != nil {
		return models.Metadata{}, err
	}
	for _, m := range list {
		if m.Name == ref {
			return m, nil
		}
	}
	for _, m := range list {
		if m.ID == ref {
			return m, nil
		}
	}
	return models.Metadata{}, fmt.Errorf("%w: %s", kerrors.ErrNotFound, ref)
}

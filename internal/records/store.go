package records

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PolarWolf314/keyclave/internal/aead"
	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
	"github.com/PolarWolf314/keyclave/internal/models"
	"github.com/PolarWolf314/keyclave/internal/session"
	"github.com/PolarWolf314/keyclave/internal/storage"
)

// Store seals and opens secret records with the session key.
type Store struct {
	// gate is read-held by CRUD calls and write-held by key rotation.
	gate sync.RWMutex

	session *session.Session
	aead    *aead.Engine
	backend storage.Backend
	now     func() time.Time
}

// New returns a Store using sess for the live key.
func New(sess *session.Session, engine *aead.Engine, backend storage.Backend) *Store {
	return &Store{
		session: sess,
		aead:    engine,
		backend: backend,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Engine returns the AEAD engine records are sealed with.
func (s *Store) Engine() *aead.Engine { return s.aead }

// enter acquires the shared gate, failing with ErrBusy during rotation.
func (s *Store) enter() (func(), error) {
	if !s.gate.TryRLock() {
		return nil, kerrors.ErrBusy
	}
	return s.gate.RUnlock, nil
}

// Exclusive blocks until in-flight operations finish and holds the store
// exclusively until the returned release func is called.
func (s *Store) Exclusive() func() {
	s.gate.Lock()
	return s.gate.Unlock
}

// Create seals plaintext as a new record and returns its id.
func (s *Store) Create(ctx context.Context, meta models.Metadata, plaintext []byte) (string, error) {
	release, err := s.enter()
	if err != nil {
		return "", err
	}
	defer release()

	now := s.now()
	rec := models.Record{Metadata: meta, Version: 1}
	rec.ID = uuid.NewString()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Provenance.Source == "" {
		rec.Provenance.Source = models.SourceManual
	}
	if rec.Provenance.ImportedAt.IsZero() {
		rec.Provenance.ImportedAt = now
	}

	err = s.session.WithKey(func(key []byte) error {
		if err := meta.Validate(); err != nil {
			return err
		}
		if err := validateValue(plaintext); err != nil {
			return err
		}
		return s.seal(ctx, key, &rec, plaintext)
	})
	if err != nil {
		return "", err
	}
	if err := s.backend.InsertRecord(ctx, rec); err != nil {
		return "", fmt.Errorf("failed to store record: %w", err)
	}
	return rec.ID, nil
}

// Read returns the record metadata and its plaintext. The caller owns the
// plaintext and should wipe it when done.
func (s *Store) Read(ctx context.Context, id string) (models.Metadata, []byte, error) {
	release, err := s.enter()
	if err != nil {
		return models.Metadata{}, nil, err
	}
	defer release()

	var plaintext []byte
	var rec models.Record
	err = s.session.WithKey(func(key []byte) error {
		var err error
		rec, err = s.backend.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		plaintext, err = s.open(key, rec)
		return err
	})
	if err != nil {
		return models.Metadata{}, nil, err
	}
	return rec.Metadata, plaintext, nil
}

// Update reseals the record under a fresh nonce and bumps its version. A nil
// plaintext reseals the existing value.
func (s *Store) Update(ctx context.Context, id string, plaintext []byte) error {
	return s.update(ctx, id, plaintext, nil)
}

// Replace stores a new value for an existing record together with the
// provider, project path and provenance from meta. The name and id are kept.
func (s *Store) Replace(ctx context.Context, id string, meta models.Metadata, plaintext []byte) error {
	return s.update(ctx, id, plaintext, func(rec *models.Record) error {
		if plaintext == nil {
			return fmt.Errorf("%w: value is required", kerrors.ErrInvalidMetadata)
		}
		rec.Provider = meta.Provider
		rec.ProjectPath = meta.ProjectPath
		rec.Provenance = meta.Provenance
		if rec.Provenance.Source == "" {
			rec.Provenance.Source = models.SourceManual
		}
		if rec.Provenance.ImportedAt.IsZero() {
			rec.Provenance.ImportedAt = rec.UpdatedAt
		}
		return rec.Metadata.Validate()
	})
}

func (s *Store) update(ctx context.Context, id string, plaintext []byte, edit func(*models.Record) error) error {
	release, err := s.enter()
	if err != nil {
		return err
	}
	defer release()

	return s.session.WithKey(func(key []byte) error {
		if plaintext != nil {
			if err := validateValue(plaintext); err != nil {
				return err
			}
		}

		rec, err := s.backend.GetRecord(ctx, id)
		if err != nil {
			return err
		}

		value := plaintext
		if value == nil {
			value, err = s.open(key, rec)
			if err != nil {
				return err
			}
			defer session.Wipe(value)
		}

		rec.Version++
		rec.UpdatedAt = s.now()
		if edit != nil {
			if err := edit(&rec); err != nil {
				return err
			}
		}
		if err := s.seal(ctx, key, &rec, value); err != nil {
			return err
		}
		if err := s.backend.UpdateRecord(ctx, rec); err != nil {
			return fmt.Errorf("failed to store record: %w", err)
		}
		return nil
	})
}

// Delete removes the record irreversibly.
func (s *Store) Delete(ctx context.Context, id string) error {
	release, err := s.enter()
	if err != nil {
		return err
	}
	defer release()

	return s.session.WithKey(func([]byte) error {
		return s.backend.DeleteRecord(ctx, id)
	})
}

// List returns the metadata of every record in creation order.
func (s *Store) List(ctx context.Context) ([]models.Metadata, error) {
	release, err := s.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	var out []models.Metadata
	err = s.session.WithKey(func([]byte) error {
		recs, err := s.backend.ListRecords(ctx)
		if err != nil {
			return err
		}
		out = make([]models.Metadata, len(recs))
		for i, r := range recs {
			out[i] = r.Metadata
		}
		return nil
	})
	return out, err
}

// FindByName returns the oldest record with the given name.
func (s *Store) FindByName(ctx context.Context, name string) (models.Metadata, error) {
	list, err := s.List(ctx)
	if err != nil {
		return models.Metadata{}, err
	}
	for _, m := range list {
		if m.Name == name {
			return m, nil
		}
	}
	return models.Metadata{}, fmt.Errorf("%w: %s", kerrors.ErrNotFound, name)
}

// Restage opens rec under the live key and seals it under newKey with engine
// at the next version. The stored record is not modified. Callers must hold
// the store from Exclusive.
func (s *Store) Restage(rec models.Record, newKey []byte, engine *aead.Engine) (models.Record, error) {
	staged := rec.Clone()
	err := s.session.WithKey(func(key []byte) error {
		plaintext, err := s.open(key, rec)
		if err != nil {
			return err
		}
		defer session.Wipe(plaintext)

		nonce, err := engine.NewNonce()
		if err != nil {
			return err
		}
		staged.Version = rec.Version + 1
		staged.UpdatedAt = s.now()
		sealed, err := engine.Seal(newKey, nonce, plaintext, aead.RecordAD(staged.ID, staged.Version))
		if err != nil {
			return err
		}
		staged.Nonce = nonce
		staged.Ciphertext, staged.Tag = aead.Split(sealed)
		return nil
	})
	if err != nil {
		return models.Record{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	return staged, nil
}

// seal fills rec's nonce, ciphertext and tag for its current id and version.
func (s *Store) seal(ctx context.Context, key []byte, rec *models.Record, plaintext []byte) error {
	nonce, err := s.aead.NewNonce()
	if err != nil {
		return err
	}
	sealed, err := s.aead.Seal(key, nonce, plaintext, aead.RecordAD(rec.ID, rec.Version))
	if err != nil {
		return err
	}
	// Count the seal before persisting the record; overcounting is safe.
	if err := s.backend.AddSeals(ctx, 1); err != nil {
		return fmt.Errorf("failed to record seal: %w", err)
	}
	rec.Nonce = nonce
	rec.Ciphertext, rec.Tag = aead.Split(sealed)
	return nil
}

func (s *Store) open(key []byte, rec models.Record) ([]byte, error) {
	return s.aead.Open(key, rec.Nonce, aead.Join(rec.Ciphertext, rec.Tag), aead.RecordAD(rec.ID, rec.Version))
}

func validateValue(plaintext []byte) error {
	if len(plaintext) > models.MaxValueSize {
		return fmt.Errorf("%w: value exceeds %d bytes", kerrors.ErrInvalidMetadata, models.MaxValueSize)
	}
	return nil
}

// SetEngine replaces the AEAD engine after a rotation changed the suite.
// Callers must hold the store from Exclusive.
func (s *Store) SetEngine(engine *aead.Engine) {
	s.aead = engine
}

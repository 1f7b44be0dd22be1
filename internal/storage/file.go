package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
	"github.com/PolarWolf314/keyclave/internal/models"
	"github.com/PolarWolf314/keyclave/internal/utils"
)

const fileFormatVersion = 1

// FilePath returns the JSON document location inside a vault directory.
func FilePath(dir string) string {
	return filepath.Join(dir, "vault.json")
}

// document is the on-disk JSON structure.
type document struct {
	V       int                      `json:"v"`
	Profile *models.Profile          `json:"profile,omitempty"`
	Records map[string]models.Record `json:"records"`
}

// FileBackend implements Backend on a single JSON file. Every mutation
// rewrites the whole document through a temp file and rename.
type FileBackend struct {
	path string
	mu   sync.Mutex
	doc  document
}

// NewFileBackend loads (or starts) the document at path.
func NewFileBackend(path string) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}

	s := &FileBackend{path: path, doc: document{V: fileFormatVersion, Records: map[string]models.Record{}}}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vault file: %w", err)
	}
	if err := json.Unmarshal(b, &s.doc); err != nil {
		return nil, fmt.Errorf("failed to decode vault file: %w", err)
	}
	if s.doc.V > fileFormatVersion {
		return nil, fmt.Errorf("unsupported vault file version %d", s.doc.V)
	}
	if s.doc.Records == nil {
		s.doc.Records = map[string]models.Record{}
	}
	return s, nil
}

// mutate applies fn to a copy of the document and persists it. The in-memory
// state only changes once the new document is durable.
func (s *FileBackend) mutate(fn func(d *document) error) error {
	next := document{V: fileFormatVersion, Records: make(map[string]models.Record, len(s.doc.Records))}
	if s.doc.Profile != nil {
		p := s.doc.Profile.Clone()
		next.Profile = &p
	}
	for id, r := range s.doc.Records {
		next.Records[id] = r.Clone()
	}

	if err := fn(&next); err != nil {
		return err
	}

	b, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode vault file: %w", err)
	}
	if err := utils.WriteFileAtomic(s.path, b, 0600); err != nil {
		return fmt.Errorf("failed to write vault file: %w", err)
	}
	s.doc = next
	return nil
}

// LoadProfile implements Backend.
func (s *FileBackend) LoadProfile(ctx context.Context) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.Profile == nil {
		return models.Profile{}, kerrors.ErrProfileNotFound
	}
	return s.doc.Profile.Clone(), nil
}

// CreateProfile implements Backend.
func (s *FileBackend) CreateProfile(ctx context.Context, p models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutate(func(d *document) error {
		if d.Profile != nil {
			return kerrors.ErrProfileExists
		}
		c := p.Clone()
		d.Profile = &c
		return nil
	})
}

// SaveProfile implements Backend.
func (s *FileBackend) SaveProfile(ctx context.Context, p models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutate(func(d *document) error {
		if d.Profile == nil {
			return kerrors.ErrProfileNotFound
		}
		c := p.Clone()
		d.Profile = &c
		return nil
	})
}

// AddSeals implements Backend.
func (s *FileBackend) AddSeals(ctx context.Context, n uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutate(func(d *document) error {
		if d.Profile == nil {
			return kerrors.ErrProfileNotFound
		}
		d.Profile.SealCount += n
		return nil
	})
}

// InsertRecord implements Backend.
func (s *FileBackend) InsertRecord(ctx context.Context, r models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutate(func(d *document) error {
		if _, ok := d.Records[r.ID]; ok {
			return fmt.Errorf("%w: record %s already exists", ErrConflict, r.ID)
		}
		d.Records[r.ID] = r.Clone()
		return nil
	})
}

// GetRecord implements Backend.
func (s *FileBackend) GetRecord(ctx context.Context, id string) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.doc.Records[id]
	if !ok {
		return models.Record{}, kerrors.ErrNotFound
	}
	return r.Clone(), nil
}

// UpdateRecord implements Backend.
func (s *FileBackend) UpdateRecord(ctx context.Context, r models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutate(func(d *document) error {
		old, ok := d.Records[r.ID]
		if !ok {
			return kerrors.ErrNotFound
		}
		c := r.Clone()
		c.CreatedAt = old.CreatedAt
		d.Records[r.ID] = c
		return nil
	})
}

// DeleteRecord implements Backend.
func (s *FileBackend) DeleteRecord(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutate(func(d *document) error {
		if _, ok := d.Records[id]; !ok {
			return kerrors.ErrNotFound
		}
		delete(d.Records, id)
		return nil
	})
}

// ListRecords implements Backend. Records are ordered by creation time.
func (s *FileBackend) ListRecords(ctx context.Context) ([]models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Record, 0, len(s.doc.Records))
	for _, r := range s.doc.Records {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CommitRotation implements Backend with a single document replacement.
func (s *FileBackend) CommitRotation(ctx context.Context, p models.Profile, staged []models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutate(func(d *document) error {
		if d.Profile == nil {
			return kerrors.ErrProfileNotFound
		}
		if len(staged) != len(d.Records) {
			return fmt.Errorf("%w: %d stored, %d staged", ErrConflict, len(d.Records), len(staged))
		}
		for _, r := range staged {
			old, ok := d.Records[r.ID]
			if !ok {
				return fmt.Errorf("%w: record %s is not stored", ErrConflict, r.ID)
			}
			c := r.Clone()
			c.CreatedAt = old.CreatedAt
			d.Records[r.ID] = c
		}
		c := p.Clone()
		d.Profile = &c
		return nil
	})
}

// Close implements Backend.
func (s *FileBackend) Close() error { return nil }

var _ Backend = (*FileBackend)(nil)

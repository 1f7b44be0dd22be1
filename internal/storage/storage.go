package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/PolarWolf314/keyclave/internal/models"
)

// ErrConflict indicates a rotation commit did not cover exactly the stored records.
var ErrConflict = errors.New("storage: staged records do not match stored records")

// Backend is the durable store used by the vault engine.
type Backend interface {
	// LoadProfile returns ErrProfileNotFound if the vault has not been created.
	LoadProfile(ctx context.Context) (models.Profile, error)
	// CreateProfile returns ErrProfileExists if a profile is already stored.
	CreateProfile(ctx context.Context, p models.Profile) error
	SaveProfile(ctx context.Context, p models.Profile) error
	// AddSeals increments the profile seal counter.
	AddSeals(ctx context.Context, n uint64) error

	InsertRecord(ctx context.Context, r models.Record) error
	// GetRecord returns ErrNotFound for an unknown id.
	GetRecord(ctx context.Context, id string) (models.Record, error)
	UpdateRecord(ctx context.Context, r models.Record) error
	DeleteRecord(ctx context.Context, id string) error
	ListRecords(ctx context.Context) ([]models.Record, error)

	// CommitRotation atomically stores p and replaces every record with its
	// staged counterpart. staged must cover exactly the stored records.
	CommitRotation(ctx context.Context, p models.Profile, staged []models.Record) error

	Close() error
}

// Kind selects a Backend implementation.
type Kind string

const (
	KindSQLite Kind = "sqlite"
	KindFile   Kind = "file"
)

// Open returns the backend of the given kind rooted at dir.
func Open(ctx context.Context, kind Kind, dir string) (Backend, error) {
	switch kind {
	case KindSQLite, "":
		return NewSQLiteBackend(ctx, SQLitePath(dir))
	case KindFile:
		return NewFileBackend(FilePath(dir))
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", kind)
	}
}

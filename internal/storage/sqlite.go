package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
	"github.com/PolarWolf314/keyclave/internal/kdf"
	"github.com/PolarWolf314/keyclave/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// SQLitePath returns the database location inside a vault directory.
func SQLitePath(dir string) string {
	return filepath.Join(dir, "vault.db")
}

// SQLiteBackend implements Backend on a SQLite database.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (creating if needed) the database at dbPath.
func NewSQLiteBackend(ctx context.Context, dbPath string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=FULL&_foreign_keys=ON", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers and avoids "database is locked".
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteBackend{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// #nosec G302 -- the database holds only ciphertext but is still owner-only.
	_ = os.Chmod(dbPath, 0600)
	return s, nil
}

func (s *SQLiteBackend) initSchema(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to query schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// LoadProfile implements Backend.
func (s *SQLiteBackend) LoadProfile(ctx context.Context) (models.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT salt, kdf_params, suite, verification_nonce, verification_ciphertext,
		       auto_lock_seconds, seal_count, totp_nonce, totp_ciphertext, created_at, rotated_at
		FROM profile WHERE id = 1`)

	var (
		p          models.Profile
		params     string
		sealCount  int64
		totpNonce  []byte
		totpCipher []byte
		rotatedAt  sql.NullTime
	)
	err := row.Scan(&p.Salt, &params, &p.Suite, &p.Verification.Nonce, &p.Verification.Ciphertext,
		&p.AutoLockSeconds, &sealCount, &totpNonce, &totpCipher, &p.CreatedAt, &rotatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, kerrors.ErrProfileNotFound
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to load profile: %w", err)
	}

	if err := json.Unmarshal([]byte(params), &p.KDF); err != nil {
		return models.Profile{}, fmt.Errorf("failed to decode kdf params: %w", err)
	}
	p.SealCount = uint64(sealCount)
	if totpNonce != nil {
		p.TOTP = &models.Envelope{Nonce: totpNonce, Ciphertext: totpCipher}
	}
	if rotatedAt.Valid {
		p.RotatedAt = rotatedAt.Time
	}
	return p, nil
}

// CreateProfile implements Backend.
func (s *SQLiteBackend) CreateProfile(ctx context.Context, p models.Profile) error {
	params, err := encodeParams(p.KDF)
	if err != nil {
		return err
	}
	totpNonce, totpCipher := totpColumns(p)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profile (
			id, salt, kdf_params, suite, verification_nonce, verification_ciphertext,
			auto_lock_seconds, seal_count, totp_nonce, totp_ciphertext, created_at, rotated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Salt, params, string(p.Suite), p.Verification.Nonce, p.Verification.Ciphertext,
		p.AutoLockSeconds, int64(p.SealCount), totpNonce, totpCipher, p.CreatedAt, nullTime(p.RotatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return kerrors.ErrProfileExists
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// SaveProfile implements Backend.
func (s *SQLiteBackend) SaveProfile(ctx context.Context, p models.Profile) error {
	return saveProfile(ctx, s.db, p)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveProfile(ctx context.Context, db execer, p models.Profile) error {
	params, err := encodeParams(p.KDF)
	if err != nil {
		return err
	}
	totpNonce, totpCipher := totpColumns(p)

	res, err := db.ExecContext(ctx, `
		UPDATE profile SET
			salt = ?, kdf_params = ?, suite = ?, verification_nonce = ?, verification_ciphertext = ?,
			auto_lock_seconds = ?, seal_count = ?, totp_nonce = ?, totp_ciphertext = ?, rotated_at = ?
		WHERE id = 1`,
		p.Salt, params, string(p.Suite), p.Verification.Nonce, p.Verification.Ciphertext,
		p.AutoLockSeconds, int64(p.SealCount), totpNonce, totpCipher, nullTime(p.RotatedAt))
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return kerrors.ErrProfileNotFound
	}
	return nil
}

// AddSeals implements Backend.
func (s *SQLiteBackend) AddSeals(ctx context.Context, n uint64) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE profile SET seal_count = seal_count + ? WHERE id = 1", int64(n)); err != nil {
		return fmt.Errorf("failed to update seal count: %w", err)
	}
	return nil
}

// InsertRecord implements Backend.
func (s *SQLiteBackend) InsertRecord(ctx context.Context, r models.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO secrets (
			id, name, provider, project_path, source, imported_at, confidence,
			version, nonce, ciphertext, tag, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Provider, r.ProjectPath, r.Provenance.Source, nullTime(r.Provenance.ImportedAt),
		r.Provenance.Confidence, int64(r.Version), r.Nonce, r.Ciphertext, r.Tag, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: record %s already exists", ErrConflict, r.ID)
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

const selectRecord = `
	SELECT id, name, provider, project_path, source, imported_at, confidence,
	       version, nonce, ciphertext, tag, created_at, updated_at
	FROM secrets`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (models.Record, error) {
	var (
		r          models.Record
		importedAt sql.NullTime
		version    int64
	)
	err := row.Scan(&r.ID, &r.Name, &r.Provider, &r.ProjectPath, &r.Provenance.Source, &importedAt,
		&r.Provenance.Confidence, &version, &r.Nonce, &r.Ciphertext, &r.Tag, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return models.Record{}, err
	}
	r.Version = uint64(version)
	if importedAt.Valid {
		r.Provenance.ImportedAt = importedAt.Time
	}
	return r, nil
}

// GetRecord implements Backend.
func (s *SQLiteBackend) GetRecord(ctx context.Context, id string) (models.Record, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx, selectRecord+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, kerrors.ErrNotFound
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to load record: %w", err)
	}
	return r, nil
}

// UpdateRecord implements Backend.
func (s *SQLiteBackend) UpdateRecord(ctx context.Context, r models.Record) error {
	return updateRecord(ctx, s.db, r)
}

func updateRecord(ctx context.Context, db execer, r models.Record) error {
	res, err := db.ExecContext(ctx, `
		UPDATE secrets SET
			name = ?, provider = ?, project_path = ?, source = ?, imported_at = ?, confidence = ?,
			version = ?, nonce = ?, ciphertext = ?, tag = ?, updated_at = ?
		WHERE id = ?`,
		r.Name, r.Provider, r.ProjectPath, r.Provenance.Source, nullTime(r.Provenance.ImportedAt),
		r.Provenance.Confidence, int64(r.Version), r.Nonce, r.Ciphertext, r.Tag, r.UpdatedAt, r.ID)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return kerrors.ErrNotFound
	}
	return nil
}

// DeleteRecord implements Backend.
func (s *SQLiteBackend) DeleteRecord(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM secrets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return kerrors.ErrNotFound
	}
	return nil
}

// ListRecords implements Backend. Records are ordered by creation time.
func (s *SQLiteBackend) ListRecords(ctx context.Context) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectRecord+" ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CommitRotation implements Backend in a single transaction.
func (s *SQLiteBackend) CommitRotation(ctx context.Context, p models.Profile, staged []models.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rotation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var stored int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM secrets").Scan(&stored); err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}
	if stored != len(staged) {
		return fmt.Errorf("%w: %d stored, %d staged", ErrConflict, stored, len(staged))
	}

	if err := saveProfile(ctx, tx, p); err != nil {
		return err
	}
	for _, r := range staged {
		if err := updateRecord(ctx, tx, r); err != nil {
			if errors.Is(err, kerrors.ErrNotFound) {
				return fmt.Errorf("%w: record %s is not stored", ErrConflict, r.ID)
			}
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rotation: %w", err)
	}
	return nil
}

// Close implements Backend.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

func encodeParams(p kdf.Params) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode kdf params: %w", err)
	}
	return string(b), nil
}

func totpColumns(p models.Profile) (nonce, ciphertext []byte) {
	if p.TOTP == nil {
		return nil, nil
	}
	return p.TOTP.Nonce, p.TOTP.Ciphertext
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func isUniqueConstraintError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}

var _ Backend = (*SQLiteBackend)(nil)

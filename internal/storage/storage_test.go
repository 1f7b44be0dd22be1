package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PolarWolf314/keyclave/internal/aead"
	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
	"github.com/PolarWolf314/keyclave/internal/kdf"
	"github.com/PolarWolf314/keyclave/internal/models"
)

func backends(t *testing.T) map[string]func(dir string) Backend {
	t.Helper()
	return map[string]func(dir string) Backend{
		"sqlite": func(dir string) Backend {
			b, err := Open(context.Background(), KindSQLite, dir)
			if err != nil {
				t.Fatalf("Failed to open sqlite backend: %v", err)
			}
			return b
		},
		"file": func(dir string) Backend {
			b, err := Open(context.Background(), KindFile, dir)
			if err != nil {
				t.Fatalf("Failed to open file backend: %v", err)
			}
			return b
		},
	}
}

func testProfile() models.Profile {
	return models.Profile{
		Salt:            bytes.Repeat([]byte{1}, 16),
		KDF:             kdf.DefaultParams(),
		Suite:           aead.DefaultSuite,
		Verification:    models.Envelope{Nonce: bytes.Repeat([]byte{2}, 12), Ciphertext: []byte("sealed-check")},
		AutoLockSeconds: 300,
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}
}

func testRecord(id, name string, created time.Time) models.Record {
	return models.Record{
		Metadata: models.Metadata{
			ID:          id,
			Name:        name,
			Provider:    "github",
			ProjectPath: "/work/app",
			Provenance:  models.Provenance{Source: models.SourceDotenv, ImportedAt: created, Confidence: 0.9},
			CreatedAt:   created,
			UpdatedAt:   created,
		},
		Version:    1,
		Nonce:      bytes.Repeat([]byte{3}, 12),
		Ciphertext: []byte("ct-" + id),
		Tag:        bytes.Repeat([]byte{4}, 16),
	}
}

func TestBackend_ProfileLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := open(t.TempDir())
			defer b.Close()

			if _, err := b.LoadProfile(ctx); !errors.Is(err, kerrors.ErrProfileNotFound) {
				t.Fatalf("Expected ErrProfileNotFound, got %v", err)
			}

			p := testProfile()
			if err := b.CreateProfile(ctx, p); err != nil {
				t.Fatalf("CreateProfile failed: %v", err)
			}
			if err := b.CreateProfile(ctx, p); !errors.Is(err, kerrors.ErrProfileExists) {
				t.Fatalf("Expected ErrProfileExists, got %v", err)
			}

			got, err := b.LoadProfile(ctx)
			if err != nil {
				t.Fatalf("LoadProfile failed: %v", err)
			}
			if !bytes.Equal(got.Salt, p.Salt) || got.KDF != p.KDF || got.Suite != p.Suite {
				t.Errorf("Expected stored profile to match, got %+v", got)
			}
			if got.TOTP != nil {
				t.Error("Expected no TOTP envelope")
			}

			if err := b.AddSeals(ctx, 3); err != nil {
				t.Fatalf("AddSeals failed: %v", err)
			}
			got.SealCount = 10
			got.TOTP = &models.Envelope{Nonce: []byte("n"), Ciphertext: []byte("c")}
			if err := b.SaveProfile(ctx, got); err != nil {
				t.Fatalf("SaveProfile failed: %v", err)
			}
			if err := b.AddSeals(ctx, 2); err != nil {
				t.Fatalf("AddSeals failed: %v", err)
			}

			final, _ := b.LoadProfile(ctx)
			if final.SealCount != 12 {
				t.Errorf("Expected seal count 12, got %d", final.SealCount)
			}
			if final.TOTP == nil || string(final.TOTP.Ciphertext) != "c" {
				t.Errorf("Expected TOTP envelope to persist, got %+v", final.TOTP)
			}
		})
	}
}

func TestBackend_RecordCRUD(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := open(t.TempDir())
			defer b.Close()
			now := time.Now().UTC().Truncate(time.Second)

			r := testRecord("a", "GITHUB_TOKEN", now)
			if err := b.InsertRecord(ctx, r); err != nil {
				t.Fatalf("InsertRecord failed: %v", err)
			}
			if err := b.InsertRecord(ctx, r); !errors.Is(err, ErrConflict) {
				t.Errorf("Expected ErrConflict on duplicate insert, got %v", err)
			}

			got, err := b.GetRecord(ctx, "a")
			if err != nil {
				t.Fatalf("GetRecord failed: %v", err)
			}
			if got.Name != r.Name || got.Provenance.Confidence != 0.9 || !got.Provenance.ImportedAt.Equal(now) {
				t.Errorf("Expected stored metadata to match, got %+v", got.Metadata)
			}
			if !bytes.Equal(got.Ciphertext, r.Ciphertext) || !bytes.Equal(got.Tag, r.Tag) {
				t.Error("Expected sealed fields to match")
			}

			got.Version = 2
			got.Ciphertext = []byte("resealed")
			got.UpdatedAt = now.Add(time.Minute)
			if err := b.UpdateRecord(ctx, got); err != nil {
				t.Fatalf("UpdateRecord failed: %v", err)
			}
			again, _ := b.GetRecord(ctx, "a")
			if again.Version != 2 || string(again.Ciphertext) != "resealed" {
				t.Errorf("Expected update to persist, got version %d", again.Version)
			}
			if !again.CreatedAt.Equal(now) {
				t.Error("Expected created_at to be preserved on update")
			}

			if err := b.UpdateRecord(ctx, testRecord("missing", "X", now)); !errors.Is(err, kerrors.ErrNotFound) {
				t.Errorf("Expected ErrNotFound updating missing record, got %v", err)
			}
			if err := b.DeleteRecord(ctx, "a"); err != nil {
				t.Fatalf("DeleteRecord failed: %v", err)
			}
			if _, err := b.GetRecord(ctx, "a"); !errors.Is(err, kerrors.ErrNotFound) {
				t.Errorf("Expected ErrNotFound after delete, got %v", err)
			}
			if err := b.DeleteRecord(ctx, "a"); !errors.Is(err, kerrors.ErrNotFound) {
				t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
			}
		})
	}
}

func TestBackend_ListOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := open(t.TempDir())
			defer b.Close()
			base := time.Now().UTC().Truncate(time.Second)

			for i, id := range []string{"c", "a", "b"} {
				if err := b.InsertRecord(ctx, testRecord(id, id, base.Add(time.Duration(i)*time.Second))); err != nil {
					t.Fatalf("InsertRecord failed: %v", err)
				}
			}
			list, err := b.ListRecords(ctx)
			if err != nil {
				t.Fatalf("ListRecords failed: %v", err)
			}
			if len(list) != 3 || list[0].ID != "c" || list[1].ID != "a" || list[2].ID != "b" {
				t.Errorf("Expected creation order c,a,b, got %v", ids(list))
			}
		})
	}
}

func TestBackend_CommitRotation(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			b := open(dir)
			now := time.Now().UTC().Truncate(time.Second)

			if err := b.CreateProfile(ctx, testProfile()); err != nil {
				t.Fatalf("CreateProfile failed: %v", err)
			}
			for _, id := range []string{"a", "b", "c"} {
				_ = b.InsertRecord(ctx, testRecord(id, id, now))
			}

			newProfile := testProfile()
			newProfile.Salt = bytes.Repeat([]byte{9}, 16)
			newProfile.RotatedAt = now
			var staged []models.Record
			for _, id := range []string{"a", "b", "c"} {
				r := testRecord(id, id, now)
				r.Version = 2
				r.Ciphertext = []byte("new-" + id)
				staged = append(staged, r)
			}

			// An incomplete staging set must not be applied.
			if err := b.CommitRotation(ctx, newProfile, staged[:2]); !errors.Is(err, ErrConflict) {
				t.Fatalf("Expected ErrConflict for partial staging, got %v", err)
			}
			bogus := append(append([]models.Record(nil), staged[:2]...), testRecord("zzz", "zzz", now))
			if err := b.CommitRotation(ctx, newProfile, bogus); !errors.Is(err, ErrConflict) {
				t.Fatalf("Expected ErrConflict for unknown record, got %v", err)
			}
			assertGeneration(t, b, []byte{1}, "ct-")

			if err := b.CommitRotation(ctx, newProfile, staged); err != nil {
				t.Fatalf("CommitRotation failed: %v", err)
			}
			assertGeneration(t, b, []byte{9}, "new-")
			b.Close()

			// State survives reopening.
			reopened := open(dir)
			defer reopened.Close()
			assertGeneration(t, reopened, []byte{9}, "new-")
		})
	}
}

func assertGeneration(t *testing.T, b Backend, saltByte []byte, prefix string) {
	t.Helper()
	ctx := context.Background()

	p, err := b.LoadProfile(ctx)
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if p.Salt[0] != saltByte[0] {
		t.Errorf("Expected salt generation %x, got %x", saltByte[0], p.Salt[0])
	}
	list, _ := b.ListRecords(ctx)
	for _, r := range list {
		if !bytes.HasPrefix(r.Ciphertext, []byte(prefix)) {
			t.Errorf("Record %s: expected ciphertext prefix %q, got %q", r.ID, prefix, r.Ciphertext)
		}
	}
}

func TestFileBackend_IgnoresInterruptedWrite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := NewFileBackend(FilePath(dir))
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	if err := b.CreateProfile(ctx, testProfile()); err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}

	// A crash between temp write and rename leaves a stray temp file.
	stray := filepath.Join(dir, "vault.json.tmp-123")
	if err := os.WriteFile(stray, []byte("{half a docu"), 0600); err != nil {
		t.Fatalf("Failed to write stray file: %v", err)
	}

	reopened, err := NewFileBackend(FilePath(dir))
	if err != nil {
		t.Fatalf("Expected reopen to ignore the stray temp file, got %v", err)
	}
	if _, err := reopened.LoadProfile(ctx); err != nil {
		t.Errorf("Expected profile to load, got %v", err)
	}
}

func TestFileBackend_FailedWriteKeepsState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, _ := NewFileBackend(FilePath(dir))
	_ = b.CreateProfile(ctx, testProfile())

	// Point the backend at a directory that does not exist so the write fails.
	b.path = filepath.Join(dir, "missing", "vault.json")
	if err := b.InsertRecord(ctx, testRecord("a", "A", time.Now())); err == nil {
		t.Fatal("Expected write to fail")
	}
	if _, err := b.GetRecord(ctx, "a"); !errors.Is(err, kerrors.ErrNotFound) {
		t.Errorf("Expected failed write to leave no record, got %v", err)
	}
}

func TestOpen_UnknownKind(t *testing.T) {
	if _, err := Open(context.Background(), Kind("redis"), t.TempDir()); err == nil {
		t.Error("Expected error for unknown backend kind")
	}
}

func ids(rs []models.Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.json")

	if err := WriteFileAtomic(path, []byte("one"), 0600); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two"), 0600); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "two" {
		t.Errorf("Expected 'two', got %q", data)
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600, got %o", info.Mode().Perm())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Expected temp files to be cleaned up, got %d entries", len(entries))
	}
}

func TestBackupFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	backup, err := BackupFile(path)
	if err != nil || backup != "" {
		t.Fatalf("Expected no backup for a missing file, got %q (%v)", backup, err)
	}

	if err := os.WriteFile(path, []byte("API_KEY=old\n"), 0640); err != nil {
		t.Fatal(err)
	}
	backup, err = BackupFile(path)
	if err != nil {
		t.Fatalf("BackupFile failed: %v", err)
	}
	if backup != path+BackupSuffix {
		t.Errorf("Expected backup at %s, got %s", path+BackupSuffix, backup)
	}
	data, _ := os.ReadFile(backup)
	if string(data) != "API_KEY=old\n" {
		t.Errorf("Expected backup to hold the original content, got %q", data)
	}
	info, _ := os.Stat(backup)
	if info.Mode().Perm() != 0640 {
		t.Errorf("Expected backup to keep mode 0640, got %o", info.Mode().Perm())
	}
}

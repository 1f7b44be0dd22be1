package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// projectMarkers identify the root of a project directory.
var projectMarkers = []string{".git", ".keyclave", "go.mod", "package.json", "pyproject.toml"}

// FindProjectRoot walks up from start looking for a project marker and
// returns the directory holding it. Returns "" if none is found before the
// filesystem root or the user's home directory.
func FindProjectRoot(start string) (string, error) {
	current, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", start, err)
	}
	home, _ := os.UserHomeDir()

	for {
		if current == home {
			return "", nil
		}
		for _, marker := range projectMarkers {
			_, err := os.Stat(filepath.Join(current, marker))
			if err == nil {
				return current, nil
			}
			if !os.IsNotExist(err) {
				return "", fmt.Errorf("error checking for %s at %s: %w", marker, current, err)
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", nil
		}
		current = parent
	}
}

// WriteFileAtomic writes b via a synced temp file, then atomically replaces
// the target and syncs the directory so the rename itself is durable.
func WriteFileAtomic(path string, b []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	f, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	// Best-effort cleanup if anything fails before rename.
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		return err
	}

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// BackupSuffix is appended to a file name to form its backup.
const BackupSuffix = ".bak"

// BackupFile copies path to path+BackupSuffix with the same permissions and
// returns the backup location. A missing path is not an error and returns "".
func BackupFile(path string) (string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	backup := path + BackupSuffix
	if err := WriteFileAtomic(backup, data, info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("failed to write backup %s: %w", backup, err)
	}
	return backup, nil
}

package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
	"github.com/bmatcuk/doublestar/v4"
)

// ignoredDirs are never searched for dotenv files.
var ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	".keyclave":    true,
}

// templateSuffixes mark dotenv files that hold placeholders, not secrets.
var templateSuffixes = []string{".example", ".sample", ".template", ".dist"}

// IsDotenvFile reports whether path names a dotenv file with real values.
func IsDotenvFile(path string) bool {
	base := filepath.Base(path)
	if base != ".env" && !strings.HasPrefix(base, ".env.") {
		return false
	}
	for _, s := range templateSuffixes {
		if strings.HasSuffix(base, s) {
			return false
		}
	}
	return true
}

// IsMarkdownFile reports whether path names a markdown document.
func IsMarkdownFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}

// DiscoverDotenv returns every dotenv file below root, sorted.
func DiscoverDotenv(root string) ([]string, error) {
	var files []string
	err := doublestar.GlobWalk(os.DirFS(root), "**/.env*", func(path string, d os.DirEntry) error {
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if inIgnoredDir(path) || !IsDotenvFile(path) {
			return nil
		}
		files = append(files, filepath.Join(root, filepath.FromSlash(path)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// ResolveFiles expands user-supplied paths and globs relative to root into
// files accepted by match. Directories are searched recursively.
func ResolveFiles(patterns []string, root string, match func(string) bool) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		resolved, err := resolvePattern(pattern, root, match)
		if err != nil {
			return nil, err
		}
		for _, f := range resolved {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no matching files found")
	}
	return files, nil
}

func resolvePattern(pattern, root string, match func(string) bool) ([]string, error) {
	abs := pattern
	if !filepath.IsAbs(pattern) {
		abs = filepath.Join(root, pattern)
	}

	info, err := os.Stat(abs)
	if err == nil && info.IsDir() {
		return findInDir(abs, match)
	}

	if strings.ContainsAny(pattern, "*?[") {
		matches, err := doublestar.FilepathGlob(abs)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		var out []string
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && !info.IsDir() && match(m) && !inIgnoredDir(m) {
				out = append(out, m)
			}
		}
		return out, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, pattern)
	}
	if !match(abs) {
		return nil, fmt.Errorf("unsupported file type: %s", pattern)
	}
	return []string{abs}, nil
}

func findInDir(dir string, match func(string) bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && match(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func inIgnoredDir(path string) bool {
	parts := strings.Split(filepath.ToSlash(filepath.Dir(path)), "/")
	for _, part := range parts {
		if ignoredDirs[part] {
			return true
		}
	}
	return false
}

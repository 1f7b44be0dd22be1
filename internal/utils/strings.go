package utils

import (
	"regexp"
	"strings"

	"github.com/PolarWolf314/keyclave/internal/ui"
)

var secretNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)

// FormatPaths formats a slice of paths into a readable string.
func FormatPaths(paths []string) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, path := range paths {
		b.WriteString("    - ")
		b.WriteString(ui.Path.Sprint(path))
		b.WriteString("\n")
	}
	return b.String()
}

// IsValidSecretName reports whether name can be used as an environment
// variable style secret name.
func IsValidSecretName(name string) bool {
	return secretNameRegex.MatchString(name)
}

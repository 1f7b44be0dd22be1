package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Mask hides a secret value for display, keeping a short recognizable
// prefix and the last four characters of long values.
//
//	Mask("ghp_abcdefghijklmnop1234") // "ghp_****************1234"
//	Mask("hunter2")                  // "*******"
func Mask(value string) string {
	n := utf8.RuneCountInString(value)
	if n <= 12 {
		return strings.Repeat("*", n)
	}
	runes := []rune(value)
	prefix := 0
	if i := strings.IndexAny(value, "_-"); i > 0 && i < 8 {
		prefix = utf8.RuneCountInString(value[:i+1])
	}
	return string(runes[:prefix]) + strings.Repeat("*", n-prefix-4) + string(runes[n-4:])
}

// Confidence thresholds for import findings.
const (
	ConfidenceHigh   = 0.9
	ConfidenceMedium = 0.7
)

// ConfidenceStyle picks the style for a provenance confidence in [0,1].
func ConfidenceStyle(c float64) Style {
	switch {
	case c >= ConfidenceHigh:
		return Success
	case c >= ConfidenceMedium:
		return Warning
	default:
		return Error
	}
}

// Confidence formats a confidence as a right-aligned percentage badge.
func Confidence(c float64) string {
	return ConfidenceStyle(c).Sprint(fmt.Sprintf("%3.0f%%", c*100))
}

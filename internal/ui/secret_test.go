package ui

import "testing"

func TestMask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"hunter2", "*******"},
		{"ghp_abcdefghijklmnop1234", "ghp_****************1234"},
		{"sk-abcdefghijklmnopqrst", "sk-****************qrst"},
		{"abcdefghijklmnop", "************mnop"},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestConfidence(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		score float64
		badge string
		style Style
	}{
		{1, "100%", Success},
		{0.95, " 95%", Success},
		{0.8, " 80%", Warning},
		{0.6, " 60%", Error},
	}
	for _, tt := range tests {
		if got := Confidence(tt.score); got != tt.badge {
			t.Errorf("Confidence(%v): expected %q, got %q", tt.score, tt.badge, got)
		}
		if got := ConfidenceStyle(tt.score); got.color != tt.style.color {
			t.Errorf("ConfidenceStyle(%v): expected a different style", tt.score)
		}
	}
}

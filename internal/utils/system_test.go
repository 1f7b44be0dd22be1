package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAccountName(t *testing.T) {
	name := AccountName()
	if name == "" {
		t.Fatal("Expected non-empty account name")
	}
	if _, err := GetUsername(); err == nil {
		if _, err := GetHostname(); err == nil && !strings.Contains(name, "@") {
			t.Errorf("Expected user@host, got %q", name)
		}
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "services", "api")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot failed: %v", err)
	}
	if got != root {
		t.Errorf("Expected %s, got %s", root, got)
	}
}

func TestIsValidSecretName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"GITHUB_TOKEN", true},
		{"db.password", true},
		{"_PRIVATE", true},
		{"", false},
		{"1TOKEN", false},
		{"HAS SPACE", false},
	}
	for _, tc := range tests {
		if got := IsValidSecretName(tc.name); got != tc.valid {
			t.Errorf("IsValidSecretName(%q) = %v, expected %v", tc.name, got, tc.valid)
		}
	}
}

func TestPassphraseFromEnv(t *testing.T) {
	t.Setenv(PassphraseEnv, "from-env")
	got, err := Passphrase("unused: ", PassphraseEnv)
	if err != nil {
		t.Fatalf("Passphrase failed: %v", err)
	}
	if string(got) != "from-env" {
		t.Errorf("Expected passphrase from environment, got %q", got)
	}

	got, err = ReadNewPassphrase("unused: ", PassphraseEnv)
	if err != nil || string(got) != "from-env" {
		t.Errorf("Expected new passphrase from environment, got %q, %v", got, err)
	}
}

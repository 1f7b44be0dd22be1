package models

import (
	"errors"
	"math"
	"strings"
	"testing"

	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
)

func TestMetadataValidate(t *testing.T) {
	valid := Metadata{Name: "GITHUB_TOKEN", Provenance: Provenance{Source: SourceManual, Confidence: 1}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected valid metadata, got %v", err)
	}

	cases := map[string]Metadata{
		"empty name":      {Name: ""},
		"long name":       {Name: strings.Repeat("a", MaxNameLength+1)},
		"negative score":  {Name: "A", Provenance: Provenance{Confidence: -0.1}},
		"score above one": {Name: "A", Provenance: Provenance{Confidence: 1.5}},
		"nan score":       {Name: "A", Provenance: Provenance{Confidence: math.NaN()}},
	}
	for name, m := range cases {
		if err := m.Validate(); !errors.Is(err, kerrors.ErrInvalidMetadata) {
			t.Errorf("%s: expected ErrInvalidMetadata, got %v", name, err)
		}
	}
}

func TestProfileClone_IsDeep(t *testing.T) {
	p := Profile{
		Salt:         []byte{1, 2, 3},
		Verification: Envelope{Nonce: []byte{4}, Ciphertext: []byte{5}},
		TOTP:         &Envelope{Nonce: []byte{6}, Ciphertext: []byte{7}},
	}
	c := p.Clone()
	c.Salt[0] = 9
	c.Verification.Nonce[0] = 9
	c.TOTP.Ciphertext[0] = 9

	if p.Salt[0] != 1 || p.Verification.Nonce[0] != 4 || p.TOTP.Ciphertext[0] != 7 {
		t.Error("Expected Clone to copy every byte slice")
	}
}

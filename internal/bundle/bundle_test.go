package bundle

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/PolarWolf314/keyclave/internal/aead"
	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
	"github.com/PolarWolf314/keyclave/internal/importer"
	"github.com/PolarWolf314/keyclave/internal/kdf"
)

func testOptions() Options {
	return Options{Params: kdf.Params{MemoryKiB: 64, Iterations: 1, Parallelism: 1, KeyLen: kdf.KeyBytes}}
}

func testEntries() []importer.BundleEntry {
	return []importer.BundleEntry{
		{Name: "GITHUB_TOKEN", Value: "ghp_xxx", Provider: "github", ProjectPath: "/work/app", Source: "dotenv"},
		{Name: "DB_PASSWORD", Value: "hunter2"},
	}
}

func TestSealOpen_RoundTrip(t *testing.T) {
	engine := kdf.New(nil)
	for _, suite := range []aead.Suite{aead.AES256GCM, aead.ChaCha20Poly1305} {
		t.Run(string(suite), func(t *testing.T) {
			opts := testOptions()
			opts.Suite = suite
			data, err := Seal(testEntries(), []byte("bundle-pass"), engine, opts)
			if err != nil {
				t.Fatalf("Seal failed: %v", err)
			}

			var env Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				t.Fatalf("Expected JSON envelope, got %v", err)
			}
			if env.Version != Version || env.Suite != suite || len(env.Salt) != kdf.MinSaltBytes || len(env.Nonce) != aead.NonceSize {
				t.Errorf("Unexpected envelope header: %+v", env)
			}

			entries, err := Open(data, []byte("bundle-pass"), engine)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if len(entries) != 2 || entries[0] != testEntries()[0] || entries[1] != testEntries()[1] {
				t.Errorf("Expected entries to round trip, got %+v", entries)
			}
		})
	}
}

func TestOpen_WrongPassphrase(t *testing.T) {
	engine := kdf.New(nil)
	data, _ := Seal(testEntries(), []byte("bundle-pass"), engine, testOptions())

	if _, err := Open(data, []byte("wrong"), engine); !errors.Is(err, kerrors.ErrAuthentication) {
		t.Errorf("Expected ErrAuthentication, got %v", err)
	}
}

func TestOpen_HeaderIsAuthenticated(t *testing.T) {
	engine := kdf.New(nil)
	data, _ := Seal(testEntries(), []byte("bundle-pass"), engine, testOptions())

	var env Envelope
	_ = json.Unmarshal(data, &env)
	env.KDF.Iterations = 2
	tampered, _ := json.Marshal(env)

	if _, err := Open(tampered, []byte("bundle-pass"), engine); !errors.Is(err, kerrors.ErrAuthentication) {
		t.Errorf("Expected ErrAuthentication for modified parameters, got %v", err)
	}
}

func TestOpen_RejectsUnknownVersion(t *testing.T) {
	env := Envelope{Version: 9}
	data, _ := json.Marshal(env)
	if _, err := Open(data, []byte("x"), kdf.New(nil)); err == nil {
		t.Error("Expected error for unknown version")
	}
}

func TestOpen_RejectsExcessiveCosts(t *testing.T) {
	engine := kdf.New(nil)
	data, _ := Seal(testEntries(), []byte("bundle-pass"), engine, testOptions())

	cases := []struct {
		name  string
		apply func(*kdf.Params)
	}{
		{"iterations", func(p *kdf.Params) { p.Iterations = 1 << 31 }},
		{"memory", func(p *kdf.Params) { p.MemoryKiB = 1<<32 - 1 }},
		{"parallelism", func(p *kdf.Params) { p.Parallelism = 255 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var env Envelope
			_ = json.Unmarshal(data, &env)
			tc.apply(&env.KDF)
			hostile, _ := json.Marshal(env)

			done := make(chan error, 1)
			go func() {
				_, err := Open(hostile, []byte("bundle-pass"), engine)
				done <- err
			}()
			select {
			case err := <-done:
				if !errors.Is(err, kerrors.ErrKdfParamsRejected) {
					t.Errorf("Expected ErrKdfParamsRejected, got %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("Expected Open to reject the parameters without deriving")
			}
		})
	}
}

func TestSeal_ClampsCosts(t *testing.T) {
	opts := testOptions()
	opts.Params.Iterations = 50
	data, err := Seal(testEntries(), []byte("bundle-pass"), kdf.New(nil), opts)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	var env Envelope
	_ = json.Unmarshal(data, &env)
	if env.KDF.Iterations != kdf.ImportLimits().MaxIterations {
		t.Errorf("Expected iterations clamped to %d, got %d", kdf.ImportLimits().MaxIterations, env.KDF.Iterations)
	}
	if _, err := Open(data, []byte("bundle-pass"), kdf.New(nil)); err != nil {
		t.Errorf("Expected clamped bundle to open, got %v", err)
	}
}

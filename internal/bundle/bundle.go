// Package bundle seals a set of secrets into a portable, passphrase
// protected envelope for export and import between vaults.
//
// The envelope uses the same conventions as the vault itself: an Argon2id
// key from a fresh 16 byte salt and an AEAD suite with a 96-bit nonce. The
// version, suite and KDF parameters are bound as associated data.
package bundle

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/PolarWolf314/keyclave/internal/aead"
	"github.com/PolarWolf314/keyclave/internal/importer"
	"github.com/PolarWolf314/keyclave/internal/kdf"
	"github.com/PolarWolf314/keyclave/internal/session"
)

// Version is the current envelope format.
const Version = 1

// Envelope is the serialized bundle.
type Envelope struct {
	Version    int        `json:"version"`
	Salt       []byte     `json:"salt"`
	KDF        kdf.Params `json:"kdf_params"`
	Suite      aead.Suite `json:"suite"`
	Nonce      []byte     `json:"nonce"`
	Ciphertext []byte     `json:"ciphertext"`
}

// Options selects the costs for a new bundle. Zero values use defaults.
type Options struct {
	Params kdf.Params
	Suite  aead.Suite
}

// Seal encrypts entries under passphrase and returns the JSON envelope.
// Costs above kdf.ImportLimits are lowered so the bundle can be opened.
func Seal(entries []importer.BundleEntry, passphrase []byte, kdfEngine *kdf.Engine, opts Options) ([]byte, error) {
	if opts.Params == (kdf.Params{}) {
		opts.Params = kdf.DefaultParams()
	}
	opts.Params = kdf.ImportLimits().Clamp(opts.Params)
	engine, err := aead.New(opts.Suite)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bundle: %w", err)
	}
	defer session.Wipe(payload)

	salt, err := kdf.NewSalt()
	if err != nil {
		return nil, err
	}
	key, effective, err := kdfEngine.DeriveWithFallback(passphrase, salt, opts.Params)
	if err != nil {
		return nil, err
	}
	defer session.Wipe(key)

	env := Envelope{Version: Version, Salt: salt, KDF: effective, Suite: engine.Suite()}
	env.Nonce, err = engine.NewNonce()
	if err != nil {
		return nil, err
	}
	env.Ciphertext, err = engine.Seal(key, env.Nonce, payload, header(env))
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(env, "", "  ")
}

// Open decrypts a bundle. A wrong passphrase or a modified bundle fails with
// ErrAuthentication. Costs above kdf.ImportLimits fail with
// ErrKdfParamsRejected before any derivation runs.
func Open(data, passphrase []byte, kdfEngine *kdf.Engine) ([]importer.BundleEntry, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	if env.Version != Version {
		return nil, fmt.Errorf("unsupported bundle version %d", env.Version)
	}
	engine, err := aead.New(env.Suite)
	if err != nil {
		return nil, err
	}

	if err := kdf.ImportLimits().Check(env.KDF); err != nil {
		return nil, err
	}
	key, err := kdfEngine.DeriveExisting(passphrase, env.Salt, env.KDF)
	if err != nil {
		return nil, err
	}
	defer session.Wipe(key)

	payload, err := engine.Open(key, env.Nonce, env.Ciphertext, header(env))
	if err != nil {
		return nil, err
	}
	defer session.Wipe(payload)

	var entries []importer.BundleEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode bundle payload: %w", err)
	}
	return entries, nil
}

const bundleDomain = "keyclave/bundle"

// header is the associated data binding the envelope's cleartext fields.
func header(env Envelope) []byte {
	ad := make([]byte, 0, 64)
	ad = append(ad, bundleDomain...)
	ad = binary.BigEndian.AppendUint32(ad, uint32(env.Version))
	ad = append(ad, byte(len(env.Suite)))
	ad = append(ad, env.Suite...)
	ad = binary.BigEndian.AppendUint32(ad, env.KDF.MemoryKiB)
	ad = binary.BigEndian.AppendUint32(ad, env.KDF.Iterations)
	ad = append(ad, env.KDF.Parallelism)
	return binary.BigEndian.AppendUint32(ad, env.KDF.KeyLen)
}

package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/PolarWolf314/keyclave/internal/aead"
	"github.com/PolarWolf314/keyclave/internal/kdf"
	"github.com/PolarWolf314/keyclave/internal/storage"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "KEYCLAVE"

// Settings configure the CLI.
type Settings struct {
	VaultDir        string      `toml:"vault_dir" envconfig:"VAULT_DIR"`
	Backend         string      `toml:"backend" envconfig:"BACKEND"`
	AutoLockSeconds int         `toml:"auto_lock_seconds" envconfig:"AUTO_LOCK_SECONDS"`
	Suite           string      `toml:"suite" envconfig:"SUITE"`
	KDF             KDFSettings `toml:"kdf" envconfig:"KDF"`
}

// KDFSettings are the Argon2id costs for new profiles.
type KDFSettings struct {
	MemoryKiB   uint32 `toml:"memory_kib" envconfig:"MEMORY_KIB"`
	Iterations  uint32 `toml:"iterations" envconfig:"ITERATIONS"`
	Parallelism uint8  `toml:"parallelism" envconfig:"PARALLELISM"`
	// MaxMemoryMiB caps KDF memory. Zero defers to the runtime memory limit,
	// or half of physical memory when no limit is set.
	MaxMemoryMiB uint64 `toml:"max_memory_mib" envconfig:"MAX_MEMORY_MIB"`
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() Settings {
	p := kdf.DefaultParams()
	return Settings{
		VaultDir:        defaultVaultDir(),
		Backend:         string(storage.KindSQLite),
		AutoLockSeconds: 300,
		Suite:           string(aead.DefaultSuite),
		KDF: KDFSettings{
			MemoryKiB:   p.MemoryKiB,
			Iterations:  p.Iterations,
			Parallelism: p.Parallelism,
		},
	}
}

func defaultVaultDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ".keyclave"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "keyclave")
}

// DefaultPath returns the settings file location.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting config directory: %w", err)
	}
	return filepath.Join(configDir, "keyclave", "config.toml"), nil
}

// Load reads the settings file at path, if it exists, over the defaults and
// then applies environment overrides.
func Load(path string) (Settings, error) {
	s := DefaultSettings()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := LoadTOML(path, &s); err != nil {
				return Settings{}, fmt.Errorf("failed to load settings: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return Settings{}, fmt.Errorf("failed to stat settings: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Save writes s to path.
func Save(path string, s Settings) error {
	if err := SaveTOML(path, s); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (s Settings) Validate() error {
	if s.VaultDir == "" {
		return fmt.Errorf("vault_dir must be set")
	}
	switch storage.Kind(s.Backend) {
	case storage.KindSQLite, storage.KindFile:
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	if _, err := aead.ParseSuite(s.Suite); err != nil {
		return err
	}
	if err := s.Params().Validate(); err != nil {
		return err
	}
	return nil
}

// Params returns the KDF parameters for new profiles.
func (s Settings) Params() kdf.Params {
	return kdf.Params{
		MemoryKiB:   s.KDF.MemoryKiB,
		Iterations:  s.KDF.Iterations,
		Parallelism: s.KDF.Parallelism,
		KeyLen:      kdf.KeyBytes,
	}
}

// AEADSuite returns the configured suite.
func (s Settings) AEADSuite() aead.Suite {
	suite, err := aead.ParseSuite(s.Suite)
	if err != nil {
		return aead.DefaultSuite
	}
	return suite
}

// AutoLock returns the idle timeout. A negative value means auto-lock is off.
func (s Settings) AutoLock() time.Duration {
	if s.AutoLockSeconds <= 0 {
		return -1
	}
	return time.Duration(s.AutoLockSeconds) * time.Second
}

// Guard returns the memory guard for KDF derivations.
func (s Settings) Guard() kdf.MemoryGuard {
	return kdf.NewLimitGuard(s.KDF.MaxMemoryMiB)
}

// StorageKind returns the configured backend kind.
func (s Settings) StorageKind() storage.Kind {
	return storage.Kind(s.Backend)
}

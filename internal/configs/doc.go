// Package configs loads KeyClave settings.
//
// Settings come from three layers, later layers winning:
//
//   - Built-in defaults (see DefaultSettings)
//   - The settings file at $XDG_CONFIG_HOME/keyclave/config.toml
//   - KEYCLAVE_* environment variables
//
// # Settings File
//
// The file is TOML:
//
//	vault_dir = "/home/me/.local/share/keyclave"
//	backend = "sqlite"
//	auto_lock_seconds = 300
//	suite = "aes-256-gcm"
//
//	[kdf]
//	memory_kib = 131072
//	iterations = 3
//	parallelism = 4
//	max_memory_mib = 0
//
// A missing file is not an error.
//
// # Environment
//
// Every field can be overridden from the environment:
//
//	KEYCLAVE_VAULT_DIR, KEYCLAVE_BACKEND, KEYCLAVE_AUTO_LOCK_SECONDS,
//	KEYCLAVE_SUITE, KEYCLAVE_KDF_MEMORY_KIB, KEYCLAVE_KDF_ITERATIONS,
//	KEYCLAVE_KDF_PARALLELISM, KEYCLAVE_KDF_MAX_MEMORY_MIB
//
// KDF costs only apply to profiles created or rotated afterwards. Existing
// profiles always unlock with the parameters stored alongside them.
package configs

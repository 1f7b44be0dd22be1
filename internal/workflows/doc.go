// Package workflows provides high-level orchestration for KeyClave commands.
//
// Workflows coordinate the vault, importer, bundle and audit packages to
// implement complete user-facing features. Each workflow handles a single
// command's business logic, independent of CLI concerns like flag parsing,
// prompting, spinners and output formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Reads passphrases and one-time codes
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Opening the configured storage backend
//   - Unlocking the vault
//   - Performing the core operation
//   - Recording audit trail entries
//
// # Available Workflows
//
//   - Init: creates a new vault profile
//   - Add, Get, List, Update, Remove: manage individual secrets
//   - Rotate: re-encrypts every secret under a new passphrase
//   - Import: loads secrets from dotenv files, markdown notes or a bundle
//   - Export: writes secrets to an encrypted bundle
//   - Status: reports vault health without unlocking
//   - TOTPEnable, TOTPDisable: manage the second factor
//   - SetAutoLock: changes the idle timeout
//   - Log: reads the audit trail
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package so the CLI
// layer can map them to messages without string matching:
//
//	result, err := workflows.Rotate(ctx, opts)
//	if errors.Is(err, kerrors.ErrRotationFailure) {
//	    // no changes made
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
package workflows

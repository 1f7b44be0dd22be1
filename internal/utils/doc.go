// Package utils provides shared helpers for the KeyClave CLI.
//
// # Filesystem Utilities
//
//   - FindProjectRoot: walks up directories to find the enclosing repository
//   - ProjectPath: the project path recorded on new secrets
//   - FormatPaths: formats file paths for human-readable output
//   - WriteFileAtomic: replaces a file via a synced temp file and rename
//   - BackupFile: copies a file aside before it is rewritten
//
// # System Utilities
//
//   - GetUsername, GetHostname: identify the local account
//   - AccountName: the default account label for TOTP enrolment
//
// # I/O Utilities
//
//   - ReadStdin: reads a secret value piped on standard input
//
// # Terminal Utilities
//
//   - ReadPassphrase: prompts without echo
//   - Passphrase: prefers KEYCLAVE_PASSPHRASE, then prompts
//   - ReadNewPassphrase: prompts twice and checks both entries match
//   - ReadLine: prompts for a short visible answer such as a one-time code
package utils

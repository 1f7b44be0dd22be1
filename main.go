package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/PolarWolf314/keyclave/cmd"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "keyclave",
	Short: "KeyClave - A local encrypted vault for API keys and credentials.",
	Long: `KeyClave keeps API keys, tokens and other credentials in a local vault
encrypted under a key derived from your passphrase.

Features:
  - Argon2id key derivation with AES-256-GCM or ChaCha20-Poly1305
  - Import from dotenv files, markdown notes and encrypted bundles
  - All-or-nothing key rotation
  - Idle auto-lock and optional TOTP second factor

Usage:
  keyclave vault <command> [flags]

Run 'keyclave help vault' for more details.
`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Welcome to KeyClave! Run 'keyclave --help' to see available commands.")
	},
}

func init() {
	rootCmd.AddCommand(cmd.VaultCmd)
}

func main() {
	// Cancel in-flight work such as a rotation on Ctrl-C; rotation rolls back.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		stop()
		os.Exit(1)
	}
}

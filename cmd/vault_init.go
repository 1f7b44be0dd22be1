package cmd

import (
	"fmt"

	"github.com/PolarWolf314/keyclave/internal/ui"
	"github.com/PolarWolf314/keyclave/internal/utils"
	"github.com/PolarWolf314/keyclave/internal/workflows"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new vault protected by a passphrase",
	Long: `Creates the vault directory and a profile protected by a passphrase.

The passphrase is stretched with Argon2id. When the configured memory cost
cannot be allocated the vault falls back to a 64 MiB cost and records it.

Examples:
  # Create a vault, prompting for the passphrase twice
  keyclave vault init

  # Non-interactive
  KEYCLAVE_PASSPHRASE=... keyclave vault init --dir ./vault`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")

		passphrase, err := utils.ReadNewPassphrase("New vault passphrase: ", utils.PassphraseEnv)
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read passphrase: %v", err)
		}

		spinner, cleanup := startSpinner("Deriving vault key...", verbose)
		defer cleanup()

		result, err := workflows.Init(cmd.Context(), workflows.InitOptions{
			VaultOptions: workflows.VaultOptions{Settings: settings, Passphrase: passphrase},
		})
		if err != nil {
			return finish(spinner, err)
		}
		Logger.Infof("Vault created with %s, %d KiB", result.Suite, result.Params.MemoryKiB)

		msg := ui.Success.Sprint("✓") + " Vault created in " + ui.Path.Sprint(result.VaultDir) + "\n" +
			ui.Muted.Sprintf("%s, argon2id %d MiB x%d", result.Suite, result.Params.MemoryKiB/1024, result.Params.Iterations)
		if result.Fallback {
			msg += "\n" + ui.Warning.Sprint("⚠") + fmt.Sprintf(" Not enough memory for the configured KDF cost, using %d MiB", result.Params.MemoryKiB/1024)
		}
		spinner.FinalMSG = msg
		return nil
	},
}

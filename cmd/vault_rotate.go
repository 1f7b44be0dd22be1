package cmd

import (
	"fmt"
	"strings"

	"github.com/PolarWolf314/keyclave/internal/aead"
	"github.com/PolarWolf314/keyclave/internal/kdf"
	"github.com/PolarWolf314/keyclave/internal/ui"
	"github.com/PolarWolf314/keyclave/internal/utils"
	"github.com/PolarWolf314/keyclave/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	rotateForce       bool
	rotateSuite       string
	rotateKeepPass    bool
	rotateUseSettings bool
)

func init() {
	rotateCmd.Flags().BoolVar(&rotateForce, "force", false, "skip confirmation prompt")
	rotateCmd.Flags().StringVar(&rotateSuite, "suite", "", "switch AEAD suite (aes-256-gcm or chacha20-poly1305)")
	rotateCmd.Flags().BoolVar(&rotateKeepPass, "same-passphrase", false, "keep the passphrase, refreshing the salt and nonces")
	rotateCmd.Flags().BoolVar(&rotateUseSettings, "apply-kdf", false, "apply the KDF costs from settings")
}

func resetRotateCommandState() {
	rotateForce = false
	rotateSuite = ""
	rotateKeepPass = false
	rotateUseSettings = false
}

// confirmRotate prompts the user to confirm key rotation.
func confirmRotate() bool {
	fmt.Printf("\n%s This re-encrypts every secret under a new key.\n", ui.Warning.Sprint("Warning:"))
	fmt.Println("  Your old passphrase will no longer unlock the vault.")
	fmt.Println()

	response, err := utils.ReadLine("Do you want to continue? [y/N]: ")
	if err != nil {
		Logger.Errorf("Failed to read response: %v", err)
		return false
	}
	response = strings.ToLower(response)
	return response == "y" || response == "yes"
}

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Re-encrypt every secret under a new passphrase",
	Long: `Derives a new key and re-encrypts every secret with it.

Rotation is all or nothing. If anything fails before the swap completes, the
vault keeps its old key and nothing is changed.

Examples:
  # Change the passphrase
  keyclave vault rotate

  # Refresh keys and switch cipher, keeping the passphrase
  keyclave vault rotate --same-passphrase --suite chacha20-poly1305`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting rotate command")

		var suite aead.Suite
		if rotateSuite != "" {
			s, err := aead.ParseSuite(rotateSuite)
			if err != nil {
				return Logger.ErrorfAndReturn("%v", err)
			}
			suite = s
		}

		opts, err := vaultOptions()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read passphrase: %v", err)
		}

		newPassphrase := opts.Passphrase
		if !rotateKeepPass {
			newPassphrase, err = utils.ReadNewPassphrase("New vault passphrase: ", newPassphraseEnv)
			if err != nil {
				return Logger.ErrorfAndReturn("failed to read new passphrase: %v", err)
			}
		}

		if !rotateForce && !confirmRotate() {
			fmt.Println(ui.Warning.Sprint("⚠") + " Key rotation cancelled.")
			return nil
		}

		var params kdf.Params
		if rotateUseSettings {
			params = settings.Params()
		}

		spinner, cleanup := startSpinner("Rotating vault key...", verbose)
		defer cleanup()

		result, err := workflows.Rotate(cmd.Context(), workflows.RotateOptions{
			VaultOptions:  opts,
			NewPassphrase: newPassphrase,
			Params:        params,
			Suite:         suite,
		})
		if err != nil {
			return finish(spinner, err)
		}
		Logger.Infof("Rotated %d secrets", result.Records)

		msg := ui.Success.Sprint("✓") + fmt.Sprintf(" Re-encrypted %d secret(s) under a new key", result.Records) + "\n" +
			ui.Muted.Sprintf("%s, argon2id %d MiB x%d", result.Suite, result.Params.MemoryKiB/1024, result.Params.Iterations)
		if result.Fallback {
			msg += "\n" + ui.Warning.Sprint("⚠") + fmt.Sprintf(" Not enough memory for the configured KDF cost, using %d MiB", result.Params.MemoryKiB/1024)
		}
		spinner.FinalMSG = msg
		return nil
	},
}

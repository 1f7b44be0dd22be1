package cmd

import (
	"github.com/PolarWolf314/keyclave/internal/session"
	"github.com/PolarWolf314/keyclave/internal/ui"
	"github.com/PolarWolf314/keyclave/internal/utils"
	"github.com/PolarWolf314/keyclave/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	updateFromStdin bool
	updateReseal    bool
)

func init() {
	updateCmd.Flags().BoolVar(&updateFromStdin, "stdin", false, "read the new value from stdin")
	updateCmd.Flags().BoolVar(&updateReseal, "reseal", false, "re-encrypt the current value under a fresh nonce")
}

func resetUpdateCommandState() {
	updateFromStdin = false
	updateReseal = false
}

var updateCmd = &cobra.Command{
	Use:   "update <name|id>",
	Short: "Replace a secret's value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting update command")

		var value []byte
		if !updateReseal {
			var err error
			if updateFromStdin {
				value, err = utils.ReadStdin()
			} else {
				value, err = utils.ReadPassphrase("New value for " + args[0] + ": ")
			}
			if err != nil {
				return Logger.ErrorfAndReturn("failed to read value: %v", err)
			}
			defer session.Wipe(value)
		}

		opts, err := vaultOptions()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read passphrase: %v", err)
		}

		spinner, cleanup := startSpinner("Updating secret...", verbose)
		defer cleanup()

		meta, err := workflows.Update(cmd.Context(), workflows.UpdateOptions{VaultOptions: opts, Ref: args[0], Value: value})
		if err != nil {
			return finish(spinner, err)
		}

		verb := " Updated "
		if updateReseal {
			verb = " Resealed "
		}
		spinner.FinalMSG = ui.Success.Sprint("✓") + verb + ui.Name.Sprint(meta.Name)
		return nil
	},
}

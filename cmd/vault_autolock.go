package cmd

import (
	"fmt"
	"time"

	"github.com/PolarWolf314/keyclave/internal/ui"
	"github.com/PolarWolf314/keyclave/internal/workflows"
	"github.com/spf13/cobra"
)

var autoLockCmd = &cobra.Command{
	Use:   "autolock <duration>",
	Short: "Set the idle auto-lock timeout",
	Long: `Sets how long an unlocked vault may stay idle before its key is wiped.
Use 0 to disable.

Examples:
  keyclave vault autolock 5m
  keyclave vault autolock 0`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting autolock command")

		timeout, err := time.ParseDuration(args[0])
		if err != nil || timeout < 0 {
			return Logger.ErrorfAndReturn("invalid duration %q", args[0])
		}

		opts, err := vaultOptions()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read passphrase: %v", err)
		}

		spinner, cleanup := startSpinner("Saving auto-lock timeout...", verbose)
		defer cleanup()

		if err := workflows.SetAutoLock(cmd.Context(), workflows.SetAutoLockOptions{VaultOptions: opts, Timeout: timeout}); err != nil {
			return finish(spinner, err)
		}

		if timeout == 0 {
			spinner.FinalMSG = ui.Success.Sprint("✓") + " Auto-lock disabled"
			return nil
		}
		spinner.FinalMSG = ui.Success.Sprint("✓") + fmt.Sprintf(" Auto-lock after %s idle", timeout)
		return nil
	},
}

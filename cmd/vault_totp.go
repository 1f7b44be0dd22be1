package cmd

import (
	"fmt"

	"github.com/PolarWolf314/keyclave/internal/ui"
	"github.com/PolarWolf314/keyclave/internal/utils"
	"github.com/PolarWolf314/keyclave/internal/workflows"
	"github.com/spf13/cobra"
)

func init() {
	totpCmd.AddCommand(totpEnableCmd)
	totpCmd.AddCommand(totpDisableCmd)
}

var totpCmd = &cobra.Command{
	Use:   "totp",
	Short: "Manage the one-time code second factor",
}

var totpEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Require a one-time code to unlock",
	Long: `Generates a TOTP secret, shows it for your authenticator app and asks for
the first code to confirm. Afterwards every unlock needs --code.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting totp enable command")

		opts, err := vaultOptions()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read passphrase: %v", err)
		}

		enrollment, err := workflows.TOTPEnroll(utils.AccountName())
		if err != nil {
			return Logger.ErrorfAndReturn("%v", err)
		}

		fmt.Println("Add this account to your authenticator app:")
		fmt.Println("  Secret: " + ui.Code.Sprint(enrollment.Secret))
		fmt.Println("  URL:    " + ui.Path.Sprint(enrollment.URL))
		fmt.Println()

		code, err := utils.ReadLine("Enter the current code: ")
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read code: %v", err)
		}

		spinner, cleanup := startSpinner("Enabling TOTP...", verbose)
		defer cleanup()

		if err := workflows.TOTPEnable(cmd.Context(), workflows.TOTPEnableOptions{
			VaultOptions: opts,
			Secret:       enrollment.Secret,
			Code:         code,
		}); err != nil {
			return finish(spinner, err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " TOTP enabled\n" +
			ui.Info.Sprint("→") + " Pass " + ui.Flag.Sprint("--code") + " when unlocking from now on"
		return nil
	},
}

var totpDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Stop requiring a one-time code",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting totp disable command")

		opts, err := vaultOptions()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read passphrase: %v", err)
		}
		if opts.TOTPCode == "" {
			code, err := utils.ReadLine("Enter the current code: ")
			if err != nil {
				return Logger.ErrorfAndReturn("failed to read code: %v", err)
			}
			opts.TOTPCode = code
		}

		spinner, cleanup := startSpinner("Disabling TOTP...", verbose)
		defer cleanup()

		if err := workflows.TOTPDisable(cmd.Context(), opts); err != nil {
			return finish(spinner, err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " TOTP disabled"
		return nil
	},
}

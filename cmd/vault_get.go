package cmd

import (
	"fmt"
	"os"

	"github.com/PolarWolf314/keyclave/internal/session"
	"github.com/PolarWolf314/keyclave/internal/ui"
	"github.com/PolarWolf314/keyclave/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	getNoNewline bool
	getMasked    bool
)

func init() {
	getCmd.Flags().BoolVarP(&getNoNewline, "no-newline", "n", false, "do not print a trailing newline")
	getCmd.Flags().BoolVar(&getMasked, "masked", false, "print a masked preview instead of the value")
}

func resetGetCommandState() {
	getNoNewline = false
	getMasked = false
}

var getCmd = &cobra.Command{
	Use:   "get <name|id>",
	Short: "Print a secret's value",
	Long: `Decrypts a secret and prints its value to stdout.

Examples:
  keyclave vault get GITHUB_TOKEN
  export GITHUB_TOKEN=$(keyclave vault get -n GITHUB_TOKEN)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting get command")

		opts, err := vaultOptions()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read passphrase: %v", err)
		}

		spinner, cleanup := startSpinner("Decrypting secret...", verbose)
		result, err := workflows.Get(cmd.Context(), workflows.GetOptions{VaultOptions: opts, Ref: args[0]})
		if err != nil {
			err = finish(spinner, err)
			cleanup()
			return err
		}
		cleanup()
		defer session.Wipe(result.Value)

		Logger.Debugf("Read secret %s (%s)", result.Metadata.Name, result.Metadata.ID)
		if getMasked {
			fmt.Print(ui.Secret.Sprint(string(result.Value)))
		} else {
			os.Stdout.Write(result.Value)
		}
		if !getNoNewline {
			fmt.Println()
		}
		return nil
	},
}

package cmd

import (
	"github.com/PolarWolf314/keyclave/internal/session"
	"github.com/PolarWolf314/keyclave/internal/ui"
	"github.com/PolarWolf314/keyclave/internal/utils"
	"github.com/PolarWolf314/keyclave/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	addFromStdin   bool
	addProvider    string
	addProjectPath string
)

func init() {
	addCmd.Flags().BoolVar(&addFromStdin, "stdin", false, "read the value from stdin")
	addCmd.Flags().StringVar(&addProvider, "provider", "", "provider name (detected when omitted)")
	addCmd.Flags().StringVar(&addProjectPath, "project", "", "project path (defaults to the enclosing project)")
}

func resetAddCommandState() {
	addFromStdin = false
	addProvider = ""
	addProjectPath = ""
}

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Store a new secret",
	Long: `Stores a new secret. The value is read without echo, or from stdin with --stdin.

Examples:
  keyclave vault add GITHUB_TOKEN
  echo -n "$TOKEN" | keyclave vault add GITHUB_TOKEN --stdin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting add command")
		name := args[0]

		if !utils.IsValidSecretName(name) {
			return Logger.ErrorfAndReturn("invalid secret name %q", name)
		}

		var value []byte
		var err error
		if addFromStdin {
			value, err = utils.ReadStdin()
		} else {
			value, err = utils.ReadPassphrase("Value for " + name + ": ")
		}
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read value: %v", err)
		}
		defer session.Wipe(value)

		opts, err := vaultOptions()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read passphrase: %v", err)
		}

		spinner, cleanup := startSpinner("Adding secret...", verbose)
		defer cleanup()

		result, err := workflows.Add(cmd.Context(), workflows.AddOptions{
			VaultOptions: opts,
			Name:         name,
			Value:        value,
			Provider:     addProvider,
			ProjectPath:  addProjectPath,
		})
		if err != nil {
			return finish(spinner, err)
		}

		msg := ui.Success.Sprint("✓") + " Added " + ui.Name.Sprint(result.Name)
		if result.Provider != "" {
			msg += " " + ui.Provider.Sprint(result.Provider)
		}
		spinner.FinalMSG = msg
		return nil
	},
}

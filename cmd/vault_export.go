package cmd

import (
	"fmt"

	"github.com/PolarWolf314/keyclave/internal/ui"
	"github.com/PolarWolf314/keyclave/internal/utils"
	"github.com/PolarWolf314/keyclave/internal/workflows"
	"github.com/spf13/cobra"
)

const (
	defaultBundleOutput = "keyclave-bundle.json"
	defaultDotenvOutput = ".env"
)

var (
	exportOutput string
	exportFormat string
)

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "file to write (default keyclave-bundle.json, or .env for dotenv)")
	exportCmd.Flags().StringVar(&exportFormat, "format", string(workflows.FormatBundle), "output format: bundle or dotenv")
}

func resetExportCommandState() {
	exportOutput = ""
	exportFormat = string(workflows.FormatBundle)
}

var exportCmd = &cobra.Command{
	Use:   "export [name|id ...]",
	Short: "Write secrets to an encrypted bundle or a dotenv file",
	Long: `Writes the named secrets, or all of them, to a bundle encrypted under a
separate bundle passphrase. Import it elsewhere with
'keyclave vault import --format bundle'.

With --format dotenv the secrets are merged into a plaintext dotenv file
instead. Existing keys are overwritten in place, other lines are kept, and
the previous file is saved alongside it with a .bak suffix.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting export command")

		format := workflows.ExportFormat(exportFormat)
		output := exportOutput
		if output == "" {
			output = defaultBundleOutput
			if format == workflows.FormatDotenv {
				output = defaultDotenvOutput
			}
		}

		opts, err := vaultOptions()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read passphrase: %v", err)
		}
		var bundlePassphrase []byte
		if format != workflows.FormatDotenv {
			bundlePassphrase, err = utils.ReadNewPassphrase("Bundle passphrase: ", bundlePassphraseEnv)
			if err != nil {
				return Logger.ErrorfAndReturn("failed to read bundle passphrase: %v", err)
			}
		}

		spinner, cleanup := startSpinner("Exporting secrets...", verbose)
		defer cleanup()

		result, err := workflows.Export(cmd.Context(), workflows.ExportOptions{
			VaultOptions:     opts,
			Refs:             args,
			Format:           format,
			OutputPath:       output,
			BundlePassphrase: bundlePassphrase,
		})
		if err != nil {
			return finish(spinner, err)
		}

		msg := ui.Success.Sprint("✓") + fmt.Sprintf(" Exported %d secret(s) to ", result.Count) + ui.Path.Sprint(result.OutputPath)
		if result.Backup != "" {
			msg += "\n  Previous file saved to " + ui.Path.Sprint(result.Backup)
		}
		spinner.FinalMSG = msg
		return nil
	},
}

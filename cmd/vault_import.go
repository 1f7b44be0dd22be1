package cmd

import (
	"fmt"
	"strings"

	"github.com/PolarWolf314/keyclave/internal/importer"
	"github.com/PolarWolf314/keyclave/internal/ui"
	"github.com/PolarWolf314/keyclave/internal/utils"
	"github.com/PolarWolf314/keyclave/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	importFormat        string
	importOverwrite     bool
	importDryRun        bool
	importMinConfidence float64
	importProject       string
)

func init() {
	importCmd.Flags().StringVar(&importFormat, "format", "dotenv", "source format: dotenv, markdown or bundle")
	importCmd.Flags().BoolVar(&importOverwrite, "overwrite", false, "replace values of secrets that already exist")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "preview without making changes")
	importCmd.Flags().Float64Var(&importMinConfidence, "min-confidence", workflows.DefaultMinConfidence, "minimum confidence for markdown findings")
	importCmd.Flags().StringVar(&importProject, "project", "", "project path to record (defaults to the enclosing project)")
}

func resetImportCommandState() {
	importFormat = "dotenv"
	importOverwrite = false
	importDryRun = false
	importMinConfidence = workflows.DefaultMinConfidence
	importProject = ""
}

var importCmd = &cobra.Command{
	Use:   "import [path|glob ...]",
	Short: "Import secrets from dotenv files, markdown notes or a bundle",
	Long: `Imports secrets into the vault. Secrets whose name is already stored are
skipped unless --overwrite is given.

Formats:
  dotenv    KEY=VALUE files. Without paths, every .env file below the
            current directory is imported (templates like .env.example
            are ignored).
  markdown  Scans notes for known token formats and KEY=value lines in
            code fences. Findings below --min-confidence are dropped.
  bundle    A file written by 'keyclave vault export'.

Examples:
  keyclave vault import
  keyclave vault import --format markdown docs/
  keyclave vault import --format bundle backup.kcb`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting import command")

		kind := importer.Kind(importFormat)
		switch kind {
		case importer.KindDotenv, importer.KindMarkdown, importer.KindBundle:
		default:
			return Logger.ErrorfAndReturn("unknown format %q", importFormat)
		}

		projectPath := importProject
		if projectPath == "" {
			if p, err := utils.ProjectPath(); err == nil {
				projectPath = p
			}
		}

		opts, err := vaultOptions()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read passphrase: %v", err)
		}

		var bundlePassphrase []byte
		if kind == importer.KindBundle {
			bundlePassphrase, err = utils.Passphrase("Bundle passphrase: ", bundlePassphraseEnv)
			if err != nil {
				return Logger.ErrorfAndReturn("failed to read bundle passphrase: %v", err)
			}
		}

		spinner, cleanup := startSpinner("Importing secrets...", verbose)
		defer cleanup()

		result, err := workflows.Import(cmd.Context(), workflows.ImportOptions{
			VaultOptions:     opts,
			Kind:             kind,
			Paths:            args,
			ProjectPath:      projectPath,
			BundlePassphrase: bundlePassphrase,
			MinConfidence:    importMinConfidence,
			Overwrite:        importOverwrite,
			DryRun:           importDryRun,
		})
		if err != nil {
			return finish(spinner, err)
		}
		Logger.Debugf("Read files: %v", result.Files)

		spinner.FinalMSG = formatImportResult(result)
		return nil
	},
}

func formatImportResult(r *workflows.ImportResult) string {
	var b strings.Builder
	if r.DryRun {
		b.WriteString(ui.Warning.Sprint("Dry run:") + " no changes made\n")
	}
	fmt.Fprintf(&b, "%s Read %d file(s)", ui.Success.Sprint("✓"), len(r.Files))
	b.WriteString(utils.FormatPaths(r.Files))

	if r.DryRun || importFormat == string(importer.KindMarkdown) {
		for _, f := range r.Findings {
			fmt.Fprintf(&b, "  %s %s %s\n", ui.Confidence(f.Confidence), ui.Name.Sprint(f.Name), ui.Provider.Sprint(providerOrUnknown(f.Provider)))
		}
	}

	section := func(label string, names []string) {
		if len(names) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s %d:", label, len(names))
		for _, n := range names {
			b.WriteString(" " + ui.Name.Sprint(n))
		}
		b.WriteString("\n")
	}
	section("Added", r.Added)
	section("Updated", r.Updated)
	section("Skipped (already stored)", r.Skipped)

	if len(r.Skipped) > 0 && !importOverwrite {
		b.WriteString(ui.Info.Sprint("→") + " Use " + ui.Flag.Sprint("--overwrite") + " to replace existing values")
	}
	return b.String()
}

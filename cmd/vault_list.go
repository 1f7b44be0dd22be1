package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PolarWolf314/keyclave/internal/ui"
	"github.com/PolarWolf314/keyclave/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	listProvider   string
	listProject    string
	listJSONOutput bool
)

func init() {
	listCmd.Flags().StringVar(&listProvider, "provider", "", "only show secrets from this provider")
	listCmd.Flags().StringVar(&listProject, "project", "", "only show secrets for this project path")
	listCmd.Flags().BoolVar(&listJSONOutput, "json", false, "output in JSON format")
}

func resetListCommandState() {
	listProvider = ""
	listProject = ""
	listJSONOutput = false
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored secrets without their values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting list command")

		opts, err := vaultOptions()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read passphrase: %v", err)
		}

		spinner, cleanup := startSpinner("Listing secrets...", verbose)
		defer cleanup()

		list, err := workflows.List(cmd.Context(), workflows.ListOptions{
			VaultOptions: opts,
			Provider:     listProvider,
			ProjectPath:  listProject,
		})
		if err != nil {
			return finish(spinner, err)
		}

		if listJSONOutput {
			data, err := json.MarshalIndent(list, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn("failed to encode list: %v", err)
			}
			spinner.FinalMSG = string(data)
			return nil
		}

		if len(list) == 0 {
			spinner.FinalMSG = ui.Info.Sprint("→") + " No secrets stored yet"
			return nil
		}

		var b strings.Builder
		for _, m := range list {
			fmt.Fprintf(&b, "%s  %s %s", ui.Name.Sprint(m.Name), ui.Provider.Sprint(providerOrUnknown(m.Provider)), ui.Muted.Sprint(m.Provenance.Source))
			if m.ProjectPath != "" {
				fmt.Fprintf(&b, "  %s", ui.Path.Sprint(m.ProjectPath))
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d secret(s)", len(list))
		spinner.FinalMSG = b.String()
		return nil
	},
}

func providerOrUnknown(p string) string {
	if p == "" {
		return "unknown"
	}
	return p
}

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PolarWolf314/keyclave/internal/audit"
	"github.com/PolarWolf314/keyclave/internal/ui"
	"github.com/PolarWolf314/keyclave/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	logLimit      int
	logOperation  string
	logJSONOutput bool
)

func init() {
	logCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "show only the last n entries")
	logCmd.Flags().StringVar(&logOperation, "op", "", "only show this operation")
	logCmd.Flags().BoolVar(&logJSONOutput, "json", false, "output in JSON format")
}

func resetLogCommandState() {
	logLimit = 0
	logOperation = ""
	logJSONOutput = false
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the vault audit log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting log command")

		entries, err := workflows.Log(cmd.Context(), workflows.LogOptions{
			Settings:  settings,
			Operation: logOperation,
			Limit:     logLimit,
		})
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read audit log: %v", err)
		}

		if logJSONOutput {
			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn("failed to encode log: %v", err)
			}
			fmt.Println(string(data))
			return nil
		}

		if len(entries) == 0 {
			fmt.Println(ui.Info.Sprint("→") + " No audit entries")
			return nil
		}
		for _, e := range entries {
			fmt.Println(formatEntry(e))
		}
		return nil
	},
}

func formatEntry(e audit.Entry) string {
	parts := []string{ui.Muted.Sprint(e.Timestamp), ui.Name.Sprint(e.Operation)}
	if e.Name != "" {
		parts = append(parts, e.Name)
	}
	if e.Count > 0 {
		parts = append(parts, fmt.Sprintf("count=%d", e.Count))
	}
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	return strings.Join(parts, "  ")
}

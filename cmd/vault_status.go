package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PolarWolf314/keyclave/internal/ui"
	"github.com/PolarWolf314/keyclave/internal/workflows"
	"github.com/spf13/cobra"
)

var statusJSONOutput bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSONOutput, "json", false, "output in JSON format")
}

func resetStatusCommandState() {
	statusJSONOutput = false
}

// StatusOutput is the JSON form of the status command.
type StatusOutput struct {
	VaultDir             string  `json:"vault_dir"`
	Backend              string  `json:"backend"`
	Suite                string  `json:"suite"`
	KDFMemoryKiB         uint32  `json:"kdf_memory_kib"`
	KDFIterations        uint32  `json:"kdf_iterations"`
	KDFParallelism       uint8   `json:"kdf_parallelism"`
	Records              int     `json:"records"`
	SealCount            uint64  `json:"seal_count"`
	CollisionProbability float64 `json:"collision_probability"`
	RotationAdvised      bool    `json:"rotation_advised"`
	AutoLockSeconds      int     `json:"auto_lock_seconds"`
	TOTPEnabled          bool    `json:"totp_enabled"`
	CreatedAt            string  `json:"created_at"`
	RotatedAt            string  `json:"rotated_at,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault health without unlocking",
	Long: `Shows the cipher, KDF costs, number of secrets and nonce usage.

KeyClave counts every encryption under the current key. Because nonces are
random, the chance of a repeat grows with that count; rotate the key when
rotation is advised.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")

		spinner, cleanup := startSpinner("Reading vault...", verbose)
		defer cleanup()

		st, err := workflows.Status(cmd.Context(), workflows.StatusOptions{
			VaultOptions: workflows.VaultOptions{Settings: settings},
		})
		if err != nil {
			return finish(spinner, err)
		}

		out := StatusOutput{
			VaultDir:             st.VaultDir,
			Backend:              string(st.Backend),
			Suite:                string(st.Suite),
			KDFMemoryKiB:         st.KDF.MemoryKiB,
			KDFIterations:        st.KDF.Iterations,
			KDFParallelism:       st.KDF.Parallelism,
			Records:              st.Records,
			SealCount:            st.SealCount,
			CollisionProbability: st.CollisionProbability,
			RotationAdvised:      st.RotationAdvised,
			AutoLockSeconds:      int(st.AutoLock / time.Second),
			TOTPEnabled:          st.TOTPEnabled,
			CreatedAt:            st.CreatedAt.Format(time.RFC3339),
		}
		if !st.RotatedAt.IsZero() {
			out.RotatedAt = st.RotatedAt.Format(time.RFC3339)
		}

		if statusJSONOutput {
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn("failed to encode status: %v", err)
			}
			spinner.FinalMSG = string(data)
			return nil
		}

		spinner.FinalMSG = formatStatus(out)
		return nil
	},
}

func formatStatus(s StatusOutput) string {
	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, "  %-14s %s\n", label, value)
	}

	b.WriteString(ui.Success.Sprint("Vault") + " " + ui.Path.Sprint(s.VaultDir) + "\n")
	row("Backend", s.Backend)
	row("Cipher", s.Suite)
	row("KDF", fmt.Sprintf("argon2id %d MiB, %d passes, %d lanes", s.KDFMemoryKiB/1024, s.KDFIterations, s.KDFParallelism))
	row("Secrets", fmt.Sprintf("%d", s.Records))
	row("Encryptions", fmt.Sprintf("%d (nonce collision p=%.2e)", s.SealCount, s.CollisionProbability))
	if s.AutoLockSeconds > 0 {
		row("Auto-lock", (time.Duration(s.AutoLockSeconds) * time.Second).String())
	} else {
		row("Auto-lock", "off")
	}
	if s.TOTPEnabled {
		row("TOTP", "enabled")
	} else {
		row("TOTP", "disabled")
	}
	row("Created", s.CreatedAt)
	if s.RotatedAt != "" {
		row("Rotated", s.RotatedAt)
	}

	if s.RotationAdvised {
		b.WriteString(ui.Warning.Sprint("⚠") + " This key has sealed enough values that rotation is advised\n")
		b.WriteString(ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("keyclave vault rotate --same-passphrase"))
	}
	return b.String()
}

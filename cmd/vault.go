package cmd

import (
	"github.com/PolarWolf314/keyclave/internal/configs"
	logger "github.com/PolarWolf314/keyclave/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	debug      bool
	vaultDir   string
	configPath string
	totpCode   string

	Logger   logger.Logger
	settings configs.Settings

	VaultCmd = &cobra.Command{
		Use:   "vault",
		Short: "Manage secrets in the local encrypted vault",
		Long: `Stores API keys and other credentials encrypted under a key derived from
your passphrase. Secrets can be added by hand or imported from dotenv files,
markdown notes and encrypted bundles.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing vault command with verbose=%t, debug=%t", verbose, debug)
			return loadSettings()
		},
		SilenceUsage: true,
	}
)

func init() {
	VaultCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	VaultCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	VaultCmd.PersistentFlags().StringVar(&vaultDir, "dir", "", "vault directory (overrides settings)")
	VaultCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (default $XDG_CONFIG_HOME/keyclave/config.toml)")
	VaultCmd.PersistentFlags().StringVar(&totpCode, "code", "", "one-time code when TOTP is enabled")

	VaultCmd.AddCommand(initCmd)
	VaultCmd.AddCommand(addCmd)
	VaultCmd.AddCommand(getCmd)
	VaultCmd.AddCommand(listCmd)
	VaultCmd.AddCommand(updateCmd)
	VaultCmd.AddCommand(removeCmd)
	VaultCmd.AddCommand(rotateCmd)
	VaultCmd.AddCommand(importCmd)
	VaultCmd.AddCommand(exportCmd)
	VaultCmd.AddCommand(statusCmd)
	VaultCmd.AddCommand(totpCmd)
	VaultCmd.AddCommand(autoLockCmd)
	VaultCmd.AddCommand(logCmd)
}

func loadSettings() error {
	path := configPath
	if path == "" {
		p, err := configs.DefaultPath()
		if err != nil {
			Logger.Warnf("Could not locate settings file: %v", err)
		}
		path = p
	}
	Logger.Debugf("Loading settings from %s", path)

	s, err := configs.Load(path)
	if err != nil {
		return Logger.ErrorfAndReturn("failed to load settings: %v", err)
	}
	if vaultDir != "" {
		s.VaultDir = vaultDir
	}
	settings = s
	Logger.Debugf("Vault dir: %s, backend: %s", settings.VaultDir, settings.Backend)
	return nil
}

// Helper functions for testing

// GetVaultCmd returns the VaultCmd for testing.
func GetVaultCmd() *cobra.Command {
	return VaultCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	vaultDir = ""
	configPath = ""
	totpCode = ""
	settings = configs.Settings{}
	resetAddCommandState()
	resetGetCommandState()
	resetListCommandState()
	resetUpdateCommandState()
	resetRotateCommandState()
	resetImportCommandState()
	resetExportCommandState()
	resetStatusCommandState()
	resetLogCommandState()
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}

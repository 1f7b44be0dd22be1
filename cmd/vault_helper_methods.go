package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
	"github.com/PolarWolf314/keyclave/internal/ui"
	"github.com/PolarWolf314/keyclave/internal/utils"
	"github.com/PolarWolf314/keyclave/internal/workflows"
	"github.com/briandowns/spinner"
)

// Environment variables for non-interactive use.
const (
	newPassphraseEnv    = "KEYCLAVE_NEW_PASSPHRASE"
	bundlePassphraseEnv = "KEYCLAVE_BUNDLE_PASSPHRASE"
)

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string, verbose bool) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	quiet := !verbose && !debug
	if quiet {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		if quiet {
			log.SetOutput(os.Stdout)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if quiet {
			s.Stop()
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// vaultOptions reads the vault passphrase and bundles it with the settings.
func vaultOptions() (workflows.VaultOptions, error) {
	passphrase, err := utils.Passphrase("Vault passphrase: ", utils.PassphraseEnv)
	if err != nil {
		return workflows.VaultOptions{}, err
	}
	return workflows.VaultOptions{
		Settings:   settings,
		Passphrase: passphrase,
		TOTPCode:   totpCode,
	}, nil
}

// errorMessage maps workflow errors to a user-facing message. ok is false
// for errors that should be returned to cobra as-is.
func errorMessage(err error) (msg string, ok bool) {
	switch {
	case errors.Is(err, kerrors.ErrProfileNotFound):
		return ui.Error.Sprint("✗") + " The vault has not been initialized\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("keyclave vault init") + " first", true
	case errors.Is(err, kerrors.ErrProfileExists):
		return ui.Error.Sprint("✗") + " A vault already exists in " + ui.Path.Sprint(settings.VaultDir), true
	case errors.Is(err, kerrors.ErrInvalidPassphrase):
		return ui.Error.Sprint("✗") + " Unlock failed: incorrect passphrase", true
	case errors.Is(err, kerrors.ErrInvalidTOTP):
		hint := ""
		if totpCode == "" {
			hint = "\n" + ui.Info.Sprint("→") + " TOTP is enabled, pass " + ui.Flag.Sprint("--code")
		}
		return ui.Error.Sprint("✗") + " Unlock failed: incorrect one-time code" + hint, true
	case errors.Is(err, kerrors.ErrKdfUnavailable):
		return ui.Error.Sprint("✗") + " Key derivation could not allocate enough memory\n" +
			ui.Info.Sprint("→") + " Free memory or raise " + ui.Code.Sprint("kdf.max_memory_mib"), true
	case errors.Is(err, kerrors.ErrKdfParamsRejected):
		return ui.Error.Sprint("✗") + " The bundle asks for key derivation costs above the allowed limits", true
	case errors.Is(err, kerrors.ErrRotationFailure), errors.Is(err, kerrors.ErrRotationCancelled):
		return ui.Error.Sprint("✗") + " Key rotation failed, no changes made\n\n" +
			ui.Error.Sprint("Error: ") + err.Error(), true
	case errors.Is(err, kerrors.ErrBusy):
		return ui.Error.Sprint("✗") + " The vault is busy with another operation, try again", true
	case errors.Is(err, kerrors.ErrNotFound):
		return ui.Error.Sprint("✗") + " " + err.Error(), true
	case errors.Is(err, kerrors.ErrSecretExists):
		return ui.Error.Sprint("✗") + " " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " Use " + ui.Code.Sprint("keyclave vault update") + " to change its value", true
	case errors.Is(err, kerrors.ErrAuthentication):
		return ui.Error.Sprint("✗") + " Decryption failed: the data was modified or the passphrase is wrong", true
	case errors.Is(err, kerrors.ErrInvalidMetadata), errors.Is(err, kerrors.ErrFileNotFound):
		return ui.Error.Sprint("✗") + " " + err.Error(), true
	}
	return "", false
}

// finish turns err into the spinner's final message when it is a known
// vault error, otherwise it is returned for cobra to print.
func finish(s *spinner.Spinner, err error) error {
	if msg, ok := errorMessage(err); ok {
		Logger.Debugf("Command failed: %v", err)
		s.FinalMSG = msg
		return nil
	}
	return Logger.ErrorfAndReturn("%v", err)
}

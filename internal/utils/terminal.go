package utils

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strings"

	"golang.org/x/term"
)

// PassphraseEnv supplies the vault passphrase for non-interactive use.
const PassphraseEnv = "KEYCLAVE_PASSPHRASE"

// ReadPassphrase prompts the user for a passphrase without echoing input.
// When stdin is not a terminal it falls back to the controlling TTY.
func ReadPassphrase(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return ReadPassphraseFromTTY(prompt)
	}

	fmt.Fprint(os.Stderr, prompt)
	passphrase, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // Add newline after hidden input

	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return passphrase, nil
}

// ReadPassphraseFromTTY prompts on /dev/tty (or CON on Windows). This is
// used when stdin carries other input, such as a piped secret value.
func ReadPassphraseFromTTY(prompt string) ([]byte, error) {
	tty, err := os.Open(ttyPath())
	if err != nil {
		return nil, fmt.Errorf("cannot open %s for passphrase input: %w", ttyPath(), err)
	}
	defer tty.Close()

	fd := int(tty.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%s is not a terminal", ttyPath())
	}

	fmt.Fprint(os.Stderr, prompt)
	passphrase, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return passphrase, nil
}

// Passphrase returns the value of envVar when set, otherwise prompts.
func Passphrase(prompt, envVar string) ([]byte, error) {
	if v, ok := os.LookupEnv(envVar); ok && v != "" {
		return []byte(v), nil
	}
	return ReadPassphrase(prompt)
}

// ReadNewPassphrase prompts for a new passphrase twice. envVar, when set,
// is used without confirmation.
func ReadNewPassphrase(prompt, envVar string) ([]byte, error) {
	if v, ok := os.LookupEnv(envVar); ok && v != "" {
		return []byte(v), nil
	}

	first, err := ReadPassphrase(prompt)
	if err != nil {
		return nil, err
	}
	if len(first) == 0 {
		return nil, fmt.Errorf("passphrase must not be empty")
	}
	second, err := ReadPassphrase("Confirm passphrase: ")
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(first, second) {
		return nil, fmt.Errorf("passphrases do not match")
	}
	return first, nil
}

// ReadLine prompts for a visible single line answer on the TTY.
func ReadLine(prompt string) (string, error) {
	in := os.Stdin
	if !term.IsTerminal(int(in.Fd())) {
		tty, err := os.Open(ttyPath())
		if err != nil {
			return "", fmt.Errorf("cannot open %s for input: %w", ttyPath(), err)
		}
		defer tty.Close()
		in = tty
	}

	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// IsTerminal returns true if stdin is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func ttyPath() string {
	if runtime.GOOS == "windows" {
		return "CON"
	}
	return "/dev/tty"
}

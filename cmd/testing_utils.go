// Package cmd contains testing utilities shared between command tests.
// This file provides common functions for setting up test environments,
// capturing output and running vault commands in-process.
package cmd

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

const testPassphrase = "correct horse battery staple"

// setupTestEnvironment points the CLI at a fresh vault directory with fast
// KDF costs and no colour. It returns the vault directory.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()

	tempDir := t.TempDir()
	t.Setenv("NO_COLOR", "1")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tempDir, "config"))
	t.Setenv("KEYCLAVE_PASSPHRASE", testPassphrase)
	t.Setenv("KEYCLAVE_BACKEND", "file")
	t.Setenv("KEYCLAVE_KDF_MEMORY_KIB", "64")
	t.Setenv("KEYCLAVE_KDF_ITERATIONS", "1")
	t.Setenv("KEYCLAVE_KDF_PARALLELISM", "1")

	t.Cleanup(ResetGlobalState)
	return filepath.Join(tempDir, "vault")
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	outputChan := make(chan string, 2)
	drain := func(r io.Reader) {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, r); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}
	go drain(stdoutReader)
	go drain(stderrReader)

	err := fn()

	stdoutWriter.Close()
	stderrWriter.Close()

	os.Stdout = originalStdout
	os.Stderr = originalStderr

	stdout := <-outputChan
	stderr := <-outputChan

	return stdout + stderr, err
}

// withStdin replaces os.Stdin with a pipe holding data for the duration of fn.
func withStdin(t *testing.T, data string, fn func() error) error {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	if _, err := w.WriteString(data); err != nil {
		t.Fatalf("Failed to write stdin: %v", err)
	}
	w.Close()

	original := os.Stdin
	os.Stdin = r
	defer func() {
		os.Stdin = original
		r.Close()
	}()
	return fn()
}

// createTestCLI creates a fresh root command running "vault <args...>"
// against dir.
func createTestCLI(dir string, args ...string) *cobra.Command {
	ResetGlobalState()

	rootCmd := &cobra.Command{
		Use:   "keyclave",
		Short: "KeyClave - A local encrypted vault for API keys and credentials.",
	}
	rootCmd.AddCommand(VaultCmd)

	rootCmd.SetArgs(append([]string{"vault", "--dir", dir}, args...))
	return rootCmd
}

// runVault runs a vault command and returns its combined output.
func runVault(t *testing.T, dir string, args ...string) string {
	t.Helper()
	output, err := captureOutput(func() error {
		return createTestCLI(dir, args...).Execute()
	})
	if err != nil {
		t.Fatalf("vault %v failed: %v\nOutput: %s", args, err, output)
	}
	return output
}

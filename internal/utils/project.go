package utils

import (
	"fmt"
	"os"
)

// ProjectPath returns the project root enclosing the working directory, or
// the working directory itself when no project marker is found.
func ProjectPath() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	root, err := FindProjectRoot(wd)
	if err != nil {
		return "", err
	}
	if root == "" {
		return wd, nil
	}
	return root, nil
}

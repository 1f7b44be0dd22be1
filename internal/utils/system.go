package utils

import (
	"os"
	"os/user"
)

// GetUsername returns the current username.
func GetUsername() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

// GetHostname returns the system hostname.
func GetHostname() (string, error) {
	return os.Hostname()
}

// AccountName returns "user@host" for labelling TOTP enrolments, falling
// back to whichever part is available.
func AccountName() string {
	name, userErr := GetUsername()
	host, hostErr := GetHostname()
	switch {
	case userErr == nil && hostErr == nil:
		return name + "@" + host
	case userErr == nil:
		return name
	case hostErr == nil:
		return host
	default:
		return "keyclave"
	}
}

// Package xdg provides helpers to resolve XDG Base Directory paths for
// afpsqld. It implements the XDG Base Directory specification for
// determining the default location of the optional bootstrap configuration
// file on Unix-like systems.
//
// The package falls back to traditional locations when XDG environment
// variables are not set and ensures proper permissions for the
// security-sensitive directory it returns.
package xdg

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the XDG config directory for afpsqld.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/afpsqld when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	dir := filepath.Join(base, "afpsqld")
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}

package util

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the directory init-config writes to by default.
func ConfigDir() string {
	if os.Geteuid() == 0 {
		return "/etc/containaudit"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".containaudit"
	}
	return filepath.Join(home, ".containaudit")
}

//go:build windows

package log

import (
	"os"
	"path/filepath"
)

// getDefaultDir is %APPDATA%\handy\logs.
func getDefaultDir() (string, error) {
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "handy", "logs"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "AppData", "Roaming", "handy", "logs"), nil
}

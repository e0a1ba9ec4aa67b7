package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - DBX_CONFIG_PATH: config file location (default: ~/.config/dbx.toml)
//   - DBX_HOME: base directory for dbx data (default: ~/.local/share/dbx)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	return map[string]string{
		"config_path": configPath,
		"home_dir":    homeDir,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking DBX_CONFIG_PATH env var first,
// then falling back to the default ~/.config/dbx.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("DBX_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "dbx.toml"), nil
}

// getBaseDir returns the base directory for dbx data, checking DBX_HOME env var first,
// then falling back to the XDG default ~/.local/share/dbx.
func getBaseDir() (string, error) {
	if path := os.Getenv("DBX_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "dbx"), nil
}

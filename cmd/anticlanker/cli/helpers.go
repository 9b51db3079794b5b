package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/anticlanker/anticlanker/internal/config"
	"github.com/anticlanker/anticlanker/internal/keystore"
)

// resolveDataDir returns the credential database directory, preferring the
// --data-dir flag, then the config file, then ~/.anticlanker.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if d := viper.GetString("data_dir"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".anticlanker"
	}
	return filepath.Join(home, ".anticlanker")
}

// openKeystore opens the credential database in the resolved data directory.
func openKeystore() (*keystore.Store, error) {
	store, err := keystore.NewStore(resolveDataDir())
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	return store, nil
}

// loadConfig reads the YAML config file viper located, or falls back to
// defaults when none exists. The file is optional for every command except
// serve, which needs GroupMe credentials to moderate.
func loadConfig() (*config.Config, error) {
	path := viper.ConfigFileUsed()
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

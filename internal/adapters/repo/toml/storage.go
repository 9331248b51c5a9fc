// Package toml persists the quote assistant's state as versioned TOML files:
// the two rate tables (with timestamped backups on replace), the analytics
// event stream, the bounded recent lead/upload logs, abandoned-session
// samples, and the expiry notification history.
package toml

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName  = "config"
	configType  = "toml"
	dataDirKey  = "storage.dir"
	fileMode    = 0o600
	dirMode     = 0o700
	appDir      = ".quotebot"
	tempPattern = ".quotebot-*.toml.tmp"
)

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

// resolveDataDir reads the storage directory from viper config, defaulting to
// ~/.quotebot/data, and makes the path absolute.
func resolveDataDir(cfg *viper.Viper) (string, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, appDir))
	cfg.SetDefault(dataDirKey, filepath.Join(homeDir, appDir, "data"))

	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return "", fmt.Errorf("read config file: %w", err)
		}
	}

	dataDir := cfg.GetString(dataDirKey)
	if dataDir == "" {
		return "", errors.New("storage directory is empty")
	}
	absDir, err := filepath.Abs(dataDir)
	if err != nil {
		return "", fmt.Errorf("resolve storage directory: %w", err)
	}

	return filepath.Clean(absDir), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

// readFile decodes a TOML file into out. A missing file leaves out at its
// zero value. A malformed file is treated as recoverable corruption: it is
// logged and out keeps the documented default, never a hard failure.
func readFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	if err := toml.Unmarshal(data, out); err != nil {
		slog.Warn("stored state is malformed, reinitializing", "file", filepath.Base(path), "err", err)
	}
	return nil
}

// writeFile encodes v and atomically replaces path via a temp file + rename,
// so readers never observe a partial write.
func writeFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	data, err := toml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempPattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tempFile.Chmod(fileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}

	cleanup = false

	if err := os.Chmod(path, fileMode); err != nil {
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}

	return nil
}

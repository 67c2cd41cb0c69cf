package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix for untagged environment overrides (RECEPBOT_MODEL_TOP_K etc).
const EnvPrefix = "recepbot"

// ErrMissingSecret is wrapped by every presence failure reported from Validate.
var ErrMissingSecret = errors.New("missing required setting")

// ConfigPath returns the location of config.json. RECEPBOT_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv("RECEPBOT_CONFIG")); p != "" {
		return ExpandHome(p), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".recepbot", "config.json"), nil
}

// Load builds the effective config: defaults, then config.json if present, then environment.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only setup
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.Paths.DataDir = ExpandHome(cfg.Paths.DataDir)
	if cfg.Channels.WhatsApp.QRFile != "" {
		cfg.Channels.WhatsApp.QRFile = ExpandHome(cfg.Channels.WhatsApp.QRFile)
	}
	return cfg, nil
}

// Save writes cfg to ConfigPath with secrets included, readable by the owner only.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// EnsureDir creates dir (after ~ expansion) if it does not exist.
func EnsureDir(dir string) error {
	dir = ExpandHome(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}

// Validate reports every missing secret the enabled components need.
func (c *Config) Validate() error {
	var errs []error
	missing := func(name string) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrMissingSecret, name))
	}

	if strings.TrimSpace(c.Providers.Gemini.APIKey) == "" {
		missing("GEMINI_API_KEY")
	}
	if strings.TrimSpace(c.Model.Name) == "" {
		missing("model.name")
	}
	if c.TaskBoard.Enabled {
		if strings.TrimSpace(c.TaskBoard.Key) == "" {
			missing("TRELLO_KEY")
		}
		if strings.TrimSpace(c.TaskBoard.Token) == "" {
			missing("TRELLO_TOKEN")
		}
		if strings.TrimSpace(c.TaskBoard.ListID) == "" {
			missing("TRELLO_LIST_ID")
		}
	}
	if c.Events.Enabled && strings.TrimSpace(c.Events.KafkaBrokers) == "" {
		missing("KAFKA_BROKERS")
	}
	return errors.Join(errs...)
}

// DBPath returns the path of a database file inside the data dir.
func (c *Config) DBPath(name string) string {
	return filepath.Join(c.Paths.DataDir, name)
}

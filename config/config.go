package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.yaml.in/yaml/v3"
)

type Config struct {
	Home            string `yaml:"home"`
	DataDir         string `yaml:"data_dir"`
	LogFile         string `yaml:"log_file"`
	LogLevel        string `yaml:"log_level"`
	BufferPoolPages int    `yaml:"buffer_pool_pages"`
	PageCacheBytes  int64  `yaml:"page_cache_bytes"`
	VerifyChecksums bool   `yaml:"verify_checksums"`
}

// Default returns the configuration used when no config file exists.
func Default(home string) *Config {
	return &Config{
		Home:            home,
		DataDir:         filepath.Join(home, "data"),
		LogLevel:        "warn",
		BufferPoolPages: 64,
		PageCacheBytes:  4 << 20,
		VerifyChecksums: true,
	}
}

// Allow user to set app home through env variable
// otherwise default to ~/.local/share/slotdb

func LoadConfig(homeOverride, configOverride string) (*Config, error) {
	home := homeOverride
	if home == "" {
		home = os.Getenv("SLOTDB_HOME")
	}

	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "resolve home directory")
		}
		home = filepath.Join(userHome, ".local", "share", "slotdb")
	}

	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create home %s", home)
	}

	cfg := Default(home)

	cfgPath := configOverride
	if cfgPath == "" {
		cfgPath = filepath.Join(home, "config.yaml")
	}

	if f, err := os.Open(cfgPath); err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, errors.Wrapf(err, "decode %s", cfgPath)
		}
	} else if configOverride != "" {
		return nil, errors.Wrapf(err, "open config %s", cfgPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create data dir %s", cfg.DataDir)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("config: data_dir must not be empty")
	}
	if c.BufferPoolPages < 2 {
		return errors.Errorf("config: buffer_pool_pages must be at least 2, got %d", c.BufferPoolPages)
	}
	if c.PageCacheBytes < 0 {
		return errors.Errorf("config: page_cache_bytes must not be negative, got %d", c.PageCacheBytes)
	}
	return nil
}

// Package config resolves Memoria's home directory and runtime settings.
// All state lives in an explicit Config value passed into constructors;
// there are no process-wide singletons.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// HomeEnv is the environment variable that overrides the home directory.
const HomeEnv = "MEMORIA_HOME"

// Config holds all runtime settings.
type Config struct {
	// Home is the Memoria base directory. The database lives under
	// <home>/.memory and the knowledge vault under <home>/knowledge.
	Home string `yaml:"home"`

	// DBPath overrides the default database location (<home>/.memory/sessions.db).
	DBPath string `yaml:"db_path"`

	// VaultDir overrides the default knowledge vault location (<home>/knowledge).
	VaultDir string `yaml:"vault_dir"`

	// Recall tuning.
	Recall RecallConfig `yaml:"recall"`
}

// RecallConfig tunes the recall subsystem.
type RecallConfig struct {
	// TopK is the default result cap when a query does not specify one.
	TopK int `yaml:"top_k"`

	// PathCacheSize bounds the tree retriever's linked-session cache.
	PathCacheSize int `yaml:"path_cache_size"`
}

// Default returns the default config rooted at the given home directory.
// If home is empty, MEMORIA_HOME is consulted, then the working directory.
func Default(home string) Config {
	if home == "" {
		home = os.Getenv(HomeEnv)
	}
	if home == "" {
		home, _ = os.Getwd()
	}
	return Config{
		Home: home,
		Recall: RecallConfig{
			TopK:          5,
			PathCacheSize: 256,
		},
	}
}

// Load reads a YAML config file and fills unset fields with defaults.
// A missing file is not an error: defaults are returned.
func Load(path, home string) (Config, error) {
	cfg := Default(home)

	if path == "" {
		path = filepath.Join(cfg.Home, "config.yaml")
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Re-apply defaults the file may have zeroed.
	if cfg.Home == "" {
		cfg.Home = Default(home).Home
	}
	if cfg.Recall.TopK <= 0 {
		cfg.Recall.TopK = 5
	}
	if cfg.Recall.PathCacheSize <= 0 {
		cfg.Recall.PathCacheSize = 256
	}

	return cfg, nil
}

// DatabasePath returns the resolved sessions database path.
func (c Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.Home, ".memory", "sessions.db")
}

// VaultPath returns the resolved knowledge vault directory.
func (c Config) VaultPath() string {
	if c.VaultDir != "" {
		return c.VaultDir
	}
	return filepath.Join(c.Home, "knowledge")
}

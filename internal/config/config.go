package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the planner's settings. Values come from an optional YAML
// file; flags and environment variables override it in main.
type Config struct {
	Addr      string       `yaml:"addr"`
	DBPath    string       `yaml:"db_path"`
	StaticDir string       `yaml:"static_dir"`
	Remote    RemoteConfig `yaml:"remote"`
}

// RemoteConfig points the session at a sync document server. An empty
// BaseURL or UserID leaves the session local-only.
type RemoteConfig struct {
	BaseURL      string   `yaml:"base_url"`
	UserID       string   `yaml:"user_id"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// Duration wraps time.Duration so YAML values like "3s" parse.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:      ":8080",
		DBPath:    "data/planner.db",
		StaticDir: "web/dist",
		Remote: RemoteConfig{
			WriteTimeout: Duration(10 * time.Second),
		},
	}
}

// Load reads a YAML config file over the defaults. A missing path is not an
// error; the defaults stand.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

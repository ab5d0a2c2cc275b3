package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"streamd/pkg/types"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr          string              `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel      string              `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat     string              `json:"log_format" yaml:"log_format" toml:"log_format"`
	ManagersDir   string              `json:"managers_dir" yaml:"managers_dir" toml:"managers_dir"`
	QueueSize     int                 `json:"queue_size" yaml:"queue_size" toml:"queue_size"`
	StopWarnAfter types.Duration      `json:"stop_warn_after" yaml:"stop_warn_after" toml:"stop_warn_after"`
	Redis         RedisConfig         `json:"redis" yaml:"redis" toml:"redis"`
	CORS          CORSConfig          `json:"cors" yaml:"cors" toml:"cors"`
	Managers      []types.ManagerInfo `json:"managers" yaml:"managers" toml:"managers"`
}

// RedisConfig enables publishing stream frames to Redis when Addr is set.
type RedisConfig struct {
	Addr    string `json:"addr" yaml:"addr" toml:"addr"`
	Channel string `json:"channel" yaml:"channel" toml:"channel"`
}

// CORSConfig is opt-in CORS for the HTTP API.
type CORSConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	if err := DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// DecodeFile decodes path into v using the decoder matching its extension.
func DecodeFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, v); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, v); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, v); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config extension: %s", ext)
	}
	return nil
}

// IsSupported reports whether path has a config extension DecodeFile understands.
func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json", ".toml":
		return true
	}
	return false
}

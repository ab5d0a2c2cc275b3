package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"streamd/internal/common/fsutil"
	"streamd/pkg/types"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STREAMD_"

// envOverlay lists the settings that may be overridden from the environment.
type envOverlay struct {
	Addr          string        `env:"ADDR"`
	LogLevel      string        `env:"LOG_LEVEL"`
	LogFormat     string        `env:"LOG_FORMAT"`
	ManagersDir   string        `env:"MANAGERS_DIR"`
	QueueSize     int           `env:"QUEUE_SIZE"`
	StopWarnAfter time.Duration `env:"STOP_WARN_AFTER"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisChannel  string        `env:"REDIS_CHANNEL"`
	CORSEnabled   string        `env:"CORS_ENABLED"`
	CORSOrigins   []string      `env:"CORS_ORIGINS" envSeparator:","`
}

// LoadWithEnv builds the effective configuration: the file at path (if
// any), then dotenv files (missing files are skipped), then STREAMD_*
// environment variables, then defaults. The result is validated.
func LoadWithEnv(path string, dotenv ...string) (Config, error) {
	var cfg Config
	if path != "" {
		c, err := Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if err := loadDotenv(dotenv...); err != nil {
		return cfg, err
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

func loadDotenv(files ...string) error {
	existing, err := fsutil.RegularFiles(files...)
	if err != nil {
		return fmt.Errorf("dotenv: %w", err)
	}
	if len(existing) == 0 {
		return nil
	}
	// godotenv.Load never overrides variables already set in the process.
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("dotenv: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var ov envOverlay
	if err := env.ParseWithOptions(&ov, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	if ov.Addr != "" {
		c.Addr = ov.Addr
	}
	if ov.LogLevel != "" {
		c.LogLevel = ov.LogLevel
	}
	if ov.LogFormat != "" {
		c.LogFormat = ov.LogFormat
	}
	if ov.ManagersDir != "" {
		c.ManagersDir = ov.ManagersDir
	}
	if ov.QueueSize > 0 {
		c.QueueSize = ov.QueueSize
	}
	if ov.StopWarnAfter != 0 {
		c.StopWarnAfter = types.D(ov.StopWarnAfter)
	}
	if ov.RedisAddr != "" {
		c.Redis.Addr = ov.RedisAddr
	}
	if ov.RedisChannel != "" {
		c.Redis.Channel = ov.RedisChannel
	}
	if ov.CORSEnabled != "" {
		b, err := strconv.ParseBool(ov.CORSEnabled)
		if err != nil {
			return fmt.Errorf("env %sCORS_ENABLED: %w", EnvPrefix, err)
		}
		c.CORS.Enabled = b
	}
	if len(ov.CORSOrigins) > 0 {
		c.CORS.Origins = ov.CORSOrigins
	}
	return nil
}

package config

import (
	"time"

	"streamd/pkg/types"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultAddr          = ":8080"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultQueueSize     = 1024
	DefaultStopWarnAfter = 5 * time.Second
	DefaultRedisChannel  = "streamd:frames"
)

// Default returns a Config with every default applied and no managers.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.StopWarnAfter.Duration == 0 {
		c.StopWarnAfter = types.D(DefaultStopWarnAfter)
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = DefaultRedisChannel
	}
}

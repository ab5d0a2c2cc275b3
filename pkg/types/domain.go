package types

import (
	"fmt"
	"time"
)

// ManagerInfo is the configuration snapshot a stream manager is built from.
// It is consumed once at construction and never mutated afterwards.
type ManagerInfo struct {
	// Stable identifier of the manager.
	// example: m1
	ID string `json:"id" yaml:"id" toml:"id"`
	// Rover descriptors, one stream context each.
	Rovers []RoverInfo `json:"rovers" yaml:"rovers" toml:"rovers"`
}

// RoverInfo describes one rover stream context.
type RoverInfo struct {
	// Identifier, unique within its manager.
	// example: r1
	ID string `json:"id" yaml:"id" toml:"id"`
	// Optional TCP address of the upstream source (host:port).
	// example: caster.example.net:2101
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty" toml:"addr,omitempty"`
	// Optional mountpoint requested from the upstream source after connecting.
	// example: RTCM3
	Mountpoint string `json:"mountpoint,omitempty" yaml:"mountpoint,omitempty" toml:"mountpoint,omitempty"`
	// Heartbeat interval; zero disables the heartbeat timer.
	// example: 5s
	Heartbeat Duration `json:"heartbeat,omitempty" yaml:"heartbeat,omitempty" toml:"heartbeat,omitempty"`
	// Read chunk size in bytes (0 = default).
	ReadBuffer int `json:"read_buffer,omitempty" yaml:"read_buffer,omitempty" toml:"read_buffer,omitempty"`
	// Opaque per-rover settings passed through untouched.
	Settings map[string]any `json:"settings,omitempty" yaml:"settings,omitempty" toml:"settings,omitempty"`
}

// Duration is a time.Duration that decodes from strings like "5s" in every
// supported config format.
type Duration struct {
	time.Duration
}

// D is shorthand for building a Duration.
func D(d time.Duration) Duration { return Duration{Duration: d} }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	d.Duration = v
	return nil
}

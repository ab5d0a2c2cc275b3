package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Validate checks identifiers and logging settings.
func (c Config) Validate() error {
	var errs []error
	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
			errs = append(errs, fmt.Errorf("log_level: %w", err))
		}
	}
	switch c.LogFormat {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log_format: unsupported %q (json|console)", c.LogFormat))
	}
	if c.StopWarnAfter.Duration < 0 {
		errs = append(errs, errors.New("stop_warn_after: must not be negative"))
	}

	seen := make(map[string]bool, len(c.Managers))
	for i, m := range c.Managers {
		if m.ID == "" {
			errs = append(errs, fmt.Errorf("managers[%d]: empty id", i))
			continue
		}
		if seen[m.ID] {
			errs = append(errs, fmt.Errorf("managers[%d]: duplicate id %q", i, m.ID))
		}
		seen[m.ID] = true
		rovers := make(map[string]bool, len(m.Rovers))
		for j, r := range m.Rovers {
			switch {
			case r.ID == "":
				errs = append(errs, fmt.Errorf("managers[%s].rovers[%d]: empty id", m.ID, j))
			case rovers[r.ID]:
				errs = append(errs, fmt.Errorf("managers[%s].rovers[%d]: duplicate id %q", m.ID, j, r.ID))
			}
			rovers[r.ID] = true
		}
	}
	return errors.Join(errs...)
}

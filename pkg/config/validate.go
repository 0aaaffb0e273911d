package config

import (
	"fmt"
	"time"
)

// Validate checks the config for structural correctness.
func Validate(c *Config) []error {
	var errs []error

	if len(c.Command) == 0 || c.Command[0] == "" {
		errs = append(errs, fmt.Errorf("command is required"))
	}
	if len(c.Probe) == 0 || c.Probe[0] == "" {
		errs = append(errs, fmt.Errorf("probe is required"))
	}
	if c.LogFile == "" {
		errs = append(errs, fmt.Errorf("log_file is required"))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be debug, info, warn, or error; got %q", c.LogLevel))
	}

	if c.PollInterval < 10*time.Millisecond || c.PollInterval > 5*time.Second {
		errs = append(errs, fmt.Errorf("poll_interval must be between 10ms and 5s, got %s", c.PollInterval))
	}
	if c.ProbeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("probe_timeout must be positive, got %s", c.ProbeTimeout))
	}

	if _, err := c.Encoding(); err != nil {
		errs = append(errs, err)
	}

	return errs
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/stageflow/internal/stage"
)

var validOutputs = []string{"auto", "text", "markdown", "json", "yaml"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.MaxStages < 1 || c.MaxStages > stage.DefaultMaxStages {
		errs = append(errs, fmt.Errorf("max_stages must be between 1 and %d, got %d", stage.DefaultMaxStages, c.MaxStages))
	}

	if !validOutput(c.OutputFormat) {
		errs = append(errs, fmt.Errorf("unknown output format %q (valid: %s)", c.OutputFormat, strings.Join(validOutputs, ", ")))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if c.Snapshots.Keep < 0 {
		errs = append(errs, fmt.Errorf("snapshots.keep must not be negative, got %d", c.Snapshots.Keep))
	}

	if c.UI.Port < 0 || c.UI.Port > 65535 {
		errs = append(errs, fmt.Errorf("ui.port out of range: %d", c.UI.Port))
	}

	if c.UI.MaxBoards < 1 {
		errs = append(errs, fmt.Errorf("ui.max_boards must be at least 1, got %d", c.UI.MaxBoards))
	}

	fv := c.FitView
	if fv.Duration < 0 || fv.Padding < 0 {
		errs = append(errs, errors.New("fit_view duration and padding must not be negative"))
	}
	if fv.MinZoom <= 0 || fv.MaxZoom < fv.MinZoom {
		errs = append(errs, fmt.Errorf("fit_view zoom range invalid: min %g, max %g", fv.MinZoom, fv.MaxZoom))
	}

	return errors.Join(errs...)
}

func validOutput(s string) bool {
	for _, v := range validOutputs {
		if s == v {
			return true
		}
	}
	return false
}

// ParseLogLevel maps a config log level name to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log_level %q", s)
	}
	return level, nil
}

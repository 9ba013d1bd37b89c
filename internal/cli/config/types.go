// Package config provides configuration management for the stageflow CLI.
package config

import (
	"time"

	"github.com/leapstack-labs/stageflow/internal/board"
	"github.com/leapstack-labs/stageflow/internal/stage"
)

// Default configuration values.
const (
	DefaultSnapshotPath = ".stageflow/snapshots.db"
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel     = "info"
	DefaultPort         = 8765
)

// Config holds all CLI configuration options.
type Config struct {
	MaxStages    int             `koanf:"max_stages"`
	Verbose      bool            `koanf:"verbose"`
	OutputFormat string          `koanf:"output"`
	LogLevel     string          `koanf:"log_level"`
	Snapshots    SnapshotsConfig `koanf:"snapshots"`
	UI           UIConfig        `koanf:"ui"`
	FitView      FitViewConfig   `koanf:"fit_view"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// SnapshotsConfig configures the snapshot database.
type SnapshotsConfig struct {
	Path string `koanf:"path"`
	// Keep is how many snapshots per name survive a save. Zero keeps all.
	Keep int `koanf:"keep"`
}

// UIConfig holds configuration for the UI server.
type UIConfig struct {
	Port          int    `koanf:"port"`
	AutoOpen      bool   `koanf:"auto_open"`
	Watch         bool   `koanf:"watch"`
	SeedFile      string `koanf:"seed_file"`
	SessionSecret string `koanf:"session_secret"`
	MaxBoards     int    `koanf:"max_boards"`
}

// FitViewConfig is the camera animation applied after a stage is added.
type FitViewConfig struct {
	Duration time.Duration `koanf:"duration"`
	Padding  float64       `koanf:"padding"`
	MinZoom  float64       `koanf:"min_zoom"`
	MaxZoom  float64       `koanf:"max_zoom"`
}

// StageFitView converts the config section into the renderer directive.
func (f FitViewConfig) StageFitView() stage.FitView {
	return stage.FitView{
		Duration: f.Duration,
		Padding:  f.Padding,
		MinZoom:  f.MinZoom,
		MaxZoom:  f.MaxZoom,
	}
}

// defaults returns the flattened default values loaded before any file.
func defaults() map[string]any {
	fv := stage.DefaultFitView
	return map[string]any{
		"max_stages":        stage.DefaultMaxStages,
		"verbose":           false,
		"output":            DefaultOutput,
		"log_level":         DefaultLogLevel,
		"snapshots.path":    DefaultSnapshotPath,
		"snapshots.keep":    0,
		"ui.port":           DefaultPort,
		"ui.auto_open":      true,
		"ui.watch":          true,
		"ui.seed_file":      "",
		"ui.session_secret": "",
		"ui.max_boards":     board.DefaultMaxBoards,
		"fit_view.duration": fv.Duration.String(),
		"fit_view.padding":  fv.Padding,
		"fit_view.min_zoom": fv.MinZoom,
		"fit_view.max_zoom": fv.MaxZoom,
	}
}

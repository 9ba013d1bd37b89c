package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/stageflow/internal/cli/config"
	clitest "github.com/leapstack-labs/stageflow/internal/cli/testutil"
	"github.com/leapstack-labs/stageflow/internal/stage"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string) // setup before running
		args      []string
		wantErr   bool
		wantFiles []string
	}{
		{
			name:      "init empty directory",
			args:      []string{},
			wantFiles: []string{"stageflow.yaml"},
		},
		{
			name:      "init with example",
			args:      []string{"--example"},
			wantFiles: []string{"stageflow.yaml", "diagram.yaml"},
		},
		{
			name: "init existing config without force",
			setupDir: func(t *testing.T, dir string) {
				clitest.WriteConfig(t, dir, "existing")
			},
			args:    []string{},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(t *testing.T, dir string) {
				clitest.WriteConfig(t, dir, "existing")
			},
			args:      []string{"--force"},
			wantFiles: []string{"stageflow.yaml"},
		},
		{
			name:      "init into new directory",
			args:      []string{"nested"},
			wantFiles: []string{"nested/stageflow.yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Chdir(tmpDir)

			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			cmd := NewInitCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			for _, f := range tt.wantFiles {
				_, err := os.Stat(filepath.Join(tmpDir, f))
				assert.False(t, os.IsNotExist(err), "expected file %q to exist", f)
			}
		})
	}
}

func TestInitCreatesLoadableConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	t.Cleanup(config.ResetConfig)

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--example"})
	require.NoError(t, cmd.Execute())

	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, stage.DefaultMaxStages, cfg.MaxStages)
	assert.Equal(t, config.DefaultPort, cfg.UI.Port)
	assert.Equal(t, stage.DefaultFitView.Duration, cfg.FitView.Duration)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "diagram.yaml"), cfg.UI.SeedFile)

	data, err := os.ReadFile(cfg.UI.SeedFile)
	require.NoError(t, err)
	g, err := stage.Decode(data, stage.FormatYAML)
	require.NoError(t, err)
	assert.Len(t, g.Stages, 3)
	assert.Len(t, g.EdgesOf(stage.EdgeUser), 1)
}

func TestInitCommandMetadata(t *testing.T) {
	cmd := NewInitCommand()

	assert.Equal(t, "init [directory]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("force"), "--force flag should exist")
	assert.NotNil(t, cmd.Flags().Lookup("example"), "--example flag should exist")
}

package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/stageflow/internal/cli/config"
	clitest "github.com/leapstack-labs/stageflow/internal/cli/testutil"
)

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile = ""
		config.ResetConfig()
	})

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"version", "init", "graph", "snapshot", "ui", "tui", "shell", "mcp", "completion"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestRootCommand_GraphWithFlags(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := executeRoot(t, "graph", "--stages", "2", "-o", "json", "--max-stages", "3")
	require.NoError(t, err)
	assert.Contains(t, out, `"stages": 2`)
}

func TestRootCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	clitest.WriteConfig(t, dir, "max_stages: 2\noutput: json\n")
	t.Chdir(dir)

	out, err := executeRoot(t, "graph", "--stages", "5")
	require.NoError(t, err)
	assert.Contains(t, out, `"stages": 2`, "the configured cap limits the build")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := executeRoot(t, "graph", "--max-stages", "11")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_stages")
}

func TestRootCommand_Completion(t *testing.T) {
	out, err := executeRoot(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "stageflow")
}

func TestGetConfig_Default(t *testing.T) {
	c := GetConfig(context.Background())
	assert.Equal(t, config.DefaultOutput, c.OutputFormat)
	assert.NotNil(t, GetRenderer(context.Background()))
}

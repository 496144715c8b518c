package cmd

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/ethpandaops/t8n-repl/internal/testutil"
	"github.com/ethpandaops/t8n-repl/pkg/config"
	"github.com/ethpandaops/t8n-repl/pkg/runner"
	"github.com/ethpandaops/t8n-repl/pkg/t8n"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	previous := configFile
	configFile = ""

	t.Cleanup(func() {
		configFile = previous
	})

	return home
}

func TestLoadConfig_CreatesDefaults(t *testing.T) {
	home := withHome(t)

	cfg, path, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, config.FileName), path)
	assert.Equal(t, filepath.Join(home, config.WorkDirName), cfg.WorkDir)
	assert.DirExists(t, cfg.WorkDir)
	assert.FileExists(t, path)
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	withHome(t)

	configFile = filepath.Join(t.TempDir(), "custom.json")

	_, path, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, configFile, path)
}

func TestRunOnce(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	home := withHome(t)
	workDir := t.TempDir()

	tool := filepath.Join(t.TempDir(), "t8n.sh")
	script := "#!/bin/sh\necho \"ran $*\"\necho trace > " + filepath.Join(workDir, runner.TracePrefix+"0.jsonl") + "\n"
	require.NoError(t, os.WriteFile(tool, []byte(script), 0o755))

	out := &bytes.Buffer{}
	c := &cobra.Command{}
	c.SetOut(out)

	opts := &runFlags{
		t8n:       tool,
		hardFork:  "Berlin",
		stateTest: testutil.WriteFixture(t, t.TempDir()),
		workDir:   workDir,
	}

	require.NoError(t, runOnce(context.Background(), opts, c))

	assert.Contains(t, out.String(), "ran t8n")
	assert.Contains(t, out.String(), "--state.fork=Berlin")
	assert.Contains(t, out.String(), "trace\n")
	assert.FileExists(t, filepath.Join(workDir, runner.TxsFile))

	persisted, err := config.Load(filepath.Join(home, config.FileName), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/evm", persisted.T8n)
	assert.Empty(t, persisted.HardFork)
}

func TestRunOnce_MissingFixture(t *testing.T) {
	withHome(t)

	opts := &runFlags{
		t8n:       "/usr/bin/evm",
		hardFork:  "Berlin",
		stateTest: filepath.Join(t.TempDir(), "missing.json"),
	}

	err := runOnce(context.Background(), opts, &cobra.Command{})
	require.ErrorIs(t, err, t8n.ErrFixtureNotFound)
}

func TestRunOnce_MissingWorkDir(t *testing.T) {
	withHome(t)

	opts := &runFlags{
		t8n:       "/usr/bin/evm",
		hardFork:  "Berlin",
		stateTest: testutil.WriteFixture(t, t.TempDir()),
		workDir:   filepath.Join(t.TempDir(), "missing"),
	}

	err := runOnce(context.Background(), opts, &cobra.Command{})
	require.ErrorIs(t, err, config.ErrDirectoryNotFound)
}

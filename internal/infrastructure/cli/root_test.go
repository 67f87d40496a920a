package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(Options{})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "PhishNet version")
}

func TestProtectionToggleAndHistory(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, "storage:\n  backend: sqlite\n  path: "+filepath.Join(dir, "state.db")+"\n")

	out, err := run(t, "--config", cfg, "protection", "on", "--always-on")
	require.NoError(t, err)
	assert.Contains(t, out, "Protection: on")
	assert.Contains(t, out, "Always on:  on")

	out, err = run(t, "--config", cfg, "protection", "off")
	require.NoError(t, err)
	assert.Contains(t, out, "Protection: off")

	out, err = run(t, "--config", cfg, "protection", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Protection: off")
	assert.Contains(t, out, "Always on:  on", "partial update keeps always-on")

	out, err = run(t, "--config", cfg, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No scans recorded yet.")
}

func TestConfigPath(t *testing.T) {
	cfg := writeConfig(t, "storage:\n  backend: memory\n")
	out, err := run(t, "--config", cfg, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, cfg, strings.TrimSpace(out))
}

func TestInvalidConfigIsReported(t *testing.T) {
	cfg := writeConfig(t, "storage:\n  backend: redis\n")
	_, err := run(t, "--config", cfg, "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend")
}

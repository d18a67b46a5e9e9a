package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withCheckFile(t *testing.T, path string) {
	t.Helper()
	checkFile = path
	t.Cleanup(func() { checkFile = "" })
}

func TestCheckConfigValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adsbcot")
	require.NoError(t, os.WriteFile(path, []byte("COT_URL=tcp://takserver:8087\nCOT_STALE=120\n"), 0644))
	withCheckFile(t, path)

	assert.NoError(t, runCheckConfig(checkConfigCmd, nil))
}

func TestCheckConfigInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adsbcot")
	require.NoError(t, os.WriteFile(path, []byte("COT_STALE=0\nPOLL_INTERVAL=nope\n"), 0644))
	withCheckFile(t, path)

	err := runCheckConfig(checkConfigCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 invalid field(s)")
}

func TestCheckConfigMissingFile(t *testing.T) {
	withCheckFile(t, filepath.Join(t.TempDir(), "nope"))

	assert.NoError(t, runCheckConfig(checkConfigCmd, nil))
}

func TestResolveConfigPath(t *testing.T) {
	configPath = ""
	t.Cleanup(func() { configPath = "" })

	assert.Equal(t, "/etc/cotpanel/config.yaml", resolveConfigPath())

	t.Setenv("COTPANEL_CONFIG", "/tmp/panel.yaml")
	assert.Equal(t, "/tmp/panel.yaml", resolveConfigPath())

	configPath = "/opt/other.yaml"
	assert.Equal(t, "/opt/other.yaml", resolveConfigPath())
}

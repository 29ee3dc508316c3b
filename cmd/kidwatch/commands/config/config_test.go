package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/kidwatch/pkg/config"
)

// newCmd wraps run in a command carrying the root's persistent flags.
func newCmd(t *testing.T, run func(*cobra.Command, []string) error, args ...string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	root := &cobra.Command{Use: "kidwatch"}
	root.PersistentFlags().String("config", "", "")
	root.PersistentFlags().StringP("output", "o", "table", "")

	child := &cobra.Command{Use: "child", RunE: run}
	root.AddCommand(child)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append([]string{"child"}, args...))
	return root, &out
}

func TestInit_WritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kw", "config.yaml")

	root, out := newCmd(t, runInit, "--config", path)
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "recordings", cfg.SMB.Share)
	assert.Contains(t, cfg.CameraNames(), "front")
}

func TestInit_ForceOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: ERROR\n"), 0600))

	initForce = true
	t.Cleanup(func() { initForce = false })

	root, _ := newCmd(t, runInit, "--config", path)
	require.NoError(t, root.Execute())

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestShow_MasksSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
smb:
  host: nas.local
  share: recordings
  username: viewer
  password: hunter2
`), 0600))

	root, out := newCmd(t, runConfigShow, "--config", path, "-o", "json")
	require.NoError(t, root.Execute())

	assert.NotContains(t, out.String(), "hunter2")
	assert.Contains(t, out.String(), masked)
	assert.Contains(t, out.String(), "nas.local")
}

func TestValidate_ReportsWarnings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.InitConfigToPath(path, false))

	root, out := newCmd(t, runConfigValidate, "--config", path)
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "Validation: OK")
	assert.Contains(t, out.String(), "smb.host")
	assert.Contains(t, out.String(), "no notification channel")
}

func TestValidate_MissingFile(t *testing.T) {
	root, _ := newCmd(t, runConfigValidate, "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kidwatch config init")
}

func TestConfigWarnings_Complete(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.SMB.Host = "nas"
	cfg.SMB.Share = "rec"
	cfg.SMB.Username = "u"
	cfg.SMB.Password = "p"
	cfg.Cameras["front"] = config.CameraConfig{Folder: "Front"}
	cfg.Notify.MQTT.Broker = "tcp://localhost:1883"

	assert.Empty(t, configWarnings(cfg))
}

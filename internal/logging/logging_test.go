package logging

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestSetupToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gifboard.log")
	c, err := Setup(int(log.InfoLevel), path, true)
	require.NoError(t, err)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	log.Info("fetched gif list")
	log.Debug("hidden")
	require.NoError(t, c.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "fetched gif list")
	require.NotContains(t, string(data), "hidden")

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}

func TestSetupStderr(t *testing.T) {
	c, err := Setup(int(log.WarnLevel), "", false)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.Equal(t, log.WarnLevel, log.GetLevel())
}

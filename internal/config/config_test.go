package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "needrestart.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFileDefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, "verbosity: 2\nsendnotify: false\nblacklist:\n  - \"^/usr/sbin/nologin$\"\n")
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Verbosity)
	require.False(t, cfg.SendNotify)
	require.True(t, cfg.InterpScan) // default preserved
	require.Len(t, cfg.Blacklist, 1)
}

func TestLoadFileRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, "bogus_key: true\n")
	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestLoadFileKernelHintsTerse(t *testing.T) {
	path := writeConfig(t, "kernelhints: -1\n")
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, KernelHintsTerse, cfg.KernelHints)
}

func TestLookupOverrideRule(t *testing.T) {
	path := writeConfig(t, "override_rc:\n  \"^foo$\": true\n")
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	val, ok := Lookup(cfg.OverrideRC, "foo")
	require.True(t, ok)
	require.True(t, val)

	_, ok = Lookup(cfg.OverrideRC, "bar")
	require.False(t, ok)
}

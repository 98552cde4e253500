package mapping

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupFixtureRoot(t *testing.T, pid int) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "usr", "sbin"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "proc", strconv.Itoa(pid)), 0o755))
	require.NoError(t, os.Symlink(root, filepath.Join(root, "proc", strconv.Itoa(pid), "root")))
	return root
}

func statOf(t *testing.T, path string) (uint64, uint64) {
	t.Helper()
	fi, err := os.Stat(path)
	require.NoError(t, err)
	st, ok := fi.Sys().(*syscall.Stat_t)
	require.True(t, ok)
	return uint64(st.Dev), uint64(st.Ino)
}

func mapsLine(dev string, inode uint64, path string) string {
	return fmt.Sprintf("00400000-00452000 r-xp 00000000 %s %d                      %s", dev, inode, path)
}

func TestClassifyMappingCurrent(t *testing.T) {
	pid := 100
	root := setupFixtureRoot(t, pid)
	binPath := filepath.Join(root, "usr", "sbin", "nginx")
	require.NoError(t, os.WriteFile(binPath, []byte("elf"), 0o755))

	dev, inode := statOf(t, binPath)
	major := (dev >> 8) & 0xff
	minor := dev & 0xff
	devStr := formatDev(major, minor)

	f, err := os.CreateTemp(t.TempDir(), "maps")
	require.NoError(t, err)
	_, err = f.WriteString(mapsLine(devStr, inode, "/usr/sbin/nginx") + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	f, err = os.Open(f.Name())
	require.NoError(t, err)
	defer f.Close()

	stale, err := scanMaps(context.Background(), f, pid, root)
	require.NoError(t, err)
	require.False(t, stale)
}

func TestClassifyMappingStaleInodeMismatch(t *testing.T) {
	pid := 100
	root := setupFixtureRoot(t, pid)
	binPath := filepath.Join(root, "usr", "sbin", "nginx")
	require.NoError(t, os.WriteFile(binPath, []byte("elf"), 0o755))

	dev, inode := statOf(t, binPath)
	major := (dev >> 8) & 0xff
	minor := dev & 0xff
	devStr := formatDev(major, minor)

	f, err := os.CreateTemp(t.TempDir(), "maps")
	require.NoError(t, err)
	_, err = f.WriteString(mapsLine(devStr, inode+999, "/usr/sbin/nginx") + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	f, err = os.Open(f.Name())
	require.NoError(t, err)
	defer f.Close()

	stale, err := scanMaps(context.Background(), f, pid, root)
	require.NoError(t, err)
	require.True(t, stale)
}

func TestClassifyMappingDeletedInTransientDirSkipped(t *testing.T) {
	pid := 100
	root := setupFixtureRoot(t, pid)

	f, err := os.CreateTemp(t.TempDir(), "maps")
	require.NoError(t, err)
	_, err = f.WriteString(mapsLine("08:01", 42, "/tmp/gone") + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	f, err = os.Open(f.Name())
	require.NoError(t, err)
	defer f.Close()

	stale, err := scanMaps(context.Background(), f, pid, root)
	require.NoError(t, err)
	require.False(t, stale)
}

func TestClassifyMappingDeletedOutsideTransientIsStale(t *testing.T) {
	pid := 100
	root := setupFixtureRoot(t, pid)

	f, err := os.CreateTemp(t.TempDir(), "maps")
	require.NoError(t, err)
	_, err = f.WriteString(mapsLine("08:01", 42, "/usr/sbin/gone") + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	f, err = os.Open(f.Name())
	require.NoError(t, err)
	defer f.Close()

	stale, err := scanMaps(context.Background(), f, pid, root)
	require.NoError(t, err)
	require.True(t, stale)
}

func TestPseudoMappingsIgnored(t *testing.T) {
	pid := 100
	root := setupFixtureRoot(t, pid)

	f, err := os.CreateTemp(t.TempDir(), "maps")
	require.NoError(t, err)
	_, err = f.WriteString(mapsLine("00:00", 1, "/dev/zero") + "\n")
	require.NoError(t, err)
	_, err = f.WriteString(mapsLine("00:00", 2, "/SYSV00000000") + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	f, err = os.Open(f.Name())
	require.NoError(t, err)
	defer f.Close()

	stale, err := scanMaps(context.Background(), f, pid, root)
	require.NoError(t, err)
	require.False(t, stale)
}

func TestIsStaleBlacklist(t *testing.T) {
	ins := NewLinuxInspector()
	blacklist := []*regexp.Regexp{regexp.MustCompile(`^/usr/sbin/nologin$`)}
	stale, err := ins.IsStale(context.Background(), 1, "/usr/sbin/nologin", blacklist)
	require.NoError(t, err)
	require.False(t, stale)
}

package container

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeCgroup(t *testing.T, root string, pid int, content string) {
	t.Helper()
	dir := filepath.Join(root, "proc", strconv.Itoa(pid))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cgroup"), []byte(content), 0o644))
}

func TestInContainerDetectsDockerCgroup(t *testing.T) {
	root := t.TempDir()
	writeCgroup(t, root, 100, "0::/docker/abc123\n")

	d := &Detector{Root: root}
	require.True(t, d.InContainer(100))
}

func TestInContainerHostProcessNotDetected(t *testing.T) {
	root := t.TempDir()
	writeCgroup(t, root, 100, "0::/system.slice/sshd.service\n")

	d := &Detector{Root: root}
	require.False(t, d.InContainer(100))
}

func TestInContainerMissingCgroupIsFalse(t *testing.T) {
	root := t.TempDir()
	d := &Detector{Root: root}
	require.False(t, d.InContainer(999))
}

package reduce

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cbane/needrestart/internal/model"
	"github.com/stretchr/testify/require"
)

func TestReduceUserModeOutdatedListing(t *testing.T) {
	snap := &model.Snapshot{Processes: map[int]model.Process{
		7001: {PID: 7001, PPID: 1, UID: 1000, Fname: "python3", TTYDevice: 0},
	}}
	r := &Reducer{Root: t.TempDir(), RootMode: false, TargetUID: 1000}

	res := r.Reduce(context.Background(), snap, map[int]bool{7001: true}, 0, 0)
	require.Equal(t, []int{7001}, res.Outdated["python3"])
	require.Equal(t, 0, res.Units.Len())
}

func TestReduceSessionRegistration(t *testing.T) {
	snap := &model.Snapshot{Processes: map[int]model.Process{
		500: {PID: 500, PPID: 1, UID: 1000, Fname: "bash", TTYDevice: 4},
	}}
	root := t.TempDir()
	r := &Reducer{Root: root, RootMode: false, TargetUID: 1000}

	res := r.Reduce(context.Background(), snap, map[int]bool{500: true}, 0, 0)
	require.Equal(t, 1, res.Units.Len())
	units := res.Units.Units()
	require.Equal(t, model.KindUserSession, units[0].Kind)
}

func TestResolveFromCgroupServiceUnit(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "proc", "5000")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cgroup"), []byte("1:name=systemd:/system.slice/sshd.service\n"), 0o644))

	r := &Reducer{Root: root}
	name, kind, ok := r.resolveFromCgroup(5000)
	require.True(t, ok)
	require.Equal(t, "sshd.service", name)
	require.Equal(t, cgroupUnitService, kind)
}

func TestResolveFromCgroupSessionScope(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "proc", "5001")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cgroup"), []byte("0::/user.slice/user-1000.slice/session-3.scope\n"), 0o644))

	r := &Reducer{Root: root}
	name, kind, ok := r.resolveFromCgroup(5001)
	require.True(t, ok)
	require.Equal(t, "1000:3", name)
	require.Equal(t, cgroupUnitSession, kind)
}

func TestFirstUnitToken(t *testing.T) {
	text := "● sshd.service - OpenSSH server daemon\n   Loaded: loaded\n"
	require.Equal(t, "sshd.service", firstUnitToken(text))
}

func TestServiceDedupOnUnitSetAdd(t *testing.T) {
	units := model.NewUnitSet()
	units.Add(model.RestartUnit{Kind: model.KindInitScript, Name: "sshd"})
	units.Add(model.RestartUnit{Kind: model.KindSystemdService, Name: "sshd.service"})
	require.Equal(t, 1, units.Len())
	require.Equal(t, "sshd.service", units.Units()[0].Key())
}

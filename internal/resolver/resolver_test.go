package resolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cbane/needrestart/internal/hookrunner"
	"github.com/cbane/needrestart/internal/model"
	"github.com/stretchr/testify/require"
)

type fakeHooks struct {
	records []hookrunner.Record
}

func (f fakeHooks) RunHooks(ctx context.Context, exePath string) ([]hookrunner.Record, []error) {
	return f.records, nil
}

func writeInitScript(t *testing.T, root, name, content string) {
	t.Helper()
	dir := filepath.Join(root, "etc", "init.d")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o755))
}

func TestResolvePidfileMatchReturnsCanonicalUnit(t *testing.T) {
	root := t.TempDir()
	writeInitScript(t, root, "nginx", "#!/bin/sh\n"+
		"### BEGIN INIT INFO\n"+
		"# default-start: 2 3 4 5\n"+
		"### END INIT INFO\n"+
		"PIDFILE=/run/nginx.pid\n")

	require.NoError(t, os.MkdirAll(filepath.Join(root, "run"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "run", "nginx.pid"), []byte("4242\n"), 0o644))

	r := &Resolver{Hooks: fakeHooks{records: []hookrunner.Record{{Tag: "RC", Value: "nginx"}}}, Root: root, Runlevel: "3"}
	units, err := r.Resolve(context.Background(), 4242, "/usr/sbin/nginx")
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Equal(t, "nginx", units[0].Name)
	require.Equal(t, model.KindInitScript, units[0].Kind)
}

func TestResolveSkipsScriptOutsideRunlevel(t *testing.T) {
	root := t.TempDir()
	writeInitScript(t, root, "foo", "#!/bin/sh\n"+
		"### BEGIN INIT INFO\n"+
		"# default-start: 2\n"+
		"### END INIT INFO\n")

	r := &Resolver{Hooks: fakeHooks{records: []hookrunner.Record{{Tag: "RC", Value: "foo"}}}, Root: root, Runlevel: "3"}
	units, err := r.Resolve(context.Background(), 1, "/usr/sbin/foo")
	require.NoError(t, err)
	require.Empty(t, units)
}

func TestResolveNoPidfileQueuedWhenNoPerfectHit(t *testing.T) {
	root := t.TempDir()
	writeInitScript(t, root, "bar", "#!/bin/sh\n"+
		"### BEGIN INIT INFO\n"+
		"# default-start: 2 3\n"+
		"### END INIT INFO\n")

	r := &Resolver{Hooks: fakeHooks{records: []hookrunner.Record{{Tag: "RC", Value: "bar"}}}, Root: root, Runlevel: "3"}
	units, err := r.Resolve(context.Background(), 1, "/usr/sbin/bar")
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Equal(t, "bar", units[0].Name)
}

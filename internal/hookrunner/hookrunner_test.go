package hookrunner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRecord(t *testing.T) {
	rec, ok := parseRecord("PACKAGE|nginx")
	require.True(t, ok)
	require.Equal(t, "PACKAGE", rec.Tag)
	require.Equal(t, "nginx", rec.Value)

	_, ok = parseRecord("not a record")
	require.False(t, ok)
}

func TestRunHooksExecutesInNaturalOrder(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("requires a shell")
	}
	dir := t.TempDir()
	writeHook(t, dir, "2-hook", "#!/bin/sh\necho 'PACKAGE|second'\n")
	writeHook(t, dir, "10-hook", "#!/bin/sh\necho 'PACKAGE|tenth'\n")

	r := New(dir, false)
	records, errs := r.RunHooks(context.Background(), "/usr/sbin/nginx")
	require.Empty(t, errs)
	require.Len(t, records, 2)
	require.Equal(t, "second", records[0].Value)
	require.Equal(t, "tenth", records[1].Value)
}

func writeHook(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
}

func TestFlushCombinedSortsAlphabetically(t *testing.T) {
	r := New(t.TempDir(), false)
	r.QueueUnit("foo.service")
	r.QueueUnit("bar.service")
	argv := r.FlushCombined()
	require.Equal(t, []string{"systemctl", "restart", "bar.service", "foo.service"}, argv)
	require.Nil(t, r.FlushCombined())
}

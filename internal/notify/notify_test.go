package notify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatchSkipsExcludedAndStopsAtFirstSuccess(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o755))
	}
	write("01-fail", "#!/bin/sh\nexit 1\n")
	write("02-ok", "#!/bin/sh\nexit 0\n")
	write("03-ok~", "#!/bin/sh\nexit 0\n")
	write(".dpkg-new-ok", "#!/bin/sh\nexit 0\n")

	ok, err := Dispatch(context.Background(), dir, Session{UID: 1000, Username: "alice", ID: "3", PPID: 999})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestExcluded(t *testing.T) {
	require.True(t, excluded("foo~"))
	require.True(t, excluded(".dpkg-new"))
	require.False(t, excluded("foo"))
}

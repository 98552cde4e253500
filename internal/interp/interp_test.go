package interp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistryCheckNoRecognizer(t *testing.T) {
	r := NewRegistry()
	stale, err := r.Check(1, "/usr/sbin/nginx", time.Now())
	require.NoError(t, err)
	require.False(t, stale)
}

func TestPythonRecognizes(t *testing.T) {
	p := NewPythonRecognizer()
	require.True(t, p.Recognizes(0, "/usr/bin/python3"))
	require.False(t, p.Recognizes(0, "/usr/sbin/nginx"))
}

func TestFilterByExt(t *testing.T) {
	files := map[string]time.Time{
		"/app/main.py":  time.Now(),
		"/app/lib.so":   time.Now(),
		"/app/util.pyc": time.Now(),
	}
	got := filterByExt(files, ".py", ".pyc")
	require.Len(t, got, 2)
	_, ok := got["/app/lib.so"]
	require.False(t, ok)
}

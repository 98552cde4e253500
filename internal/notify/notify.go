// Package notify implements Component L: it runs session-notify helpers
// in natural order with the documented environment variables, stopping at
// the first helper that exits successfully.
package notify

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cbane/needrestart/internal/natsort"
)

type Session struct {
	UID      int
	Username string
	ID       string
	PPID     int
}

// Dispatch runs every executable under dir, skipping names ending "~" or
// matching ".dpkg-*", in natural order, until one exits 0.
func Dispatch(ctx context.Context, dir string, sess Session) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if excluded(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	natsort.Strings(names)

	env := append(os.Environ(),
		"NR_UID="+strconv.Itoa(sess.UID),
		"NR_USERNAME="+sess.Username,
		"NR_SESSION="+sess.ID,
		"NR_SESSPPID="+strconv.Itoa(sess.PPID),
	)

	for _, name := range names {
		cmd := exec.CommandContext(ctx, filepath.Join(dir, name))
		cmd.Env = env
		if err := cmd.Run(); err == nil {
			return true, nil
		}
	}
	return false, nil
}

func excluded(name string) bool {
	if strings.HasSuffix(name, "~") {
		return true
	}
	if strings.HasPrefix(name, ".dpkg-") {
		return true
	}
	return false
}

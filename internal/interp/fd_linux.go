package interp

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// openRegularFiles lists the regular files a process currently has open by
// reading its /proc/<pid>/fd symlinks. Pseudo targets (pipe:, socket:,
// anon_inode:, memfd:) and anything that has since vanished are skipped;
// a missing fd directory (process exited, permission denied) yields an
// empty result rather than an error, matching the "per-PID transient is
// silently skipped" policy.
func openRegularFiles(root string, pid int) map[string]time.Time {
	out := map[string]time.Time{}

	dir := filepath.Join(root, "proc", strconv.Itoa(pid), "fd")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}

	for _, e := range entries {
		target, err := os.Readlink(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		if !strings.HasPrefix(target, "/") {
			continue
		}
		if strings.HasPrefix(target, "/dev/") || strings.HasPrefix(target, "/memfd:") {
			continue
		}
		fi, err := os.Stat(target)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		out[target] = fi.ModTime()
	}
	return out
}

func filterByExt(files map[string]time.Time, exts ...string) map[string]time.Time {
	out := map[string]time.Time{}
	for path, mtime := range files {
		for _, ext := range exts {
			if strings.HasSuffix(path, ext) {
				out[path] = mtime
				break
			}
		}
	}
	return out
}

func cmdline(root string, pid int) []string {
	data, err := os.ReadFile(filepath.Join(root, "proc", strconv.Itoa(pid), "cmdline"))
	if err != nil {
		return nil
	}
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func exeBasenameIn(exe string, names ...string) bool {
	base := filepath.Base(exe)
	for _, n := range names {
		if base == n || strings.HasPrefix(base, n) {
			return true
		}
	}
	return false
}

// firstScriptArg returns the first cmdline argument (after argv[0]) that
// looks like a path to a script file with one of the given extensions,
// used as the interpreter's "primary source" for recognizers that support
// SourceOf.
func firstScriptArg(root string, pid int, exts ...string) (string, bool) {
	args := cmdline(root, pid)
	if len(args) < 2 {
		return "", false
	}
	for _, a := range args[1:] {
		if strings.HasPrefix(a, "-") {
			continue
		}
		for _, ext := range exts {
			if strings.HasSuffix(a, ext) {
				return a, true
			}
		}
	}
	return "", false
}

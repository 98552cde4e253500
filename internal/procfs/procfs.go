// Package procfs implements Component A, the process table reader: a
// single-pass snapshot of every PID on the host, with uid, ppid,
// start-time, controlling tty, and the resolved (possibly deleted) exe
// path.
//
// Device-major/minor handling elsewhere in the pipeline assumes the
// Linux/glibc makedev layout; this package itself has no such
// dependency, but the snapshot it produces is meaningless on a kernel
// without /proc (spec.md §1 Non-goals).
package procfs

import (
	"context"
	"os"
	"strconv"

	"github.com/cbane/needrestart/internal/model"
	"github.com/shirou/gopsutil/v3/process"
)

// Reader is the narrow interface Component A exposes to the rest of the
// pipeline, kept as an interface so tests can substitute a fixture
// directory in place of the real /proc.
type Reader interface {
	Snapshot(ctx context.Context) (*model.Snapshot, error)
	ReadlinkExe(pid int) (path string, deleted bool, err error)
}

// LinuxReader reads a real /proc filesystem, optionally rooted elsewhere
// for tests (Root defaults to "/").
type LinuxReader struct {
	Root string
}

func NewLinuxReader() *LinuxReader { return &LinuxReader{Root: "/"} }

func (r *LinuxReader) root() string {
	if r.Root == "" {
		return "/"
	}
	return r.Root
}

// Snapshot enumerates every numeric entry under /proc, reading each PID's
// stat/status/exe. A PID that disappears mid-scan (process exited) or
// whose exe is unreadable (kernel thread) is skipped without aborting the
// rest of the snapshot (spec.md §4.A, §7 "per-PID transient").
func (r *LinuxReader) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	boot, hz, err := readBootClock(r.root())
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(joinProc(r.root(), ""))
	if err != nil {
		return nil, err
	}

	snap := &model.Snapshot{
		Boot:           boot,
		TicksPerSecond: hz,
		Processes:      make(map[int]model.Process, len(entries)),
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return snap, err
		}
		pid, convErr := strconv.Atoi(e.Name())
		if convErr != nil {
			continue
		}

		proc, ok := r.readProcess(pid)
		if !ok {
			continue // transient: exited, or a kernel thread
		}
		snap.Processes[pid] = proc
	}

	return snap, nil
}

func (r *LinuxReader) readProcess(pid int) (model.Process, bool) {
	exePath, deleted, err := r.readlinkExe(pid)
	if err != nil {
		// Unreadable exe symlink: kernel thread, omitted from downstream
		// analysis entirely (spec.md §4.A).
		return model.Process{}, false
	}

	st, err := readStat(r.root(), pid)
	if err != nil {
		return model.Process{}, false
	}

	uid, _ := readUID(r.root(), pid)
	if r.root() == "/" {
		// gopsutil reads the live /proc regardless of Root, so it can only
		// stand in for the hand-rolled parse when we're actually looking
		// at the real host; it wins whenever it returns a value since it already handles
		// the setgroups/supplementary-id edge cases status parsing doesn't.
		if guid, ok := gopsutilUID(pid); ok {
			uid = guid
		}
	}

	return model.Process{
		PID:            pid,
		PPID:           st.ppid,
		UID:            uid,
		StartTicks:     st.startTicks,
		Fname:          st.comm,
		ExePath:        exePath,
		ExeDeleted:     deleted,
		TTYDevice:      st.ttyNr,
		IsKernelThread: false,
	}, true
}

// ReadlinkExe resolves /proc/<pid>/exe, reporting whether either the
// trailing Linux "(deleted)" marker or the leading VServer "(deleted)"
// marker was present, with the marker stripped from the returned path.
func (r *LinuxReader) ReadlinkExe(pid int) (string, bool, error) {
	return r.readlinkExe(pid)
}

func (r *LinuxReader) readlinkExe(pid int) (string, bool, error) {
	raw, err := os.Readlink(joinProc(r.root(), strconv.Itoa(pid), "exe"))
	if err != nil {
		return "", false, err
	}
	return stripDeletedMarker(raw)
}

const (
	deletedSuffix = " (deleted)"
	deletedPrefix = "(deleted)"
)

func stripDeletedMarker(path string) (string, bool, error) {
	if len(path) > len(deletedSuffix) && path[len(path)-len(deletedSuffix):] == deletedSuffix {
		return path[:len(path)-len(deletedSuffix)], true, nil
	}
	if len(path) > len(deletedPrefix) && path[:len(deletedPrefix)] == deletedPrefix {
		rest := path[len(deletedPrefix):]
		for len(rest) > 0 && rest[0] == ' ' {
			rest = rest[1:]
		}
		return rest, true, nil
	}
	return path, false, nil
}

// gopsutilUID cross-checks the hand-rolled /proc/<pid>/status Uid: line
// against gopsutil's own process table.
func gopsutilUID(pid int) (int, bool) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return 0, false
	}
	uids, err := p.Uids()
	if err != nil || len(uids) == 0 {
		return 0, false
	}
	return int(uids[0]), true
}

func joinProc(root string, parts ...string) string {
	p := root
	if p == "" {
		p = "/"
	}
	if p[len(p)-1] != '/' {
		p += "/"
	}
	p += "proc"
	for _, part := range parts {
		if part == "" {
			continue
		}
		p += "/" + part
	}
	return p
}

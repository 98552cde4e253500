// Package reduce implements Component E, the stale-set reducer: it takes
// the set of PIDs classified stale by the mapping inspector and
// interpreter registry and collapses them, via parent chains and cgroup
// membership, into the minimal set of restart units an operator needs to
// act on.
package reduce

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cbane/needrestart/internal/interp"
	"github.com/cbane/needrestart/internal/model"
)

// Resolver is Component F's contract as consumed here: given a
// representative PID and its resolved exe, name the restart unit it
// belongs to.
type Resolver interface {
	Resolve(ctx context.Context, pid int, exePath string) ([]model.RestartUnit, error)
}

type Reducer struct {
	Root        string
	RootMode    bool
	TargetUID   int
	BlacklistRC []*regexp.Regexp
	Resolver    Resolver
	// Interp, when set, supplies the script path of an interpreted
	// candidate (SourceOf) so the resolver is handed the script a daemon
	// is running rather than the generic interpreter binary.
	Interp *interp.Registry
}

// Result is the reducer's output: resolved restart units plus, for any
// stale PID that could not be folded into a named unit (non-root mode, or
// a pass-2 resolution miss), the raw command->pids groups the batch
// formatter emits as NEEDRESTART-PID lines.
type Result struct {
	Units    *model.UnitSet
	Outdated map[string][]int
	Skipped  []string
}

func (r *Reducer) root() string {
	if r.Root == "" {
		return "/"
	}
	return r.Root
}

// Reduce runs the two-pass algorithm of spec.md §4.E over the given
// snapshot and stale-PID set.
func (r *Reducer) Reduce(ctx context.Context, snap *model.Snapshot, stale map[int]bool, self, parentOfSelf int) Result {
	res := Result{Units: model.NewUnitSet(), Outdated: map[string][]int{}}

	systemdHost := r.isSystemdHost()
	var stage2 []int

	for pid, proc := range snap.Processes {
		if !stale[pid] {
			continue
		}
		if pid == self || pid == parentOfSelf {
			continue
		}
		if !r.RootMode && proc.UID != r.TargetUID {
			continue
		}

		if proc.TTYDevice != 0 && !systemdHost {
			res.registerSession(proc)
			continue
		}

		if proc.PPID != 1 && proc.PPID != pid {
			if parent, ok := snap.Processes[proc.PPID]; ok {
				if parent.UID != proc.UID {
					stage2 = append(stage2, pid)
				} else {
					stage2 = append(stage2, proc.PPID)
				}
				continue
			}
		}
		stage2 = append(stage2, pid)
	}

	if !r.RootMode {
		for _, pid := range stage2 {
			proc, ok := snap.Processes[pid]
			if !ok {
				continue
			}
			res.Outdated[proc.Fname] = append(res.Outdated[proc.Fname], pid)
		}
		return res
	}

	seen := map[int]bool{}
	for _, pid := range stage2 {
		if seen[pid] {
			continue
		}
		seen[pid] = true

		proc, ok := snap.Processes[pid]
		if !ok {
			continue
		}

		units, resolved := r.resolveCandidate(ctx, systemdHost, pid, proc)
		if !resolved {
			res.Outdated[proc.Fname] = append(res.Outdated[proc.Fname], pid)
			continue
		}
		for _, unit := range units {
			r.addUnit(&res, unit)
		}
	}

	return res
}

func (res *Result) registerSession(proc model.Process) {
	sessionID := strconv.Itoa(proc.UID) + ":" + strconv.FormatUint(proc.TTYDevice, 10)
	unit := model.RestartUnit{
		Kind:      model.KindUserSession,
		UID:       proc.UID,
		SessionID: sessionID,
		Commands:  map[string][]int{proc.Fname: {proc.PID}},
	}
	res.Units.Add(unit)
}

func (r *Reducer) addUnit(res *Result, unit model.RestartUnit) {
	for _, re := range r.BlacklistRC {
		if re.MatchString(unit.Name) {
			return
		}
	}
	res.Units.Add(unit)
}

const systemdUnitDir = "/lib/systemd/system"

func (r *Reducer) isSystemdHost() bool {
	_, err := os.Stat(filepath.Join(r.root(), "run", "systemd", "system"))
	return err == nil
}

// resolveCandidate implements pass 2 of spec.md §4.E.
func (r *Reducer) resolveCandidate(ctx context.Context, systemdHost bool, pid int, proc model.Process) ([]model.RestartUnit, bool) {
	if systemdHost {
		if pid == 1 && strings.HasPrefix(proc.ExePath, systemdUnitDir) {
			return []model.RestartUnit{{Kind: model.KindSystemdManager}}, true
		}

		if name, kind, ok := r.resolveFromCgroup(pid); ok {
			switch kind {
			case cgroupUnitService:
				return []model.RestartUnit{{Kind: model.KindSystemdService, Name: name}}, true
			case cgroupUnitSession:
				return []model.RestartUnit{{
					Kind:      model.KindUserSession,
					SessionID: name,
					Commands:  map[string][]int{proc.Fname: {pid}},
				}}, true
			case cgroupUnitManager:
				return []model.RestartUnit{{Kind: model.KindSystemdService, Name: name}}, true
			}
		}

		if name := r.resolveFromSystemctl(ctx, pid); name != "" {
			return []model.RestartUnit{{Kind: model.KindSystemdService, Name: name}}, true
		}

		return nil, false
	}

	if pid == 1 && strings.HasPrefix(proc.ExePath, "/sbin/init") {
		return []model.RestartUnit{{Kind: model.KindSysVInit}}, true
	}

	if r.Resolver != nil {
		exePath := proc.ExePath
		if r.Interp != nil {
			if src, ok := r.Interp.SourceOf(pid, proc.ExePath); ok {
				exePath = src
			}
		}
		if units, err := r.Resolver.Resolve(ctx, pid, exePath); err == nil && len(units) > 0 {
			return units, true
		}
	}
	return nil, false
}

type cgroupUnitKind int

const (
	cgroupUnitService cgroupUnitKind = iota
	cgroupUnitSession
	cgroupUnitManager
)

var (
	sessionScopeRe = regexp.MustCompile(`user-(\d+)\.slice/session-([^/]+)\.scope`)
	userServiceRe  = regexp.MustCompile(`user@(\d+)\.service`)
	unitServiceRe  = regexp.MustCompile(`/([^/]+\.service)$`)
)

// resolveFromCgroup parses /proc/<pid>/cgroup for a systemd unit. The
// control-flow here intentionally continues to the next candidate PID
// rather than aborting the whole reduction when a session or user-manager
// branch matches, per the design note on the source's `next` construct.
func (r *Reducer) resolveFromCgroup(pid int) (name string, kind cgroupUnitKind, ok bool) {
	data, err := os.ReadFile(filepath.Join(r.root(), "proc", strconv.Itoa(pid), "cgroup"))
	if err != nil {
		return "", 0, false
	}

	for _, line := range strings.Split(string(data), "\n") {
		if m := sessionScopeRe.FindStringSubmatch(line); m != nil {
			return m[1] + ":" + m[2], cgroupUnitSession, true
		}
		if m := userServiceRe.FindStringSubmatch(line); m != nil {
			return "user manager service", cgroupUnitManager, true
		}
		if m := unitServiceRe.FindStringSubmatch(line); m != nil {
			return m[1], cgroupUnitService, true
		}
	}
	return "", 0, false
}

func (r *Reducer) resolveFromSystemctl(ctx context.Context, pid int) string {
	if _, err := exec.LookPath("systemctl"); err != nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, 600*time.Millisecond)
	defer cancel()

	out, _ := exec.CommandContext(ctx, "systemctl", "status", "--no-pager", "--full", strconv.Itoa(pid)).CombinedOutput()
	return firstUnitToken(string(out))
}

func firstUnitToken(text string) string {
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		for _, tok := range strings.Fields(scanner.Text()) {
			tok = strings.Trim(tok, "();,")
			if strings.HasSuffix(tok, ".service") {
				return tok
			}
		}
	}
	return ""
}

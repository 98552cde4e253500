// Package resolver implements Component F, the service resolver: it asks
// package-manager hooks (run through Component J) to name a PID's owning
// package or init script, then parses the init script's LSB header and
// pidfiles to pick the canonical restart unit.
package resolver

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/cbane/needrestart/internal/hookrunner"
	"github.com/cbane/needrestart/internal/model"
	"github.com/shirou/gopsutil/v3/process"
)

type HookRunner interface {
	RunHooks(ctx context.Context, exePath string) ([]hookrunner.Record, []error)
}

type Resolver struct {
	Hooks    HookRunner
	Root     string
	Runlevel string // current SysV runlevel digit, e.g. "3"
}

func (r *Resolver) root() string {
	if r.Root == "" {
		return "/"
	}
	return r.Root
}

// Resolve implements spec.md §4.F: run every hook, parse each RC line's
// init script, and either return the single pidfile-matching canonical
// unit or, failing that, every runlevel-eligible no-pidfile script.
func (r *Resolver) Resolve(ctx context.Context, pid int, exePath string) ([]model.RestartUnit, error) {
	records, _ := r.Hooks.RunHooks(ctx, exePath)

	var noPidfile []model.RestartUnit
	for _, rec := range records {
		if rec.Tag != "RC" {
			continue
		}
		script := r.parseInitScript(rec.Value)

		if !script.runlevelMatch {
			continue // skipped with a note: runlevel excluded
		}
		if script.pidfileMatches(r.root(), pid, exePath, r.root() == "/") {
			return []model.RestartUnit{script.unit()}, nil
		}
		noPidfile = append(noPidfile, script.unit())
	}

	return noPidfile, nil
}

type initScript struct {
	name                  string
	hasLSB                bool
	defaultStartRunlevels []string
	pidfiles              []string
	runlevelMatch         bool
}

func (s initScript) unit() model.RestartUnit {
	return model.RestartUnit{
		Kind:                  model.KindInitScript,
		Name:                  s.name,
		HasLSB:                s.hasLSB,
		DefaultStartRunlevels: s.defaultStartRunlevels,
		Pidfiles:              s.pidfiles,
	}
}

// pidfileMatches reports whether one of the script's pidfiles, read under
// root, names pid.
// Against the real host (liveCheck) it also cross-checks the pidfile's
// claim against gopsutil's live process table, rejecting a match where the
// pidfile's PID has been recycled into an unrelated process since it was
// written (spec.md §4.F).
func (s initScript) pidfileMatches(root string, pid int, exePath string, liveCheck bool) bool {
	want := strconv.Itoa(pid)
	for _, pf := range s.pidfiles {
		data, err := os.ReadFile(filepath.Join(root, pf))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(data)) != want {
			continue
		}
		if liveCheck && !pidfileLiveMatch(pid, exePath) {
			continue
		}
		return true
	}
	return false
}

// pidfileLiveMatch confirms gopsutil still sees pid alive and, when its
// exe is readable, that it agrees with the candidate's exe path.
func pidfileLiveMatch(pid int, exePath string) bool {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	exe, err := p.Exe()
	if err != nil || exe == "" {
		return true
	}
	return exe == exePath
}

var (
	lsbBeginRe    = regexp.MustCompile(`^###\s*BEGIN INIT INFO`)
	lsbEndRe      = regexp.MustCompile(`^###\s*END INIT INFO`)
	lsbKeyRe      = regexp.MustCompile(`^#\s*([\w-]+):\s*(.*)$`)
	pidfilePathRe = regexp.MustCompile(`(/run/[\w./-]+\.pid|/var/run/[\w./-]+\.pid)`)
)

// parseInitScript reads and parses an init script's LSB header and scans
// the remainder of the file for pidfile paths (spec.md §4.F steps 1-3).
// A script without a recognizable header block is still queued as a
// no-pidfile candidate (runlevelMatch defaults true: no header means no
// runlevel constraint to violate).
func (r *Resolver) parseInitScript(name string) initScript {
	s := initScript{name: name, runlevelMatch: true}

	path := filepath.Join(r.root(), "etc", "init.d", name)
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	content := string(data)

	inHeader := false
	for _, line := range strings.Split(content, "\n") {
		if lsbBeginRe.MatchString(line) {
			inHeader = true
			s.hasLSB = true
			continue
		}
		if lsbEndRe.MatchString(line) {
			break
		}
		if !inHeader {
			continue
		}
		if m := lsbKeyRe.FindStringSubmatch(line); m != nil {
			key := strings.ToLower(strings.TrimSpace(m[1]))
			if key == "default-start" {
				s.defaultStartRunlevels = strings.Fields(m[2])
			}
		}
	}

	if s.hasLSB && r.Runlevel != "" {
		s.runlevelMatch = containsRunlevel(s.defaultStartRunlevels, r.Runlevel)
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	seen := map[string]bool{}
	for scanner.Scan() {
		for _, m := range pidfilePathRe.FindAllString(scanner.Text(), -1) {
			if !seen[m] {
				seen[m] = true
				s.pidfiles = append(s.pidfiles, m)
			}
		}
	}

	return s
}

func containsRunlevel(levels []string, runlevel string) bool {
	for _, l := range levels {
		if l == runlevel {
			return true
		}
	}
	return false
}

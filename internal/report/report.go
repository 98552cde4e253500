// Package report implements Component N: it renders the stable-prefixed
// NEEDRESTART-* lines in the fixed order spec.md §6 describes.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/cbane/needrestart/internal/model"
	"github.com/cbane/needrestart/internal/natsort"
)

const version = "3.8" // batch protocol version, not the package version

// Write renders r to w in the fixed NEEDRESTART-* order: VER, KCUR, KEXP,
// KSTA, one SVC per unit (natural-sorted), one CONT per container, then
// PID lines in user mode.
func Write(w io.Writer, r model.Report, userMode bool) error {
	lines := Lines(r, userMode)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Lines returns the same content as Write, as a slice, so tests and the
// dialog frontend can inspect output without parsing stdout.
func Lines(r model.Report, userMode bool) []string {
	var lines []string
	lines = append(lines, "NEEDRESTART-VER: "+version)

	if r.Kernel != nil {
		lines = append(lines, "NEEDRESTART-KCUR: "+r.Kernel.Running)
		if r.Kernel.Newest != "" {
			lines = append(lines, "NEEDRESTART-KEXP: "+r.Kernel.Newest)
		}
		lines = append(lines, "NEEDRESTART-KSTA: "+strconv.Itoa(r.Kernel.Status.Int()))
	}

	var svcNames []string
	svcByName := map[string]model.RestartUnit{}
	for _, u := range r.Units {
		if u.Kind == model.KindContainer || u.Kind == model.KindUserSession {
			continue
		}
		name := serviceLabel(u)
		svcByName[name] = u
		svcNames = append(svcNames, name)
	}
	natsort.Strings(svcNames)
	for _, name := range svcNames {
		lines = append(lines, "NEEDRESTART-SVC: "+name)
	}

	contNames := make([]string, 0, len(r.Containers))
	for _, c := range r.Containers {
		contNames = append(contNames, c.Name)
	}
	natsort.Strings(contNames)
	for _, name := range contNames {
		lines = append(lines, "NEEDRESTART-CONT: "+name)
	}

	if userMode {
		for _, line := range pidLines(r) {
			lines = append(lines, line)
		}
	}

	return lines
}

func serviceLabel(u model.RestartUnit) string {
	switch u.Kind {
	case model.KindSystemdManager:
		return "systemd manager"
	case model.KindSysVInit:
		return "sysvinit"
	default:
		return u.Name
	}
}

// pidLines collects every command->pids group across the UserSession units
// of r.Units (the driver folds the reducer's Result.Outdated groups into
// such units before building the report), rendered as
// "NEEDRESTART-PID: <command>=<pid>[,<pid>...]" in natural-sorted command
// order.
func pidLines(r model.Report) []string {
	grouped := map[string][]int{}
	for _, u := range r.Units {
		if u.Kind != model.KindUserSession {
			continue
		}
		for cmd, pids := range u.Commands {
			grouped[cmd] = append(grouped[cmd], pids...)
		}
	}

	cmds := make([]string, 0, len(grouped))
	for cmd := range grouped {
		cmds = append(cmds, cmd)
	}
	natsort.Strings(cmds)

	lines := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		pids := grouped[cmd]
		sort.Ints(pids)
		strs := make([]string, len(pids))
		for i, p := range pids {
			strs[i] = strconv.Itoa(p)
		}
		lines = append(lines, fmt.Sprintf("NEEDRESTART-PID: %s=%s", cmd, strings.Join(strs, ",")))
	}
	return lines
}

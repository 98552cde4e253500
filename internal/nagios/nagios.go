// Package nagios implements Component M: it renders the plugin-mode
// single-line status plus perf-data and picks the exit code as the max of
// the per-category Nagios return codes (spec.md §6).
package nagios

import (
	"fmt"
	"strings"

	"github.com/cbane/needrestart/internal/model"
)

// Code is a Nagios plugin return code.
type Code int

const (
	OK       Code = 0
	Warning  Code = 1
	Critical Code = 2
	Unknown  Code = 3
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// category holds one line's worth of plugin-mode accounting: the count
// that drives both the headline text and the perf-data value, and whether
// that count is bad enough to warrant the "(!)" marker.
type category struct {
	label string
	count int
	bad   bool
}

// Format renders the report as a Nagios plugin-output line plus
// perf-data, and returns the overall exit code (spec.md §6 "Plugin-mode
// output").
func Format(r model.Report) (string, Code) {
	kernelCode, kernelText := kernelCategory(r.Kernel)
	services := 0
	for _, u := range r.Units {
		if u.Kind != model.KindContainer && u.Kind != model.KindUserSession {
			services++
		}
	}
	sessions := len(r.Sessions)

	cats := []category{
		{label: "Services", count: services, bad: services > 0},
		{label: "Containers", count: len(r.Containers), bad: len(r.Containers) > 0},
		{label: "Sessions", count: sessions, bad: sessions > 0},
	}

	worst := kernelCode
	var headline []string
	headline = append(headline, "Kernel: "+kernelText)
	var perf []string
	perf = append(perf, fmt.Sprintf("Kernel=%d", kernelCode))

	for _, c := range cats {
		mark := ""
		code := OK
		if c.bad {
			mark = " (!)"
			code = Warning
		}
		if code > worst {
			worst = code
		}
		headline = append(headline, fmt.Sprintf("%s: %d%s", c.label, c.count, mark))
		perf = append(perf, fmt.Sprintf("%s=%d", c.label, c.count))
	}

	line := fmt.Sprintf("%s - %s|%s", worst, strings.Join(headline, ", "), strings.Join(perf, " "))
	return line, worst
}

func kernelCategory(k *model.KernelResult) (Code, string) {
	if k == nil {
		return OK, "n/a"
	}
	switch k.Status {
	case model.KernelNoUpgrade:
		return OK, k.Running
	case model.KernelAbiUpgrade:
		return Warning, k.Running + " -> " + k.Newest
	case model.KernelVerUpgrade:
		return Critical, k.Running + " -> " + k.Newest
	default:
		return Unknown, "unknown"
	}
}

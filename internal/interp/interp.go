// Package interp implements Component C, the interpreter registry: a set
// of pluggable recognizers that identify interpreter processes (Python,
// Perl, Ruby, PHP) and report the script files each currently has open, so
// the reducer can treat a process as stale when its script has been
// edited since the process started.
package interp

import (
	"time"
)

// Recognizer is the capability set a language plug-in implements. SourceOf
// is optional; recognizers that cannot identify a single "main" script
// return ok=false without error.
type Recognizer interface {
	Name() string
	Recognizes(pid int, exe string) bool
	Files(pid int) (map[string]time.Time, error)
	SourceOf(pid int, exe string) (path string, ok bool)
}

// Registry holds recognizers in registration order; the first whose
// Recognizes returns true is used, matching the "first match wins"
// behavior of the single capability set described for this component.
type Registry struct {
	recognizers []Recognizer
}

// NewRegistry builds the default registry. Order matters only in that it
// determines which recognizer claims a process when more than one exe
// name pattern could plausibly match, which in practice never happens
// since each recognizer owns a disjoint set of basenames.
func NewRegistry() *Registry {
	return &Registry{
		recognizers: []Recognizer{
			NewPythonRecognizer(),
			NewPerlRecognizer(),
			NewRubyRecognizer(),
			NewPHPRecognizer(),
		},
	}
}

func (r *Registry) Register(rec Recognizer) {
	r.recognizers = append(r.recognizers, rec)
}

// find returns the first recognizer claiming this PID, or nil.
func (r *Registry) find(pid int, exe string) Recognizer {
	for _, rec := range r.recognizers {
		if rec.Recognizes(pid, exe) {
			return rec
		}
	}
	return nil
}

// Check implements interp_check: true if the PID is a recognized
// interpreter and any file it has open has an mtime strictly newer than
// the process's start time. A recognizer error is swallowed; the PID
// falls through to ordinary binary analysis (spec.md §7).
//
// The debug-counter increment of the original tool has no counterpart
// here: neither this function nor its caller logs anything.
func (r *Registry) Check(pid int, exe string, startTime time.Time) (bool, error) {
	rec := r.find(pid, exe)
	if rec == nil {
		return false, nil
	}

	files, err := rec.Files(pid)
	if err != nil {
		return false, nil
	}

	for _, mtime := range files {
		if mtime.After(startTime) {
			return true, nil
		}
	}
	return false, nil
}

// SourceOf exposes the first recognizer's SourceOf result for pid, used by
// the service resolver to attribute a script-driven process to a package.
func (r *Registry) SourceOf(pid int, exe string) (string, bool) {
	rec := r.find(pid, exe)
	if rec == nil {
		return "", false
	}
	return rec.SourceOf(pid, exe)
}

// Package dialog implements Component K, the interactive frontend: a
// narrow interface consumed by the driver, plus a terminal implementation
// and a non-interactive fallback for when no TTY is attached.
package dialog

import (
	"github.com/cbane/needrestart/internal/model"
)

// Frontend is the only surface the core pipeline (A-G) depends on for
// user interaction; it is never a build dependency of those packages.
type Frontend interface {
	Confirm(prompt string, defaultNo bool) (bool, error)
	SelectUnits(candidates []model.RestartUnit) ([]model.RestartUnit, error)
	ShowReport(r model.Report) error
}

// New picks the terminal frontend when interactive is true and name is ""
// or "term", otherwise falls back to the plain, non-interactive
// implementation. Unknown
// frontend names degrade to Plain rather than failing, since the CLI
// exports -f only as a hint to the UI layer (spec.md §6).
func New(name string, interactive bool) Frontend {
	if interactive && (name == "" || name == "term") {
		return NewTerm()
	}
	return NewPlain()
}

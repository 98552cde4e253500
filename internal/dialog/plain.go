package dialog

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/cbane/needrestart/internal/model"
	"github.com/cbane/needrestart/internal/report"
)

// Plain is the non-interactive fallback used when no TTY is attached, in
// automatic restart mode, or for a frontend name other than "" or "term".
// Confirm prints the prompt and reads one line from stdin, answering with
// the default on EOF or an empty line; SelectUnits selects every candidate
// without prompting.
type Plain struct {
	in  *bufio.Reader
	out *os.File
}

func NewPlain() *Plain {
	return &Plain{in: bufio.NewReader(os.Stdin), out: os.Stdout}
}

func (p *Plain) Confirm(prompt string, defaultNo bool) (bool, error) {
	def := "Y/n"
	if defaultNo {
		def = "y/N"
	}
	fmt.Fprintf(p.out, "%s [%s] ", prompt, def)

	line, err := p.in.ReadString('\n')
	if err != nil {
		return !defaultNo, nil
	}
	line = strings.TrimSpace(strings.ToLower(line))
	if line == "" {
		return !defaultNo, nil
	}
	return line == "y" || line == "yes", nil
}

func (p *Plain) SelectUnits(candidates []model.RestartUnit) ([]model.RestartUnit, error) {
	return candidates, nil
}

func (p *Plain) ShowReport(r model.Report) error {
	for _, line := range report.Lines(r, false) {
		fmt.Fprintln(p.out, line)
	}
	return nil
}

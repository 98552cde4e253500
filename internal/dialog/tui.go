package dialog

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/cbane/needrestart/internal/model"
	"github.com/cbane/needrestart/internal/report"
)

var (
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("62")).Foreground(lipgloss.Color("255"))
	checkedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	faintStyle    = lipgloss.NewStyle().Faint(true)
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
)

// Term is the built-in terminal frontend, used for interactive restart
// selection whatever the `-m` detail level: no frontend consults the
// configured UI mode, so `-m e` and `-m a` show the same list.
type Term struct{}

func NewTerm() *Term { return &Term{} }

func (t *Term) Confirm(prompt string, defaultNo bool) (bool, error) {
	m := confirmModel{prompt: prompt, defaultNo: defaultNo}
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return !defaultNo, err
	}
	return final.(confirmModel).answer, nil
}

func (t *Term) SelectUnits(candidates []model.RestartUnit) ([]model.RestartUnit, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	ti := textinput.New()
	ti.Placeholder = "filter units"
	ti.CharLimit = 156
	ti.Width = 30

	m := selectModel{
		candidates: candidates,
		filtered:   candidates,
		selected:   map[int]bool{},
		textInput:  ti,
	}
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, err
	}
	sm := final.(selectModel)
	if sm.cancelled {
		return nil, nil
	}

	var out []model.RestartUnit
	for i, u := range sm.candidates {
		if sm.selected[i] {
			out = append(out, u)
		}
	}
	return out, nil
}

func (t *Term) ShowReport(r model.Report) error {
	fmt.Println(titleStyle.Render("needrestart report"))
	for _, line := range report.Lines(r, false) {
		fmt.Println(line)
	}
	return nil
}

// confirmModel is a single yes/no bubbletea prompt.
type confirmModel struct {
	prompt    string
	defaultNo bool
	answer    bool
	done      bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "y", "Y":
			m.answer, m.done = true, true
			return m, tea.Quit
		case "n", "N":
			m.answer, m.done = false, true
			return m, tea.Quit
		case "enter":
			m.answer, m.done = !m.defaultNo, true
			return m, tea.Quit
		case "ctrl+c", "esc":
			m.answer, m.done = false, true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}
	def := "Y/n"
	if m.defaultNo {
		def = "y/N"
	}
	return fmt.Sprintf("%s [%s] ", m.prompt, def)
}

// selectModel is a filterable, multi-select list of restart-unit
// candidates, adapted from the process-picker's fuzzy-filtered list
// pattern to units instead of PIDs.
type selectModel struct {
	candidates []model.RestartUnit
	filtered   []model.RestartUnit
	cursor     int
	selected   map[int]bool // index into candidates
	textInput  textinput.Model
	cancelled  bool
}

func (m selectModel) Init() tea.Cmd { return nil }

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.textInput.Focused() {
		switch key.String() {
		case "enter", "esc":
			m.textInput.Blur()
		default:
			m.textInput, cmd = m.textInput.Update(key)
			m.filtered = m.filterCandidates(m.textInput.Value())
			return m, cmd
		}
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q":
		m.cancelled = true
		return m, tea.Quit
	case "enter":
		return m, tea.Quit
	case "/":
		m.textInput.Focus()
		return m, textinput.Blink
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
	case " ", "x":
		if m.cursor < len(m.filtered) {
			idx := m.indexOf(m.filtered[m.cursor])
			m.selected[idx] = !m.selected[idx]
		}
	}
	return m, nil
}

func (m selectModel) indexOf(u model.RestartUnit) int {
	for i, c := range m.candidates {
		if c.Key() == u.Key() {
			return i
		}
	}
	return -1
}

func (m selectModel) filterCandidates(query string) []model.RestartUnit {
	if query == "" {
		return m.candidates
	}
	names := make([]string, len(m.candidates))
	for i, c := range m.candidates {
		names[i] = c.Key()
	}
	matches := fuzzy.Find(query, names)
	out := make([]model.RestartUnit, 0, len(matches))
	for _, match := range matches {
		out = append(out, m.candidates[match.Index])
	}
	return out
}

func (m selectModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Select restart units") + "\n")
	b.WriteString(m.textInput.View() + "\n")

	for i, u := range m.filtered {
		idx := m.indexOf(u)
		mark := "[ ]"
		if m.selected[idx] {
			mark = checkedStyle.Render("[x]")
		}
		line := fmt.Sprintf("%s %s", mark, u.Key())
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(faintStyle.Render("space: toggle  /: filter  enter: confirm  q: cancel") + "\n")
	return b.String()
}

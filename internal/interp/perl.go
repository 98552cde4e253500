package interp

import "time"

type perlRecognizer struct{ root string }

func NewPerlRecognizer() Recognizer { return &perlRecognizer{root: "/"} }

func (p *perlRecognizer) Name() string { return "perl" }

func (p *perlRecognizer) Recognizes(pid int, exe string) bool {
	return exeBasenameIn(exe, "perl")
}

func (p *perlRecognizer) Files(pid int) (map[string]time.Time, error) {
	return filterByExt(openRegularFiles(p.root, pid), ".pl", ".pm"), nil
}

func (p *perlRecognizer) SourceOf(pid int, exe string) (string, bool) {
	return firstScriptArg(p.root, pid, ".pl")
}

package interp

import "time"

type rubyRecognizer struct{ root string }

func NewRubyRecognizer() Recognizer { return &rubyRecognizer{root: "/"} }

func (p *rubyRecognizer) Name() string { return "ruby" }

func (p *rubyRecognizer) Recognizes(pid int, exe string) bool {
	return exeBasenameIn(exe, "ruby")
}

func (p *rubyRecognizer) Files(pid int) (map[string]time.Time, error) {
	return filterByExt(openRegularFiles(p.root, pid), ".rb", ".erb"), nil
}

func (p *rubyRecognizer) SourceOf(pid int, exe string) (string, bool) {
	return firstScriptArg(p.root, pid, ".rb")
}

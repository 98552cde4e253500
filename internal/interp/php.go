package interp

import "time"

type phpRecognizer struct{ root string }

func NewPHPRecognizer() Recognizer { return &phpRecognizer{root: "/"} }

func (p *phpRecognizer) Name() string { return "php" }

func (p *phpRecognizer) Recognizes(pid int, exe string) bool {
	return exeBasenameIn(exe, "php", "php-fpm", "php-cgi")
}

func (p *phpRecognizer) Files(pid int) (map[string]time.Time, error) {
	return filterByExt(openRegularFiles(p.root, pid), ".php", ".phtml"), nil
}

func (p *phpRecognizer) SourceOf(pid int, exe string) (string, bool) {
	return firstScriptArg(p.root, pid, ".php")
}

package interp

import "time"

type pythonRecognizer struct{ root string }

func NewPythonRecognizer() Recognizer { return &pythonRecognizer{root: "/"} }

func (p *pythonRecognizer) Name() string { return "python" }

func (p *pythonRecognizer) Recognizes(pid int, exe string) bool {
	return exeBasenameIn(exe, "python", "python2", "python3")
}

func (p *pythonRecognizer) Files(pid int) (map[string]time.Time, error) {
	return filterByExt(openRegularFiles(p.root, pid), ".py", ".pyc", ".pyo"), nil
}

func (p *pythonRecognizer) SourceOf(pid int, exe string) (string, bool) {
	return firstScriptArg(p.root, pid, ".py")
}

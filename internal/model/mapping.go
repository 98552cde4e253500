package model

// Mapping is one entry of a process's memory-map file. Only entries with
// executable permission, a nonzero inode, and a non-empty path participate
// in staleness checks (spec.md §3).
type Mapping struct {
	StartAddr uint64
	Perms     string
	Offset    uint64
	Dev       string // "MM:mm" as printed by the kernel, already hex
	Inode     uint64
	Path      string
}

// Executable reports whether the mapping carries the execute permission.
func (m Mapping) Executable() bool {
	for _, c := range m.Perms {
		if c == 'x' {
			return true
		}
	}
	return false
}

// Eligible reports whether the mapping participates in staleness checks at
// all: nonzero inode, non-empty path, executable.
func (m Mapping) Eligible() bool {
	return m.Inode != 0 && m.Path != "" && m.Executable()
}

// Package mapping implements Component B, the mapping inspector: it reads
// a process's memory-map file and classifies each executable mapping as
// current or stale by comparing the mapped file's path and (dev, inode)
// against the same path's on-disk stat.
//
// Device-ID decomposition assumes the glibc makedev layout described in
// spec.md §3 and §9; behavior on non-glibc systems is undefined, exactly
// as upstream documents it.
package mapping

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/cbane/needrestart/internal/model"
)

// pseudoMappingPatterns are paths that are never real on-disk files and so
// never participate in staleness checks (spec.md §4.B step 3).
var pseudoMappingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^/SYSV[0-9a-fA-F]{8}$`),
	regexp.MustCompile(`/drm`),
	regexp.MustCompile(`^/dev/`),
	regexp.MustCompile(`^/\[aio\]`),
	regexp.MustCompile(`/orcexec\.[0-9a-fA-F]+`),
}

// transientDirs are ignored when a mapped path has vanished from disk:
// package managers routinely unlink and replace files here without the
// mapping being meaningfully "stale" (spec.md §4.B step 4).
var transientDirs = []string{"/tmp/", "/var/run/", "/run/"}

// Inspector is the interface the driver consumes; LinuxInspector.Root lets
// tests (or a container-aware caller) redirect the "host path"
// existence/stat checks.
type Inspector interface {
	IsStale(ctx context.Context, pid int, exePath string, blacklist []*regexp.Regexp) (bool, error)
}

type LinuxInspector struct {
	// Root is prefixed to "/proc/<pid>/root/<path>" and "/proc/<pid>/maps"
	// lookups; empty means the real root.
	Root string
}

func NewLinuxInspector() *LinuxInspector { return &LinuxInspector{} }

func (ins *LinuxInspector) root() string {
	if ins.Root == "" {
		return "/"
	}
	return ins.Root
}

// IsStale opens /proc/<pid>/maps and applies the skipping/classification
// rules of spec.md §4.B in order, short-circuiting on the first
// staleness verdict.
func (ins *LinuxInspector) IsStale(ctx context.Context, pid int, exePath string, blacklist []*regexp.Regexp) (bool, error) {
	for _, re := range blacklist {
		if re.MatchString(exePath) {
			return false, nil
		}
	}

	path := filepath.Join(ins.root(), "proc", strconv.Itoa(pid), "maps")
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	stale, err := scanMaps(ctx, f, pid, ins.root())
	return stale, err
}

func scanMaps(ctx context.Context, r io.Reader, pid int, root string) (bool, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		m, ok := parseMapsLine(scanner.Text())
		if !ok {
			continue // inode == 0 or empty path: anonymous/stack/heap
		}
		if !m.Executable() {
			continue
		}
		if isPseudoMapping(m.Path) {
			continue
		}

		stale, decisive := classifyMapping(m, pid, root)
		if decisive {
			return stale, nil
		}
	}
	return false, scanner.Err()
}

func isPseudoMapping(path string) bool {
	for _, re := range pseudoMappingPatterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func isTransientPath(path string) bool {
	for _, dir := range transientDirs {
		if strings.HasPrefix(path, dir) {
			return true
		}
	}
	return false
}

// parseMapsLine parses one line of /proc/<pid>/maps into a model.Mapping:
//
//	address           perms offset  dev   inode       pathname
//	00400000-00452000 r-xp 00000000 08:02 173521      /usr/bin/dbus-daemon
func parseMapsLine(line string) (model.Mapping, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return model.Mapping{}, false
	}

	inode, err := strconv.ParseUint(fields[4], 10, 64)
	if err != nil || inode == 0 {
		return model.Mapping{}, false
	}

	path := ""
	if len(fields) >= 6 {
		path = strings.Join(fields[5:], " ")
	}
	if path == "" {
		return model.Mapping{}, false
	}

	return model.Mapping{
		Perms: fields[1],
		Dev:   fields[3],
		Inode: inode,
		Path:  path,
	}, true
}

// classifyMapping applies steps 4-6 of spec.md §4.B. decisive is false for
// a vanished path under a transient directory and for the case where no
// candidate yields a (dev, inode) pair; the caller then moves on to the
// next mapping.
func classifyMapping(m model.Mapping, pid int, root string) (stale bool, decisive bool) {
	hostPath := m.Path
	rootedPath := filepath.Join(root, "proc", strconv.Itoa(pid), "root", m.Path)

	hostInfo, hostErr := os.Stat(filepath.Join(root, hostPath))
	rootInfo, rootErr := os.Stat(rootedPath)

	hostExists := hostErr == nil
	rootExists := rootErr == nil

	if !hostExists && !rootExists {
		if isTransientPath(m.Path) {
			return false, false
		}
		return true, true
	}

	candidates := statDevInoCandidates(hostInfo, rootInfo)
	if len(candidates) == 0 {
		// Neither candidate could be stat'd for (dev,inode); transient,
		// skip further checks for this mapping (spec.md §4.B step 5).
		return false, false
	}

	for _, c := range candidates {
		if c.inode == m.Inode && devMatches(m.Dev, c.dev) {
			return false, true
		}
	}
	return true, true
}

type devIno struct {
	dev   uint64
	inode uint64
}

func statDevInoCandidates(infos ...os.FileInfo) []devIno {
	var out []devIno
	for _, fi := range infos {
		if fi == nil {
			continue
		}
		if dev, inode, ok := statDevIno(fi); ok {
			out = append(out, devIno{dev: dev, inode: inode})
		}
	}
	return out
}

// devMatches implements the three-candidate device comparison rule plus
// the two documented compatibility relaxations from spec.md §3:
//   - a device string beginning "00:" matches unconditionally (COW fs
//     reporting anonymous device IDs)
//   - the literal "00:00" candidate always matches (BSD-like /proc with no
//     device IDs at all)
func devMatches(mapDev string, statDev uint64) bool {
	if strings.HasPrefix(mapDev, "00:") {
		return true
	}
	for _, candidate := range devCandidates(statDev) {
		if mapDev == candidate {
			return true
		}
	}
	return false
}

// devCandidates synthesizes the three device strings spec.md §3 says a
// mapping's device may legitimately match: the glibc "new" makedev
// encoding, the traditional 8/8-bit split, and the literal zero device.
func devCandidates(dev uint64) []string {
	newMajor, newMinor := gnuDevMajorMinor(dev)
	oldMajor, oldMinor := uint64((dev>>8)&0xff), uint64(dev&0xff)
	return []string{
		formatDev(newMajor, newMinor),
		formatDev(oldMajor, oldMinor),
		"00:00",
	}
}

// gnuDevMajorMinor decomposes a 64-bit dev_t using the glibc
// gnu_dev_major/gnu_dev_minor macros (Linux/glibc only, per spec.md §9
// Open Questions).
func gnuDevMajorMinor(dev uint64) (major, minor uint64) {
	major = ((dev >> 8) & 0xfff) | ((dev >> 32) &^ 0xfff)
	minor = (dev & 0xff) | ((dev >> 12) &^ 0xff)
	return major, minor
}

func formatDev(major, minor uint64) string {
	return hex2(major) + ":" + hex2(minor)
}

func hex2(v uint64) string {
	s := strconv.FormatUint(v, 16)
	if len(s) < 2 {
		s = "0" + s
	}
	return s
}

// Package kernelcheck implements Component G: it compares the running
// kernel's version and ABI tag against the newest kernel image installed
// on disk, skipped entirely by the caller when PID 1 is containerized or
// the feature is disabled by config.
package kernelcheck

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/cbane/needrestart/internal/model"
	"github.com/shirou/gopsutil/v3/host"
)

var archSuffixes = []string{"amd64", "arm64", "i386", "armhf", "ppc64el", "s390x", "riscv64"}

type Checker struct {
	Root string
}

func NewChecker() *Checker { return &Checker{Root: "/"} }

func (c *Checker) root() string {
	if c.Root == "" {
		return "/"
	}
	return c.Root
}

// RunningKernel reports the booted kernel's release string. Against the
// real host it is read via gopsutil's host.Info (which shells out to
// uname rather than re-deriving it from osrelease); a rooted Checker
// falls back to reading osrelease directly under Root, since gopsutil
// always inspects the live host and ignores Root entirely. abi is the
// full release string; version is the release with any trailing
// architecture tag stripped, matching the "version" vs "ABI tag"
// distinction in spec.md §4.G / S4.
func (c *Checker) RunningKernel() (version, abi string, err error) {
	if c.root() == "/" {
		if info, ierr := host.Info(); ierr == nil && info.KernelVersion != "" {
			abi = info.KernelVersion
			return stripArchSuffix(abi), abi, nil
		}
	}

	data, err := os.ReadFile(filepath.Join(c.root(), "proc", "sys", "kernel", "osrelease"))
	if err != nil {
		return "", "", err
	}
	abi = strings.TrimSpace(string(data))
	return stripArchSuffix(abi), abi, nil
}

// NewestInstalled picks the greatest installed kernel image under
// /lib/modules, ordered by kernel-version comparison (spec.md §4.G: split
// on "."/"-" and compare numeric components numerically).
func (c *Checker) NewestInstalled() (string, bool) {
	entries, err := os.ReadDir(filepath.Join(c.root(), "lib", "modules"))
	if err != nil {
		return "", false
	}

	var best string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if best == "" || CompareVersions(name, best) > 0 {
			best = name
		}
	}
	return best, best != ""
}

// Compare implements the four-way classification of spec.md §4.G.
func Compare(runningVersion, runningABI, newest string) model.KernelResult {
	if newest == "" {
		return model.KernelResult{Status: model.KernelUnknown, Running: runningABI}
	}
	if newest == runningABI {
		return model.KernelResult{Status: model.KernelNoUpgrade, Running: runningABI, Newest: newest}
	}

	newestVersion := stripArchSuffix(newest)
	if newestVersion == runningVersion {
		return model.KernelResult{Status: model.KernelAbiUpgrade, Running: runningABI, Newest: newest}
	}
	return model.KernelResult{Status: model.KernelVerUpgrade, Running: runningABI, Newest: newest}
}

func stripArchSuffix(release string) string {
	idx := strings.LastIndexByte(release, '-')
	if idx < 0 {
		return release
	}
	suffix := release[idx+1:]
	for _, arch := range archSuffixes {
		if suffix == arch {
			return release[:idx]
		}
	}
	return release
}

var versionSplitRe = regexp.MustCompile(`[.-]`)

// CompareVersions orders two kernel version strings numerically component
// by component rather than lexicographically, so "5.10.0-9" sorts before
// "5.10.0-23". Non-numeric components compare as strings; a shorter
// version that is a strict prefix of a longer one sorts lower.
func CompareVersions(a, b string) int {
	as := versionSplitRe.Split(a, -1)
	bs := versionSplitRe.Split(b, -1)

	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareComponent(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return len(as) - len(bs)
}

func compareComponent(a, b string) int {
	an, aerr := strconv.Atoi(a)
	bn, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

package procfs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tklauser/go-sysconf"
)

type procStat struct {
	comm       string
	ppid       int
	ttyNr      uint64
	startTicks int64
}

// readStat parses /proc/<pid>/stat. The command name is delimited by
// parentheses and may itself contain spaces or parentheses, so everything
// between the first "(" and the last ")" is taken verbatim before the
// remaining space-separated fields are indexed.
func readStat(root string, pid int) (procStat, error) {
	data, err := os.ReadFile(joinProc(root, strconv.Itoa(pid), "stat"))
	if err != nil {
		return procStat{}, err
	}

	s := string(data)
	open := strings.IndexByte(s, '(')
	close := strings.LastIndexByte(s, ')')
	if open < 0 || close < 0 || close < open {
		return procStat{}, fmt.Errorf("procfs: malformed stat for pid %d", pid)
	}

	comm := s[open+1 : close]
	fields := strings.Fields(s[close+1:])
	// fields[0] is state (proc field 3); ppid is field 4 -> fields[1].
	if len(fields) < 20 {
		return procStat{}, fmt.Errorf("procfs: short stat for pid %d", pid)
	}

	ppid, _ := strconv.Atoi(fields[1])
	ttyNr, _ := strconv.ParseInt(fields[4], 10, 64)
	startTicks, _ := strconv.ParseInt(fields[19], 10, 64)

	return procStat{
		comm:       comm,
		ppid:       ppid,
		ttyNr:      uint64(ttyNr),
		startTicks: startTicks,
	}, nil
}

func readUID(root string, pid int) (int, error) {
	data, err := os.ReadFile(joinProc(root, strconv.Itoa(pid), "status"))
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "Uid:") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				return strconv.Atoi(fields[1])
			}
		}
	}
	return 0, fmt.Errorf("procfs: no Uid line for pid %d", pid)
}

// readBootClock returns the kernel's boot time (from /proc/stat's btime)
// and the clock ticks-per-second used to convert /proc/<pid>/stat's
// start-time field into wall-clock time. Both values come from a single
// clock source per spec.md §3's invariant.
func readBootClock(root string) (time.Time, int64, error) {
	data, err := os.ReadFile(joinProc(root, "stat"))
	if err != nil {
		return time.Time{}, 0, err
	}

	var btime int64
	found := false
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "btime ") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				btime, _ = strconv.ParseInt(fields[1], 10, 64)
				found = true
			}
			break
		}
	}
	if !found {
		return time.Time{}, 0, fmt.Errorf("procfs: no btime in /proc/stat")
	}

	hz, err := sysconf.Sysconf(sysconf.SC_CLK_TCK)
	if err != nil || hz <= 0 {
		hz = 100 // USER_HZ fallback, the value on every mainstream Linux distro
	}

	return time.Unix(btime, 0), hz, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbane/needrestart/internal/config"
	"github.com/cbane/needrestart/internal/container"
	"github.com/cbane/needrestart/internal/dialog"
	"github.com/cbane/needrestart/internal/hookrunner"
	"github.com/cbane/needrestart/internal/interp"
	"github.com/cbane/needrestart/internal/kernelcheck"
	"github.com/cbane/needrestart/internal/logging"
	"github.com/cbane/needrestart/internal/mapping"
	"github.com/cbane/needrestart/internal/model"
	"github.com/cbane/needrestart/internal/nagios"
	"github.com/cbane/needrestart/internal/notify"
	"github.com/cbane/needrestart/internal/procfs"
	"github.com/cbane/needrestart/internal/reduce"
	"github.com/cbane/needrestart/internal/report"
	"github.com/cbane/needrestart/internal/resolver"
)

// version is the release string printed by --version; not the batch
// protocol version emitted in NEEDRESTART-VER lines (see internal/report).
const version = "3.8"

type flags struct {
	verbose    bool
	quiet      bool
	defNo      bool
	configPath string
	restart    string
	mode       string
	batch      bool
	plugin     bool
	frontend   string
	kernelOnly bool
	libOnly    bool
}

func main() {
	os.Exit(run())
}

func run() int {
	f := &flags{}
	root := &cobra.Command{
		Use:           "needrestart",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	fl := root.Flags()
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "verbose output")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "quiet output")
	fl.BoolVarP(&f.defNo, "no", "n", false, "default answer no in interactive prompts")
	fl.StringVarP(&f.configPath, "config", "c", "/etc/needrestart/needrestart.conf", "configuration file path")
	fl.StringVarP(&f.restart, "restart", "r", "", "restart mode: l|i|a")
	fl.StringVarP(&f.mode, "mode", "m", "", "detail level: e|a")
	fl.BoolVarP(&f.batch, "batch", "b", false, "batch mode")
	fl.BoolVarP(&f.plugin, "plugin", "p", false, "Nagios plugin mode")
	fl.StringVarP(&f.frontend, "frontend", "f", "", "interactive dialog frontend")
	fl.BoolVarP(&f.kernelOnly, "kernel-only", "k", false, "kernel check only")
	fl.BoolVarP(&f.libOnly, "lib-only", "l", false, "library/process check only")

	exitCode := 0
	root.RunE = func(cmd *cobra.Command, args []string) error {
		exitCode = execute(f)
		return nil
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return exitCode
}

func execute(f *flags) int {
	if f.plugin {
		f.batch = true
	}
	rootMode := os.Geteuid() == 0

	if f.plugin && !rootMode {
		fmt.Println("UNKN - needrestart must run as root in plugin mode")
		return int(nagios.Unknown)
	}

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "[main] "+err.Error())
		return 1
	}
	applyCLIOverrides(cfg, f)

	logger := logging.New(logLevel(cfg))
	defer logger.Sync()

	ctx := context.Background()
	self, parentOfSelf := os.Getpid(), os.Getppid()

	procReader := procfs.NewLinuxReader()
	snap, err := procReader.Snapshot(ctx)
	if err != nil {
		logger.Fatalf("snapshot: %v", err)
		return 1
	}

	mapInsp := mapping.NewLinuxInspector()
	interpReg := interp.NewRegistry()
	contDet := container.NewDetector()

	stale := classifyAll(ctx, snap, mapInsp, interpReg, cfg)

	hostStale := map[int]bool{}
	for pid, isStale := range stale {
		if !isStale {
			continue
		}
		if contDet.InContainer(pid) {
			continue // container-resident stale PIDs never produce host units
		}
		hostStale[pid] = true
	}

	hooks := hookrunner.New(cfg.HookDir, f.verbose)
	svcResolver := &resolver.Resolver{Hooks: hooks, Runlevel: currentRunlevel()}

	reducer := &reduce.Reducer{
		RootMode:    rootMode,
		TargetUID:   os.Getuid(),
		BlacklistRC: cfg.BlacklistRC,
		Resolver:    svcResolver,
		Interp:      interpReg,
	}
	result := reducer.Reduce(ctx, snap, hostStale, self, parentOfSelf)

	for cmd, pids := range result.Outdated {
		result.Units.Add(model.RestartUnit{
			Kind:      model.KindUserSession,
			SessionID: "outdated:" + cmd,
			Commands:  map[string][]int{cmd: pids},
		})
	}

	rpt := model.Report{Units: result.Units.Units(), Sessions: sessionsByUID(result.Units.Units())}

	if !f.libOnly {
		rpt.Kernel = maybeCheckKernel(contDet, cfg, f)
	}

	if !f.kernelOnly {
		rpt.Containers = detectStaleContainers(ctx, contDet, mapInsp, cfg)
	}

	switch {
	case f.plugin:
		line, code := nagios.Format(rpt)
		fmt.Println(line)
		return int(code)
	case f.batch:
		report.Write(os.Stdout, rpt, !rootMode)
		return 0
	default:
		return runInteractive(ctx, f, cfg, rpt, hooks, contDet, logger, !rootMode)
	}
}

// loadConfig reads the config file named by -c. In batch mode a missing or
// malformed file is non-fatal (cron and Nagios invocations commonly run
// before /etc/needrestart/needrestart.conf exists); everywhere else it is
// the fatal configuration error of spec.md §6/§7, reported to the caller
// rather than papered over with defaults.
func loadConfig(f *flags) (*config.Config, error) {
	if f.configPath == "" {
		return config.Defaults(), nil
	}
	if _, err := os.Stat(f.configPath); err != nil {
		if f.batch {
			return config.Defaults(), nil
		}
		return nil, err
	}
	cfg, err := config.LoadFile(f.configPath)
	if err != nil {
		if f.batch {
			fmt.Fprintln(os.Stderr, "[main] "+err.Error())
			return config.Defaults(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func applyCLIOverrides(cfg *config.Config, f *flags) {
	if f.verbose {
		cfg.Verbosity = 2
	} else if f.quiet {
		cfg.Verbosity = 0
	}
	if f.defNo {
		cfg.DefNo = true
	}
	if f.restart != "" {
		cfg.Restart = f.restart
	}
	if f.mode != "" {
		cfg.UIMode = f.mode
	}
	cfg.Batch = f.batch
	cfg.Plugin = f.plugin
	cfg.Frontend = f.frontend
	cfg.KernelOnly = f.kernelOnly
	cfg.LibOnly = f.libOnly
}

func logLevel(cfg *config.Config) logging.Level {
	switch {
	case cfg.Verbosity >= 2:
		return logging.Verbose
	case cfg.Verbosity <= 0:
		return logging.Quiet
	default:
		return logging.Default
	}
}

// classifyAll applies the staleness priority order of spec.md §3 to every
// process in the snapshot except the two always-excluded PIDs are
// filtered later by the reducer, not here, since the interpreter check
// needs each process's own start time regardless of exclusion.
func classifyAll(ctx context.Context, snap *model.Snapshot, mapInsp mapping.Inspector, interpReg *interp.Registry, cfg *config.Config) map[int]bool {
	stale := make(map[int]bool, len(snap.Processes))
	for pid, proc := range snap.Processes {
		if proc.ExeDeleted {
			stale[pid] = true
			continue
		}

		isStale, err := mapInsp.IsStale(ctx, pid, proc.ExePath, cfg.Blacklist)
		if err == nil && isStale {
			stale[pid] = true
			continue
		}

		if cfg.InterpScan {
			startTime := proc.StartTime(snap.Boot, snap.TicksPerSecond)
			if ok, _ := interpReg.Check(pid, proc.ExePath, startTime); ok {
				stale[pid] = true
				continue
			}
		}

		stale[pid] = false
	}
	return stale
}

func maybeCheckKernel(contDet *container.Detector, cfg *config.Config, f *flags) *model.KernelResult {
	if cfg.KernelHints == config.KernelHintsOff {
		return nil
	}
	if contDet.InContainer(1) {
		return nil
	}

	checker := kernelcheck.NewChecker()
	runningVersion, abi, err := checker.RunningKernel()
	if err != nil {
		return &model.KernelResult{Status: model.KernelUnknown}
	}
	newest, _ := checker.NewestInstalled()
	res := kernelcheck.Compare(runningVersion, abi, newest)
	return &res
}

// sessionsByUID keys every KindUserSession unit by owning uid, used only
// to size the Nagios plugin's "Sessions" category.
func sessionsByUID(units []model.RestartUnit) map[int]model.RestartUnit {
	out := map[int]model.RestartUnit{}
	for _, u := range units {
		if u.Kind != model.KindUserSession {
			continue
		}
		out[u.UID] = u
	}
	return out
}

func detectStaleContainers(ctx context.Context, contDet *container.Detector, mapInsp mapping.Inspector, cfg *config.Config) []model.RestartUnit {
	refs, err := contDet.EnumerateContainers(ctx)
	if err != nil {
		return nil
	}

	var out []model.RestartUnit
	for _, ref := range refs {
		exe, _, err := (&procfs.LinuxReader{}).ReadlinkExe(ref.InitPID)
		if err != nil {
			continue
		}
		isStale, err := mapInsp.IsStale(ctx, ref.InitPID, exe, cfg.Blacklist)
		if err != nil || !isStale {
			continue
		}
		out = append(out, model.RestartUnit{Kind: model.KindContainer, Name: ref.Name, RestartArgv: ref.RestartArgv})
	}
	return out
}

func currentRunlevel() string {
	out, err := exec.Command("runlevel").Output()
	if err != nil {
		return ""
	}
	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func runInteractive(ctx context.Context, f *flags, cfg *config.Config, rpt model.Report, hooks *hookrunner.Runner, contDet *container.Detector, logger *logging.Logger, userMode bool) int {
	frontend := dialog.New(cfg.Frontend, cfg.Restart != "a" && isTTY())

	candidates := make([]model.RestartUnit, 0, len(rpt.Units)+len(rpt.Containers))
	candidates = append(candidates, rpt.Units...)
	candidates = append(candidates, rpt.Containers...)

	var chosen []model.RestartUnit
	switch cfg.Restart {
	case "l":
		if err := frontend.ShowReport(rpt); err != nil {
			logger.Warnf("show report: %v", err)
		}
		return 0
	case "a":
		chosen = candidates
	default: // "i"
		var err error
		chosen, err = frontend.SelectUnits(candidates)
		if err != nil {
			logger.Warnf("select units: %v", err)
			return 1
		}
	}

	sortUnits(chosen)
	restartUnits(ctx, chosen, hooks, contDet, cfg, logger)

	if argv := hooks.FlushCombined(); argv != nil {
		runCommand(ctx, argv, logger)
	}

	if cfg.SendNotify {
		for _, u := range chosen {
			if u.Kind != model.KindUserSession {
				continue
			}
			sess := notify.Session{UID: u.UID, ID: u.SessionID}
			if _, err := notify.Dispatch(ctx, cfg.NotifyDir, sess); err != nil {
				logger.Warnf("notify: %v", err)
			}
		}
	}

	if err := frontend.ShowReport(rpt); err != nil {
		logger.Warnf("show report: %v", err)
	}
	return 0
}

func sortUnits(units []model.RestartUnit) {
	sort.Slice(units, func(i, j int) bool { return units[i].Key() < units[j].Key() })
}

func restartUnits(ctx context.Context, units []model.RestartUnit, hooks *hookrunner.Runner, contDet *container.Detector, cfg *config.Config, logger *logging.Logger) {
	for _, u := range units {
		switch u.Kind {
		case model.KindSystemdService:
			if cfg.SystemctlCombine {
				hooks.QueueUnit(u.Name)
				continue
			}
			runCommand(ctx, []string{"systemctl", "restart", u.Name}, logger)
		case model.KindSystemdManager:
			runCommand(ctx, []string{"systemctl", "daemon-reexec"}, logger)
		case model.KindInitScript:
			runCommand(ctx, []string{"/etc/init.d/" + u.Name, "restart"}, logger)
		case model.KindContainer:
			if err := contDet.Restart(ctx, u.RestartArgv); err != nil {
				logger.Warnf("restart container %s: %v", u.Name, err)
			}
		case model.KindSysVInit, model.KindUserSession:
			// no direct restart action: the manager itself, or a set of
			// stale user-owned processes reported but not restarted.
		}
	}
}

func runCommand(ctx context.Context, argv []string, logger *logging.Logger) {
	if len(argv) == 0 {
		return
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if err := cmd.Run(); err != nil {
		logger.Warnf("%s: %v", strings.Join(argv, " "), err)
	}
}

func isTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

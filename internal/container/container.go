// Package container implements Component D, the container detector: it
// decides whether a PID executes inside a container runtime by inspecting
// its cgroup hierarchy, and separately enumerates running containers with
// their init PIDs so the driver can offer those whose init process is
// stale as restart units.
package container

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// signatures are cgroup-path substrings that indicate the PID's cgroup is
// scoped to a container runtime rather than the host.
var signatures = []string{"docker", "containerd", "kubepods", "lxc"}

type Detector struct {
	Root string
	// dockerTimeout bounds every docker CLI invocation this package makes.
	dockerTimeout time.Duration
}

func NewDetector() *Detector {
	return &Detector{Root: "/", dockerTimeout: 3 * time.Second}
}

func (d *Detector) root() string {
	if d.Root == "" {
		return "/"
	}
	return d.Root
}

// InContainer inspects /proc/<pid>/cgroup for a container-runtime
// signature. A PID whose cgroup file cannot be read is reported as not
// containerized rather than erroring, consistent with the per-PID
// transient error policy.
func (d *Detector) InContainer(pid int) bool {
	path := filepath.Join(d.root(), "proc", strconv.Itoa(pid), "cgroup")
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		for _, sig := range signatures {
			if strings.Contains(line, sig) {
				return true
			}
		}
	}
	return false
}

// ContainerRef names a running container and the command that restarts it.
type ContainerRef struct {
	Name        string
	InitPID     int
	RestartArgv []string
}

// EnumerateContainers lists running Docker containers and their
// host-visible init PID via the docker CLI. Absence of a usable
// docker binary is not an error: it simply yields no containers, since a
// host without Docker has nothing to enumerate.
func (d *Detector) EnumerateContainers(ctx context.Context) ([]ContainerRef, error) {
	ctx, cancel := context.WithTimeout(ctx, d.dockerTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "docker", "ps", "--format", "{{.ID}}|{{.Names}}").Output()
	if err != nil {
		return nil, nil
	}

	var refs []ContainerRef
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 2)
		if len(parts) != 2 {
			continue
		}
		id, name := parts[0], parts[1]

		pid, err := d.inspectPID(ctx, id)
		if err != nil || pid <= 0 {
			continue
		}
		refs = append(refs, ContainerRef{
			Name:        name,
			InitPID:     pid,
			RestartArgv: []string{"docker", "restart", name},
		})
	}
	return refs, nil
}

func (d *Detector) inspectPID(ctx context.Context, id string) (int, error) {
	out, err := exec.CommandContext(ctx, "docker", "inspect", "--format", "{{.State.Pid}}", id).Output()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(out)))
}

// Restart runs a container's restart_argv, used by the driver's restart
// step for a stale container chosen in interactive or automatic mode.
func (d *Detector) Restart(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, argv[0], argv[1:]...).Run()
}

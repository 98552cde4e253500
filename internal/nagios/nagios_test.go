package nagios

import (
	"strings"
	"testing"

	"github.com/cbane/needrestart/internal/model"
	"github.com/stretchr/testify/require"
)

func TestFormatNoIssues(t *testing.T) {
	r := model.Report{Kernel: &model.KernelResult{Status: model.KernelNoUpgrade, Running: "5.10.0-21-amd64"}}
	line, code := Format(r)
	require.Equal(t, OK, code)
	require.True(t, strings.HasPrefix(line, "OK - "))
}

func TestFormatServicesWarn(t *testing.T) {
	r := model.Report{
		Kernel: &model.KernelResult{Status: model.KernelNoUpgrade, Running: "5.10.0-21-amd64"},
		Units:  []model.RestartUnit{{Kind: model.KindSystemdService, Name: "sshd.service"}},
	}
	line, code := Format(r)
	require.Equal(t, Warning, code)
	require.Contains(t, line, "Services: 1 (!)")
}

func TestFormatKernelCriticalDominates(t *testing.T) {
	r := model.Report{Kernel: &model.KernelResult{Status: model.KernelVerUpgrade, Running: "a", Newest: "b"}}
	_, code := Format(r)
	require.Equal(t, Critical, code)
}

package report

import (
	"testing"

	"github.com/cbane/needrestart/internal/model"
	"github.com/stretchr/testify/require"
)

func TestLinesOrderS1(t *testing.T) {
	r := model.Report{
		Units: []model.RestartUnit{{Kind: model.KindInitScript, Name: "nginx"}},
	}
	lines := Lines(r, false)
	require.Equal(t, []string{"NEEDRESTART-VER: " + version, "NEEDRESTART-SVC: nginx"}, lines)
}

func TestLinesOrderS4(t *testing.T) {
	r := model.Report{
		Kernel: &model.KernelResult{Status: model.KernelVerUpgrade, Running: "5.10.0-21-amd64", Newest: "5.10.0-23-amd64"},
	}
	lines := Lines(r, false)
	require.Equal(t, []string{
		"NEEDRESTART-VER: " + version,
		"NEEDRESTART-KCUR: 5.10.0-21-amd64",
		"NEEDRESTART-KEXP: 5.10.0-23-amd64",
		"NEEDRESTART-KSTA: 2",
	}, lines)
}

func TestLinesUserModePID(t *testing.T) {
	r := model.Report{
		Units: []model.RestartUnit{{
			Kind:     model.KindUserSession,
			Commands: map[string][]int{"python3": {7001}},
		}},
	}
	lines := Lines(r, true)
	require.Contains(t, lines, "NEEDRESTART-PID: python3=7001")
}

func TestLinesServiceSortedNaturally(t *testing.T) {
	r := model.Report{
		Units: []model.RestartUnit{
			{Kind: model.KindInitScript, Name: "svc10"},
			{Kind: model.KindInitScript, Name: "svc2"},
		},
	}
	lines := Lines(r, false)
	require.Equal(t, []string{
		"NEEDRESTART-VER: " + version,
		"NEEDRESTART-SVC: svc2",
		"NEEDRESTART-SVC: svc10",
	}, lines)
}

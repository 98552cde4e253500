package kernelcheck

import (
	"testing"

	"github.com/cbane/needrestart/internal/model"
	"github.com/stretchr/testify/require"
)

func TestCompareVersionsNumericNotLexicographic(t *testing.T) {
	require.True(t, CompareVersions("5.10.0-9-amd64", "5.10.0-23-amd64") < 0)
	require.True(t, CompareVersions("5.10.0-23-amd64", "5.10.0-9-amd64") > 0)
	require.Equal(t, 0, CompareVersions("5.10.0-23-amd64", "5.10.0-23-amd64"))
}

func TestCompareScenarioS4(t *testing.T) {
	running := "5.10.0-21"
	runningABI := "5.10.0-21-amd64"
	newest := "5.10.0-23-amd64"

	res := Compare(running, runningABI, newest)
	require.Equal(t, model.KernelVerUpgrade, res.Status)
	require.Equal(t, 2, res.Status.Int())
	require.Equal(t, runningABI, res.Running)
	require.Equal(t, newest, res.Newest)
}

func TestCompareNoUpgrade(t *testing.T) {
	res := Compare("5.10.0-21", "5.10.0-21-amd64", "5.10.0-21-amd64")
	require.Equal(t, model.KernelNoUpgrade, res.Status)
}

func TestCompareUnknownWhenNoInstalledKernel(t *testing.T) {
	res := Compare("5.10.0-21", "5.10.0-21-amd64", "")
	require.Equal(t, model.KernelUnknown, res.Status)
}

func TestStripArchSuffix(t *testing.T) {
	require.Equal(t, "5.10.0-21", stripArchSuffix("5.10.0-21-amd64"))
	require.Equal(t, "5.10.0-21", stripArchSuffix("5.10.0-21"))
}

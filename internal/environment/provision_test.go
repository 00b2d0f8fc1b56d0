package environment

import (
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgricker/suitegate/internal/config"
)

var sep = string(os.PathListSeparator)

func mustEnv(t *testing.T, s config.EnvironmentSettings) config.Environment {
	t.Helper()
	env, err := config.NewEnvironment(s)
	require.NoError(t, err)
	return env
}

func TestProvisionPrependsModulePaths(t *testing.T) {
	base := map[string]string{"PYTHONPATH": "old" + sep + "older", "HOME": "/home/ci"}
	env := mustEnv(t, config.EnvironmentSettings{ModulePaths: []string{"python", "vta/python"}})

	got := Provision(base, env)

	assert.Equal(t, strings.Join([]string{"python", "vta/python", "old", "older"}, sep), got["PYTHONPATH"])
	assert.Equal(t, "/home/ci", got["HOME"])
}

func TestProvisionModulePathWithoutPrior(t *testing.T) {
	env := mustEnv(t, config.EnvironmentSettings{ModulePaths: []string{"python"}})
	got := Provision(map[string]string{}, env)
	assert.Equal(t, "python", got["PYTHONPATH"])
}

func TestProvisionLibraryPathKeepsEmptyComponent(t *testing.T) {
	env := mustEnv(t, config.EnvironmentSettings{LibraryPaths: []string{"build", "lib"}})

	got := Provision(map[string]string{}, env)
	assert.Equal(t, "build"+sep+"lib"+sep, got["LD_LIBRARY_PATH"])

	got = Provision(map[string]string{"LD_LIBRARY_PATH": "/usr/lib"}, env)
	assert.Equal(t, "build"+sep+"lib"+sep+"/usr/lib", got["LD_LIBRARY_PATH"])
}

func TestProvisionNoExtrasLeavesSearchPathsAlone(t *testing.T) {
	base := map[string]string{"PYTHONPATH": "keep"}
	got := Provision(base, mustEnv(t, config.EnvironmentSettings{}))

	assert.Equal(t, "keep", got["PYTHONPATH"])
	_, ok := got["LD_LIBRARY_PATH"]
	assert.False(t, ok)
}

func TestProvisionThreading(t *testing.T) {
	tests := []struct {
		settings config.EnvironmentSettings
		bind     string
		threads  string
	}{
		{config.EnvironmentSettings{}, "0", "0"},
		{config.EnvironmentSettings{BindThreads: true, NumThreads: 2}, "1", "2"},
		{config.EnvironmentSettings{NumThreadsVar: "OMP_NUM_THREADS", NumThreads: 8}, "0", "8"},
	}
	for _, tt := range tests {
		env := mustEnv(t, tt.settings)
		got := Provision(nil, env)
		vars := env.Variables()
		assert.Equal(t, tt.bind, got[vars.ThreadBinding])
		assert.Equal(t, tt.threads, got[vars.NumThreads])
	}
}

func TestProvisionDoesNotMutateBase(t *testing.T) {
	base := map[string]string{"PYTHONPATH": "old"}
	snapshot := map[string]string{"PYTHONPATH": "old"}
	env := mustEnv(t, config.EnvironmentSettings{ModulePaths: []string{"new"}, NumThreads: 3})

	first := Provision(base, env)
	first["INJECTED"] = "x"
	second := Provision(base, env)

	if diff := cmp.Diff(snapshot, base); diff != "" {
		t.Fatalf("base mutated (-want +got):\n%s", diff)
	}
	_, leaked := second["INJECTED"]
	assert.False(t, leaked)
}

func TestBaseEnvironmentPassthrough(t *testing.T) {
	environ := []string{"PATH=/bin", "HOME=/root", "SECRET=x", "=weird", "EMPTY="}

	all := BaseEnvironment(environ, nil)
	assert.Equal(t, map[string]string{"PATH": "/bin", "HOME": "/root", "SECRET": "x", "EMPTY": ""}, all)

	some := BaseEnvironment(environ, []string{"PATH", "HOME", "MISSING"})
	assert.Equal(t, map[string]string{"PATH": "/bin", "HOME": "/root"}, some)
}

func TestListSortedAndMerge(t *testing.T) {
	merged := Merge(map[string]string{"B": "1", "A": "0"}, map[string]string{"B": "2"}, map[string]string{"C": "3"})
	assert.Equal(t, []string{"A=0", "B=2", "C=3"}, List(merged))
}

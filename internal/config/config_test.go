package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesFile(t *testing.T) {
	root := t.TempDir()
	data := []byte(`catalog: ci/suites.yml
format: json
tail_lines: 5
environment:
  module_paths: [python, vta/python]
  library_paths: [build]
  bind_threads: true
  num_threads: 2
  module_path_var: MODPATH
`)
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), data, 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "ci/suites.yml", cfg.Catalog)
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.Equal(t, 5, cfg.TailLines)
	assert.Equal(t, []string{"python", "vta/python"}, cfg.Environment.ModulePaths)
	assert.Equal(t, []string{"build"}, cfg.Environment.LibraryPaths)
	assert.True(t, cfg.Environment.BindThreads)
	assert.Equal(t, 2, cfg.Environment.NumThreads)
	assert.Equal(t, "MODPATH", cfg.Environment.ModulePathVar)
	assert.Equal(t, DefaultLibraryPathVar, cfg.Environment.LibraryPathVar)
}

func TestLoadInvalidYAML(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("format: [oops"), 0o644))

	_, err := Load(root)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestApplyEnv(t *testing.T) {
	sep := string(os.PathListSeparator)
	env := map[string]string{
		EnvThreadBinding:     "1",
		EnvNumThreads:        "4",
		EnvExtraModulePaths:  "a" + sep + "b",
		EnvExtraLibraryPaths: "lib",
	}
	cfg := Default()
	err := ApplyEnv(&cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.NoError(t, err)
	assert.True(t, cfg.Environment.BindThreads)
	assert.Equal(t, 4, cfg.Environment.NumThreads)
	assert.Equal(t, []string{"a", "b"}, cfg.Environment.ModulePaths)
	assert.Equal(t, []string{"lib"}, cfg.Environment.LibraryPaths)
}

func TestApplyEnvRejectsMalformed(t *testing.T) {
	cases := []struct {
		key, value string
	}{
		{EnvThreadBinding, "maybe"},
		{EnvThreadBinding, "true"},
		{EnvThreadBinding, "T"},
		{EnvNumThreads, "two"},
	}
	for _, tc := range cases {
		key, value := tc.key, tc.value
		t.Run(key+"="+value, func(t *testing.T) {
			cfg := Default()
			err := ApplyEnv(&cfg, func(k string) (string, bool) {
				if k == key {
					return value, true
				}
				return "", false
			})
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, key, cfgErr.Field)
		})
	}
}

func TestApplyEnvThreadBindingZero(t *testing.T) {
	cfg := Default()
	cfg.Environment.BindThreads = true
	err := ApplyEnv(&cfg, func(k string) (string, bool) {
		if k == EnvThreadBinding {
			return " 0 ", true
		}
		return "", false
	})
	require.NoError(t, err)
	assert.False(t, cfg.Environment.BindThreads)
}

func TestApplyFlagsOverridesEnvAndFile(t *testing.T) {
	cfg := Default()
	cfg.Environment.NumThreads = 8
	ApplyFlags(&cfg, FlagValues{
		Format:      StringFlag{Value: FormatTable, Set: true},
		NumThreads:  IntFlag{Value: 1, Set: true},
		ModulePaths: SliceFlag{Values: []string{"x"}},
		DryRun:      BoolFlag{Value: true, Set: true},
	})
	assert.Equal(t, FormatTable, cfg.Format)
	assert.Equal(t, 1, cfg.Environment.NumThreads)
	assert.Equal(t, []string{"x"}, cfg.Environment.ModulePaths)
	assert.True(t, cfg.DryRun)
}

func TestNewEnvironment(t *testing.T) {
	tests := []struct {
		name      string
		settings  EnvironmentSettings
		wantField string
	}{
		{name: "zero threads is the runtime default", settings: EnvironmentSettings{NumThreads: 0}},
		{name: "positive threads", settings: EnvironmentSettings{NumThreads: 16, BindThreads: true}},
		{name: "negative threads", settings: EnvironmentSettings{NumThreads: -1}, wantField: "num_threads"},
		{name: "empty module path", settings: EnvironmentSettings{ModulePaths: []string{"a", " "}}, wantField: "module_paths"},
		{name: "empty library path", settings: EnvironmentSettings{LibraryPaths: []string{""}}, wantField: "library_paths"},
		{name: "bad variable name", settings: EnvironmentSettings{NumThreadsVar: "A=B"}, wantField: "num_threads_var"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := NewEnvironment(tt.settings)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.True(t, env.Valid())
				assert.Equal(t, tt.settings.NumThreads, env.Threading().NumThreads)
				return
			}
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
			assert.False(t, env.Valid())
		})
	}
}

func TestEnvironmentIsImmutable(t *testing.T) {
	paths := []string{"a", "b"}
	env, err := NewEnvironment(EnvironmentSettings{ModulePaths: paths})
	require.NoError(t, err)

	paths[0] = "changed"
	got := env.ModulePaths()
	got[1] = "also changed"

	assert.Equal(t, []string{"a", "b"}, env.ModulePaths())
	assert.Equal(t, DefaultModulePathVar, env.Variables().ModulePath)
}

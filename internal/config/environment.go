package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Environment variables read by ApplyEnv.
const (
	EnvThreadBinding     = "THREAD_BINDING"
	EnvNumThreads        = "NUM_THREADS"
	EnvExtraModulePaths  = "EXTRA_MODULE_PATHS"
	EnvExtraLibraryPaths = "EXTRA_LIBRARY_PATHS"
)

// ConfigError reports a configuration value that cannot be used. It is fatal:
// nothing is executed once one is returned.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid configuration %s=%q: %s", e.Field, e.Value, e.Reason)
}

// IsConfigError checks if the error is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return err != nil && errors.As(err, &cfgErr)
}

// ApplyEnv overlays the recognised environment variables onto cfg. lookup is
// usually os.LookupEnv. Malformed values produce a *ConfigError.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvThreadBinding); ok && strings.TrimSpace(v) != "" {
		switch strings.TrimSpace(v) {
		case "1":
			cfg.Environment.BindThreads = true
		case "0":
			cfg.Environment.BindThreads = false
		default:
			return &ConfigError{Field: EnvThreadBinding, Value: v, Reason: "expected 0 or 1"}
		}
	}
	if v, ok := lookup(EnvNumThreads); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &ConfigError{Field: EnvNumThreads, Value: v, Reason: "expected an integer"}
		}
		cfg.Environment.NumThreads = n
	}
	if v, ok := lookup(EnvExtraModulePaths); ok && v != "" {
		cfg.Environment.ModulePaths = splitPathList(v)
	}
	if v, ok := lookup(EnvExtraLibraryPaths); ok && v != "" {
		cfg.Environment.LibraryPaths = splitPathList(v)
	}
	return nil
}

func splitPathList(v string) []string {
	parts := filepath.SplitList(v)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Threading is the worker thread policy handed to every suite.
type Threading struct {
	BindThreads bool
	// NumThreads of 0 leaves the choice to the suite's runtime.
	NumThreads int
}

// Variables names the environment variables the policy is materialised into.
type Variables struct {
	ModulePath    string
	LibraryPath   string
	ThreadBinding string
	NumThreads    string
}

// Environment is the validated, immutable per-run environment policy. Build it
// with NewEnvironment; the zero value is rejected by the orchestrator.
type Environment struct {
	modulePaths  []string
	libraryPaths []string
	threading    Threading
	vars         Variables
	passthrough  []string
	valid        bool
}

// NewEnvironment validates s and returns the Environment it describes.
func NewEnvironment(s EnvironmentSettings) (Environment, error) {
	if s.NumThreads < 0 {
		return Environment{}, &ConfigError{
			Field:  "num_threads",
			Value:  strconv.Itoa(s.NumThreads),
			Reason: "must be >= 0 (0 selects the runtime default)",
		}
	}
	for _, p := range s.ModulePaths {
		if strings.TrimSpace(p) == "" {
			return Environment{}, &ConfigError{Field: "module_paths", Reason: "empty path entry"}
		}
	}
	for _, p := range s.LibraryPaths {
		if strings.TrimSpace(p) == "" {
			return Environment{}, &ConfigError{Field: "library_paths", Reason: "empty path entry"}
		}
	}

	vars := Variables{
		ModulePath:    orDefault(s.ModulePathVar, DefaultModulePathVar),
		LibraryPath:   orDefault(s.LibraryPathVar, DefaultLibraryPathVar),
		ThreadBinding: orDefault(s.ThreadBindingVar, DefaultThreadBindingVar),
		NumThreads:    orDefault(s.NumThreadsVar, DefaultNumThreadsVar),
	}
	named := []struct{ field, name string }{
		{"module_path_var", vars.ModulePath},
		{"library_path_var", vars.LibraryPath},
		{"thread_binding_var", vars.ThreadBinding},
		{"num_threads_var", vars.NumThreads},
	}
	for _, n := range named {
		if strings.ContainsAny(n.name, "= \t\n") {
			return Environment{}, &ConfigError{Field: n.field, Value: n.name, Reason: "not a valid variable name"}
		}
	}

	return Environment{
		modulePaths:  append([]string(nil), s.ModulePaths...),
		libraryPaths: append([]string(nil), s.LibraryPaths...),
		threading:    Threading{BindThreads: s.BindThreads, NumThreads: s.NumThreads},
		vars:         vars,
		passthrough:  append([]string(nil), s.Passthrough...),
		valid:        true,
	}, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

// ModulePaths returns the extra module search paths, highest priority first.
func (e Environment) ModulePaths() []string { return append([]string(nil), e.modulePaths...) }

// LibraryPaths returns the extra library search paths, highest priority first.
func (e Environment) LibraryPaths() []string { return append([]string(nil), e.libraryPaths...) }

func (e Environment) Threading() Threading { return e.threading }

func (e Environment) Variables() Variables { return e.vars }

// Passthrough returns the ambient variable allowlist. Empty means every variable passes.
func (e Environment) Passthrough() []string { return append([]string(nil), e.passthrough...) }

// Valid reports whether e was produced by NewEnvironment.
func (e Environment) Valid() bool { return e.valid }

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the optional per-repository configuration file read from the working root.
const FileName = ".suitegate.yml"

// Config captures CLI options sourced from the config file, the environment or flags.
type Config struct {
	Catalog string `yaml:"catalog"`
	Format  string `yaml:"format"`

	DryRun    bool `yaml:"dry_run"`
	Verbose   bool `yaml:"verbose"`
	TailLines int  `yaml:"tail_lines"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ResultsDir  string `yaml:"results_dir"`
	MetricsFile string `yaml:"metrics_file"`

	// AssumeFeatures pins feature availability as tag=available|unavailable,
	// bypassing the catalog probe for that tag.
	AssumeFeatures []string `yaml:"assume_features"`

	Environment EnvironmentSettings `yaml:"environment"`
}

// EnvironmentSettings is the raw, unvalidated form of an Environment.
type EnvironmentSettings struct {
	ModulePaths  []string `yaml:"module_paths"`
	LibraryPaths []string `yaml:"library_paths"`
	BindThreads  bool     `yaml:"bind_threads"`
	NumThreads   int      `yaml:"num_threads"`

	ModulePathVar    string `yaml:"module_path_var"`
	LibraryPathVar   string `yaml:"library_path_var"`
	ThreadBindingVar string `yaml:"thread_binding_var"`
	NumThreadsVar    string `yaml:"num_threads_var"`

	// Passthrough restricts which ambient variables reach the suites. Empty means all.
	Passthrough []string `yaml:"passthrough"`
}

const (
	// FormatPretty renders human readable output.
	FormatPretty = "pretty"
	// FormatTable renders a summary table.
	FormatTable = "table"
	// FormatJSON renders machine readable output.
	FormatJSON = "json"

	LogFormatConsole = "console"
	LogFormatJSON    = "json"

	DefaultModulePathVar    = "PYTHONPATH"
	DefaultLibraryPathVar   = "LD_LIBRARY_PATH"
	DefaultThreadBindingVar = "THREAD_BINDING"
	DefaultNumThreadsVar    = "NUM_THREADS"
)

// Default returns the baseline configuration used when no file, environment or flags specify values.
func Default() Config {
	return Config{
		Format:    FormatPretty,
		TailLines: 20,
		LogLevel:  "info",
		LogFormat: LogFormatConsole,
		Environment: EnvironmentSettings{
			ModulePathVar:    DefaultModulePathVar,
			LibraryPathVar:   DefaultLibraryPathVar,
			ThreadBindingVar: DefaultThreadBindingVar,
			NumThreadsVar:    DefaultNumThreadsVar,
		},
	}
}

// Load reads .suitegate.yml from the repository root when present. Missing files are ignored.
func Load(root string) (Config, error) {
	cfg := Default()
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, &ConfigError{Field: FileName, Reason: err.Error()}
	}

	cfg = merge(cfg, fileCfg)
	return cfg, nil
}

func merge(base, override Config) Config {
	out := base

	if override.Catalog != "" {
		out.Catalog = override.Catalog
	}
	if override.Format != "" {
		out.Format = override.Format
	}
	if override.DryRun {
		out.DryRun = true
	}
	if override.Verbose {
		out.Verbose = true
	}
	if override.TailLines > 0 {
		out.TailLines = override.TailLines
	}
	if override.LogLevel != "" {
		out.LogLevel = override.LogLevel
	}
	if override.LogFormat != "" {
		out.LogFormat = override.LogFormat
	}
	if override.ResultsDir != "" {
		out.ResultsDir = override.ResultsDir
	}
	if override.MetricsFile != "" {
		out.MetricsFile = override.MetricsFile
	}
	if len(override.AssumeFeatures) > 0 {
		out.AssumeFeatures = append([]string{}, override.AssumeFeatures...)
	}

	env := override.Environment
	if len(env.ModulePaths) > 0 {
		out.Environment.ModulePaths = append([]string{}, env.ModulePaths...)
	}
	if len(env.LibraryPaths) > 0 {
		out.Environment.LibraryPaths = append([]string{}, env.LibraryPaths...)
	}
	if env.BindThreads {
		out.Environment.BindThreads = true
	}
	// A negative value is kept so NewEnvironment can reject it.
	if env.NumThreads != 0 {
		out.Environment.NumThreads = env.NumThreads
	}
	if env.ModulePathVar != "" {
		out.Environment.ModulePathVar = env.ModulePathVar
	}
	if env.LibraryPathVar != "" {
		out.Environment.LibraryPathVar = env.LibraryPathVar
	}
	if env.ThreadBindingVar != "" {
		out.Environment.ThreadBindingVar = env.ThreadBindingVar
	}
	if env.NumThreadsVar != "" {
		out.Environment.NumThreadsVar = env.NumThreadsVar
	}
	if len(env.Passthrough) > 0 {
		out.Environment.Passthrough = append([]string{}, env.Passthrough...)
	}

	return out
}

// ApplyFlags mutates cfg by applying values from CLI flags when they are present.
func ApplyFlags(cfg *Config, flags FlagValues) {
	if flags.Catalog.Set {
		cfg.Catalog = flags.Catalog.Value
	}
	if flags.Format.Set {
		cfg.Format = flags.Format.Value
	}
	if flags.DryRun.Set {
		cfg.DryRun = flags.DryRun.Value
	}
	if flags.Verbose.Set {
		cfg.Verbose = flags.Verbose.Value
	}
	if flags.LogLevel.Set {
		cfg.LogLevel = flags.LogLevel.Value
	}
	if flags.LogFormat.Set {
		cfg.LogFormat = flags.LogFormat.Value
	}
	if flags.ResultsDir.Set {
		cfg.ResultsDir = flags.ResultsDir.Value
	}
	if flags.MetricsFile.Set {
		cfg.MetricsFile = flags.MetricsFile.Value
	}
	if len(flags.AssumeFeatures.Values) > 0 {
		cfg.AssumeFeatures = append(cfg.AssumeFeatures, flags.AssumeFeatures.Values...)
	}
	if len(flags.ModulePaths.Values) > 0 {
		cfg.Environment.ModulePaths = append([]string{}, flags.ModulePaths.Values...)
	}
	if len(flags.LibraryPaths.Values) > 0 {
		cfg.Environment.LibraryPaths = append([]string{}, flags.LibraryPaths.Values...)
	}
	if flags.BindThreads.Set {
		cfg.Environment.BindThreads = flags.BindThreads.Value
	}
	if flags.NumThreads.Set {
		cfg.Environment.NumThreads = flags.NumThreads.Value
	}
}

// FlagValues captures CLI flag state with knowledge of whether each flag was set explicitly.
type FlagValues struct {
	Catalog        StringFlag
	Format         StringFlag
	DryRun         BoolFlag
	Verbose        BoolFlag
	LogLevel       StringFlag
	LogFormat      StringFlag
	ResultsDir     StringFlag
	MetricsFile    StringFlag
	AssumeFeatures SliceFlag
	ModulePaths    SliceFlag
	LibraryPaths   SliceFlag
	BindThreads    BoolFlag
	NumThreads     IntFlag
}

// StringFlag represents a string flag and whether it was set.
type StringFlag struct {
	Value string
	Set   bool
}

// SliceFlag represents a slice flag and whether it captured values via CLI.
type SliceFlag struct {
	Values []string
}

// BoolFlag represents a bool flag and whether it was set.
type BoolFlag struct {
	Value bool
	Set   bool
}

// IntFlag represents an int flag and whether it was set.
type IntFlag struct {
	Value int
	Set   bool
}

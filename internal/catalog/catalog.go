// Package catalog holds the static, declaration-ordered set of suites a run
// may execute, and the feature probes those suites are gated on.
package catalog

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bgricker/suitegate/internal/feature"
)

// DefaultTargetFlag is passed to a suite's command when it declares targets
// without naming its own flag.
const DefaultTargetFlag = "--targets"

// Suite describes one independently runnable group of tests.
type Suite struct {
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Command          []string          `json:"command"`
	WorkingDirectory string            `json:"working_directory,omitempty"`
	Requires         []string          `json:"requires,omitempty"`
	Targets          []string          `json:"targets,omitempty"`
	TargetFlag       string            `json:"target_flag,omitempty"`
	Enabled          bool              `json:"enabled"`
	Env              map[string]string `json:"env,omitempty"`
}

// ProbeKind selects how a feature is detected.
type ProbeKind string

const (
	ProbeCommand  ProbeKind = "command"
	ProbeLookPath ProbeKind = "lookpath"
	ProbeEnv      ProbeKind = "env"
)

// Feature declares how one feature tag is probed.
type Feature struct {
	Name     string        `json:"name"`
	Kind     ProbeKind     `json:"kind"`
	Command  []string      `json:"command,omitempty"`
	LookPath string        `json:"lookpath,omitempty"`
	Env      string        `json:"env,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}

// Catalog is loaded once at start-up and never changes afterwards.
type Catalog struct {
	path     string
	root     string
	suites   []Suite
	index    map[string]int
	features []Feature
}

// New validates suites and features and builds a Catalog. root is the
// directory relative working directories are resolved against.
func New(root string, suites []Suite, features []Feature) (*Catalog, error) {
	c := &Catalog{
		root:  root,
		index: make(map[string]int, len(suites)),
	}

	for i, s := range suites {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, &LoadError{Reason: fmt.Sprintf("suite #%d has no name", i+1)}
		}
		if strings.EqualFold(s.Name, "all") {
			return nil, &LoadError{Reason: `"all" is reserved and cannot name a suite`}
		}
		if _, dup := c.index[s.Name]; dup {
			return nil, &LoadError{Reason: fmt.Sprintf("suite %q declared more than once", s.Name)}
		}
		if len(s.Command) == 0 || strings.TrimSpace(s.Command[0]) == "" {
			return nil, &LoadError{Reason: fmt.Sprintf("suite %q has no command", s.Name)}
		}
		if err := nonEmpty(s.Requires); err != nil {
			return nil, &LoadError{Reason: fmt.Sprintf("suite %q requires: %v", s.Name, err)}
		}
		if err := nonEmpty(s.Targets); err != nil {
			return nil, &LoadError{Reason: fmt.Sprintf("suite %q targets: %v", s.Name, err)}
		}
		if s.TargetFlag == "" {
			s.TargetFlag = DefaultTargetFlag
		}
		s.Command = append([]string(nil), s.Command...)
		s.Requires = dedupe(s.Requires)
		s.Targets = append([]string(nil), s.Targets...)
		s.Env = copyEnv(s.Env)

		c.index[s.Name] = len(c.suites)
		c.suites = append(c.suites, s)
	}

	seen := make(map[string]struct{}, len(features))
	for i, f := range features {
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			return nil, &LoadError{Reason: fmt.Sprintf("feature #%d has no name", i+1)}
		}
		if _, dup := seen[f.Name]; dup {
			return nil, &LoadError{Reason: fmt.Sprintf("feature %q declared more than once", f.Name)}
		}
		seen[f.Name] = struct{}{}
		kind, err := probeKind(f)
		if err != nil {
			return nil, &LoadError{Reason: fmt.Sprintf("feature %q: %v", f.Name, err)}
		}
		f.Kind = kind
		if f.Timeout < 0 {
			return nil, &LoadError{Reason: fmt.Sprintf("feature %q: negative timeout", f.Name)}
		}
		c.features = append(c.features, f)
	}

	return c, nil
}

func probeKind(f Feature) (ProbeKind, error) {
	var kinds []ProbeKind
	if len(f.Command) > 0 {
		kinds = append(kinds, ProbeCommand)
	}
	if f.LookPath != "" {
		kinds = append(kinds, ProbeLookPath)
	}
	if f.Env != "" {
		kinds = append(kinds, ProbeEnv)
	}
	switch len(kinds) {
	case 0:
		return "", errors.New("one of command, lookpath or env is required")
	case 1:
		return kinds[0], nil
	default:
		return "", fmt.Errorf("only one probe kind allowed, got %v", kinds)
	}
}

// Path is the file the catalog was loaded from, if any.
func (c *Catalog) Path() string { return c.path }

// Root is the directory relative working directories resolve against.
func (c *Catalog) Root() string { return c.root }

// Suites returns every suite in declaration order.
func (c *Catalog) Suites() []Suite {
	out := make([]Suite, len(c.suites))
	copy(out, c.suites)
	return out
}

// Features returns the declared feature probes in declaration order.
func (c *Catalog) Features() []Feature {
	out := make([]Feature, len(c.features))
	copy(out, c.features)
	return out
}

// Lookup returns the suite registered under name.
func (c *Catalog) Lookup(name string) (Suite, bool) {
	i, ok := c.index[name]
	if !ok {
		return Suite{}, false
	}
	return c.suites[i], true
}

// WorkingDirectory resolves s.WorkingDirectory against the catalog root.
func (c *Catalog) WorkingDirectory(s Suite) string {
	dir := strings.TrimSpace(s.WorkingDirectory)
	if dir == "" {
		return c.root
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(c.root, dir)
}

// Probes builds the feature probes declared by the catalog, keyed by tag.
func (c *Catalog) Probes() map[string]feature.Probe {
	out := make(map[string]feature.Probe, len(c.features))
	for _, f := range c.features {
		switch f.Kind {
		case ProbeCommand:
			out[f.Name] = feature.Command{Argv: append([]string(nil), f.Command...), Timeout: f.Timeout}
		case ProbeLookPath:
			out[f.Name] = feature.LookPath{Name: f.LookPath}
		case ProbeEnv:
			out[f.Name] = feature.Env{Var: f.Env}
		}
	}
	return out
}

// RequiredFeatures lists every tag some suite requires, sorted.
func (c *Catalog) RequiredFeatures() []string {
	seen := make(map[string]struct{})
	for _, s := range c.suites {
		for _, tag := range s.Requires {
			seen[tag] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for tag := range seen {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Selection is the operator's choice of suites: every default-enabled suite,
// or an explicit list of names.
type Selection struct {
	all   bool
	names []string
}

// SelectAll selects every suite with Enabled set, in declaration order.
func SelectAll() Selection { return Selection{all: true} }

// SelectNames selects exactly the named suites, in the given order. No names,
// or the single name "all", is the same as SelectAll.
func SelectNames(names ...string) Selection {
	if len(names) == 0 || (len(names) == 1 && strings.EqualFold(strings.TrimSpace(names[0]), "all")) {
		return SelectAll()
	}
	return Selection{names: append([]string(nil), names...)}
}

// All reports whether the selection is the default-enabled set.
func (s Selection) All() bool { return s.all || len(s.names) == 0 }

// Names returns the explicit names, nil for SelectAll.
func (s Selection) Names() []string { return append([]string(nil), s.names...) }

func (s Selection) String() string {
	if s.All() {
		return "all"
	}
	return strings.Join(s.names, ",")
}

// Resolve returns the suites to run, in execution order. Unknown names fail
// the whole resolution so nothing runs.
func (c *Catalog) Resolve(sel Selection) ([]Suite, error) {
	if sel.All() {
		out := make([]Suite, 0, len(c.suites))
		for _, s := range c.suites {
			if s.Enabled {
				out = append(out, s)
			}
		}
		return out, nil
	}

	var unknown []string
	seen := make(map[string]struct{}, len(sel.names))
	out := make([]Suite, 0, len(sel.names))
	for _, raw := range sel.names {
		name := strings.TrimSpace(raw)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		s, ok := c.Lookup(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		out = append(out, s)
	}
	if len(unknown) > 0 {
		return nil, &UnknownSuiteError{Names: unknown, Known: c.names()}
	}
	return out, nil
}

func (c *Catalog) names() []string {
	out := make([]string, 0, len(c.suites))
	for _, s := range c.suites {
		out = append(out, s.Name)
	}
	return out
}

// UnknownSuiteError reports requested suite names the catalog does not declare.
type UnknownSuiteError struct {
	Names []string
	Known []string
}

func (e *UnknownSuiteError) Error() string {
	return fmt.Sprintf("unknown suite(s) %s; known suites: %s",
		quoteAll(e.Names), strings.Join(e.Known, ", "))
}

// IsUnknownSuiteError checks if the error is or wraps an UnknownSuiteError.
func IsUnknownSuiteError(err error) bool {
	var unknownErr *UnknownSuiteError
	return err != nil && errors.As(err, &unknownErr)
}

// LoadError reports a catalog that cannot be used.
type LoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	if e.Path == "" {
		return "invalid catalog: " + msg
	}
	return fmt.Sprintf("invalid catalog %q: %s", e.Path, msg)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsLoadError checks if the error is or wraps a LoadError.
func IsLoadError(err error) bool {
	var loadErr *LoadError
	return err != nil && errors.As(err, &loadErr)
}

// ResolveCommand reports whether the suite's program can be found, relative
// programs being looked up from dir. It is used by `list` to flag broken entries.
func ResolveCommand(s Suite, dir string) error {
	prog := s.Command[0]
	if strings.ContainsRune(prog, filepath.Separator) || strings.ContainsRune(prog, '/') {
		if !filepath.IsAbs(prog) {
			prog = filepath.Join(dir, prog)
		}
	}
	_, err := exec.LookPath(prog)
	return err
}

func nonEmpty(values []string) error {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return errors.New("empty entry")
		}
	}
	return nil
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func copyEnv(env map[string]string) map[string]string {
	if len(env) == 0 {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}

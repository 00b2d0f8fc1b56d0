// Package environment turns a validated config.Environment into the exact
// variable set each suite process receives.
package environment

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/bgricker/suitegate/internal/config"
)

// Provision returns a new environment built from base with cfg applied. base is
// not modified, and nothing here touches the orchestrator's own environment.
//
// Module and library paths are prepended, so the configured entries win over
// whatever was already on the search path. The library path always keeps a
// trailing component for the prior value, even when that value is empty.
func Provision(base map[string]string, cfg config.Environment) map[string]string {
	out := make(map[string]string, len(base)+4)
	for k, v := range base {
		out[k] = v
	}

	vars := cfg.Variables()

	if extra := cfg.ModulePaths(); len(extra) > 0 {
		prior, ok := out[vars.ModulePath]
		if ok && prior != "" {
			extra = append(extra, prior)
		}
		out[vars.ModulePath] = joinPaths(extra)
	}

	if extra := cfg.LibraryPaths(); len(extra) > 0 {
		out[vars.LibraryPath] = joinPaths(append(extra, out[vars.LibraryPath]))
	}

	threading := cfg.Threading()
	out[vars.ThreadBinding] = boolFlag(threading.BindThreads)
	out[vars.NumThreads] = strconv.Itoa(threading.NumThreads)

	return out
}

// BaseEnvironment snapshots environ (usually os.Environ()) into a map. When
// passthrough is non-empty only those keys are kept.
func BaseEnvironment(environ []string, passthrough []string) map[string]string {
	var allow map[string]struct{}
	if len(passthrough) > 0 {
		allow = make(map[string]struct{}, len(passthrough))
		for _, k := range passthrough {
			allow[k] = struct{}{}
		}
	}

	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		idx := strings.Index(kv, "=")
		if idx <= 0 {
			continue
		}
		key := kv[:idx]
		if allow != nil {
			if _, ok := allow[key]; !ok {
				continue
			}
		}
		out[key] = kv[idx+1:]
	}
	return out
}

// Merge layers overlays over base into a new map. Later overlays win.
func Merge(base map[string]string, overlays ...map[string]string) map[string]string {
	size := len(base)
	for _, o := range overlays {
		size += len(o)
	}
	out := make(map[string]string, size)
	for k, v := range base {
		out[k] = v
	}
	for _, overlay := range overlays {
		for k, v := range overlay {
			out[k] = v
		}
	}
	return out
}

// List renders env as KEY=VALUE pairs sorted by key, the form exec.Cmd expects.
func List(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func joinPaths(paths []string) string {
	return strings.Join(paths, string(os.PathListSeparator))
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

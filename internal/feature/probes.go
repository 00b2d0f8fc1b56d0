package feature

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Command probes by running a program: exit 0 means available, any other exit
// status means unavailable. Failing to start the program, or running past
// Timeout, is an error and therefore Unknown.
type Command struct {
	Argv    []string
	Timeout time.Duration
	// Env, when non-nil, replaces the probe's environment.
	Env []string
}

func (c Command) Describe() string { return "command: " + strings.Join(c.Argv, " ") }

// ProbeTimeout lets a catalog timeout override the prober's default bound.
func (c Command) ProbeTimeout() time.Duration { return c.Timeout }

func (c Command) Probe(ctx context.Context) (Availability, error) {
	if len(c.Argv) == 0 {
		return Unknown, errors.New("empty command")
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Stdin = nil
	if c.Env != nil {
		cmd.Env = c.Env
	}
	// Grandchildren holding the output pipe must not stall the probe.
	cmd.WaitDelay = time.Second
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Unknown, fmt.Errorf("%s: %w", c.Argv[0], ctxErr)
	}
	if err == nil {
		return Available, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.Exited() {
		return Unavailable, nil
	}
	return Unknown, fmt.Errorf("run %s: %w", c.Argv[0], err)
}

// LookPath probes for an executable on PATH.
type LookPath struct {
	Name string
}

func (l LookPath) Describe() string { return "lookpath: " + l.Name }

func (l LookPath) Probe(context.Context) (Availability, error) {
	if strings.TrimSpace(l.Name) == "" {
		return Unknown, errors.New("empty executable name")
	}
	_, err := exec.LookPath(l.Name)
	if err == nil {
		return Available, nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return Unavailable, nil
	}
	return Unknown, err
}

// Env probes a boolean environment variable. Unset or empty is unavailable; a
// value that is not a boolean is an error.
type Env struct {
	Var    string
	Lookup func(string) (string, bool)
}

func (e Env) Describe() string { return "env: " + e.Var }

func (e Env) Probe(context.Context) (Availability, error) {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(e.Var)
	if !ok || strings.TrimSpace(v) == "" {
		return Unavailable, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return Unknown, fmt.Errorf("%s=%q is not a boolean", e.Var, v)
	}
	if b {
		return Available, nil
	}
	return Unavailable, nil
}

// Static always answers with the same availability.
type Static Availability

func (s Static) Describe() string { return "assumed " + Availability(s).String() }

func (s Static) Probe(context.Context) (Availability, error) { return Availability(s), nil }

// ParseAssumption splits a "tag=availability" operator override.
func ParseAssumption(s string) (string, Availability, error) {
	tag, value, ok := strings.Cut(s, "=")
	tag = strings.TrimSpace(tag)
	if !ok || tag == "" {
		return "", Unknown, fmt.Errorf("feature assumption %q: expected tag=available|unavailable", s)
	}
	a, err := ParseAvailability(value)
	if err != nil {
		return "", Unknown, fmt.Errorf("feature assumption %q: %w", s, err)
	}
	if a == Unknown {
		return "", Unknown, fmt.Errorf("feature assumption %q: cannot assume unknown", s)
	}
	return tag, a, nil
}

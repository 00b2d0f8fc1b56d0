// Package feature answers whether an optional capability (an accelerator, an
// optional backend, a vendor toolchain) is present on the host running the
// suites. Answers are tri-state and cached for the lifetime of a Prober.
package feature

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Availability is the outcome of probing a feature tag.
type Availability int

const (
	// Unknown means the probe could not give an answer. Callers treat it like
	// Unavailable when gating, but it is never reported as Unavailable.
	Unknown Availability = iota
	Available
	Unavailable
)

func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ParseAvailability accepts the String forms plus the usual boolean spellings.
func ParseAvailability(s string) (Availability, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "available", "yes", "on", "true", "1":
		return Available, nil
	case "unavailable", "no", "off", "false", "0":
		return Unavailable, nil
	case "unknown":
		return Unknown, nil
	default:
		return Unknown, fmt.Errorf("unrecognised availability %q", s)
	}
}

// Result is the cached answer for one tag.
type Result struct {
	Tag          string
	Availability Availability
	Source       string
	Err          error
	Duration     time.Duration
}

// Reason describes why the feature cannot be used; empty when it is available.
func (r Result) Reason() string {
	switch r.Availability {
	case Available:
		return ""
	case Unavailable:
		return fmt.Sprintf("feature %q unavailable", r.Tag)
	default:
		if r.Err != nil {
			return fmt.Sprintf("feature %q unknown: %v", r.Tag, r.Err)
		}
		return fmt.Sprintf("feature %q unknown", r.Tag)
	}
}

// ProbeError records a probe that failed to execute. The tag is reported as Unknown.
type ProbeError struct {
	Tag string
	Err error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %q failed: %v", e.Tag, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// IsProbeError checks if the error is or wraps a ProbeError.
func IsProbeError(err error) bool {
	var probeErr *ProbeError
	return err != nil && errors.As(err, &probeErr)
}

// ErrNoProbe is wrapped into the ProbeError for tags nobody registered.
var ErrNoProbe = errors.New("no probe registered")

// Probe checks one feature. A non-nil error always yields Unknown, whatever
// availability is returned alongside it.
type Probe interface {
	Probe(ctx context.Context) (Availability, error)
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) (Availability, error)

func (f ProbeFunc) Probe(ctx context.Context) (Availability, error) { return f(ctx) }

// Options configure a Prober.
type Options struct {
	Logger *zap.Logger
	// Timeout bounds each probe that does not declare its own. Zero disables
	// the bound.
	Timeout time.Duration
	// Observe is called once per probed tag, after the result is cached.
	Observe func(Result)
	Now     func() time.Time
}

// Prober memoizes probe results per tag. It is driven from a single goroutine
// and is not safe for concurrent use.
type Prober struct {
	probes map[string]Probe
	cache  map[string]Result
	order  []string
	opts   Options
}

// NewProber creates a Prober over the given probes, keyed by feature tag.
func NewProber(probes map[string]Probe, opts Options) *Prober {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	copied := make(map[string]Probe, len(probes))
	for tag, p := range probes {
		copied[tag] = p
	}
	return &Prober{
		probes: copied,
		cache:  make(map[string]Result),
		opts:   opts,
	}
}

// Assume pins tag to a fixed availability, replacing any registered probe.
// It has no effect once the tag has been probed.
func (p *Prober) Assume(tag string, a Availability) {
	p.probes[tag] = Static(a)
}

// IsAvailable returns the availability of tag, probing it on first use only.
func (p *Prober) IsAvailable(ctx context.Context, tag string) Result {
	if res, ok := p.cache[tag]; ok {
		return res
	}

	res := p.run(ctx, tag)
	p.cache[tag] = res
	p.order = append(p.order, tag)

	log := p.opts.Logger.With(zap.String("feature", tag), zap.String("availability", res.Availability.String()))
	if res.Err != nil {
		log.Warn("feature probe failed", zap.Error(res.Err), zap.Duration("duration", res.Duration))
	} else {
		log.Debug("feature probed", zap.String("source", res.Source), zap.Duration("duration", res.Duration))
	}
	if p.opts.Observe != nil {
		p.opts.Observe(res)
	}
	return res
}

func (p *Prober) run(ctx context.Context, tag string) (res Result) {
	res = Result{Tag: tag}
	probe, ok := p.probes[tag]
	if !ok {
		res.Err = &ProbeError{Tag: tag, Err: ErrNoProbe}
		return res
	}
	res.Source = describe(probe)

	timeout := p.opts.Timeout
	if b, ok := probe.(bounded); ok && b.ProbeTimeout() > 0 {
		timeout = b.ProbeTimeout()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := p.opts.Now()
	defer func() {
		res.Duration = p.opts.Now().Sub(start)
		if r := recover(); r != nil {
			res.Availability = Unknown
			res.Err = &ProbeError{Tag: tag, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	availability, err := probe.Probe(ctx)
	if err != nil {
		res.Availability = Unknown
		res.Err = &ProbeError{Tag: tag, Err: err}
		return res
	}
	res.Availability = availability
	return res
}

// Tags returns every registered tag, sorted.
func (p *Prober) Tags() []string {
	tags := make([]string, 0, len(p.probes))
	for tag := range p.probes {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Probed returns the cached results in the order the tags were first probed.
func (p *Prober) Probed() []Result {
	out := make([]Result, 0, len(p.order))
	for _, tag := range p.order {
		out = append(out, p.cache[tag])
	}
	return out
}

// bounded is implemented by probes that declare their own timeout, which
// replaces Options.Timeout for them.
type bounded interface {
	ProbeTimeout() time.Duration
}

type describer interface {
	Describe() string
}

func describe(p Probe) string {
	if d, ok := p.(describer); ok {
		return d.Describe()
	}
	return "func"
}

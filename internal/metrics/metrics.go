// Package metrics records run outcomes into a per-run Prometheus registry
// that can be written out as a node-exporter textfile.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/bgricker/suitegate/internal/feature"
	"github.com/bgricker/suitegate/internal/report"
)

const MetricsNamespace = "suitegate"

var featureStates = []feature.Availability{feature.Available, feature.Unavailable, feature.Unknown}

// Recorder owns its registry so runs in the same process never share series.
// A nil *Recorder discards everything.
type Recorder struct {
	registry *prometheus.Registry
	logger   *zap.Logger

	suitesTotal   *prometheus.CounterVec
	suiteDuration *prometheus.GaugeVec
	suiteExitCode *prometheus.GaugeVec
	featureState  *prometheus.GaugeVec
	runDuration   prometheus.Gauge
	runInfo       *prometheus.GaugeVec
}

// New creates a Recorder with a fresh registry.
func New(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		logger:   logger,
		suitesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "suites_total",
			Help:      "Count of suites by outcome",
		}, []string{"status"}),
		suiteDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "suite_duration_seconds",
			Help:      "Wall time of each executed suite",
		}, []string{"suite"}),
		suiteExitCode: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "suite_exit_code",
			Help:      "Exit code of each executed suite",
		}, []string{"suite"}),
		featureState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "feature_available",
			Help:      "Probed feature availability, 1 for the observed state",
		}, []string{"feature", "state"}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the whole run",
		}),
		runInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_info",
			Help:      "Run identity; value is 1 for a complete run, 0 for an interrupted one",
		}, []string{"run_id"}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordSuite records one suite outcome.
func (r *Recorder) RecordSuite(res report.SuiteResult) {
	if r == nil {
		return
	}
	r.logger.Debug("metric inc", zap.String("m", "suites_total"), zap.String("suite", res.Suite), zap.String("status", string(res.Status)))
	r.suitesTotal.WithLabelValues(string(res.Status)).Inc()
	if res.Skipped {
		return
	}
	r.suiteDuration.WithLabelValues(res.Suite).Set(res.Duration.Seconds())
	r.suiteExitCode.WithLabelValues(res.Suite).Set(float64(res.ExitCode))
}

// RecordFeature records a probe result, setting exactly one state to 1.
func (r *Recorder) RecordFeature(res feature.Result) {
	if r == nil {
		return
	}
	for _, state := range featureStates {
		v := 0.0
		if state == res.Availability {
			v = 1
		}
		r.featureState.WithLabelValues(res.Tag, state.String()).Set(v)
	}
}

// RecordRun records run-level totals once the report is sealed.
func (r *Recorder) RecordRun(rep *report.RunReport) {
	if r == nil || rep == nil {
		return
	}
	r.runDuration.Set(rep.Duration().Seconds())
	complete := 1.0
	if rep.Incomplete() {
		complete = 0
	}
	r.runInfo.WithLabelValues(rep.RunID).Set(complete)
}

// WriteTextfile writes the registry atomically in text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics to %q: %w", path, err)
	}
	r.logger.Debug("metrics written", zap.String("path", path))
	return nil
}

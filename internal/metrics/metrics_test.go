package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgricker/suitegate/internal/feature"
	"github.com/bgricker/suitegate/internal/report"
)

func result(name string, code int, skipped bool) report.SuiteResult {
	res := report.SuiteResult{Suite: name, ExitCode: code, Skipped: skipped, Duration: 2 * time.Second}
	res.Finish()
	return res
}

func TestRecordSuite(t *testing.T) {
	rec := New(nil)
	rec.RecordSuite(result("unit", 0, false))
	rec.RecordSuite(result("integration", 4, false))
	rec.RecordSuite(result("gpu", 0, true))

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.suitesTotal.WithLabelValues("passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.suitesTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.suitesTotal.WithLabelValues("skipped")))
	assert.Equal(t, 4.0, testutil.ToFloat64(rec.suiteExitCode.WithLabelValues("integration")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.suiteDuration.WithLabelValues("unit")))
	assert.Equal(t, 2, testutil.CollectAndCount(rec.suiteDuration), "skipped suites have no duration series")
}

func TestRecordFeature(t *testing.T) {
	rec := New(nil)
	rec.RecordFeature(feature.Result{Tag: "gpu", Availability: feature.Unknown})

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.featureState.WithLabelValues("gpu", "unknown")))
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.featureState.WithLabelValues("gpu", "available")))
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.featureState.WithLabelValues("gpu", "unavailable")))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(nil), New(nil)
	a.RecordSuite(result("unit", 0, false))
	assert.Equal(t, 0, testutil.CollectAndCount(b.suitesTotal))
}

func TestNilRecorder(t *testing.T) {
	var rec *Recorder
	rec.RecordSuite(result("unit", 0, false))
	rec.RecordFeature(feature.Result{Tag: "gpu"})
	rec.RecordRun(report.New("x", time.Now()))
	assert.NoError(t, rec.WriteTextfile(filepath.Join(t.TempDir(), "m.prom")))
	assert.Nil(t, rec.Registry())
}

func TestWriteTextfile(t *testing.T) {
	rec := New(nil)
	start := time.Now()
	rep := report.New("run-42", start)
	require.NoError(t, rep.Append(result("unit", 0, false)))
	rep.Complete(start.Add(3 * time.Second))
	rec.RecordSuite(result("unit", 0, false))
	rec.RecordRun(rep)

	path := filepath.Join(t.TempDir(), "suitegate.prom")
	require.NoError(t, rec.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `suitegate_run_info{run_id="run-42"} 1`), text)
	assert.True(t, strings.Contains(text, "suitegate_run_duration_seconds 3"), text)
	assert.True(t, strings.Contains(text, `suitegate_suites_total{status="passed"} 1`), text)
}

func family(t *testing.T, fams []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, f := range fams {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric family %q not gathered", name)
	return nil
}

func TestGatherLabels(t *testing.T) {
	rec := New(nil)
	rec.RecordFeature(feature.Result{Tag: "cuda", Availability: feature.Available})

	fams, err := rec.Registry().Gather()
	require.NoError(t, err)

	f := family(t, fams, "suitegate_feature_available")
	assert.Equal(t, dto.MetricType_GAUGE, f.GetType())
	require.Len(t, f.GetMetric(), 3)
	for _, m := range f.GetMetric() {
		labels := map[string]string{}
		for _, lp := range m.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		assert.Equal(t, "cuda", labels["feature"])
		want := 0.0
		if labels["state"] == "available" {
			want = 1
		}
		assert.Equal(t, want, m.GetGauge().GetValue())
	}
}

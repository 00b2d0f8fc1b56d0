package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/bgricker/suitegate/internal/catalog"
	"github.com/bgricker/suitegate/internal/config"
	"github.com/bgricker/suitegate/internal/orchestrator"
)

const testCatalog = `suites:
  - name: A
    command: [sh, -c, "echo suite-a"]
  - name: B
    command: [sh, -c, "exit 0"]
    requires: [gpu]
  - name: broken
    command: [sh, -c, "exit 1"]
    enabled: false
features:
  - name: gpu
    env: SUITEGATE_TEST_HAS_GPU
`

func setupProject(t *testing.T, catalogYAML string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("CLI tests use POSIX shell suites")
	}
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "suites.yml"), []byte(catalogYAML), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	chdir(t, root)
	for _, k := range []string{config.EnvThreadBinding, config.EnvNumThreads, config.EnvExtraModulePaths, config.EnvExtraLibraryPaths} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return root
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRunSkipsUnavailableFeature(t *testing.T) {
	setupProject(t, testCatalog)
	t.Setenv("SUITEGATE_TEST_HAS_GPU", "0")

	out, _, err := execute(t, "run")
	if err != nil {
		t.Fatalf("command execute: %v", err)
	}
	if exitCode(err) != 0 {
		t.Fatalf("expected exit 0")
	}
	for _, want := range []string{"✓ A", "- B", `feature "gpu" unavailable`, "SUMMARY: 1 passed, 0 failed, 1 skipped"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "broken") {
		t.Fatalf("disabled suite ran without being named:\n%s", out)
	}
}

func TestRunAssumeFeatureOverridesProbe(t *testing.T) {
	setupProject(t, testCatalog)
	t.Setenv("SUITEGATE_TEST_HAS_GPU", "0")

	out, _, err := execute(t, "run", "B", "--assume-feature", "gpu=available")
	if err != nil {
		t.Fatalf("command execute: %v", err)
	}
	if !strings.Contains(out, "✓ B") {
		t.Fatalf("expected B to run, got:\n%s", out)
	}
}

func TestRunFailureExitCode(t *testing.T) {
	setupProject(t, testCatalog)

	out, _, err := execute(t, "run", "broken", "A")
	if !orchestrator.IsFailureError(err) {
		t.Fatalf("expected FailureError, got %v", err)
	}
	if exitCode(err) != 1 {
		t.Fatalf("expected exit 1, got %d", exitCode(err))
	}
	if strings.Index(out, "✗ broken") > strings.Index(out, "✓ A") {
		t.Fatalf("suites did not run in requested order:\n%s", out)
	}
}

func TestRunUnknownSuite(t *testing.T) {
	root := setupProject(t, testCatalog)
	marker := filepath.Join(root, "ran")
	catalogWithMarker := strings.Replace(testCatalog, `"echo suite-a"`, fmt.Sprintf(`"touch %s"`, marker), 1)
	if err := os.WriteFile(filepath.Join(root, "suites.yml"), []byte(catalogWithMarker), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	_, _, err := execute(t, "run", "A", "nope")
	if !catalog.IsUnknownSuiteError(err) {
		t.Fatalf("expected UnknownSuiteError, got %v", err)
	}
	if exitCode(err) != 2 {
		t.Fatalf("expected exit 2, got %d", exitCode(err))
	}
	if _, statErr := os.Stat(marker); statErr == nil {
		t.Fatalf("suite executed despite unknown name")
	}
}

func TestRunRejectsNegativeThreads(t *testing.T) {
	setupProject(t, testCatalog)
	t.Setenv(config.EnvNumThreads, "-2")

	_, _, err := execute(t, "run")
	if !config.IsConfigError(err) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if exitCode(err) != 2 {
		t.Fatalf("expected exit 2, got %d", exitCode(err))
	}
}

func TestRunProvisionsEnvironment(t *testing.T) {
	setupProject(t, `suites:
  - name: env
    command: [sh, -c, 'echo "$NUM_THREADS|$THREAD_BINDING|$PYTHONPATH|$SUITE_NAME"']
`)
	t.Setenv("PYTHONPATH", "/prior")

	out, _, err := execute(t, "run", "--format", "json", "--num-threads", "8", "--thread-binding", "--module-path", "/extra")
	if err != nil {
		t.Fatalf("command execute: %v", err)
	}
	var decoded struct {
		Results []struct {
			Stdout string `json:"stdout"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	want := fmt.Sprintf("8|1|/extra%c/prior|env", os.PathListSeparator)
	if len(decoded.Results) != 1 || decoded.Results[0].Stdout != want {
		t.Fatalf("want %q, got %+v", want, decoded.Results)
	}
}

func TestRunWritesMetrics(t *testing.T) {
	root := setupProject(t, testCatalog)
	t.Setenv("SUITEGATE_TEST_HAS_GPU", "1")
	metricsPath := filepath.Join(root, "out", "suitegate.prom")
	if err := os.MkdirAll(filepath.Dir(metricsPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if _, _, err := execute(t, "run", "--metrics-file", metricsPath, "--format", "table"); err != nil {
		t.Fatalf("command execute: %v", err)
	}
	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	for _, want := range []string{`suitegate_suites_total{status="passed"} 2`, `suitegate_feature_available{feature="gpu",state="available"} 1`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("expected %q in metrics:\n%s", want, data)
		}
	}
}

func TestRunDryRun(t *testing.T) {
	root := setupProject(t, testCatalog)
	marker := filepath.Join(root, "ran")
	catalogWithMarker := strings.Replace(testCatalog, `"echo suite-a"`, fmt.Sprintf(`"touch %s"`, marker), 1)
	if err := os.WriteFile(filepath.Join(root, "suites.yml"), []byte(catalogWithMarker), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	t.Setenv("SUITEGATE_TEST_HAS_GPU", "1")

	out, _, err := execute(t, "run", "--dry-run")
	if err != nil {
		t.Fatalf("command execute: %v", err)
	}
	if _, statErr := os.Stat(marker); statErr == nil {
		t.Fatalf("dry run executed a suite:\n%s", out)
	}
	if !strings.Contains(out, "command: sh -c touch "+marker) {
		t.Fatalf("expected dry run to show the command:\n%s", out)
	}
	if !strings.Contains(out, "SUMMARY: 0 passed, 0 failed, 2 skipped") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}

func TestListCommand(t *testing.T) {
	setupProject(t, testCatalog)

	out, _, err := execute(t, "list")
	if err != nil {
		t.Fatalf("command execute: %v", err)
	}
	for _, want := range []string{"• A", "• B", "requires: gpu", "○ broken"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}

	out, _, err = execute(t, "list", "--match", "gpu")
	if err != nil {
		t.Fatalf("command execute: %v", err)
	}
	if strings.Contains(out, "• A") || !strings.Contains(out, "• B") {
		t.Fatalf("match filter not applied:\n%s", out)
	}

	out, _, err = execute(t, "list", "--match", "/^zzz/")
	if err != nil {
		t.Fatalf("command execute: %v", err)
	}
	if strings.TrimSpace(out) != "No matching suites" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestProbeCommand(t *testing.T) {
	setupProject(t, testCatalog)
	t.Setenv("SUITEGATE_TEST_HAS_GPU", "true")

	out, _, err := execute(t, "probe", "--format", "json")
	if err != nil {
		t.Fatalf("command execute: %v", err)
	}
	var decoded struct {
		Features []struct {
			Feature      string `json:"feature"`
			Availability string `json:"availability"`
		} `json:"features"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(decoded.Features) != 1 || decoded.Features[0].Feature != "gpu" || decoded.Features[0].Availability != "available" {
		t.Fatalf("unexpected probe output %+v", decoded)
	}

	out, _, err = execute(t, "probe", "fpga")
	if err != nil {
		t.Fatalf("command execute: %v", err)
	}
	if !strings.Contains(out, "fpga: unknown") {
		t.Fatalf("expected unknown for unregistered tag, got %q", out)
	}
}

func TestMissingCatalog(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX only")
	}
	chdir(t, t.TempDir())
	_, _, err := execute(t, "list")
	if !errors.Is(err, catalog.ErrNoCatalog) {
		t.Fatalf("expected ErrNoCatalog, got %v", err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"failure", &orchestrator.FailureError{FirstFailed: "a", Failed: []string{"a"}}, 1},
		{"interrupted", fmt.Errorf("%w: %w", orchestrator.ErrIncomplete, context.Canceled), 130},
		{"config", &config.ConfigError{Field: "num_threads", Reason: "negative"}, 2},
		{"unknown suite", &catalog.UnknownSuiteError{Names: []string{"x"}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Fatalf("want %d, got %d", tt.want, got)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Errorf("restore working directory: %v", err)
		}
	})
}

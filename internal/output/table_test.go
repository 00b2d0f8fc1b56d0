package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bgricker/suitegate/internal/catalog"
	"github.com/bgricker/suitegate/internal/feature"
)

func TestTableRenderResults(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewTable(buf).RenderResults(sampleReport(t)); err != nil {
		t.Fatalf("render table: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"unittest", "integration", "terminated by SIGTERM", "gpu", "skipped", "1 passed, 1 failed, 1 skipped, 0 not run"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table, got:\n%s", want, out)
		}
	}
}

func TestTableRenderListAndProbes(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewTable(buf)
	entries := []ListEntry{{Suite: catalog.Suite{Name: "gpu", Requires: []string{"cuda"}, Targets: []string{"cuda", "llvm"}}, Command: []string{"pytest"}}}
	if err := r.RenderList(entries); err != nil {
		t.Fatalf("render list: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "cuda,llvm") || !strings.Contains(out, "no") {
		t.Fatalf("unexpected list table:\n%s", out)
	}

	buf.Reset()
	if err := r.RenderProbes([]feature.Result{{Tag: "cuda", Availability: feature.Unavailable, Source: "env HAS_CUDA"}}); err != nil {
		t.Fatalf("render probes: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "unavailable") || !strings.Contains(out, "env HAS_CUDA") {
		t.Fatalf("unexpected probe table:\n%s", out)
	}
}

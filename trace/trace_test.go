package trace

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWithTrace(t *testing.T) {
	ctx := WithTrace(context.Background(), "ExecuteUpdate")
	tr := FromContext(ctx)
	if !tr.Enabled() {
		t.Fatal("trace should be enabled")
	}
	if tr.Op() != "ExecuteUpdate" {
		t.Errorf("Op() = %q", tr.Op())
	}

	tr.RecordSpan("Update.Read")
	tr.RecordSpan("Update.Merge", map[string]interface{}{"path": "/previousJobs/0"})

	if diff := cmp.Diff([]string{"Update.Read", "Update.Merge"}, tr.SpanNames()); diff != "" {
		t.Errorf("SpanNames() mismatch (-want +got):\n%s", diff)
	}
	if got := tr.Spans()[1].Details["path"]; got != "/previousJobs/0" {
		t.Errorf("span detail = %v", got)
	}

	dump := tr.Dump()
	for _, want := range []string{"=== Trace [ExecuteUpdate]", "[1] Update.Read", "[2] Update.Merge", "/previousJobs/0"} {
		if !strings.Contains(dump, want) {
			t.Errorf("Dump() missing %q:\n%s", want, dump)
		}
	}
}

func TestWithTrace_CallerName(t *testing.T) {
	tr := FromContext(WithTrace(context.Background()))
	if !strings.Contains(tr.Op(), "TestWithTrace_CallerName") {
		t.Errorf("Op() = %q, want the caller's name", tr.Op())
	}
}

func TestFromContext_Disabled(t *testing.T) {
	tr := FromContext(context.Background())
	if tr.Enabled() {
		t.Fatal("trace should be disabled")
	}
	tr.RecordSpan("ignored")
	if len(tr.Spans()) != 0 {
		t.Errorf("disabled trace recorded %d spans", len(tr.Spans()))
	}
	if tr.Dump() != "" || tr.Total() != 0 {
		t.Error("disabled trace should dump nothing")
	}
}

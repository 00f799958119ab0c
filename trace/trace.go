// Package trace records per-call timing spans carried on a context.
//
//	ctx = trace.WithTrace(ctx, "ExecuteUpdate")
//	client.ExecuteUpdate(ctx, ...)
//	fmt.Print(trace.FromContext(ctx).Dump())
package trace

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
)

type contextKey string

const traceKey contextKey = "docpatch_trace"

// Trace holds the spans of one traced call
type Trace struct {
	mu       sync.Mutex
	spans    []Span
	start    time.Time
	lastTime time.Time // end of the previous span
	opName   string
	enable   bool
}

// Span is one timed step. Duration runs from the previous span (or the
// trace start) to the moment the span was recorded.
type Span struct {
	Name     string
	Duration time.Duration
	Details  map[string]interface{}
}

func newTrace(opName string) *Trace {
	now := time.Now()
	return &Trace{
		start:    now,
		lastTime: now,
		opName:   opName,
		enable:   true,
	}
}

// WithTrace returns a context carrying a new enabled trace. Without a name
// the caller's function name is used.
func WithTrace(ctx context.Context, opName ...string) context.Context {
	name := "Operation"
	if len(opName) > 0 && opName[0] != "" {
		name = opName[0]
	} else if pc, _, _, ok := runtime.Caller(1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			name = fn.Name()
		}
	}
	return context.WithValue(ctx, traceKey, newTrace(name))
}

// FromContext returns the context's trace, or a disabled one that records
// nothing.
func FromContext(ctx context.Context) *Trace {
	if tr, ok := ctx.Value(traceKey).(*Trace); ok {
		return tr
	}
	return &Trace{}
}

func (t *Trace) Enabled() bool {
	return t.enable
}

// Op returns the traced operation name.
func (t *Trace) Op() string {
	return t.opName
}

// RecordSpan closes a span ending now.
func (t *Trace) RecordSpan(name string, details ...map[string]interface{}) {
	if !t.enable {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	span := Span{Name: name, Duration: now.Sub(t.lastTime)}
	if len(details) > 0 {
		span.Details = details[0]
	}
	t.spans = append(t.spans, span)
	t.lastTime = now
}

// Total returns the time elapsed since the trace started.
func (t *Trace) Total() time.Duration {
	if !t.enable {
		return 0
	}
	return time.Since(t.start)
}

// Dump formats the trace, one span per line.
func (t *Trace) Dump() string {
	if !t.enable {
		return ""
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.spans) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "=== Trace [%s]: Total %v ===\n", t.opName, time.Since(t.start))
	for i, span := range t.spans {
		fmt.Fprintf(&b, "[%d] %s: %v", i+1, span.Name, span.Duration)
		if len(span.Details) > 0 {
			fmt.Fprintf(&b, " %+v", span.Details)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Spans returns a copy of the recorded spans.
func (t *Trace) Spans() []Span {
	t.mu.Lock()
	defer t.mu.Unlock()

	spans := make([]Span, len(t.spans))
	copy(spans, t.spans)
	return spans
}

// SpanNames returns the recorded span names in order.
func (t *Trace) SpanNames() []string {
	spans := t.Spans()
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name
	}
	return names
}

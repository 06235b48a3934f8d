// Package telemetry collects hierarchical timings for recompute runs. A
// collector travels in the context, so instrumented code never changes its
// signature; without one every call is a no-op.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Collector records timed operations.
type Collector interface {
	Start(name string) Timer
	Report(w io.Writer)
}

// Timer is one running operation. Child timers nest under it.
type Timer interface {
	End()
	Child(name string) Timer
}

type ctxKey struct{}

// WithCollector attaches c to ctx.
func WithCollector(ctx context.Context, c Collector) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the collector on ctx, or a no-op collector.
func FromContext(ctx context.Context) Collector {
	if c, ok := ctx.Value(ctxKey{}).(Collector); ok {
		return c
	}
	return noop{}
}

type noop struct{}

func (noop) Start(string) Timer { return noop{} }
func (noop) Report(io.Writer)   {}
func (noop) End()               {}
func (noop) Child(string) Timer { return noop{} }

// TimingCollector keeps every root operation and its children.
type TimingCollector struct {
	mu    sync.Mutex
	roots []*node
}

type node struct {
	name       string
	start, end time.Time
	children   []*node
}

// NewTimingCollector returns an empty collector.
func NewTimingCollector() *TimingCollector {
	return &TimingCollector{}
}

// Start begins a new root operation.
func (c *TimingCollector) Start(name string) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := &node{name: name, start: time.Now()}
	c.roots = append(c.roots, n)
	return &timer{c: c, n: n}
}

type timer struct {
	c *TimingCollector
	n *node
}

func (t *timer) End() {
	t.c.mu.Lock()
	t.n.end = time.Now()
	t.c.mu.Unlock()
}

func (t *timer) Child(name string) Timer {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	n := &node{name: name, start: time.Now()}
	t.n.children = append(t.n.children, n)
	return &timer{c: t.c, n: n}
}

var (
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#575653"))
	slowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#DA702C"))
)

const slowThreshold = 100 * time.Millisecond

// Report writes the timing tree:
//
//	cashflow.Recompute: 3ms
//	├─ budgets: 0ms
//	└─ totals: 1ms
func (c *TimingCollector) Report(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.roots {
		_, _ = fmt.Fprintf(w, "%s: %s\n", r.name, formatDuration(r.elapsed()))
		writeChildren(w, r.children, "")
	}
}

func writeChildren(w io.Writer, nodes []*node, prefix string) {
	for i, n := range nodes {
		branch, ext := "├─ ", "│  "
		if i == len(nodes)-1 {
			branch, ext = "└─ ", "   "
		}
		d := n.elapsed()
		timing := dimStyle.Render(formatDuration(d))
		if d >= slowThreshold {
			timing = slowStyle.Render(formatDuration(d))
		}
		_, _ = fmt.Fprintf(w, "%s%s: %s\n", dimStyle.Render(prefix+branch), n.name, timing)
		writeChildren(w, n.children, prefix+ext)
	}
}

func (n *node) elapsed() time.Duration {
	if n.end.IsZero() {
		return 0
	}
	return n.end.Sub(n.start)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

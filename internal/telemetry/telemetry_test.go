package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestFromContextWithoutCollector(t *testing.T) {
	c := FromContext(context.Background())
	if _, ok := c.(noop); !ok {
		t.Fatalf("FromContext = %T, want noop", c)
	}
	timer := c.Start("x")
	timer.Child("y").End()
	timer.End()

	var buf bytes.Buffer
	c.Report(&buf)
	if buf.Len() != 0 {
		t.Fatalf("noop collector wrote %q", buf.String())
	}
}

func TestTimingCollectorReportsTree(t *testing.T) {
	c := NewTimingCollector()
	ctx := WithCollector(context.Background(), c)

	root := FromContext(ctx).Start("recompute")
	child := root.Child("forecast")
	child.Child("row").End()
	child.End()
	root.Child("totals").End()
	root.End()

	var buf bytes.Buffer
	c.Report(&buf)
	out := buf.String()
	for _, want := range []string{"recompute:", "forecast:", "row:", "totals:", "└─"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

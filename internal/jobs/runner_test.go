package jobs

import (
	"context"
	"testing"
)

func TestRunnerAcceptsOptionalSeconds(t *testing.T) {
	r := NewRunner(context.Background(), nil)
	for _, spec := range []string{"0 * * * *", "30 0 * * * *", "@every 1h", "@daily"} {
		if _, err := r.Add(spec, func(context.Context) {}); err != nil {
			t.Fatalf("Add(%q): %v", spec, err)
		}
	}
	for _, spec := range []string{"", "* * *", "not a schedule"} {
		if _, err := r.Add(spec, func(context.Context) {}); err == nil {
			t.Fatalf("Add(%q) accepted", spec)
		}
	}
}

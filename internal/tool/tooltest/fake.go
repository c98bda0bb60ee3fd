// Package tooltest provides a scripted tool.Runner for tests.
package tooltest

import (
	"context"
	"sync"

	"github.com/detent/checkformat/internal/tool"
)

// Runner answers invocations with a caller-supplied function and records them.
type Runner struct {
	Respond func(inv tool.Invocation) (*tool.Result, error)

	mu    sync.Mutex
	calls []tool.Invocation
}

// Run implements tool.Runner.
func (r *Runner) Run(_ context.Context, inv tool.Invocation) (*tool.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, inv)
	r.mu.Unlock()
	if r.Respond == nil {
		return &tool.Result{}, nil
	}
	return r.Respond(inv)
}

// Calls returns a copy of the recorded invocations.
func (r *Runner) Calls() []tool.Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tool.Invocation(nil), r.calls...)
}

// Names returns the binary of each recorded invocation in order.
func (r *Runner) Names() []string {
	calls := r.Calls()
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Name
	}
	return names
}

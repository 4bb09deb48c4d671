package eligibility

import (
	"context"

	"github.com/google/uuid"

	"shieldcare/internal/health"
)

// Run is a handle on one submission. It resolves exactly once.
type Run struct {
	id     uuid.UUID
	done   chan struct{}
	result *health.Result
	err    error
}

func newRun() *Run {
	return &Run{id: uuid.New(), done: make(chan struct{})}
}

func (r *Run) ID() uuid.UUID {
	return r.id
}

// Done is closed once the run has resolved.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run resolves or ctx ends. A run superseded by Reset
// resolves with a CodeCanceled error.
func (r *Run) Wait(ctx context.Context) (*health.Result, error) {
	select {
	case <-r.done:
		if r.err != nil {
			return nil, r.err
		}
		res := *r.result
		return &res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Run) resolve(result *health.Result, err error) {
	r.result = result
	r.err = err
	close(r.done)
}

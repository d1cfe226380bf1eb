package workpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

// Pool runs tasks with a fixed concurrency cap.
type Pool struct {
	limit int
}

func New(limit int) *Pool {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	return &Pool{limit: limit}
}

func (p *Pool) Limit() int { return p.limit }

// Each runs fn for every index in [0, n) and returns one error slot per task.
// A failing task does not cancel the others; a cancelled ctx stops tasks that
// have not started yet and marks them with ctx.Err().
func (p *Pool) Each(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	var g errgroup.Group
	g.SetLimit(p.limit)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// Map applies fn to each item with the pool's cap. Results keep input order, and a
// failed item keeps whatever fn returned alongside its error.
func Map[T, R any](ctx context.Context, p *Pool, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, []error) {
	out := make([]R, len(items))
	errs := p.Each(ctx, len(items), func(ctx context.Context, i int) error {
		r, err := fn(ctx, items[i])
		out[i] = r
		return err
	})
	return out, errs
}

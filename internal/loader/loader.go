// Package loader turns paths into specimens. A Loader handles one path;
// MultipleLoad fans a batch out concurrently and returns results in input
// order, one slot per path, without letting one failure affect the others.
package loader

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Loader loads a single path into a value of type T.
type Loader[T any] interface {
	Load(ctx context.Context, path string) (T, error)
}

// Func adapts a plain function to the Loader interface.
type Func[T any] func(ctx context.Context, path string) (T, error)

func (f Func[T]) Load(ctx context.Context, path string) (T, error) { return f(ctx, path) }

// Result is the outcome of loading one path. Exactly one of Value and Err
// is meaningful.
type Result[T any] struct {
	Path  string
	Value T
	Err   error
}

// OK reports whether the load succeeded.
func (r Result[T]) OK() bool { return r.Err == nil }

type batchConfig struct {
	limit   int
	timeout time.Duration
}

// BatchOption tunes MultipleLoad.
type BatchOption func(*batchConfig)

// WithLimit caps the number of loads in flight. Zero or negative means no
// cap: every path gets its own goroutine.
func WithLimit(n int) BatchOption {
	return func(c *batchConfig) { c.limit = n }
}

// WithTimeout bounds each individual load. A load that exceeds it yields a
// TIMEOUT LoadError in its slot.
func WithTimeout(d time.Duration) BatchOption {
	return func(c *batchConfig) { c.timeout = d }
}

// MultipleLoad loads every path concurrently. The returned slice has one
// entry per path and out[i] always belongs to paths[i], whatever order the
// loads finish in.
func MultipleLoad[T any](ctx context.Context, l Loader[T], paths []string, opts ...BatchOption) []Result[T] {
	var cfg batchConfig
	for _, o := range opts {
		o(&cfg)
	}

	results := make([]Result[T], len(paths))
	var g errgroup.Group
	if cfg.limit > 0 {
		g.SetLimit(cfg.limit)
	}
	for i, path := range paths {
		g.Go(func() error {
			results[i] = loadOne(ctx, l, path, cfg.timeout)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func loadOne[T any](ctx context.Context, l Loader[T], path string, timeout time.Duration) Result[T] {
	if err := ctx.Err(); err != nil {
		return Result[T]{Path: path, Err: newLoadError(path, err)}
	}
	if timeout <= 0 {
		v, err := l.Load(ctx, path)
		return Result[T]{Path: path, Value: v, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan Result[T], 1)
	go func() {
		v, err := l.Load(ctx, path)
		done <- Result[T]{Path: path, Value: v, Err: err}
	}()

	select {
	case r := <-done:
		if r.Err != nil && ctx.Err() != nil {
			r.Err = newLoadError(path, r.Err)
		}
		return r
	case <-ctx.Done():
		return Result[T]{Path: path, Err: newLoadError(path, ctx.Err())}
	}
}

package animator

import "time"

// PoolBuilderOption is a functional option for configuring a Pool during construction.
type PoolBuilderOption func(*pool)

// WithWorkers is an option builder that sets the number of worker goroutines.
//
// Parameters:
//   - workers: the worker count; values below 1 are raised to 1
//
// Returns:
//   - PoolBuilderOption: a function that applies the worker option to a pool
func WithWorkers(workers int) PoolBuilderOption {
	return func(p *pool) {
		p.workers = workers
	}
}

// WithQueueSize is an option builder that sets the task queue length.
//
// Parameters:
//   - size: the number of tasks that may wait for a worker
//
// Returns:
//   - PoolBuilderOption: a function that applies the queue size option to a pool
func WithQueueSize(size int) PoolBuilderOption {
	return func(p *pool) {
		p.queueSize = size
	}
}

// WithIdleTimeout is an option builder that sets how long an idle worker lives.
//
// Parameters:
//   - d: the idle timeout
//
// Returns:
//   - PoolBuilderOption: a function that applies the timeout option to a pool
func WithIdleTimeout(d time.Duration) PoolBuilderOption {
	return func(p *pool) {
		p.idle = d
	}
}

// WithAnimators is an option builder that registers animators at construction.
//
// Parameters:
//   - animators: the animators to add, in index order
//
// Returns:
//   - PoolBuilderOption: a function that applies the animators option to a pool
func WithAnimators(animators ...Animator) PoolBuilderOption {
	return func(p *pool) {
		p.animators = append(p.animators, animators...)
	}
}

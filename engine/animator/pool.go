package animator

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// pool is the implementation of the Pool interface.
type pool struct {
	mu *sync.Mutex

	animators []Animator
	workers   int
	queueSize int
	idle      time.Duration

	computePool worker.DynamicWorkerPool
}

// Pool advances and evaluates many Animators per frame on a bounded set of reusable
// worker goroutines. Step returns only after every animator has been evaluated, so
// poses are complete before the caller renders.
type Pool interface {
	// Add registers an animator and returns its index.
	//
	// Parameters:
	//   - a: the animator
	//
	// Returns:
	//   - int: the animator's index
	Add(a Animator) int

	// Animator returns the animator at index, or nil.
	//
	// Parameters:
	//   - index: the animator index
	//
	// Returns:
	//   - Animator: the animator or nil
	Animator(index int) Animator

	// Len returns the number of registered animators.
	//
	// Returns:
	//   - int: the count
	Len() int

	// Step advances every animator by deltaSeconds and evaluates its pose.
	//
	// Parameters:
	//   - deltaSeconds: elapsed real time in seconds
	//
	// Returns:
	//   - error: the joined evaluation errors, each annotated with the animator index
	Step(deltaSeconds float32) error

	// Evaluate evaluates every animator at its current time without advancing it.
	//
	// Returns:
	//   - error: the joined evaluation errors
	Evaluate() error
}

var _ Pool = &pool{}

// NewPool creates a Pool. The worker count defaults to GOMAXPROCS.
//
// Parameters:
//   - options: variadic list of PoolBuilderOption functions to configure the Pool
//
// Returns:
//   - Pool: the new pool
func NewPool(options ...PoolBuilderOption) Pool {
	p := &pool{
		mu:        &sync.Mutex{},
		workers:   runtime.GOMAXPROCS(0),
		queueSize: 256,
		idle:      1 * time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.workers < 1 {
		p.workers = 1
	}
	p.computePool = worker.NewDynamicWorkerPool(p.workers, p.queueSize, p.idle)
	return p
}

func (p *pool) Add(a Animator) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.animators = append(p.animators, a)
	return len(p.animators) - 1
}

func (p *pool) Animator(index int) Animator {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.animators) {
		return nil
	}
	return p.animators[index]
}

func (p *pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.animators)
}

func (p *pool) Step(deltaSeconds float32) error {
	return p.run(func(a Animator) error {
		a.Advance(deltaSeconds)
		return a.Evaluate()
	})
}

func (p *pool) Evaluate() error {
	return p.run(Animator.Evaluate)
}

// run submits fn for every animator and waits for all of them. A WaitGroup is the
// per-frame barrier; the worker pool itself only idles out after its timeout.
func (p *pool) run(fn func(Animator) error) error {
	p.mu.Lock()
	animators := make([]Animator, len(p.animators))
	copy(animators, p.animators)
	p.mu.Unlock()

	errs := make([]error, len(animators))
	var wg sync.WaitGroup
	for i, a := range animators {
		wg.Add(1)
		p.computePool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				if err := fn(a); err != nil {
					errs[i] = fmt.Errorf("animator %d: %w", i, err)
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	return errors.Join(errs...)
}

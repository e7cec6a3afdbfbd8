package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/gridcast/internal/adapters/mq/queue"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/pkg/logger"
	"github.com/okian/gridcast/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// ErrStopped is returned for jobs a stopped pool never ran.
var ErrStopped = errors.New("worker pool stopped")

// Loader reads one category file.
type Loader interface {
	Load(ctx context.Context, category model.Category, path string) ([]*model.Event, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Result is the outcome of one job.
type Result struct {
	Job    queue.Job
	Events []*model.Event
	Err    error
}

// Worker processes jobs until its queue drains or it is stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker loads files taken from a queue and reports each Result.
type InMemoryWorker struct {
	queue   Queue
	loader  Loader
	results chan<- Result
	name    string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, loader Loader, results chan<- Result, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		loader:   loader,
		results:  results,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			res := w.process(ctx, job)
			select {
			case w.results <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Shutdown stops the worker and waits for it to finish.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) Result {
	events, err := w.loader.Load(ctx, job.Category, job.Path)
	if err != nil {
		metrics.RecordLoadJobError()
		metrics.RecordErrorByComponent("worker", "load_error")
		w.logger.Error(ctx, "load failed",
			logger.String("category", job.Category.String()),
			logger.String("path", job.Path),
			logger.Error(err),
		)
		return Result{Job: job, Err: err}
	}
	metrics.RecordLoadJobDone()
	return Result{Job: job, Events: events}
}

// Pool manages multiple workers sharing one queue and one results channel.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	results chan Result
	wg      sync.WaitGroup
	logger  logger.Logger
}

// NewPool creates a new worker pool. A workerCount below 1 uses one worker per CPU.
func NewPool(workerCount int, q Queue, loader Loader, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		results: make(chan Result),
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewInMemoryWorker(q, loader, p.results,
			WithName("loader-"+strconv.Itoa(i)),
			WithLogger(p.logger),
		)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers. Results is closed once every worker has returned.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

// Results returns the channel on which job outcomes arrive.
func (p *Pool) Results() <-chan Result { return p.results }

// Shutdown closes the queue, stops all workers and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for _, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadAll loads every job through a pool of workers and returns the events
// indexed by Job.Index. jobs must be indexed 0..len(jobs)-1. The first failing
// job in index order decides the returned error.
func LoadAll(ctx context.Context, loader Loader, jobs []queue.Job, workers int, opts ...PoolOption) ([][]*model.Event, error) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(len(jobs) + 1))
	for _, j := range jobs {
		if err := q.Enqueue(ctx, j); err != nil {
			return nil, err
		}
	}
	_ = q.Close()

	if workers > len(jobs) {
		workers = len(jobs)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := NewPool(workers, q, loader, opts...)
	p.Start(ctx)

	out := make([][]*model.Event, len(jobs))
	errs := make([]error, len(jobs))
	got := 0
	for res := range p.Results() {
		out[res.Job.Index] = res.Events
		errs[res.Job.Index] = res.Err
		got++
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	if got != len(jobs) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %d of %d jobs finished", ErrStopped, got, len(jobs))
	}
	return out, nil
}

package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
	"github.com/waynewangyuxuan/graphex-aicore/internal/metrics"
)

// Pool is a bounded worker pool backing the Job API (§6): Submit is
// non-blocking and returns domain.ErrQueueFull once the frontier is at
// capacity, Status polls a job's current state, Cancel stops a waiting
// or running job, and Retry resubmits a failed one under a new id.
//
// Grounded on the donor's Frontier/WorkItem scheduler (heap + bounded
// channel for deterministic, backpressured admission), generalized from
// graph-step work items to arbitrary job specs.
type Pool struct {
	front   *frontier
	workers int
	metrics *metrics.Metrics
	now     func() time.Time

	mu   sync.Mutex
	jobs map[string]*Job

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Pool.
type Option func(*Pool)

// WithMetrics attaches a metrics sink for queue-depth/attempt counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pool) { p.metrics = m }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

// New starts a Pool with the given queue capacity and worker count. The
// returned Pool must be stopped with Close when no longer needed.
func New(ctx context.Context, capacity, workers int, opts ...Option) *Pool {
	poolCtx, cancel := context.WithCancel(ctx)
	p := &Pool{
		front:   newFrontier(capacity),
		workers: workers,
		now:     time.Now,
		jobs:    make(map[string]*Job),
		ctx:     poolCtx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.runWorker()
	}
	return p
}

// Close stops accepting new work and waits for in-flight jobs to observe
// cancellation and return.
func (p *Pool) Close() {
	p.cancel()
	p.wg.Wait()
}

// Submit enqueues spec and returns its job id immediately. Returns
// domain.ErrQueueFull if the frontier is at capacity.
func (p *Pool) Submit(spec Spec) (string, error) {
	if spec.MaxAttempts <= 0 {
		spec.MaxAttempts = 1
	}
	id := newJobID()
	now := p.now()
	job := &Job{
		ID:          id,
		State:       StateWaiting,
		MaxAttempts: spec.MaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	p.mu.Lock()
	p.jobs[id] = job
	p.mu.Unlock()

	if !p.front.tryEnqueue(id, spec) {
		p.mu.Lock()
		job.State = StateFailed
		job.Err = domain.ErrQueueFull
		job.UpdatedAt = p.now()
		p.mu.Unlock()
		if p.metrics != nil {
			p.metrics.RecordJobQueueFull()
		}
		return "", domain.ErrQueueFull
	}
	if p.metrics != nil {
		p.metrics.RecordJobQueueDepth(p.front.len())
	}
	return id, nil
}

// Status returns a snapshot of job's current state, and false if no such
// job is known to this pool.
func (p *Pool) Status(jobID string) (Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	job, ok := p.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Cancel stops job if it is still waiting (queued but not yet picked up by
// a worker) or active (running), returning whether cancellation took
// effect. A completed, failed, or already-cancelled job cannot be
// cancelled.
func (p *Pool) Cancel(jobID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	job, ok := p.jobs[jobID]
	if !ok {
		return false
	}
	switch job.State {
	case StateWaiting:
		job.State = StateCancelled
		job.UpdatedAt = p.now()
		return true
	case StateActive:
		if job.cancel != nil {
			job.cancel()
		}
		job.State = StateCancelled
		job.UpdatedAt = p.now()
		return true
	default:
		return false
	}
}

// Retry resubmits a failed job's original spec under a new job id. Only
// valid for jobs currently in StateFailed; returns an error otherwise.
func (p *Pool) Retry(jobID string, spec Spec) (string, error) {
	p.mu.Lock()
	job, ok := p.jobs[jobID]
	p.mu.Unlock()
	if !ok {
		return "", domain.ErrInvalidRequest.WithMessage("unknown job id")
	}
	if job.State != StateFailed {
		return "", domain.ErrInvalidRequest.WithMessage("retry is only valid for a failed job")
	}
	return p.Submit(spec)
}

func (p *Pool) runWorker() {
	defer p.wg.Done()
	for {
		item, ok := p.front.dequeue(p.ctx)
		if !ok {
			return
		}
		p.runJob(item)
	}
}

func (p *Pool) runJob(item workItem) {
	p.mu.Lock()
	job, ok := p.jobs[item.jobID]
	if !ok || job.State == StateCancelled {
		p.mu.Unlock()
		return
	}
	jobCtx, cancel := context.WithCancel(p.ctx)
	job.State = StateActive
	job.Attempts++
	job.UpdatedAt = p.now()
	job.cancel = cancel
	p.mu.Unlock()
	defer cancel()

	if p.metrics != nil {
		p.metrics.JobsInFlight.Inc()
		defer p.metrics.JobsInFlight.Dec()
	}

	report := func(pr Progress) {
		p.mu.Lock()
		if job.State == StateActive {
			job.Progress = pr
			job.UpdatedAt = p.now()
		}
		p.mu.Unlock()
	}

	result, err := item.spec.Func(jobCtx, report)

	p.mu.Lock()
	defer p.mu.Unlock()
	if job.State == StateCancelled {
		return
	}
	job.UpdatedAt = p.now()
	if err != nil {
		job.Err = err
		job.State = StateFailed
		if p.metrics != nil {
			p.metrics.RecordJobOutcome(false)
		}
		return
	}
	job.Result = result
	job.State = StateCompleted
	if p.metrics != nil {
		p.metrics.RecordJobOutcome(true)
	}
}

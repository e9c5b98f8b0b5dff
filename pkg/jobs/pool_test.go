package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
)

func waitForState(t *testing.T, p *Pool, id string, want State) Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := p.Status(id)
		require.True(t, ok)
		if job.State == want {
			return job
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("job %s never reached state %s", id, want)
	return Job{}
}

func TestPool_SubmitRunsJobToCompletion(t *testing.T) {
	p := New(context.Background(), 4, 2)
	defer p.Close()

	id, err := p.Submit(Spec{Func: func(ctx context.Context, report func(Progress)) (any, error) {
		report(Progress{Stage: "working", Percentage: 50})
		return "done", nil
	}})
	require.NoError(t, err)

	job := waitForState(t, p, id, StateCompleted)
	require.Equal(t, "done", job.Result)
	require.Equal(t, 1, job.Attempts)
}

func TestPool_FailedJobRecordsError(t *testing.T) {
	p := New(context.Background(), 4, 2)
	defer p.Close()

	boom := domain.ErrModelUnavailable
	id, err := p.Submit(Spec{Func: func(ctx context.Context, report func(Progress)) (any, error) {
		return nil, boom
	}})
	require.NoError(t, err)

	job := waitForState(t, p, id, StateFailed)
	require.ErrorIs(t, job.Err, boom)
}

func TestPool_SubmitBeyondCapacityReturnsQueueFull(t *testing.T) {
	block := make(chan struct{})
	p := New(context.Background(), 1, 1)
	defer func() {
		close(block)
		p.Close()
	}()

	_, err := p.Submit(Spec{Func: func(ctx context.Context, report func(Progress)) (any, error) {
		<-block
		return nil, nil
	}})
	require.NoError(t, err)

	// Give the single worker time to pick up the first job so the queue's
	// buffered slot is free, then fill it and overflow past capacity.
	time.Sleep(20 * time.Millisecond)
	_, err = p.Submit(Spec{Func: func(ctx context.Context, report func(Progress)) (any, error) { return nil, nil }})
	require.NoError(t, err)

	_, err = p.Submit(Spec{Func: func(ctx context.Context, report func(Progress)) (any, error) { return nil, nil }})
	require.ErrorIs(t, err, domain.ErrQueueFull)
}

func TestPool_CancelWaitingJobPreventsExecution(t *testing.T) {
	p := New(context.Background(), 4, 0) // zero workers: nothing dequeues
	defer p.Close()

	ran := false
	id, err := p.Submit(Spec{Func: func(ctx context.Context, report func(Progress)) (any, error) {
		ran = true
		return nil, nil
	}})
	require.NoError(t, err)

	ok := p.Cancel(id)
	require.True(t, ok)

	job, found := p.Status(id)
	require.True(t, found)
	require.Equal(t, StateCancelled, job.State)
	require.False(t, ran)
}

func TestPool_CancelCompletedJobReturnsFalse(t *testing.T) {
	p := New(context.Background(), 4, 1)
	defer p.Close()

	id, err := p.Submit(Spec{Func: func(ctx context.Context, report func(Progress)) (any, error) {
		return "ok", nil
	}})
	require.NoError(t, err)
	waitForState(t, p, id, StateCompleted)

	require.False(t, p.Cancel(id))
}

func TestPool_CancelActiveJobPropagatesContextCancellation(t *testing.T) {
	p := New(context.Background(), 4, 1)
	defer p.Close()

	started := make(chan struct{})
	cancelled := make(chan error, 1)
	id, err := p.Submit(Spec{Func: func(ctx context.Context, report func(Progress)) (any, error) {
		close(started)
		<-ctx.Done()
		cancelled <- ctx.Err()
		return nil, ctx.Err()
	}})
	require.NoError(t, err)

	<-started
	require.True(t, p.Cancel(id))

	select {
	case err := <-cancelled:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not observe cancellation")
	}

	job, _ := p.Status(id)
	require.Equal(t, StateCancelled, job.State)
}

func TestPool_RetryOnlyValidForFailedJob(t *testing.T) {
	p := New(context.Background(), 4, 1)
	defer p.Close()

	spec := Spec{Func: func(ctx context.Context, report func(Progress)) (any, error) {
		return nil, domain.ErrAITimeout
	}}
	id, err := p.Submit(spec)
	require.NoError(t, err)
	waitForState(t, p, id, StateFailed)

	// The retried job blocks until the test returns, so it is still
	// waiting or active when Retry is called on it below.
	gate := make(chan struct{})
	defer close(gate)
	blocking := Spec{Func: func(ctx context.Context, report func(Progress)) (any, error) {
		<-gate
		return nil, nil
	}}
	newID, err := p.Retry(id, blocking)
	require.NoError(t, err)
	require.NotEqual(t, id, newID)

	_, err = p.Retry(newID, spec)
	require.Error(t, err, "retry is not valid while the retried job is still waiting/active")
}

func TestPool_RetryOnUnknownJobIDFails(t *testing.T) {
	p := New(context.Background(), 4, 1)
	defer p.Close()

	_, err := p.Retry("does-not-exist", Spec{Func: func(context.Context, func(Progress)) (any, error) { return nil, nil }})
	require.Error(t, err)
}

func TestPool_ProgressReportedDuringExecution(t *testing.T) {
	p := New(context.Background(), 4, 1)
	defer p.Close()

	gate := make(chan struct{})
	id, err := p.Submit(Spec{Func: func(ctx context.Context, report func(Progress)) (any, error) {
		report(Progress{Stage: "chunking", Percentage: 10})
		<-gate
		return "done", nil
	}})
	require.NoError(t, err)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		job, _ := p.Status(id)
		if job.Progress.Stage == "chunking" {
			break
		}
		time.Sleep(time.Millisecond)
	}
	job, _ := p.Status(id)
	require.Equal(t, "chunking", job.Progress.Stage)
	close(gate)
	waitForState(t, p, id, StateCompleted)
}

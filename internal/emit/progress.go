package emit

import "context"

// ProgressReporter delivers Progress updates to a single slow consumer
// without ever blocking the producer: if the consumer hasn't drained the
// previous update, a new update overwrites it rather than queuing
// (latest-value-wins). Safe to call Report from multiple goroutines.
type ProgressReporter struct {
	ch chan Progress
}

// NewProgressReporter creates a reporter with a capacity-1 channel. ctx
// cancellation unblocks any pending Report/drain so a cancelled job never
// leaks the reporter's internal goroutine-free state.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{ch: make(chan Progress, 1)}
}

// Report publishes p, replacing any unread pending value. It never blocks.
func (r *ProgressReporter) Report(ctx context.Context, p Progress) {
	for {
		select {
		case r.ch <- p:
			return
		case <-ctx.Done():
			return
		default:
			// Buffer full: drop the stale value and try again, latest wins.
			select {
			case <-r.ch:
			default:
			}
		}
	}
}

// Updates exposes the read side for a consumer goroutine (e.g. a Job API
// status poller) to drain.
func (r *ProgressReporter) Updates() <-chan Progress { return r.ch }

// Subscribe drives fn with every update until ctx is cancelled. Intended
// for callers (tests, the Job API) that want a simple callback instead of
// reading the channel directly.
func Subscribe(ctx context.Context, r *ProgressReporter, fn ProgressFunc) {
	go func() {
		for {
			select {
			case p := <-r.ch:
				fn(p)
			case <-ctx.Done():
				return
			}
		}
	}()
}

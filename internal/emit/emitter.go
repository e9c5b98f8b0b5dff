package emit

import "context"

// Emitter receives observability events. Implementations must not block the
// orchestrator or pipeline and must not panic; Emit is best-effort.
type Emitter interface {
	Emit(event Event)
	Flush(ctx context.Context) error
}

// ProgressFunc receives pipeline progress updates. Implementations must not
// block: ProgressReporter (below) guarantees this by dropping intermediate
// updates rather than blocking the producer.
type ProgressFunc func(Progress)

package emit

import (
	"context"
	"log/slog"
)

// LogEmitter emits events as structured slog records. It is the default
// Emitter for processes that don't wire a tracing backend.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter wraps logger, or slog.Default() if logger is nil.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger}
}

func (e *LogEmitter) Emit(event Event) {
	attrs := make([]any, 0, 4+2*len(event.Meta))
	attrs = append(attrs, "run_id", event.RunID, "node_id", event.NodeID)
	for k, v := range event.Meta {
		attrs = append(attrs, k, v)
	}
	e.logger.Info(event.Msg, attrs...)
}

func (e *LogEmitter) Flush(ctx context.Context) error { return nil }

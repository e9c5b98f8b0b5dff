package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by recording each event as an
// instant OpenTelemetry span: name is event.Msg, attributes are run_id,
// node_id and every Meta field, status is Error if Meta["error"] is set.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter wraps a tracer obtained from otel.Tracer("graphex-aicore").
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	defer span.End()

	span.SetAttributes(
		attribute.String("run_id", event.RunID),
		attribute.String("node_id", event.NodeID),
	)
	for k, v := range event.Meta {
		span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", v)))
	}
	if errMsg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(fmt.Errorf("%s", errMsg))
	}
}

func (o *OTelEmitter) Flush(ctx context.Context) error { return nil }

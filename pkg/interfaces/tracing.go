package interfaces

import "context"

// Tracer starts spans around model calls and function dispatch
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span represents a tracing span
type Span interface {
	End()
	AddEvent(name string, attributes map[string]interface{})
	SetAttribute(key string, value interface{})
	RecordError(err error)
}

package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/tagus/gemini-agent/pkg/interfaces"
	"github.com/tagus/gemini-agent/pkg/logging"
)

// Dispatcher invokes registered tools on behalf of the model. Every outcome,
// including unknown names, tool errors and panics, comes back as a
// FunctionResponse.
type Dispatcher struct {
	registry  *Registry
	workspace interfaces.Workspace
	logger    logging.Logger
	tracer    interfaces.Tracer
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger
func WithLogger(logger logging.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithTracer wraps every dispatch in a span
func WithTracer(tracer interfaces.Tracer) DispatcherOption {
	return func(d *Dispatcher) {
		d.tracer = tracer
	}
}

// NewDispatcher creates a dispatcher bound to ws
func NewDispatcher(registry *Registry, ws interfaces.Workspace, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry:  registry,
		workspace: ws,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = NewRegistry()
	}
	if d.logger == nil {
		d.logger = logging.New()
	}
	return d
}

// Registry returns the registry the dispatcher looks tools up in
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Declarations returns the function schemas sent to the model
func (d *Dispatcher) Declarations() []interfaces.FunctionDeclaration {
	return d.registry.Declarations()
}

// Dispatch runs call and always returns a response
func (d *Dispatcher) Dispatch(ctx context.Context, call interfaces.FunctionCall) (resp interfaces.FunctionResponse) {
	if d.tracer != nil {
		var span interfaces.Span
		ctx, span = d.tracer.StartSpan(ctx, "tool.execute")
		span.SetAttribute("tool.name", call.Name)
		defer func() {
			span.SetAttribute("tool.error", resp.IsError())
			span.End()
		}()
	}

	tool, ok := d.registry.Get(call.Name)
	if !ok {
		d.logger.Warn(ctx, "Unknown function requested", map[string]interface{}{
			"function": call.Name,
		})
		return interfaces.NewFunctionError(call, fmt.Sprintf("Unknown function: %s", call.Name))
	}

	if d.workspace == nil {
		return interfaces.NewFunctionError(call, "Error: no working directory configured")
	}

	start := time.Now()
	result, err := d.execute(ctx, tool, call)
	fields := map[string]interface{}{
		"function":    call.Name,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		d.logger.Debug(ctx, "Function call failed", fields)
		return interfaces.NewFunctionError(call, fmt.Sprintf("Error: %v", err))
	}

	fields["result_length"] = len(result)
	d.logger.Debug(ctx, "Function call completed", fields)
	return interfaces.NewFunctionResult(call, result)
}

func (d *Dispatcher) execute(ctx context.Context, tool interfaces.Tool, call interfaces.FunctionCall) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("function %s panicked: %v", call.Name, r)
		}
	}()

	args := call.Args
	if args == nil {
		args = map[string]interface{}{}
	}
	return tool.Execute(ctx, d.workspace, args)
}

package tracing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/tagus/gemini-agent/pkg/interfaces"
)

// TracedModel wraps a model and records one span per request
type TracedModel struct {
	model  interfaces.Model
	tracer interfaces.Tracer
}

// NewTracedModel creates a model middleware with tracing
func NewTracedModel(model interfaces.Model, tracer interfaces.Tracer) interfaces.Model {
	return &TracedModel{
		model:  model,
		tracer: tracer,
	}
}

// Name implements interfaces.Model.Name
func (m *TracedModel) Name() string {
	return m.model.Name()
}

// GetModel implements interfaces.Model.GetModel
func (m *TracedModel) GetModel() string {
	return m.model.GetModel()
}

// Generate implements interfaces.Model.Generate
func (m *TracedModel) Generate(ctx context.Context, req *interfaces.ModelRequest) (*interfaces.ModelResponse, error) {
	startTime := time.Now()

	ctx, span := m.tracer.StartSpan(ctx, "llm.generate")
	defer span.End()

	model := m.model.GetModel()
	if model == "" {
		model = m.model.Name()
	}
	span.SetAttribute("model", model)
	span.SetAttribute("provider", m.model.Name())
	if req != nil {
		span.SetAttribute("messages.count", len(req.Messages))
		span.SetAttribute("functions.count", len(req.Functions))
		if len(req.Messages) > 0 {
			last := req.Messages[len(req.Messages)-1]
			span.SetAttribute("last_message.role", string(last.Role))
			span.SetAttribute("last_message.hash", hashString(last.Content))
		}
	}

	resp, err := m.model.Generate(ctx, req)
	span.SetAttribute("duration_ms", time.Since(startTime).Milliseconds())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttribute("response.length", len(resp.Text))
	span.SetAttribute("response.function_calls", len(resp.FunctionCalls))
	for _, call := range resp.FunctionCalls {
		span.AddEvent("function_call", map[string]interface{}{"name": call.Name})
	}
	if resp.Usage != nil {
		span.SetAttribute("tokens.input", resp.Usage.InputTokens)
		span.SetAttribute("tokens.output", resp.Usage.OutputTokens)
	}
	return resp, nil
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

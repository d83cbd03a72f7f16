package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagus/gemini-agent/pkg/interfaces"
	"github.com/tagus/gemini-agent/pkg/logging"
	"github.com/tagus/gemini-agent/pkg/tools"
	"github.com/tagus/gemini-agent/pkg/tools/builtin"
	"github.com/tagus/gemini-agent/pkg/workspace"
)

// scriptedModel replays responses in order and repeats the last one
type scriptedModel struct {
	responses []*interfaces.ModelResponse
	err       error
	requests  []*interfaces.ModelRequest
}

func (m *scriptedModel) Name() string     { return "scripted" }
func (m *scriptedModel) GetModel() string { return "scripted-1" }

func (m *scriptedModel) Generate(ctx context.Context, req *interfaces.ModelRequest) (*interfaces.ModelResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	idx := len(m.requests) - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

func textResponse(text string) *interfaces.ModelResponse {
	return &interfaces.ModelResponse{Text: text, Usage: &interfaces.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}
}

func callResponse(calls ...interfaces.FunctionCall) *interfaces.ModelResponse {
	return &interfaces.ModelResponse{FunctionCalls: calls, Usage: &interfaces.TokenUsage{InputTokens: 7, OutputTokens: 1, TotalTokens: 8}}
}

func newTestDispatcher(t *testing.T) (*tools.Dispatcher, *workspace.Workspace) {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)
	registry := tools.NewRegistry(builtin.Defaults(builtin.Options{})...)
	return tools.NewDispatcher(registry, ws, tools.WithLogger(logging.NewNop())), ws
}

func newTestAgent(t *testing.T, model interfaces.Model, opts ...Option) (*Agent, *workspace.Workspace) {
	t.Helper()
	dispatcher, ws := newTestDispatcher(t)
	opts = append([]Option{
		WithModel(model),
		WithDispatcher(dispatcher),
		WithLogger(logging.NewNop()),
	}, opts...)
	agent, err := NewAgent(opts...)
	require.NoError(t, err)
	return agent, ws
}

func TestNewAgentValidation(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t)
	model := &scriptedModel{responses: []*interfaces.ModelResponse{textResponse("hi")}}

	tests := []struct {
		name    string
		opts    []Option
		wantErr string
	}{
		{name: "missing model", opts: []Option{WithDispatcher(dispatcher)}, wantErr: "model is required"},
		{name: "missing dispatcher", opts: []Option{WithModel(model)}, wantErr: "dispatcher is required"},
		{name: "zero turns", opts: []Option{WithModel(model), WithDispatcher(dispatcher), WithMaxTurns(0)}, wantErr: "max turns"},
		{name: "valid", opts: []Option{WithModel(model), WithDispatcher(dispatcher)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append(tt.opts, WithLogger(logging.NewNop()))
			agent, err := NewAgent(opts...)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, agent.SystemPrompt(), "- read_file:")
			assert.Contains(t, agent.SystemPrompt(), "- run_script:")
		})
	}
}

func TestRunFinalAnswer(t *testing.T) {
	model := &scriptedModel{responses: []*interfaces.ModelResponse{textResponse("Hello there.")}}
	temp := 0.3
	agent, _ := newTestAgent(t, model, WithSystemPrompt("custom"), WithTemperature(temp))

	result, err := agent.Run(context.Background(), "say hi")
	require.NoError(t, err)

	assert.True(t, result.Completed)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, "Hello there.", result.Response)
	assert.Equal(t, 1, result.Turns)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "scripted-1", result.Model)
	assert.Equal(t, 15, result.Usage.TotalTokens)
	assert.Equal(t, 1, result.Summary.LLMCalls)

	require.Len(t, model.requests, 1)
	req := model.requests[0]
	assert.Equal(t, "custom", req.SystemInstruction)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.3, *req.Temperature)
	assert.Len(t, req.Functions, 4)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, interfaces.MessageRoleUser, req.Messages[0].Role)

	require.Len(t, result.Messages, 2)
	assert.Equal(t, interfaces.MessageRoleModel, result.Messages[1].Role)
}

func TestRunDispatchesFunctionCalls(t *testing.T) {
	model := &scriptedModel{responses: []*interfaces.ModelResponse{
		callResponse(
			interfaces.FunctionCall{ID: "1", Name: "write_file", Args: map[string]interface{}{"file_path": "notes/a.txt", "content": "hi"}},
			interfaces.FunctionCall{ID: "2", Name: "read_file", Args: map[string]interface{}{"file_path": "../escape.txt"}},
		),
		callResponse(interfaces.FunctionCall{ID: "3", Name: "no_such_function"}),
		textResponse("Wrote the file."),
	}}
	agent, ws := newTestAgent(t, model)

	result, err := agent.Run(context.Background(), "write a note")
	require.NoError(t, err)
	assert.Equal(t, "Wrote the file.", result.Response)
	assert.Equal(t, 3, result.Turns)

	data, err := os.ReadFile(filepath.Join(ws.Root(), "notes", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))

	// user, model(calls), function, model(calls), function, model(text)
	msgs := result.Messages
	require.Len(t, msgs, 6)
	roles := make([]interfaces.MessageRole, len(msgs))
	for i, m := range msgs {
		roles[i] = m.Role
	}
	assert.Equal(t, []interfaces.MessageRole{
		interfaces.MessageRoleUser,
		interfaces.MessageRoleModel,
		interfaces.MessageRoleFunction,
		interfaces.MessageRoleModel,
		interfaces.MessageRoleFunction,
		interfaces.MessageRoleModel,
	}, roles)

	first := msgs[2].FunctionResponses
	require.Len(t, first, 2)
	assert.False(t, first[0].IsError())
	assert.Equal(t, "1", first[0].ID)
	assert.True(t, first[1].IsError())
	assert.Contains(t, first[1].Text(), "outside the permitted working directory")

	unknown := msgs[4].FunctionResponses
	require.Len(t, unknown, 1)
	assert.True(t, unknown[0].IsError())
	assert.Equal(t, "Unknown function: no_such_function", unknown[0].Text())

	assert.Equal(t, 3, result.Summary.FunctionCalls)
	assert.Equal(t, 2, result.Summary.FunctionErrors)
	assert.ElementsMatch(t, []string{"write_file", "read_file", "no_such_function"}, result.Summary.UsedTools)
	assert.Equal(t, 3, result.Summary.LLMCalls)
	assert.Equal(t, 8+8+15, result.Usage.TotalTokens)

	// each request carries the full history so far
	require.Len(t, model.requests, 3)
	assert.Len(t, model.requests[0].Messages, 1)
	assert.Len(t, model.requests[1].Messages, 3)
	assert.Len(t, model.requests[2].Messages, 5)
}

func TestRunStopsAtMaxTurns(t *testing.T) {
	model := &scriptedModel{responses: []*interfaces.ModelResponse{
		callResponse(interfaces.FunctionCall{Name: "list_files"}),
	}}
	agent, _ := newTestAgent(t, model, WithMaxTurns(4))

	result, err := agent.Run(context.Background(), "loop forever")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoFinalAnswer))
	require.NotNil(t, result)
	assert.False(t, result.Completed)
	assert.Equal(t, StateAwaitingModel, result.State)
	assert.Equal(t, 4, result.Turns)
	assert.Empty(t, result.Response)
	assert.Len(t, model.requests, 4)
	assert.Equal(t, 4, result.Summary.FunctionCalls)
}

func TestRunFunctionCallsTakePrecedenceOverText(t *testing.T) {
	mixed := callResponse(interfaces.FunctionCall{Name: "list_files"})
	mixed.Text = "Let me look."
	model := &scriptedModel{responses: []*interfaces.ModelResponse{mixed, textResponse("Done.")}}
	agent, _ := newTestAgent(t, model)

	result, err := agent.Run(context.Background(), "look")
	require.NoError(t, err)
	assert.Equal(t, "Done.", result.Response)
	assert.Equal(t, 2, result.Turns)
	assert.Equal(t, "Let me look.", result.Messages[1].Content)
	assert.Len(t, result.Messages[1].FunctionCalls, 1)
}

func TestRunEmptyResponseConsumesTurn(t *testing.T) {
	model := &scriptedModel{responses: []*interfaces.ModelResponse{
		{Text: "  "},
		textResponse("Finally."),
	}}
	agent, _ := newTestAgent(t, model)

	result, err := agent.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Finally.", result.Response)
	assert.Equal(t, 2, result.Turns)
	// the empty turn is not recorded
	assert.Len(t, result.Messages, 2)
	assert.Len(t, model.requests[1].Messages, 1)
}

func TestRunModelErrorIsNotRetried(t *testing.T) {
	apiErr := errors.New("503 service unavailable")
	model := &scriptedModel{err: apiErr}
	agent, _ := newTestAgent(t, model)

	result, err := agent.Run(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, apiErr)
	assert.False(t, errors.Is(err, ErrNoFinalAnswer))
	assert.Contains(t, err.Error(), "turn 1")
	assert.Len(t, model.requests, 1)
	require.NotNil(t, result)
	assert.False(t, result.Completed)
}

func TestRunRejectsEmptyPrompt(t *testing.T) {
	model := &scriptedModel{responses: []*interfaces.ModelResponse{textResponse("x")}}
	agent, _ := newTestAgent(t, model)

	_, err := agent.Run(context.Background(), "   ")
	assert.Error(t, err)
	assert.Empty(t, model.requests)
}

func TestRunEmitsEvents(t *testing.T) {
	model := &scriptedModel{responses: []*interfaces.ModelResponse{
		callResponse(interfaces.FunctionCall{Name: "list_files"}),
		textResponse("ok"),
	}}
	var events []interfaces.AgentEvent
	agent, _ := newTestAgent(t, model, WithEventHandler(func(e interfaces.AgentEvent) {
		events = append(events, e)
	}))

	_, err := agent.Run(context.Background(), "list")
	require.NoError(t, err)

	types := make([]interfaces.AgentEventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	assert.Equal(t, []interfaces.AgentEventType{
		interfaces.AgentEventPrompt,
		interfaces.AgentEventModelResponse,
		interfaces.AgentEventFunctionCall,
		interfaces.AgentEventFunctionResponse,
		interfaces.AgentEventModelResponse,
		interfaces.AgentEventFinal,
	}, types)

	assert.Equal(t, "list", events[0].Content)
	require.NotNil(t, events[1].Usage)
	assert.Equal(t, 7, events[1].Usage.InputTokens)
	assert.Equal(t, "list_files", events[3].Call.Name)
	assert.False(t, events[3].Response.IsError())
}

type countingTracer struct{ names []string }

type nopSpan struct{}

func (nopSpan) End()                                    {}
func (nopSpan) AddEvent(string, map[string]interface{}) {}
func (nopSpan) SetAttribute(string, interface{})        {}
func (nopSpan) RecordError(error)                       {}

func (c *countingTracer) StartSpan(ctx context.Context, name string) (context.Context, interfaces.Span) {
	c.names = append(c.names, name)
	return ctx, nopSpan{}
}

func TestRunTracing(t *testing.T) {
	tracer := &countingTracer{}
	model := &scriptedModel{responses: []*interfaces.ModelResponse{textResponse("ok")}}
	agent, _ := newTestAgent(t, model, WithTracer(tracer))

	_, err := agent.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, []string{"agent.run"}, tracer.names)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "AWAITING_MODEL", StateAwaitingModel.String())
	assert.Equal(t, "DONE", StateDone.String())
	assert.Equal(t, "State(7)", State(7).String())
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt([]interfaces.FunctionDeclaration{{Name: "read_file", Description: "Reads a file."}})
	assert.Contains(t, prompt, "- read_file: Reads a file.")
	assert.Contains(t, prompt, "relative to the working directory")
}

// Package agent drives the conversation between the model and the local
// functions until the model produces a final answer or the turn budget runs
// out.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tagus/gemini-agent/pkg/interfaces"
	"github.com/tagus/gemini-agent/pkg/logging"
	"github.com/tagus/gemini-agent/pkg/memory"
	"github.com/tagus/gemini-agent/pkg/tools"
)

// DefaultMaxTurns bounds the number of model requests per run
const DefaultMaxTurns = 20

// ErrNoFinalAnswer is returned when the turn budget is exhausted before the
// model answers in plain text.
var ErrNoFinalAnswer = errors.New("no final answer")

// State is the state of the conversation loop
type State int

const (
	StateAwaitingModel State = iota
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "AWAITING_MODEL"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result describes a finished or abandoned run
type Result struct {
	RunID     string
	Response  string
	Completed bool
	State     State
	Turns     int
	Messages  []interfaces.Message
	Usage     interfaces.TokenUsage
	Summary   interfaces.ExecutionSummary
	Model     string
	Duration  time.Duration
}

// Agent represents an AI agent
type Agent struct {
	model        interfaces.Model
	dispatcher   *tools.Dispatcher
	logger       logging.Logger
	tracer       interfaces.Tracer
	systemPrompt string
	maxTurns     int
	temperature  *float64
	onEvent      interfaces.AgentEventHandler
}

// Option represents an option for configuring an agent
type Option func(*Agent)

// WithModel sets the model the agent talks to
func WithModel(model interfaces.Model) Option {
	return func(a *Agent) {
		a.model = model
	}
}

// WithDispatcher sets the dispatcher that runs function calls
func WithDispatcher(dispatcher *tools.Dispatcher) Option {
	return func(a *Agent) {
		a.dispatcher = dispatcher
	}
}

// WithLogger sets the logger for the agent
func WithLogger(logger logging.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithTracer sets the tracer for the agent
func WithTracer(tracer interfaces.Tracer) Option {
	return func(a *Agent) {
		a.tracer = tracer
	}
}

// WithSystemPrompt overrides the generated system prompt
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		a.systemPrompt = prompt
	}
}

// WithMaxTurns sets the maximum number of model requests per run
func WithMaxTurns(maxTurns int) Option {
	return func(a *Agent) {
		a.maxTurns = maxTurns
	}
}

// WithTemperature sets the sampling temperature
func WithTemperature(temperature float64) Option {
	return func(a *Agent) {
		a.temperature = &temperature
	}
}

// WithEventHandler receives every intermediate step of a run
func WithEventHandler(handler interfaces.AgentEventHandler) Option {
	return func(a *Agent) {
		a.onEvent = handler
	}
}

// NewAgent creates a new agent with the given options
func NewAgent(options ...Option) (*Agent, error) {
	agent := &Agent{
		maxTurns: DefaultMaxTurns,
	}

	for _, option := range options {
		option(agent)
	}

	if agent.logger == nil {
		agent.logger = logging.New()
	}
	if agent.model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if agent.dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if agent.maxTurns < 1 {
		return nil, fmt.Errorf("max turns must be at least 1, got %d", agent.maxTurns)
	}
	if agent.systemPrompt == "" {
		agent.systemPrompt = BuildSystemPrompt(agent.dispatcher.Declarations())
	}

	return agent, nil
}

// SystemPrompt returns the system instruction sent with every request
func (a *Agent) SystemPrompt() string {
	return a.systemPrompt
}

// Run sends prompt to the model and keeps dispatching function calls until
// the model answers in plain text. When the turn budget runs out the partial
// result is returned together with ErrNoFinalAnswer. Model errors are not
// retried.
func (a *Agent) Run(ctx context.Context, prompt string) (*Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt must not be empty")
	}

	start := time.Now()
	result := &Result{
		RunID: uuid.NewString(),
		State: StateAwaitingModel,
	}
	ctx = logging.WithRunID(ctx, result.RunID)

	if a.tracer != nil {
		var span interfaces.Span
		ctx, span = a.tracer.StartSpan(ctx, "agent.run")
		defer func() {
			span.SetAttribute("turns", result.Turns)
			span.SetAttribute("completed", result.Completed)
			span.End()
		}()
	}

	tracker := newUsageTracker()
	conv := memory.NewConversation()
	defer func() {
		tracker.setExecutionTime(time.Since(start).Milliseconds())
		result.Usage, result.Summary, result.Model = tracker.snapshot()
		if result.Model == "" {
			result.Model = a.model.GetModel()
		}
		result.Messages = conv.Messages()
		result.Duration = time.Since(start)
	}()

	if err := conv.AddMessage(interfaces.Message{Role: interfaces.MessageRoleUser, Content: prompt}); err != nil {
		return result, err
	}
	a.emit(interfaces.AgentEvent{Type: interfaces.AgentEventPrompt, Content: prompt})

	a.logger.Info(ctx, "Starting agent run", map[string]interface{}{
		"model":     a.model.GetModel(),
		"max_turns": a.maxTurns,
	})

	declarations := a.dispatcher.Declarations()
	for turn := 1; turn <= a.maxTurns && result.State == StateAwaitingModel; turn++ {
		result.Turns = turn

		resp, err := a.model.Generate(ctx, &interfaces.ModelRequest{
			SystemInstruction: a.systemPrompt,
			Messages:          conv.Messages(),
			Functions:         declarations,
			Temperature:       a.temperature,
		})
		if err != nil {
			a.logger.Error(ctx, "Model request failed", map[string]interface{}{
				"turn":  turn,
				"error": err.Error(),
			})
			return result, fmt.Errorf("turn %d: %w", turn, err)
		}
		tracker.addLLMUsage(resp.Usage, resp.Model)
		a.emit(interfaces.AgentEvent{Type: interfaces.AgentEventModelResponse, Turn: turn, Content: resp.Text, Usage: resp.Usage})

		// Function calls take precedence over any text in the same turn
		if resp.HasFunctionCalls() {
			if err := a.handleFunctionCalls(ctx, turn, conv, tracker, resp); err != nil {
				return result, err
			}
			continue
		}

		if strings.TrimSpace(resp.Text) == "" {
			a.logger.Warn(ctx, "Model returned neither text nor function calls", map[string]interface{}{
				"turn": turn,
			})
			continue
		}

		if err := conv.AddMessage(interfaces.Message{Role: interfaces.MessageRoleModel, Content: resp.Text}); err != nil {
			return result, err
		}
		result.Response = resp.Text
		result.Completed = true
		result.State = StateDone
		a.emit(interfaces.AgentEvent{Type: interfaces.AgentEventFinal, Turn: turn, Content: resp.Text})
	}

	if result.State != StateDone {
		a.logger.Warn(ctx, "Reached maximum turns without a final answer", map[string]interface{}{
			"max_turns": a.maxTurns,
		})
		return result, fmt.Errorf("%w after %d turns", ErrNoFinalAnswer, a.maxTurns)
	}

	a.logger.Info(ctx, "Agent run completed", map[string]interface{}{
		"turns": result.Turns,
	})
	return result, nil
}

func (a *Agent) handleFunctionCalls(ctx context.Context, turn int, conv *memory.Conversation, tracker *usageTracker, resp *interfaces.ModelResponse) error {
	if err := conv.AddMessage(interfaces.Message{
		Role:          interfaces.MessageRoleModel,
		Content:       resp.Text,
		FunctionCalls: resp.FunctionCalls,
	}); err != nil {
		return err
	}

	a.logger.Info(ctx, "Processing function calls", map[string]interface{}{
		"turn":  turn,
		"count": len(resp.FunctionCalls),
	})

	responses := make([]interfaces.FunctionResponse, 0, len(resp.FunctionCalls))
	for i := range resp.FunctionCalls {
		call := resp.FunctionCalls[i]
		a.emit(interfaces.AgentEvent{Type: interfaces.AgentEventFunctionCall, Turn: turn, Call: &call})

		fr := a.dispatcher.Dispatch(ctx, call)
		tracker.addFunctionCall(call.Name, fr.IsError())
		a.emit(interfaces.AgentEvent{Type: interfaces.AgentEventFunctionResponse, Turn: turn, Call: &call, Response: &fr})

		responses = append(responses, fr)
	}

	return conv.AddMessage(interfaces.Message{
		Role:              interfaces.MessageRoleFunction,
		FunctionResponses: responses,
	})
}

func (a *Agent) emit(event interfaces.AgentEvent) {
	if a.onEvent != nil {
		a.onEvent(event)
	}
}

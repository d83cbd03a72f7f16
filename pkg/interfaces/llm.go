package interfaces

import "context"

// Model is a hosted LLM that supports function calling
type Model interface {
	// Name returns the provider name
	Name() string

	// GetModel returns the model identifier requests are sent to
	GetModel() string

	// Generate sends one request and returns the model's turn
	Generate(ctx context.Context, req *ModelRequest) (*ModelResponse, error)
}

// ModelRequest is the full state sent to the model on each turn
type ModelRequest struct {
	SystemInstruction string
	Messages          []Message
	Functions         []FunctionDeclaration
	Temperature       *float64
}

// ModelResponse is one model turn.
// A non-empty FunctionCalls takes precedence over Text.
type ModelResponse struct {
	Text          string
	FunctionCalls []FunctionCall
	Usage         *TokenUsage
	Model         string
}

// HasFunctionCalls reports whether the model asked for local functions
func (r *ModelResponse) HasFunctionCalls() bool {
	return r != nil && len(r.FunctionCalls) > 0
}

// TokenUsage represents token usage information
type TokenUsage struct {
	InputTokens  int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens"`
	TotalTokens  int `json:"total_tokens" yaml:"total_tokens"`
}

// ExecutionSummary aggregates what happened during one agent run
type ExecutionSummary struct {
	LLMCalls        int      `json:"llm_calls" yaml:"llm_calls"`
	FunctionCalls   int      `json:"function_calls" yaml:"function_calls"`
	FunctionErrors  int      `json:"function_errors" yaml:"function_errors"`
	UsedTools       []string `json:"used_tools" yaml:"used_tools"`
	ExecutionTimeMs int64    `json:"execution_time_ms" yaml:"execution_time_ms"`
}

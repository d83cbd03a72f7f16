package interfaces

// AgentEventType identifies a step of an agent run
type AgentEventType string

const (
	AgentEventPrompt           AgentEventType = "prompt"
	AgentEventModelResponse    AgentEventType = "model_response"
	AgentEventFunctionCall     AgentEventType = "function_call"
	AgentEventFunctionResponse AgentEventType = "function_response"
	AgentEventFinal            AgentEventType = "final"
)

// AgentEvent is emitted for each intermediate step of a run
type AgentEvent struct {
	Type     AgentEventType
	Turn     int
	Content  string
	Call     *FunctionCall
	Response *FunctionResponse
	Usage    *TokenUsage
}

// AgentEventHandler receives agent events synchronously
type AgentEventHandler func(event AgentEvent)

package interfaces

// MessageRole represents the role of a message in a conversation
type MessageRole string

const (
	// MessageRoleUser carries the user's prompt
	MessageRoleUser MessageRole = "user"
	// MessageRoleModel carries text or function calls produced by the model
	MessageRoleModel MessageRole = "model"
	// MessageRoleFunction carries the results of dispatched function calls
	MessageRoleFunction MessageRole = "function"
)

// Message represents one entry of the conversation history
type Message struct {
	Role              MessageRole        `json:"role" yaml:"role"`
	Content           string             `json:"content,omitempty" yaml:"content,omitempty"`
	FunctionCalls     []FunctionCall     `json:"function_calls,omitempty" yaml:"function_calls,omitempty"`
	FunctionResponses []FunctionResponse `json:"function_responses,omitempty" yaml:"function_responses,omitempty"`
}

// FunctionCall is a model-issued request to invoke a local function
type FunctionCall struct {
	// ID is the provider-assigned call identifier. Gemini may leave it empty.
	ID   string                 `json:"id,omitempty" yaml:"id,omitempty"`
	Name string                 `json:"name" yaml:"name"`
	Args map[string]interface{} `json:"args,omitempty" yaml:"args,omitempty"`
}

// FunctionResponse is the outcome of a dispatched function call.
// Response holds either a "result" or an "error" key.
type FunctionResponse struct {
	ID       string                 `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string                 `json:"name" yaml:"name"`
	Response map[string]interface{} `json:"response" yaml:"response"`
}

const (
	responseResultKey = "result"
	responseErrorKey  = "error"
)

// NewFunctionResult builds a success response for call
func NewFunctionResult(call FunctionCall, result string) FunctionResponse {
	return FunctionResponse{
		ID:       call.ID,
		Name:     call.Name,
		Response: map[string]interface{}{responseResultKey: result},
	}
}

// NewFunctionError builds an error-shaped response for call
func NewFunctionError(call FunctionCall, msg string) FunctionResponse {
	return FunctionResponse{
		ID:       call.ID,
		Name:     call.Name,
		Response: map[string]interface{}{responseErrorKey: msg},
	}
}

// IsError reports whether the response carries an error
func (r FunctionResponse) IsError() bool {
	_, ok := r.Response[responseErrorKey]
	return ok
}

// Text returns the result or error text of the response
func (r FunctionResponse) Text() string {
	if v, ok := r.Response[responseErrorKey]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	if v, ok := r.Response[responseResultKey]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

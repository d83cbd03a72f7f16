// Package openai implements interfaces.Model for OpenAI-compatible chat
// completion APIs.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/tagus/gemini-agent/pkg/interfaces"
	"github.com/tagus/gemini-agent/pkg/logging"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gpt-4o-mini"

type chatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client talks to an OpenAI-compatible chat completions endpoint
type Client struct {
	chat    chatCompleter
	model   string
	baseURL string
	timeout time.Duration
	logger  logging.Logger
}

// Option configures a Client
type Option func(*Client)

// WithModel sets the model name
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithBaseURL points the client at a compatible server
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout bounds each HTTP request to the API
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient creates a client authenticated with apiKey. The SDK's own
// retries are disabled; a failed request ends the run.
func NewClient(apiKey string, options ...Option) *Client {
	c := &Client{
		model: DefaultModel,
	}
	for _, option := range options {
		option(c)
	}
	if c.logger == nil {
		c.logger = logging.New()
	}

	requestOptions := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if c.baseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(c.baseURL))
	}
	if c.timeout > 0 {
		requestOptions = append(requestOptions, option.WithRequestTimeout(c.timeout))
	}
	client := openai.NewClient(requestOptions...)
	c.chat = &client.Chat.Completions

	return c
}

// Name implements interfaces.Model.Name
func (c *Client) Name() string {
	return "openai"
}

// GetModel implements interfaces.Model.GetModel
func (c *Client) GetModel() string {
	return c.model
}

// Generate implements interfaces.Model.Generate
func (c *Client) Generate(ctx context.Context, req *interfaces.ModelRequest) (*interfaces.ModelResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("openai: nil request")
	}

	messages, err := newMessageHistoryBuilder(c.logger).buildMessages(ctx, req.SystemInstruction, req.Messages)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
		Tools:    convertTools(req.Functions),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	c.logger.Debug(ctx, "Sending request to OpenAI", map[string]interface{}{
		"model":     c.model,
		"messages":  len(messages),
		"functions": len(req.Functions),
	})

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: chat completion: %w", err)
	}

	out := &interfaces.ModelResponse{Model: c.model}
	if resp.Model != "" {
		out.Model = resp.Model
	}
	if resp.Usage.TotalTokens > 0 || resp.Usage.PromptTokens > 0 {
		out.Usage = &interfaces.TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		}
	}
	if len(resp.Choices) == 0 {
		return out, nil
	}

	msg := resp.Choices[0].Message
	out.Text = msg.Content
	for _, toolCall := range msg.ToolCalls {
		if toolCall.Type != "" && toolCall.Type != "function" {
			continue
		}
		var args map[string]interface{}
		if toolCall.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &args); err != nil {
				c.logger.Warn(ctx, "Failed to parse function arguments", map[string]interface{}{
					"function": toolCall.Function.Name,
					"error":    err.Error(),
				})
			}
		}
		out.FunctionCalls = append(out.FunctionCalls, interfaces.FunctionCall{
			ID:   toolCall.ID,
			Name: toolCall.Function.Name,
			Args: args,
		})
	}

	c.logger.Debug(ctx, "Received response from OpenAI", map[string]interface{}{
		"function_calls": len(out.FunctionCalls),
		"text_length":    len(out.Text),
	})
	return out, nil
}

func convertTools(decls []interfaces.FunctionDeclaration) []openai.ChatCompletionToolUnionParam {
	if len(decls) == 0 {
		return nil
	}
	tools := make([]openai.ChatCompletionToolUnionParam, 0, len(decls))
	for _, decl := range decls {
		properties := make(map[string]interface{}, len(decl.Parameters))
		required := []string{}
		for name, param := range decl.Parameters {
			properties[name] = parameterSchema(param)
			if param.Required {
				required = append(required, name)
			}
		}
		sort.Strings(required)

		tools = append(tools, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        decl.Name,
			Description: openai.String(decl.Description),
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		}))
	}
	return tools
}

func parameterSchema(param interfaces.ParameterSpec) map[string]interface{} {
	schema := map[string]interface{}{
		"type": param.Type,
	}
	if param.Description != "" {
		schema["description"] = param.Description
	}
	if param.Default != nil {
		schema["default"] = param.Default
	}
	if param.Enum != nil {
		schema["enum"] = param.Enum
	}
	if param.Items != nil {
		schema["items"] = parameterSchema(*param.Items)
	}
	return schema
}

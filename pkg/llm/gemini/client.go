// Package gemini implements interfaces.Model on the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/tagus/gemini-agent/pkg/interfaces"
	"github.com/tagus/gemini-agent/pkg/logging"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.0-flash-001"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client talks to the Gemini API
type Client struct {
	generator contentGenerator
	model     string
	baseURL   string
	timeout   time.Duration
	logger    logging.Logger
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

// WithBaseURL points the client at a different API endpoint
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

// NewClient creates a Gemini client authenticated with apiKey
func NewClient(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	c := &Client{
		model: DefaultModel,
	}
	for _, option := range options {
		option(c)
	}
	if c.logger == nil {
		c.logger = logging.New()
	}

	if c.generator == nil {
		if apiKey == "" {
			return nil, fmt.Errorf("gemini: API key is required")
		}
		cfg := &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		}
		if c.baseURL != "" {
			cfg.HTTPOptions.BaseURL = c.baseURL
		}
		if c.timeout > 0 {
			cfg.HTTPOptions.Timeout = &c.timeout
		}
		client, err := genai.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("gemini: failed to create client: %w", err)
		}
		c.generator = client.Models
	}

	return c, nil
}

// Name implements interfaces.Model.Name
func (c *Client) Name() string {
	return "gemini"
}

// GetModel implements interfaces.Model.GetModel
func (c *Client) GetModel() string {
	return c.model
}

// Generate implements interfaces.Model.Generate
func (c *Client) Generate(ctx context.Context, req *interfaces.ModelRequest) (*interfaces.ModelResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("gemini: nil request")
	}

	contents, err := toContents(req.Messages)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		Tools: toTools(req.Functions),
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.SystemInstruction)},
		}
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}

	c.logger.Debug(ctx, "Sending request to Gemini", map[string]interface{}{
		"model":     c.model,
		"messages":  len(contents),
		"functions": len(req.Functions),
	})

	resp, err := c.generator.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}

	out := c.fromResponse(ctx, resp)
	c.logger.Debug(ctx, "Received response from Gemini", map[string]interface{}{
		"function_calls": len(out.FunctionCalls),
		"text_length":    len(out.Text),
	})
	return out, nil
}

func (c *Client) fromResponse(ctx context.Context, resp *genai.GenerateContentResponse) *interfaces.ModelResponse {
	out := &interfaces.ModelResponse{Model: c.model}
	if resp == nil {
		return out
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = &interfaces.TokenUsage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
			TotalTokens:  int(u.TotalTokenCount),
		}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			c.logger.Warn(ctx, "Gemini blocked the prompt", map[string]interface{}{
				"reason": string(resp.PromptFeedback.BlockReason),
			})
		}
		return out
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.FunctionCall != nil {
			out.FunctionCalls = append(out.FunctionCalls, interfaces.FunctionCall{
				ID:   part.FunctionCall.ID,
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
			continue
		}
		text.WriteString(part.Text)
	}
	out.Text = text.String()
	return out
}

func toContents(messages []interfaces.Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case interfaces.MessageRoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case interfaces.MessageRoleModel:
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			for _, call := range msg.FunctionCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   call.ID,
					Name: call.Name,
					Args: call.Args,
				}})
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		case interfaces.MessageRoleFunction:
			// Gemini expects function results in a user turn
			parts := make([]*genai.Part, 0, len(msg.FunctionResponses))
			for _, fr := range msg.FunctionResponses {
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       fr.ID,
					Name:     fr.Name,
					Response: fr.Response,
				}})
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		default:
			return nil, fmt.Errorf("gemini: unsupported message role %q", msg.Role)
		}
	}
	return contents, nil
}

func toTools(decls []interfaces.FunctionDeclaration) []*genai.Tool {
	if len(decls) == 0 {
		return nil
	}
	fns := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, decl := range decls {
		fn := &genai.FunctionDeclaration{
			Name:        decl.Name,
			Description: decl.Description,
		}
		if len(decl.Parameters) > 0 {
			fn.Parameters = toObjectSchema(decl.Parameters)
		}
		fns = append(fns, fn)
	}
	return []*genai.Tool{{FunctionDeclarations: fns}}
}

func toObjectSchema(params map[string]interfaces.ParameterSpec) *genai.Schema {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(params)),
	}
	for name, spec := range params {
		schema.Properties[name] = toSchema(spec)
		if spec.Required {
			schema.Required = append(schema.Required, name)
		}
	}
	sort.Strings(schema.Required)
	return schema
}

func toSchema(spec interfaces.ParameterSpec) *genai.Schema {
	schema := &genai.Schema{
		Type:        schemaType(spec.Type),
		Description: spec.Description,
	}
	for _, v := range spec.Enum {
		schema.Enum = append(schema.Enum, fmt.Sprint(v))
	}
	if spec.Items != nil {
		schema.Items = toSchema(*spec.Items)
	}
	return schema
}

func schemaType(t string) genai.Type {
	switch strings.ToLower(t) {
	case "boolean", "bool":
		return genai.TypeBoolean
	case "integer", "int":
		return genai.TypeInteger
	case "number", "float":
		return genai.TypeNumber
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v2"

	"github.com/tagus/gemini-agent/pkg/interfaces"
	"github.com/tagus/gemini-agent/pkg/logging"
)

// messageHistoryBuilder converts the conversation into chat completion messages
type messageHistoryBuilder struct {
	logger logging.Logger
}

func newMessageHistoryBuilder(logger logging.Logger) *messageHistoryBuilder {
	return &messageHistoryBuilder{
		logger: logger,
	}
}

// buildMessages returns the system message followed by the history in order.
// Every function response becomes its own tool message answering the call
// at the same position of the preceding assistant turn.
func (b *messageHistoryBuilder) buildMessages(ctx context.Context, system string, history []interfaces.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}

	var lastCallIDs []string
	for i, msg := range history {
		switch msg.Role {
		case interfaces.MessageRoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))

		case interfaces.MessageRoleModel:
			if len(msg.FunctionCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(msg.Content))
				lastCallIDs = nil
				continue
			}
			lastCallIDs = make([]string, len(msg.FunctionCalls))
			toolCalls := make([]openai.ChatCompletionMessageToolCallUnion, 0, len(msg.FunctionCalls))
			for j, call := range msg.FunctionCalls {
				id := call.ID
				if id == "" {
					id = fmt.Sprintf("call_%d_%d", i, j)
				}
				lastCallIDs[j] = id
				args, err := json.Marshal(call.Args)
				if err != nil {
					return nil, fmt.Errorf("encode arguments of %s: %w", call.Name, err)
				}
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallUnion{
					ID:   id,
					Type: "function",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{
						Name:      call.Name,
						Arguments: string(args),
					},
				})
			}
			assistantMsg := openai.ChatCompletionMessage{
				Role:      "assistant",
				Content:   msg.Content,
				ToolCalls: toolCalls,
			}
			messages = append(messages, assistantMsg.ToParam())

		case interfaces.MessageRoleFunction:
			for j, fr := range msg.FunctionResponses {
				id := fr.ID
				if id == "" && j < len(lastCallIDs) {
					id = lastCallIDs[j]
				}
				content, err := json.Marshal(fr.Response)
				if err != nil {
					return nil, fmt.Errorf("encode response of %s: %w", fr.Name, err)
				}
				messages = append(messages, openai.ToolMessage(string(content), id))
			}
			lastCallIDs = nil

		default:
			b.logger.Warn(ctx, "Skipping message with unsupported role", map[string]interface{}{
				"role": string(msg.Role),
			})
		}
	}
	return messages, nil
}

package memory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tagus/gemini-agent/pkg/interfaces"
)

// ErrInvalidOrder is returned when a message would break role ordering
var ErrInvalidOrder = errors.New("invalid message order")

// Conversation is the append-only message history of a single agent run.
// It enforces the ordering the model APIs expect: the first message comes
// from the user, function messages only answer a model turn that issued
// function calls, and model turns follow a user or function message.
type Conversation struct {
	messages []interfaces.Message
	mu       sync.RWMutex
}

// NewConversation creates an empty conversation
func NewConversation() *Conversation {
	return &Conversation{}
}

// AddMessage appends message after checking role ordering
func (c *Conversation) AddMessage(message interfaces.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOrder(message); err != nil {
		return err
	}
	c.messages = append(c.messages, cloneMessage(message))
	return nil
}

// Messages returns a copy of the history
func (c *Conversation) Messages() []interfaces.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]interfaces.Message, len(c.messages))
	for i, msg := range c.messages {
		out[i] = cloneMessage(msg)
	}
	return out
}

// Len returns the number of messages
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Last returns the most recent message
func (c *Conversation) Last() (interfaces.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.messages) == 0 {
		return interfaces.Message{}, false
	}
	return cloneMessage(c.messages[len(c.messages)-1]), true
}

func (c *Conversation) checkOrder(message interfaces.Message) error {
	if len(c.messages) == 0 {
		if message.Role != interfaces.MessageRoleUser {
			return fmt.Errorf("%w: conversation must start with a user message, got %q", ErrInvalidOrder, message.Role)
		}
		return nil
	}

	prev := c.messages[len(c.messages)-1]
	switch message.Role {
	case interfaces.MessageRoleUser:
		if prev.Role == interfaces.MessageRoleUser {
			return fmt.Errorf("%w: consecutive user messages", ErrInvalidOrder)
		}
	case interfaces.MessageRoleModel:
		if prev.Role == interfaces.MessageRoleModel {
			return fmt.Errorf("%w: consecutive model messages", ErrInvalidOrder)
		}
	case interfaces.MessageRoleFunction:
		if prev.Role != interfaces.MessageRoleModel || len(prev.FunctionCalls) == 0 {
			return fmt.Errorf("%w: function responses must follow a model turn with function calls", ErrInvalidOrder)
		}
		if len(message.FunctionResponses) != len(prev.FunctionCalls) {
			return fmt.Errorf("%w: %d function responses for %d calls", ErrInvalidOrder, len(message.FunctionResponses), len(prev.FunctionCalls))
		}
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidOrder, message.Role)
	}
	return nil
}

func cloneMessage(msg interfaces.Message) interfaces.Message {
	if msg.FunctionCalls != nil {
		msg.FunctionCalls = append([]interfaces.FunctionCall(nil), msg.FunctionCalls...)
	}
	if msg.FunctionResponses != nil {
		msg.FunctionResponses = append([]interfaces.FunctionResponse(nil), msg.FunctionResponses...)
	}
	return msg
}

package agent

import (
	"fmt"
	"strings"

	"github.com/tagus/gemini-agent/pkg/interfaces"
)

// DefaultSystemPrompt instructs the model how to use the local functions
const DefaultSystemPrompt = `You are a helpful AI coding agent.

When a user asks a question or makes a request, make a function call plan. You can perform the following operations:

%s

All paths you provide should be relative to the working directory. You do not need to specify the working directory in your function calls as it is automatically injected for security reasons.

Once you have gathered enough information, answer the user directly in plain text without calling any more functions.`

// BuildSystemPrompt fills DefaultSystemPrompt with the available functions
func BuildSystemPrompt(decls []interfaces.FunctionDeclaration) string {
	lines := make([]string, 0, len(decls))
	for _, decl := range decls {
		lines = append(lines, fmt.Sprintf("- %s: %s", decl.Name, decl.Description))
	}
	return fmt.Sprintf(DefaultSystemPrompt, strings.Join(lines, "\n"))
}

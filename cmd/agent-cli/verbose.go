package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tagus/gemini-agent/pkg/interfaces"
)

// verbosePrinter writes the intermediate steps of a run for --verbose
type verbosePrinter struct {
	w io.Writer
}

func newVerbosePrinter(w io.Writer) *verbosePrinter {
	return &verbosePrinter{w: w}
}

func (p *verbosePrinter) handle(event interfaces.AgentEvent) {
	switch event.Type {
	case interfaces.AgentEventPrompt:
		fmt.Fprintf(p.w, "User prompt: %s\n", event.Content)
	case interfaces.AgentEventModelResponse:
		fmt.Fprintf(p.w, "\nTurn %d:\n", event.Turn)
		if event.Usage != nil {
			fmt.Fprintf(p.w, "Prompt tokens: %d\n", event.Usage.InputTokens)
			fmt.Fprintf(p.w, "Response tokens: %d\n", event.Usage.OutputTokens)
		}
	case interfaces.AgentEventFunctionCall:
		fmt.Fprintf(p.w, " - Calling function: %s(%s)\n", event.Call.Name, formatArgs(event.Call.Args))
	case interfaces.AgentEventFunctionResponse:
		if event.Response.IsError() {
			fmt.Fprintf(p.w, "   -> error: %s\n", event.Response.Text())
			return
		}
		fmt.Fprintf(p.w, "   -> %s\n", event.Response.Text())
	case interfaces.AgentEventFinal:
		fmt.Fprintln(p.w, "\nFinal response:")
	}
}

func formatArgs(args map[string]interface{}) string {
	if len(args) == 0 {
		return ""
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(data)
}

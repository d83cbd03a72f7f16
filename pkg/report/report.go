// Package report renders the outcome of an agent run.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"gopkg.in/yaml.v3"

	"github.com/tagus/gemini-agent/pkg/agent"
	"github.com/tagus/gemini-agent/pkg/interfaces"
)

// Supported output formats
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

// markdownWrap is the column width markdown output is wrapped at
const markdownWrap = 80

// Report is the serialisable summary of one run
type Report struct {
	RunID      string                      `json:"run_id" yaml:"run_id"`
	Prompt     string                      `json:"prompt" yaml:"prompt"`
	Response   string                      `json:"response" yaml:"response"`
	Completed  bool                        `json:"completed" yaml:"completed"`
	Turns      int                         `json:"turns" yaml:"turns"`
	Model      string                      `json:"model,omitempty" yaml:"model,omitempty"`
	Usage      interfaces.TokenUsage       `json:"usage" yaml:"usage"`
	Summary    interfaces.ExecutionSummary `json:"summary" yaml:"summary"`
	DurationMs int64                       `json:"duration_ms" yaml:"duration_ms"`
	Error      string                      `json:"error,omitempty" yaml:"error,omitempty"`
	Messages   []interfaces.Message        `json:"messages,omitempty" yaml:"messages,omitempty"`

	noFinalAnswer bool
}

// FromResult builds a report from the outcome of agent.Run. result may be
// nil when the run failed before it started.
func FromResult(prompt string, result *agent.Result, runErr error) *Report {
	r := &Report{Prompt: prompt}
	if result != nil {
		r.RunID = result.RunID
		r.Response = result.Response
		r.Completed = result.Completed
		r.Turns = result.Turns
		r.Model = result.Model
		r.Usage = result.Usage
		r.Summary = result.Summary
		r.DurationMs = result.Duration.Milliseconds()
	}
	if runErr != nil {
		r.Error = runErr.Error()
		r.noFinalAnswer = errors.Is(runErr, agent.ErrNoFinalAnswer)
	}
	return r
}

// WithMessages attaches the conversation history
func (r *Report) WithMessages(messages []interfaces.Message) *Report {
	r.Messages = messages
	return r
}

// Write renders the report in format
func (r *Report) Write(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		_, err := fmt.Fprintln(w, r.text())
		return err
	case FormatMarkdown:
		_, err := fmt.Fprint(w, renderMarkdown(r.text()))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func (r *Report) text() string {
	switch {
	case r.Completed:
		return r.Response
	case r.noFinalAnswer:
		return fmt.Sprintf("Reached maximum turns (%d) without a final response.", r.Turns)
	case r.Error != "":
		return "Error: " + r.Error
	default:
		return "No response."
	}
}

// renderMarkdown styles text for a terminal. The text is returned unchanged
// when the renderer cannot be built or fails.
func renderMarkdown(text string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(markdownWrap),
	)
	if err != nil {
		return text + "\n"
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}

package tools

import (
	"sort"

	"github.com/tagus/gemini-agent/pkg/interfaces"
)

// Registry maps function names to tools. It is built once and never
// modified afterwards, so lookups need no locking.
type Registry struct {
	tools map[string]interfaces.Tool
	names []string
}

// NewRegistry creates a registry from tools. When two tools share a name
// the first one wins.
func NewRegistry(tools ...interfaces.Tool) *Registry {
	r := &Registry{
		tools: make(map[string]interfaces.Tool, len(tools)),
	}
	for _, tool := range tools {
		if tool == nil {
			continue
		}
		if _, exists := r.tools[tool.Name()]; exists {
			continue
		}
		r.tools[tool.Name()] = tool
		r.names = append(r.names, tool.Name())
	}
	sort.Strings(r.names)
	return r
}

// Get returns a tool by name
func (r *Registry) Get(name string) (interfaces.Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools sorted by name
func (r *Registry) List() []interfaces.Tool {
	tools := make([]interfaces.Tool, 0, len(r.names))
	for _, name := range r.names {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Names returns the registered function names in sorted order
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Declarations returns the schema of every tool as exposed to the model
func (r *Registry) Declarations() []interfaces.FunctionDeclaration {
	decls := make([]interfaces.FunctionDeclaration, 0, len(r.names))
	for _, tool := range r.List() {
		decls = append(decls, interfaces.FunctionDeclaration{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}
	return decls
}

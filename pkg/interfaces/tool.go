package interfaces

import "context"

// Workspace is the directory every tool is confined to
type Workspace interface {
	// Root returns the absolute workspace root
	Root() string
	// Resolve maps a model-supplied path to an absolute path inside Root
	Resolve(path string) (string, error)
}

// Tool represents a local function the model can call
type Tool interface {
	// Name returns the name of the tool
	Name() string

	// Description returns a description of what the tool does
	Description() string

	// Parameters returns the parameters that the tool accepts
	Parameters() map[string]ParameterSpec

	// Execute runs the tool inside ws with the model-supplied arguments
	Execute(ctx context.Context, ws Workspace, args map[string]interface{}) (string, error)
}

// ParameterSpec defines the specification for a tool parameter
type ParameterSpec struct {
	// Type is the data type of the parameter (string, boolean, array, ...)
	Type string

	// Description is a description of the parameter
	Description string

	// Required indicates if the parameter is required
	Required bool

	// Default is the default value for the parameter
	Default interface{}

	// Enum restricts the parameter to a fixed set of values
	Enum []interface{}

	// Items describes the elements of an array parameter
	Items *ParameterSpec
}

// FunctionDeclaration is the schema of a tool as exposed to the model
type FunctionDeclaration struct {
	Name        string
	Description string
	Parameters  map[string]ParameterSpec
}

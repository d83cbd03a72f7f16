// Package builtin provides the local functions the agent exposes to the
// model: read_file, list_files, write_file and run_script.
package builtin

import (
	"time"

	"github.com/tagus/gemini-agent/pkg/interfaces"
)

const (
	// DefaultMaxFileChars caps how much of a file read_file returns
	DefaultMaxFileChars = 10000
	// DefaultScriptTimeout bounds a run_script subprocess
	DefaultScriptTimeout = 30 * time.Second
	// DefaultInterpreter runs scripts passed to run_script
	DefaultInterpreter = "python3"
	// DefaultScriptExtension is the only extension run_script accepts
	DefaultScriptExtension = ".py"
)

// Options tunes the built-in tools
type Options struct {
	MaxFileChars    int
	ScriptTimeout   time.Duration
	Interpreter     string
	ScriptExtension string
}

func (o Options) withDefaults() Options {
	if o.MaxFileChars <= 0 {
		o.MaxFileChars = DefaultMaxFileChars
	}
	if o.ScriptTimeout <= 0 {
		o.ScriptTimeout = DefaultScriptTimeout
	}
	if o.Interpreter == "" {
		o.Interpreter = DefaultInterpreter
	}
	if o.ScriptExtension == "" {
		o.ScriptExtension = DefaultScriptExtension
	}
	return o
}

// Defaults returns the four built-in tools configured with opts
func Defaults(opts Options) []interfaces.Tool {
	opts = opts.withDefaults()
	return []interfaces.Tool{
		NewReadFile(opts.MaxFileChars),
		NewListFiles(),
		NewWriteFile(),
		NewRunScript(opts.Interpreter, opts.ScriptExtension, opts.ScriptTimeout),
	}
}

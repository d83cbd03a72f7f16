package builtin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/tagus/gemini-agent/pkg/interfaces"
	"github.com/tagus/gemini-agent/pkg/tools"
)

// WriteFile creates or replaces a text file
type WriteFile struct{}

// NewWriteFile creates the write_file tool
func NewWriteFile() *WriteFile {
	return &WriteFile{}
}

// Name implements interfaces.Tool.Name
func (w *WriteFile) Name() string {
	return "write_file"
}

// Description implements interfaces.Tool.Description
func (w *WriteFile) Description() string {
	return "Writes text content to a file in the working directory, creating parent directories as needed. Existing files are only replaced when overwrite is true."
}

// Parameters implements interfaces.Tool.Parameters
func (w *WriteFile) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"file_path": {
			Type:        "string",
			Description: "Path of the file to write, relative to the working directory.",
			Required:    true,
		},
		"content": {
			Type:        "string",
			Description: "Text content to write.",
			Required:    true,
		},
		"overwrite": {
			Type:        "boolean",
			Description: "Replace the file if it already exists.",
			Default:     false,
		},
	}
}

// Execute implements interfaces.Tool.Execute
func (w *WriteFile) Execute(ctx context.Context, ws interfaces.Workspace, args map[string]interface{}) (string, error) {
	a := tools.Args(args)
	path, err := a.String("file_path")
	if err != nil {
		return "", err
	}
	content, err := a.String("content")
	if err != nil {
		return "", err
	}
	overwrite, err := a.Bool("overwrite", false)
	if err != nil {
		return "", err
	}

	target, err := ws.Resolve(path)
	if err != nil {
		return "", err
	}
	if target == ws.Root() {
		return "", fmt.Errorf("%q is a directory, not a file", path)
	}

	info, err := os.Stat(target)
	switch {
	case err == nil && info.IsDir():
		return "", fmt.Errorf("%q is a directory, not a file", path)
	case err == nil && !overwrite:
		return "", fmt.Errorf("%q already exists; set overwrite to true to replace it", path)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("cannot write %q: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("cannot create parent directories for %q: %w", path, err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(target, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%q already exists; set overwrite to true to replace it", path)
		}
		return "", fmt.Errorf("cannot write %q: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return "", fmt.Errorf("cannot write %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("cannot write %q: %w", path, err)
	}

	return fmt.Sprintf("Successfully wrote to %q (%d characters written)", path, utf8.RuneCountInString(content)), nil
}

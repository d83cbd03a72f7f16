package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tagus/gemini-agent/pkg/interfaces"
	"github.com/tagus/gemini-agent/pkg/tools"
)

// ListFiles lists the entries of a directory with their size and type
type ListFiles struct{}

// NewListFiles creates the list_files tool
func NewListFiles() *ListFiles {
	return &ListFiles{}
}

// Name implements interfaces.Tool.Name
func (l *ListFiles) Name() string {
	return "list_files"
}

// Description implements interfaces.Tool.Description
func (l *ListFiles) Description() string {
	return "Lists files in a directory along with their sizes and whether they are directories."
}

// Parameters implements interfaces.Tool.Parameters
func (l *ListFiles) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"directory": {
			Type:        "string",
			Description: "Directory to list, relative to the working directory. Defaults to the working directory itself.",
			Default:     ".",
		},
	}
}

// Execute implements interfaces.Tool.Execute
func (l *ListFiles) Execute(ctx context.Context, ws interfaces.Workspace, args map[string]interface{}) (string, error) {
	dir, err := tools.Args(args).OptionalString("directory", ".")
	if err != nil {
		return "", err
	}
	target, err := ws.Resolve(dir)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("directory not found: %q", dir)
		}
		return "", fmt.Errorf("cannot list %q: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%q is not a directory", dir)
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return "", fmt.Errorf("cannot list %q: %w", dir, err)
	}
	if len(entries) == 0 {
		return fmt.Sprintf("Directory %q is empty.", dir), nil
	}

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		// Stat follows symlinks so sizes reflect the target
		entryInfo, err := os.Stat(filepath.Join(target, entry.Name()))
		if err != nil {
			entryInfo, err = entry.Info()
			if err != nil {
				continue
			}
		}
		lines = append(lines, fmt.Sprintf("- %s: file_size=%d bytes, is_dir=%t", entry.Name(), entryInfo.Size(), entryInfo.IsDir()))
	}
	return strings.Join(lines, "\n"), nil
}

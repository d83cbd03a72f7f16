package builtin

import (
	"context"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/tagus/gemini-agent/pkg/interfaces"
	"github.com/tagus/gemini-agent/pkg/tools"
)

// ReadFile returns the text of a file, truncated to a fixed number of characters
type ReadFile struct {
	maxChars int
}

// NewReadFile creates the read_file tool
func NewReadFile(maxChars int) *ReadFile {
	if maxChars <= 0 {
		maxChars = DefaultMaxFileChars
	}
	return &ReadFile{maxChars: maxChars}
}

// Name implements interfaces.Tool.Name
func (r *ReadFile) Name() string {
	return "read_file"
}

// Description implements interfaces.Tool.Description
func (r *ReadFile) Description() string {
	return fmt.Sprintf("Reads the content of a file in the working directory. Content longer than %d characters is truncated.", r.maxChars)
}

// Parameters implements interfaces.Tool.Parameters
func (r *ReadFile) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"file_path": {
			Type:        "string",
			Description: "Path of the file to read, relative to the working directory.",
			Required:    true,
		},
	}
}

// Execute implements interfaces.Tool.Execute
func (r *ReadFile) Execute(ctx context.Context, ws interfaces.Workspace, args map[string]interface{}) (string, error) {
	path, err := tools.Args(args).String("file_path")
	if err != nil {
		return "", err
	}
	target, err := ws.Resolve(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %q", path)
		}
		return "", fmt.Errorf("cannot read %q: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%q is a directory, not a file", path)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%q is not a regular file", path)
	}

	f, err := os.Open(target)
	if err != nil {
		return "", fmt.Errorf("cannot read %q: %w", path, err)
	}
	defer f.Close()

	// A rune is at most utf8.UTFMax bytes, so this is enough to tell
	// whether the file holds more than maxChars characters.
	limit := int64(r.maxChars+1) * utf8.UTFMax
	data, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return "", fmt.Errorf("cannot read %q: %w", path, err)
	}

	content, truncated := truncateChars(data, r.maxChars)
	if truncated {
		content += fmt.Sprintf("[...File \"%s\" truncated at %d characters]", path, r.maxChars)
	}
	return content, nil
}

// truncateChars returns at most n characters of data
func truncateChars(data []byte, n int) (string, bool) {
	offset := 0
	for count := 0; offset < len(data); count++ {
		if count == n {
			return string(data[:offset]), true
		}
		_, size := utf8.DecodeRune(data[offset:])
		offset += size
	}
	return string(data), false
}

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"demon-cli/internal/util"
	"demon-cli/internal/workspace"
)

// ReadFileTool reads a file inside the workspace, optionally by line range.
type ReadFileTool struct{}

func (ReadFileTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "read_file",
		Description: "Read the contents of a file, optionally limited to a line range.",
		Category:    CategoryFiles,
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "File path relative to the workspace root", Required: true},
			{Name: "start_line", Type: "integer", Description: "First line to include (1-based)"},
			{Name: "end_line", Type: "integer", Description: "Last line to include (inclusive)"},
		},
	}
}

type readFileInput struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

func (ReadFileTool) Execute(ctx context.Context, input json.RawMessage, meta Meta) (string, error) {
	var args readFileInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", err
	}
	path, err := workspace.ResolvePath(meta.WorkspaceRoot, args.Path)
	if err != nil {
		return "", err
	}
	if workspace.IsDenylisted(path) {
		return "", fmt.Errorf("refusing to read sensitive file: %s", args.Path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", args.Path)
	}
	if meta.MaxBytes > 0 && info.Size() > int64(meta.MaxBytes)*4 {
		return "", fmt.Errorf("file too large: %d bytes", info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	content := string(data)
	if args.StartLine > 0 || args.EndLine > 0 {
		content = sliceLines(content, args.StartLine, args.EndLine)
	}
	content = util.RedactSecrets(content)
	if trimmed, did := util.TruncateBytes(content, meta.MaxBytes); did {
		content = trimmed + "\n[truncated]"
	}
	return content, nil
}

func sliceLines(content string, start, end int) string {
	lines := strings.Split(content, "\n")
	if start < 1 {
		start = 1
	}
	if end <= 0 || end > len(lines) {
		end = len(lines)
	}
	if start > len(lines) {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

// WriteFileTool writes or overwrites a file. Destructive, so it sits
// behind the approval gate.
type WriteFileTool struct{}

func (WriteFileTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "write_file",
		Description: "Write content to a file, creating or overwriting it.",
		Category:    CategoryFiles,
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "File path relative to the workspace root", Required: true},
			{Name: "content", Type: "string", Description: "Full file content to write", Required: true},
			{Name: "create_dirs", Type: "boolean", Description: "Create parent directories when missing"},
		},
		RequiresApproval: true,
	}
}

type writeFileInput struct {
	Path       string `json:"path"`
	Content    string `json:"content"`
	CreateDirs bool   `json:"create_dirs"`
}

func (WriteFileTool) Execute(ctx context.Context, input json.RawMessage, meta Meta) (string, error) {
	var args writeFileInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", err
	}
	path, err := workspace.ResolvePath(meta.WorkspaceRoot, args.Path)
	if err != nil {
		return "", err
	}
	if workspace.IsDenylisted(path) {
		return "", fmt.Errorf("refusing to write sensitive file: %s", args.Path)
	}
	if args.CreateDirs {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(path, []byte(args.Content), 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(args.Content), args.Path), nil
}

// EditFileTool performs search/replace edits on a file.
type EditFileTool struct{}

func (EditFileTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "edit_file",
		Description: "Replace text in an existing file by exact match.",
		Category:    CategoryFiles,
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "File path relative to the workspace root", Required: true},
			{Name: "search", Type: "string", Description: "Exact text to find", Required: true},
			{Name: "replace", Type: "string", Description: "Replacement text", Required: true},
			{Name: "replace_all", Type: "boolean", Description: "Replace every occurrence instead of just the first"},
		},
		RequiresApproval: true,
	}
}

type editFileInput struct {
	Path       string `json:"path"`
	Search     string `json:"search"`
	Replace    string `json:"replace"`
	ReplaceAll bool   `json:"replace_all"`
}

func (EditFileTool) Execute(ctx context.Context, input json.RawMessage, meta Meta) (string, error) {
	var args editFileInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", err
	}
	if args.Search == "" {
		return "", errors.New("search text is required")
	}
	path, err := workspace.ResolvePath(meta.WorkspaceRoot, args.Path)
	if err != nil {
		return "", err
	}
	if workspace.IsDenylisted(path) {
		return "", fmt.Errorf("refusing to edit sensitive file: %s", args.Path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	content := string(data)
	count := strings.Count(content, args.Search)
	if count == 0 {
		return "", fmt.Errorf("search text not found in %s", args.Path)
	}
	replaced := 1
	if args.ReplaceAll {
		content = strings.ReplaceAll(content, args.Search, args.Replace)
		replaced = count
	} else {
		content = strings.Replace(content, args.Search, args.Replace, 1)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("replaced %d occurrence(s) in %s", replaced, args.Path), nil
}

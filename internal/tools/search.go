package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"demon-cli/internal/util"
	"demon-cli/internal/workspace"
)

// SearchFilesTool greps workspace files for a regex pattern.
type SearchFilesTool struct{}

func (SearchFilesTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "search_files",
		Description: "Search workspace files for a regex pattern and return matching lines.",
		Category:    CategoryFiles,
		Parameters: []Parameter{
			{Name: "pattern", Type: "string", Description: "Regular expression to search for", Required: true},
			{Name: "path", Type: "string", Description: "Directory to search, relative to the workspace root"},
			{Name: "case_sensitive", Type: "boolean", Description: "Match case exactly"},
			{Name: "max_results", Type: "integer", Description: "Maximum number of matches to return"},
		},
	}
}

type searchInput struct {
	Pattern       string `json:"pattern"`
	Path          string `json:"path"`
	CaseSensitive bool   `json:"case_sensitive"`
	MaxResults    int    `json:"max_results"`
}

func (SearchFilesTool) Execute(ctx context.Context, input json.RawMessage, meta Meta) (string, error) {
	var args searchInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", err
	}
	if strings.TrimSpace(args.Pattern) == "" {
		return "", errors.New("pattern is required")
	}
	if args.MaxResults <= 0 {
		args.MaxResults = meta.MaxResults
	}

	pattern := args.Pattern
	if !args.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}

	root := meta.WorkspaceRoot
	if args.Path != "" {
		root, err = workspace.ResolvePath(meta.WorkspaceRoot, args.Path)
		if err != nil {
			return "", err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(meta.TimeoutSeconds)*time.Second)
	defer cancel()

	stopWalk := errors.New("stop-walk")
	var matches []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return stopWalk
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && d.Name() != "." {
				return filepath.SkipDir
			}
			return nil
		}
		if workspace.IsDenylisted(path) {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer file.Close()
		if isBinary(file) {
			return nil
		}
		_, _ = file.Seek(0, io.SeekStart)
		scanner := bufio.NewScanner(file)
		lineNum := 1
		for scanner.Scan() {
			line := scanner.Text()
			if re.MatchString(line) {
				rel, _ := filepath.Rel(meta.WorkspaceRoot, path)
				matches = append(matches, fmt.Sprintf("%s:%d:%s", rel, lineNum, line))
				if len(matches) >= args.MaxResults {
					return stopWalk
				}
			}
			lineNum++
		}
		return nil
	})
	if err != nil && !errors.Is(err, stopWalk) {
		return "", err
	}

	if len(matches) == 0 {
		return "no matches found", nil
	}
	for i, line := range matches {
		matches[i] = util.RedactSecrets(line)
	}
	lines, truncated, _ := util.TruncateLinesAndBytes(matches, args.MaxResults, meta.MaxBytes)
	out := strings.Join(lines, "\n")
	if truncated {
		out += "\n[truncated]"
	}
	return out, nil
}

func isBinary(file *os.File) bool {
	buf := make([]byte, 8000)
	n, _ := file.Read(buf)
	for _, b := range buf[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}

// ListDirectoryTool lists workspace directory contents.
type ListDirectoryTool struct{}

func (ListDirectoryTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "list_directory",
		Description: "List files and directories at a path inside the workspace.",
		Category:    CategoryFiles,
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "Directory path relative to the workspace root"},
			{Name: "show_hidden", Type: "boolean", Description: "Include dotfiles"},
		},
	}
}

type listInput struct {
	Path       string `json:"path"`
	ShowHidden bool   `json:"show_hidden"`
}

func (ListDirectoryTool) Execute(ctx context.Context, input json.RawMessage, meta Meta) (string, error) {
	var args listInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", err
	}
	dir := meta.WorkspaceRoot
	if args.Path != "" {
		resolved, err := workspace.ResolvePath(meta.WorkspaceRoot, args.Path)
		if err != nil {
			return "", err
		}
		dir = resolved
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if !args.ShowHidden && strings.HasPrefix(name, ".") {
			continue
		}
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return "directory is empty", nil
	}
	lines, truncated, _ := util.TruncateLinesAndBytes(names, meta.MaxResults, meta.MaxBytes)
	out := strings.Join(lines, "\n")
	if truncated {
		out += "\n[truncated]"
	}
	return out, nil
}

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"demon-cli/internal/util"
	"demon-cli/internal/workspace"
)

// ExecuteCommandTool runs a shell command inside the workspace. It sits
// behind the approval gate; the guards below only reject commands that
// cannot work at all or that no approval should cover.
type ExecuteCommandTool struct{}

func (ExecuteCommandTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "execute_command",
		Description: "Run a shell command in the workspace and return stdout, stderr, and exit code.",
		Category:    CategoryExecution,
		Parameters: []Parameter{
			{Name: "command", Type: "string", Description: "Command line to execute", Required: true},
			{Name: "cwd", Type: "string", Description: "Working directory relative to the workspace root"},
			{Name: "timeout", Type: "integer", Description: "Timeout in seconds"},
		},
		RequiresApproval: true,
	}
}

type executeInput struct {
	Command string `json:"command"`
	Cwd     string `json:"cwd"`
	Timeout int    `json:"timeout"`
}

var (
	interactiveCommands = map[string]struct{}{
		"vim": {}, "vi": {}, "nano": {}, "less": {}, "more": {}, "man": {}, "top": {}, "htop": {}, "ssh": {}, "sftp": {},
	}
	catastrophicPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\brm\s+(-[a-z]*r[a-z]*f|-[a-z]*f[a-z]*r)[a-z]*\s+/(\s|$)`),
		regexp.MustCompile(`(?i)\bmkfs\b`),
		regexp.MustCompile(`(?i)\bdd\s+.*of=/dev/`),
		regexp.MustCompile(`:\(\)\{`),
		regexp.MustCompile(`(?i)chmod\s+-R\s+777\s+/(\s|$)`),
	}
)

func (ExecuteCommandTool) Execute(ctx context.Context, input json.RawMessage, meta Meta) (string, error) {
	var args executeInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", err
	}
	if strings.TrimSpace(args.Command) == "" {
		return "", errors.New("command is required")
	}

	parts, err := splitCommand(args.Command)
	if err != nil {
		return "", err
	}
	if len(parts) == 0 {
		return "", errors.New("command is required")
	}
	if _, ok := interactiveCommands[strings.ToLower(parts[0])]; ok {
		return "", fmt.Errorf("interactive commands are not supported: %s", parts[0])
	}
	for _, re := range catastrophicPatterns {
		if re.MatchString(args.Command) {
			return "", errors.New("blocked catastrophic command")
		}
	}

	cwd := meta.WorkspaceRoot
	if strings.TrimSpace(args.Cwd) != "" {
		resolved, err := workspace.ResolvePath(meta.WorkspaceRoot, args.Cwd)
		if err != nil {
			return "", err
		}
		cwd = resolved
	}

	timeout := meta.TimeoutSeconds
	if args.Timeout > 0 && args.Timeout < timeout {
		timeout = args.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = cwd
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start).Milliseconds()

	exitCode := 0
	if runErr != nil {
		exitErr := &exec.ExitError{}
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("command timed out after %ds", timeout)
		} else {
			return "", runErr
		}
	}

	outStr := util.RedactSecrets(stdout.String())
	errStr := util.RedactSecrets(stderr.String())
	truncated := false
	if meta.MaxBytes > 0 {
		if trimmed, did := util.TruncateBytes(outStr, meta.MaxBytes); did {
			outStr = trimmed
			truncated = true
		}
		if trimmed, did := util.TruncateBytes(errStr, meta.MaxBytes); did {
			errStr = trimmed
			truncated = true
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "exit code: %d (%dms)\n", exitCode, duration)
	if outStr != "" {
		b.WriteString("stdout:\n")
		b.WriteString(outStr)
		if !strings.HasSuffix(outStr, "\n") {
			b.WriteString("\n")
		}
	}
	if errStr != "" {
		b.WriteString("stderr:\n")
		b.WriteString(errStr)
	}
	if truncated {
		b.WriteString("\n[truncated]")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// splitCommand tokenizes a command line honoring quotes and escapes.
func splitCommand(input string) ([]string, error) {
	var args []string
	var buf bytes.Buffer
	inSingle := false
	inDouble := false
	escape := false

	for _, r := range input {
		if escape {
			buf.WriteRune(r)
			escape = false
			continue
		}
		if r == '\\' && !inSingle {
			escape = true
			continue
		}
		if r == '\'' && !inDouble {
			inSingle = !inSingle
			continue
		}
		if r == '"' && !inSingle {
			inDouble = !inDouble
			continue
		}
		if (r == ' ' || r == '\t' || r == '\n') && !inSingle && !inDouble {
			if buf.Len() > 0 {
				args = append(args, buf.String())
				buf.Reset()
			}
			continue
		}
		buf.WriteRune(r)
	}
	if escape || inSingle || inDouble {
		return nil, errors.New("unterminated quote or escape in command")
	}
	if buf.Len() > 0 {
		args = append(args, buf.String())
	}
	return args, nil
}

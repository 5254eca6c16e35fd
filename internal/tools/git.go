package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"demon-cli/internal/util"
)

func runGit(ctx context.Context, meta Meta, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(meta.TimeoutSeconds)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = meta.WorkspaceRoot
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s failed: %s", args[0], msg)
	}
	out := util.RedactSecrets(stdout.String())
	if trimmed, did := util.TruncateBytes(out, meta.MaxBytes); did {
		out = trimmed + "\n[truncated]"
	}
	out = strings.TrimRight(out, "\n")
	if out == "" {
		out = fmt.Sprintf("git %s completed with no output", args[0])
	}
	return out, nil
}

// GitStatusTool reports working tree status.
type GitStatusTool struct{}

func (GitStatusTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "git_status",
		Description: "Show the git working tree status including branch and changed files.",
		Category:    CategoryGit,
	}
}

func (GitStatusTool) Execute(ctx context.Context, input json.RawMessage, meta Meta) (string, error) {
	return runGit(ctx, meta, "status", "--porcelain=v1", "--branch")
}

// GitDiffTool shows pending changes.
type GitDiffTool struct{}

func (GitDiffTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "git_diff",
		Description: "Show unstaged or staged changes as a unified diff.",
		Category:    CategoryGit,
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "Limit the diff to a path"},
			{Name: "staged", Type: "boolean", Description: "Show staged changes instead of unstaged"},
		},
	}
}

type gitDiffInput struct {
	Path   string `json:"path"`
	Staged bool   `json:"staged"`
}

func (GitDiffTool) Execute(ctx context.Context, input json.RawMessage, meta Meta) (string, error) {
	var args gitDiffInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", err
	}
	gitArgs := []string{"diff"}
	if args.Staged {
		gitArgs = append(gitArgs, "--cached")
	}
	if args.Path != "" {
		gitArgs = append(gitArgs, "--", args.Path)
	}
	return runGit(ctx, meta, gitArgs...)
}

// GitBranchTool lists branches.
type GitBranchTool struct{}

func (GitBranchTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "git_branch",
		Description: "List local branches and mark the current one.",
		Category:    CategoryGit,
	}
}

func (GitBranchTool) Execute(ctx context.Context, input json.RawMessage, meta Meta) (string, error) {
	return runGit(ctx, meta, "branch", "--list")
}

// GitCommitTool commits changes. Approval gated.
type GitCommitTool struct{}

func (GitCommitTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "git_commit",
		Description: "Commit staged changes with a message, optionally staging all modified files first.",
		Category:    CategoryGit,
		Parameters: []Parameter{
			{Name: "message", Type: "string", Description: "Commit message", Required: true},
			{Name: "add_all", Type: "boolean", Description: "Stage all modified files before committing"},
		},
		RequiresApproval: true,
	}
}

type gitCommitInput struct {
	Message string `json:"message"`
	AddAll  bool   `json:"add_all"`
}

func (GitCommitTool) Execute(ctx context.Context, input json.RawMessage, meta Meta) (string, error) {
	var args gitCommitInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", err
	}
	if strings.TrimSpace(args.Message) == "" {
		return "", errors.New("commit message is required")
	}
	if args.AddAll {
		if _, err := runGit(ctx, meta, "add", "-A"); err != nil {
			return "", err
		}
	}
	return runGit(ctx, meta, "commit", "-m", args.Message)
}

// GitPushTool pushes to a remote. Approval gated.
type GitPushTool struct{}

func (GitPushTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "git_push",
		Description: "Push the current or named branch to a remote.",
		Category:    CategoryGit,
		Parameters: []Parameter{
			{Name: "remote", Type: "string", Description: "Remote name (defaults to origin)"},
			{Name: "branch", Type: "string", Description: "Branch to push (defaults to the current branch)"},
		},
		RequiresApproval: true,
	}
}

type gitPushInput struct {
	Remote string `json:"remote"`
	Branch string `json:"branch"`
}

func (GitPushTool) Execute(ctx context.Context, input json.RawMessage, meta Meta) (string, error) {
	var args gitPushInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", err
	}
	remote := args.Remote
	if remote == "" {
		remote = "origin"
	}
	gitArgs := []string{"push", remote}
	if args.Branch != "" {
		gitArgs = append(gitArgs, args.Branch)
	}
	return runGit(ctx, meta, gitArgs...)
}

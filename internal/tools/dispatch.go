package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"demon-cli/internal/approval"
	"demon-cli/internal/util"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

// Dispatcher resolves, validates, gates, and executes tool requests.
// Every outcome is a Result; nothing a model can send will crash the
// conversation.
type Dispatcher struct {
	registry  *Registry
	presenter approval.Presenter
	logger    *zap.Logger
}

// NewDispatcher builds a dispatcher over a registry and an approval presenter.
func NewDispatcher(registry *Registry, presenter approval.Presenter, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, presenter: presenter, logger: logger}
}

// Dispatch runs a single tool invocation request through lookup,
// validation, the approval gate, and execution.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, meta Meta) Result {
	start := time.Now()
	result := Result{CallID: req.CallID, ToolName: req.ToolName}

	tool, ok := d.registry.Lookup(req.ToolName)
	if !ok {
		result.Status = StatusError
		result.ErrorMessage = d.registry.UnknownToolMessage(req.ToolName)
		result.DurationMs = time.Since(start).Milliseconds()
		d.logger.Warn("unknown tool requested", zap.String("tool", req.ToolName))
		return result
	}
	desc := tool.Descriptor()

	args := req.Arguments
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if msg := d.validateArguments(desc.Name, args); msg != "" {
		result.Status = StatusError
		result.ErrorMessage = msg
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	if desc.RequiresApproval {
		decision, err := d.presenter.Ask(ctx, approval.Prompt{
			ToolName:  desc.Name,
			Arguments: prettyArguments(args),
			Rationale: dangerRationale(desc),
		})
		if err != nil {
			result.Status = StatusError
			result.ErrorMessage = fmt.Sprintf("approval request failed: %v", err)
			result.DurationMs = time.Since(start).Milliseconds()
			return result
		}
		if !decision.Granted {
			reason := decision.Reason
			if reason == "" {
				reason = "denied by user"
			}
			result.Status = StatusRejected
			result.ErrorMessage = fmt.Sprintf("tool %s was not executed: %s", desc.Name, reason)
			result.DurationMs = time.Since(start).Milliseconds()
			d.logger.Info("tool call rejected", zap.String("tool", desc.Name), zap.String("reason", reason))
			return result
		}
	}

	output, err := tool.Execute(ctx, args, meta)
	result.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Status = StatusError
		result.ErrorMessage = err.Error()
		d.logger.Warn("tool execution failed", zap.String("tool", desc.Name), zap.Error(err))
		return result
	}
	result.Status = StatusOK
	result.Payload = output
	return result
}

// validateArguments checks the raw arguments against the compiled schema
// and returns a message naming the offending parameter, or "".
func (d *Dispatcher) validateArguments(name string, args json.RawMessage) string {
	var decoded any
	if err := json.Unmarshal(args, &decoded); err != nil {
		return fmt.Sprintf("arguments for %s are not valid JSON: %v", name, err)
	}
	if _, ok := decoded.(map[string]any); !ok {
		return fmt.Sprintf("arguments for %s must be a JSON object", name)
	}
	schema := d.registry.schemaFor(name)
	if schema == nil {
		return ""
	}
	checked, err := schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return fmt.Sprintf("arguments for %s could not be validated: %v", name, err)
	}
	if checked.Valid() {
		return ""
	}
	var problems []string
	for _, issue := range checked.Errors() {
		problems = append(problems, issue.String())
	}
	return fmt.Sprintf("invalid arguments for %s: %s", name, strings.Join(problems, "; "))
}

func prettyArguments(args json.RawMessage) string {
	var data any
	if err := json.Unmarshal(args, &data); err != nil {
		return util.RedactSecrets(string(args))
	}
	pretty, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return util.RedactSecrets(string(args))
	}
	return util.RedactSecrets(string(pretty))
}

func dangerRationale(desc Descriptor) string {
	switch desc.Category {
	case CategoryExecution:
		return "runs a command on this machine"
	case CategoryGit:
		return "modifies the git repository"
	case CategoryFiles:
		return "modifies files in the workspace"
	default:
		return "requires confirmation before it runs"
	}
}

package tools

import (
	"context"
	"encoding/json"
)

// Category groups tools for catalog listings and prompt embedding.
type Category string

const (
	CategoryFiles     Category = "files"
	CategoryGit       Category = "git"
	CategoryExecution Category = "execution"
	CategoryWeb       Category = "web"
)

// Parameter describes a single tool parameter.
type Parameter struct {
	Name        string
	Type        string // "string", "integer", "number", "boolean", "array"
	Description string
	Required    bool
}

// Descriptor is the immutable metadata for a registered tool.
type Descriptor struct {
	Name             string
	Description      string
	Category         Category
	Parameters       []Parameter
	RequiresApproval bool
}

// Schema converts the parameter list to a JSON Schema object.
// Unknown extra properties are deliberately left open so newer models
// can pass parameters an older binary does not know about.
func (d Descriptor) Schema() map[string]any {
	properties := map[string]any{}
	var required []string
	for _, p := range d.Parameters {
		properties[p.Name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Meta provides execution context to tools.
type Meta struct {
	WorkspaceRoot  string
	TimeoutSeconds int
	MaxBytes       int
	MaxResults     int
}

// Tool is a callable capability exposed to the model.
type Tool interface {
	Descriptor() Descriptor
	Execute(ctx context.Context, input json.RawMessage, meta Meta) (string, error)
}

// Status classifies a dispatch outcome.
type Status string

const (
	StatusOK       Status = "ok"
	StatusError    Status = "error"
	StatusRejected Status = "rejected"
)

// Request is a single tool invocation produced from model output.
// Both the tool name and the arguments are untrusted.
type Request struct {
	CallID    string
	ToolName  string
	Arguments json.RawMessage
}

// Result is the outcome of one dispatch. Every failure mode is
// representable here; Dispatch never lets a model-caused fault escape
// as a Go error.
type Result struct {
	CallID       string `json:"call_id"`
	ToolName     string `json:"tool_name"`
	Status       Status `json:"status"`
	Payload      string `json:"payload,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
}

// ModelPayload renders the result as the JSON object fed back to the model.
func (r Result) ModelPayload() string {
	body := map[string]any{"status": string(r.Status)}
	if r.Payload != "" {
		body["output"] = r.Payload
	}
	if r.ErrorMessage != "" {
		body["error"] = r.ErrorMessage
	}
	data, _ := json.Marshal(body)
	return string(data)
}

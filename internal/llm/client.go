package llm

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go/v3"
)

// ToolCall is a single tool invocation requested by the model. The name
// and arguments are untrusted model output.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Response is a model completion: either final text, tool calls, or both.
type Response struct {
	Content   string
	ToolCalls []ToolCall
}

// Request is a simplified chat completion request.
type Request struct {
	Model      string
	Messages   []openai.ChatCompletionMessageParamUnion
	Tools      []openai.ChatCompletionToolUnionParam
	ToolChoice openai.ChatCompletionToolChoiceOptionUnionParam
}

// Client is the model backend contract. Failures are recoverable; the
// agent loop surfaces them as transcript entries and continues.
type Client interface {
	Create(ctx context.Context, req Request) (Response, error)
	Stream(ctx context.Context, req Request, onDelta func(string)) (Response, error)
}

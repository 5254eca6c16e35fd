// Package approval gates destructive tool calls behind an explicit
// consent decision. Approval is checked before any side effect occurs;
// a denied call must be fully inert.
package approval

import "context"

// Prompt describes the pending operation shown to whoever decides.
type Prompt struct {
	ToolName  string
	Arguments string
	Rationale string
}

// Decision is the outcome of an approval request.
type Decision struct {
	Granted bool
	Reason  string
}

// Presenter obtains an approval decision. Implementations may block on
// human input or answer immediately from policy.
type Presenter interface {
	Ask(ctx context.Context, prompt Prompt) (Decision, error)
}

// Policy answers every request the same way without prompting.
type Policy struct {
	Grant  bool
	Reason string
}

func (p Policy) Ask(ctx context.Context, prompt Prompt) (Decision, error) {
	return Decision{Granted: p.Grant, Reason: p.Reason}, nil
}

package approval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// TerminalPresenter prompts on the terminal and blocks until the user
// answers. The default answer is deny.
type TerminalPresenter struct {
	in  *bufio.Reader
	out io.Writer

	// reads carries line reads from the input goroutine. When a prompt is
	// cancelled the outstanding read stays pending and answers the next
	// prompt instead, so no typed input is silently consumed.
	reads   chan lineRead
	pending bool
}

type lineRead struct {
	line string
	err  error
}

// NewTerminalPresenter builds a presenter over the given streams.
func NewTerminalPresenter(in io.Reader, out io.Writer) *TerminalPresenter {
	return &TerminalPresenter{
		in:    bufio.NewReader(in),
		out:   out,
		reads: make(chan lineRead, 1),
	}
}

func (t *TerminalPresenter) Ask(ctx context.Context, prompt Prompt) (Decision, error) {
	fmt.Fprintf(t.out, "\napproval required: %s\n", prompt.ToolName)
	if prompt.Rationale != "" {
		fmt.Fprintf(t.out, "reason: %s\n", prompt.Rationale)
	}
	if prompt.Arguments != "" {
		fmt.Fprintf(t.out, "arguments:\n%s\n", indent(prompt.Arguments))
	}
	fmt.Fprint(t.out, "execute? [y/N] ")

	if !t.pending {
		t.pending = true
		go func() {
			line, err := t.in.ReadString('\n')
			t.reads <- lineRead{line: line, err: err}
		}()
	}

	select {
	case <-ctx.Done():
		// Interrupt while waiting counts as a denial so no approval
		// request is left dangling. The read stays pending for the next
		// prompt.
		return Decision{Granted: false, Reason: "cancelled"}, nil
	case a := <-t.reads:
		t.pending = false
		if a.err != nil && strings.TrimSpace(a.line) == "" {
			return Decision{Granted: false, Reason: "no decision received"}, nil
		}
		answer := strings.ToLower(strings.TrimSpace(a.line))
		if answer == "y" || answer == "yes" {
			return Decision{Granted: true}, nil
		}
		return Decision{Granted: false, Reason: "denied by user"}, nil
	}
}

func indent(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}

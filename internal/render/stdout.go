package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"demon-cli/internal/events"
)

// StdoutRenderer streams chat events to a plain text writer.
type StdoutRenderer struct {
	w       io.Writer
	mu      sync.Mutex
	verbose bool
	quiet   bool

	printedHeader    bool
	sawDelta         bool
	endedWithNewline bool
}

// NewStdoutRenderer creates a renderer for plain text streaming.
func NewStdoutRenderer(w io.Writer, verbose, quiet bool) *StdoutRenderer {
	return &StdoutRenderer{w: w, verbose: verbose, quiet: quiet}
}

func (r *StdoutRenderer) Emit(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch event.Type {
	case events.TurnStarted:
		r.printedHeader = false
		r.sawDelta = false
		if payload, ok := event.Payload.(events.TurnStartedPayload); ok && r.verbose {
			fmt.Fprintf(r.w, "turn %s | model: %s\n", payload.TurnID, payload.Model)
		}
	case events.ToolCallStarted:
		if payload, ok := event.Payload.(events.ToolCallStartedPayload); ok {
			if r.quiet {
				return
			}
			fmt.Fprintf(r.w, "tool: %s ...\n", payload.ToolName)
			if r.verbose {
				fmt.Fprintf(r.w, "input: %v\n", payload.Input)
			}
		}
	case events.ToolCallFinished, events.ToolCallFailed, events.ToolCallRejected:
		if payload, ok := event.Payload.(events.ToolCallFinishedPayload); ok {
			if r.quiet {
				return
			}
			fmt.Fprintf(r.w, "tool: %s %s (%dms)\n", payload.ToolName, payload.Status, payload.DurationMs)
			if r.verbose && payload.Preview != "" {
				for _, line := range strings.Split(payload.Preview, "\n") {
					fmt.Fprintf(r.w, "  %s\n", line)
				}
			}
		}
	case events.AchievementUnlocked:
		if payload, ok := event.Payload.(events.AchievementPayload); ok {
			fmt.Fprintf(r.w, "achievement unlocked: %s (+%d pts) - %s\n", payload.Name, payload.Points, payload.Description)
		}
	case events.ModelDelta:
		if payload, ok := event.Payload.(events.ModelDeltaPayload); ok {
			if !r.printedHeader {
				fmt.Fprint(r.w, "demon: ")
				r.printedHeader = true
			}
			if payload.Delta != "" {
				fmt.Fprint(r.w, payload.Delta)
				r.sawDelta = true
				r.endedWithNewline = strings.HasSuffix(payload.Delta, "\n")
			}
		}
	case events.FinalAnswerReady:
		if payload, ok := event.Payload.(events.FinalAnswerPayload); ok {
			if r.sawDelta {
				if !r.endedWithNewline {
					fmt.Fprintln(r.w)
				}
				return
			}
			if !r.printedHeader {
				fmt.Fprint(r.w, "demon: ")
				r.printedHeader = true
			}
			fmt.Fprintln(r.w, payload.Answer)
		}
	case events.TurnCancelled:
		fmt.Fprintln(r.w, "\n(cancelled)")
	case events.TurnError:
		if payload, ok := event.Payload.(events.TurnErrorPayload); ok {
			fmt.Fprintf(r.w, "\nerror: %s\n", payload.Message)
		}
	}
}

func (r *StdoutRenderer) Close() error {
	return nil
}

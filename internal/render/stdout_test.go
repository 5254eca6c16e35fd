package render

import (
	"bytes"
	"strings"
	"testing"

	"demon-cli/internal/events"
)

func TestStdoutRendererFinalAnswer(t *testing.T) {
	var buf bytes.Buffer
	r := NewStdoutRenderer(&buf, false, false)

	r.Emit(events.Event{Type: events.TurnStarted, Payload: events.TurnStartedPayload{TurnID: "t1", Model: "m"}})
	r.Emit(events.Event{Type: events.FinalAnswerReady, Payload: events.FinalAnswerPayload{Answer: "all done"}})

	out := buf.String()
	if !strings.Contains(out, "demon: all done") {
		t.Fatalf("expected final answer, got %q", out)
	}
}

func TestStdoutRendererStreamingSkipsDuplicateAnswer(t *testing.T) {
	var buf bytes.Buffer
	r := NewStdoutRenderer(&buf, false, false)

	r.Emit(events.Event{Type: events.TurnStarted})
	r.Emit(events.Event{Type: events.ModelDelta, Payload: events.ModelDeltaPayload{Delta: "all "}})
	r.Emit(events.Event{Type: events.ModelDelta, Payload: events.ModelDeltaPayload{Delta: "done"}})
	r.Emit(events.Event{Type: events.FinalAnswerReady, Payload: events.FinalAnswerPayload{Answer: "all done"}})

	out := buf.String()
	if strings.Count(out, "all done") != 1 {
		t.Fatalf("streamed answer should not be repeated, got %q", out)
	}
	if !strings.HasPrefix(out, "demon: all done") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestStdoutRendererQuietHidesToolLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewStdoutRenderer(&buf, false, true)

	r.Emit(events.Event{Type: events.ToolCallStarted, Payload: events.ToolCallStartedPayload{ToolName: "read_file"}})
	r.Emit(events.Event{Type: events.ToolCallFinished, Payload: events.ToolCallFinishedPayload{ToolName: "read_file", Status: "ok"}})

	if buf.Len() != 0 {
		t.Fatalf("quiet mode should suppress tool lines, got %q", buf.String())
	}
}

package events

import "time"

// Type represents an emitted event type.
type Type string

const (
	TurnStarted         Type = "TurnStarted"
	ToolCallStarted     Type = "ToolCallStarted"
	ToolCallFinished    Type = "ToolCallFinished"
	ToolCallFailed      Type = "ToolCallFailed"
	ToolCallRejected    Type = "ToolCallRejected"
	ModelDelta          Type = "ModelStreamingDelta"
	AchievementUnlocked Type = "AchievementUnlocked"
	FinalAnswerReady    Type = "FinalAnswerReady"
	TurnFinished        Type = "TurnFinished"
	TurnError           Type = "TurnError"
	TurnCancelled       Type = "TurnCancelled"
)

// Event is the common envelope for renderer events.
type Event struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TurnStartedPayload is emitted when a user turn begins.
type TurnStartedPayload struct {
	TurnID    string    `json:"turn_id"`
	Model     string    `json:"model"`
	StartedAt time.Time `json:"started_at"`
}

// ToolCallStartedPayload marks tool call start.
type ToolCallStartedPayload struct {
	ToolName string `json:"tool_name"`
	CallID   string `json:"call_id"`
	Input    any    `json:"input"`
}

// ToolCallFinishedPayload marks tool call end, in any status.
type ToolCallFinishedPayload struct {
	ToolName   string `json:"tool_name"`
	CallID     string `json:"call_id"`
	Status     string `json:"status"`
	Preview    string `json:"preview"`
	DurationMs int64  `json:"duration_ms"`
}

// ModelDeltaPayload is streamed as tokens arrive.
type ModelDeltaPayload struct {
	Delta string `json:"delta"`
}

// AchievementPayload announces a newly earned achievement.
type AchievementPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Points      int    `json:"points"`
}

// FinalAnswerPayload is emitted when the assistant answer is ready.
type FinalAnswerPayload struct {
	Answer string `json:"answer"`
}

// TurnFinishedPayload closes the turn.
type TurnFinishedPayload struct {
	Status     string    `json:"status"`
	Rounds     int       `json:"rounds"`
	FinishedAt time.Time `json:"finished_at"`
}

// TurnErrorPayload records a turn-level error.
type TurnErrorPayload struct {
	Message string `json:"message"`
}

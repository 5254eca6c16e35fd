package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"demon-cli/internal/achievements"
	"demon-cli/internal/config"
	"demon-cli/internal/conversation"
	"demon-cli/internal/events"
	"demon-cli/internal/history"
	"demon-cli/internal/llm"
	"demon-cli/internal/render"
	"demon-cli/internal/tools"
	"demon-cli/internal/util"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared/constant"
	"go.uber.org/zap"
)

// Turn statuses.
const (
	StatusSuccess   = "success"
	StatusPartial   = "partial"
	StatusFailure   = "failure"
	StatusCancelled = "cancelled"
)

// ToolCallRecord records one dispatched tool call within a turn.
type ToolCallRecord struct {
	ToolName   string    `json:"tool_name"`
	CallID     string    `json:"call_id"`
	Input      any       `json:"input"`
	Status     string    `json:"status"`
	Output     string    `json:"output,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

// TurnResult captures one user turn for JSON output and persistence.
type TurnResult struct {
	TurnID      string           `json:"turn_id"`
	StartedAt   time.Time        `json:"timestamp_start"`
	FinishedAt  time.Time        `json:"timestamp_end"`
	UserInput   string           `json:"user_input"`
	Model       string           `json:"model"`
	Rounds      int              `json:"rounds"`
	Status      string           `json:"status"`
	FinalAnswer string           `json:"final_answer"`
	ToolCalls   []ToolCallRecord `json:"tool_calls"`
	Events      []events.Event   `json:"events"`
}

// Agent drives the conversation loop: model call, tool dispatch, repeat
// until the model yields a final answer or the round limit trips.
type Agent struct {
	client     llm.Client
	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	conv       *conversation.Log
	renderer   render.Renderer
	logger     *zap.Logger
	cfg        config.Config
	tracker    *achievements.Tracker
	store      *history.Store
	root       string
}

// New constructs an Agent. tracker and store may be nil when those
// features are disabled.
func New(client llm.Client, registry *tools.Registry, dispatcher *tools.Dispatcher, conv *conversation.Log, renderer render.Renderer, logger *zap.Logger, cfg config.Config, tracker *achievements.Tracker, store *history.Store, workspaceRoot string) *Agent {
	return &Agent{
		client:     client,
		registry:   registry,
		dispatcher: dispatcher,
		conv:       conv,
		renderer:   renderer,
		logger:     logger,
		cfg:        cfg,
		tracker:    tracker,
		store:      store,
		root:       workspaceRoot,
	}
}

// Turn processes one user message to completion. Model backend failures,
// unknown tools, invalid arguments, rejections, and the round limit are
// all resolved inside the turn; none of them crash the conversation.
func (a *Agent) Turn(ctx context.Context, userInput string) TurnResult {
	started := time.Now()
	result := TurnResult{
		TurnID:    uuid.NewString(),
		StartedAt: started,
		UserInput: userInput,
		Model:     a.cfg.Model,
		Status:    StatusFailure,
	}
	emit := func(event events.Event) {
		result.Events = append(result.Events, event)
		if a.renderer != nil {
			a.renderer.Emit(event)
		}
	}

	emit(events.Event{Type: events.TurnStarted, Timestamp: time.Now(), Payload: events.TurnStartedPayload{
		TurnID:    result.TurnID,
		Model:     a.cfg.Model,
		StartedAt: started,
	}})

	a.conv.Append(conversation.Entry{Role: conversation.RoleUser, Content: userInput})
	if a.store != nil {
		a.store.AddMessage(string(conversation.RoleUser), userInput)
	}

	toolDefs := a.registry.OpenAITools()
	toolChoice := openai.ChatCompletionToolChoiceOptionUnionParam{}
	if len(toolDefs) > 0 {
		toolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: param.NewOpt("auto")}
	}

	rounds := 0
	for rounds < a.cfg.MaxToolRounds {
		rounds++
		req := llm.Request{Model: a.cfg.Model, Messages: a.messages(), Tools: toolDefs, ToolChoice: toolChoice}
		response, err := a.client.Create(ctx, req)
		if err != nil {
			result.Rounds = rounds
			result.FinishedAt = time.Now()
			if ctx.Err() != nil {
				return a.cancelTurn(&result, emit)
			}
			a.logger.Error("model request failed", zap.Error(err))
			msg := "model backend error: " + err.Error()
			a.conv.Append(conversation.Entry{Role: conversation.RoleAssistant, Content: msg})
			emit(events.Event{Type: events.TurnError, Timestamp: time.Now(), Payload: events.TurnErrorPayload{Message: err.Error()}})
			result.FinalAnswer = msg
			return result
		}

		if len(response.ToolCalls) == 0 {
			return a.finishTurn(ctx, &result, response.Content, rounds, StatusSuccess, emit)
		}

		refs := make([]conversation.ToolCallRef, 0, len(response.ToolCalls))
		for _, call := range response.ToolCalls {
			refs = append(refs, conversation.ToolCallRef{ID: call.ID, Name: call.Name, Arguments: call.Arguments})
		}
		a.conv.Append(conversation.Entry{Role: conversation.RoleAssistant, Content: response.Content, ToolCalls: refs})

		for _, call := range response.ToolCalls {
			if ctx.Err() != nil {
				result.Rounds = rounds
				return a.cancelTurn(&result, emit)
			}
			record := a.dispatchOne(ctx, call, emit)
			result.ToolCalls = append(result.ToolCalls, record)
		}
	}

	// Round limit tripped: force a final answer so the model cannot
	// tool-call forever. finishTurn appends the notice to the transcript.
	notice := fmt.Sprintf("Turn limit reached after %d tool rounds. Stopping here with a partial answer.", a.cfg.MaxToolRounds)
	return a.finishTurn(ctx, &result, notice, rounds, StatusPartial, emit)
}

// dispatchOne routes a single model tool call through the dispatcher and
// folds the result back into the transcript.
func (a *Agent) dispatchOne(ctx context.Context, call llm.ToolCall, emit func(events.Event)) ToolCallRecord {
	start := time.Now()
	input := sanitizeInput(call.Arguments)
	emit(events.Event{Type: events.ToolCallStarted, Timestamp: start, Payload: events.ToolCallStartedPayload{
		ToolName: call.Name,
		CallID:   call.ID,
		Input:    input,
	}})

	meta := tools.Meta{
		WorkspaceRoot:  a.root,
		TimeoutSeconds: a.cfg.ToolLimits.TimeoutSeconds,
		MaxBytes:       a.cfg.ToolLimits.MaxBytes,
		MaxResults:     a.cfg.ToolLimits.SearchMaxResults,
	}
	res := a.dispatcher.Dispatch(ctx, tools.Request{CallID: call.ID, ToolName: call.Name, Arguments: call.Arguments}, meta)

	a.conv.Append(conversation.Entry{Role: conversation.RoleTool, Content: res.ModelPayload(), CallID: call.ID})

	record := ToolCallRecord{
		ToolName:   call.Name,
		CallID:     call.ID,
		Input:      input,
		Status:     string(res.Status),
		Output:     res.Payload,
		Error:      res.ErrorMessage,
		StartedAt:  start,
		DurationMs: res.DurationMs,
	}

	eventType := events.ToolCallFinished
	preview := util.Preview(res.Payload, 12, 2000)
	switch res.Status {
	case tools.StatusError:
		eventType = events.ToolCallFailed
		preview = util.Preview(res.ErrorMessage, 12, 2000)
	case tools.StatusRejected:
		eventType = events.ToolCallRejected
		preview = res.ErrorMessage
	}
	emit(events.Event{Type: eventType, Timestamp: time.Now(), Payload: events.ToolCallFinishedPayload{
		ToolName:   call.Name,
		CallID:     call.ID,
		Status:     string(res.Status),
		Preview:    preview,
		DurationMs: res.DurationMs,
	}})

	if a.store != nil {
		a.store.AddToolCall(history.ToolCallRecord{
			Tool:       call.Name,
			Arguments:  util.RedactSecrets(string(call.Arguments)),
			Status:     string(res.Status),
			Result:     firstNonEmpty(res.Payload, res.ErrorMessage),
			Timestamp:  start,
			DurationMs: res.DurationMs,
		})
	}
	if a.tracker != nil {
		switch res.Status {
		case tools.StatusOK:
			a.tracker.MarkToolUsed(call.Name)
		case tools.StatusRejected:
			a.tracker.MarkApprovalDenied()
		}
		for _, earned := range a.tracker.CheckAndAward() {
			emit(events.Event{Type: events.AchievementUnlocked, Timestamp: time.Now(), Payload: events.AchievementPayload{
				Name:        earned.Name,
				Description: earned.Description,
				Points:      earned.Points,
			}})
		}
	}
	return record
}

func (a *Agent) finishTurn(ctx context.Context, result *TurnResult, answer string, rounds int, status string, emit func(events.Event)) TurnResult {
	answer = strings.TrimSpace(answer)
	if status == StatusSuccess && a.cfg.Stream {
		streamed, err := a.streamFinal(ctx, emit)
		if err != nil {
			a.logger.Warn("streaming final answer failed", zap.Error(err))
		} else if strings.TrimSpace(streamed) != "" {
			answer = strings.TrimSpace(streamed)
		}
	}
	a.conv.Append(conversation.Entry{Role: conversation.RoleAssistant, Content: answer})
	if a.store != nil {
		a.store.AddMessage(string(conversation.RoleAssistant), answer)
	}
	result.FinalAnswer = answer
	result.Status = status
	result.Rounds = rounds
	result.FinishedAt = time.Now()
	emit(events.Event{Type: events.FinalAnswerReady, Timestamp: time.Now(), Payload: events.FinalAnswerPayload{Answer: answer}})
	emit(events.Event{Type: events.TurnFinished, Timestamp: time.Now(), Payload: events.TurnFinishedPayload{
		Status:     status,
		Rounds:     rounds,
		FinishedAt: result.FinishedAt,
	}})
	return *result
}

func (a *Agent) cancelTurn(result *TurnResult, emit func(events.Event)) TurnResult {
	a.conv.Append(conversation.Entry{Role: conversation.RoleAssistant, Content: "(turn cancelled by user)"})
	result.Status = StatusCancelled
	result.FinalAnswer = "cancelled"
	result.FinishedAt = time.Now()
	emit(events.Event{Type: events.TurnCancelled, Timestamp: time.Now(), Payload: events.TurnErrorPayload{Message: "cancelled by user"}})
	return *result
}

// streamFinal re-requests the final answer as a stream so the REPL can
// print tokens as they arrive. It runs under the turn context so an
// interrupt or the per-turn timeout aborts the streaming call too.
func (a *Agent) streamFinal(ctx context.Context, emit func(events.Event)) (string, error) {
	req := llm.Request{Model: a.cfg.Model, Messages: a.messages(), Tools: a.registry.OpenAITools()}
	var builder strings.Builder
	_, err := a.client.Stream(ctx, req, func(delta string) {
		emit(events.Event{Type: events.ModelDelta, Timestamp: time.Now(), Payload: events.ModelDeltaPayload{Delta: delta}})
		builder.WriteString(delta)
	})
	return builder.String(), err
}

// messages converts the transcript snapshot into OpenAI chat messages.
// The snapshot always ends with the entry that prompted this call.
func (a *Agent) messages() []openai.ChatCompletionMessageParamUnion {
	snapshot := a.conv.Snapshot()
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(snapshot))
	for _, entry := range snapshot {
		switch entry.Role {
		case conversation.RoleSystem:
			out = append(out, openai.SystemMessage(entry.Content))
		case conversation.RoleUser:
			out = append(out, openai.UserMessage(entry.Content))
		case conversation.RoleAssistant:
			if len(entry.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(entry.Content))
				continue
			}
			calls := make([]openai.ChatCompletionMessageToolCallUnionParam, 0, len(entry.ToolCalls))
			for _, call := range entry.ToolCalls {
				calls = append(calls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: call.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: string(call.Arguments),
						},
						Type: constant.Function("function"),
					},
				})
			}
			assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: calls}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case conversation.RoleTool:
			out = append(out, openai.ToolMessage(entry.Content, entry.CallID))
		}
	}
	return out
}

func sanitizeInput(args json.RawMessage) any {
	if len(args) == 0 {
		return map[string]any{}
	}
	var data any
	if err := json.Unmarshal(args, &data); err != nil {
		return map[string]any{"raw": util.RedactSecrets(string(args))}
	}
	if bytes, err := json.Marshal(data); err == nil {
		return util.RedactSecrets(string(bytes))
	}
	return data
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}


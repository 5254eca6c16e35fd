package agent

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"demon-cli/internal/approval"
	"demon-cli/internal/config"
	"demon-cli/internal/conversation"
	"demon-cli/internal/llm"
	"demon-cli/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() config.Config {
	return config.Config{
		Model:         "test-model",
		MaxToolRounds: 5,
		MaxEntries:    50,
		ToolLimits: config.ToolLimits{
			TimeoutSeconds:   10,
			MaxBytes:         16 * 1024,
			SearchMaxResults: 100,
		},
	}
}

func newTestAgent(t *testing.T, client llm.Client, presenter approval.Presenter, cfg config.Config) (*Agent, string) {
	t.Helper()
	root := t.TempDir()
	registry := tools.NewRegistry()
	registry.MustRegister(
		tools.ReadFileTool{},
		tools.WriteFileTool{},
		tools.ListDirectoryTool{},
	)
	if presenter == nil {
		presenter = approval.Policy{Grant: true}
	}
	dispatcher := tools.NewDispatcher(registry, presenter, zap.NewNop())
	conv := conversation.NewLog("you are a test agent", cfg.MaxEntries)
	ag := New(client, registry, dispatcher, conv, nil, zap.NewNop(), cfg, nil, nil, root)
	return ag, root
}

func toolCallResponse(name string, args string) llm.Response {
	return llm.Response{ToolCalls: []llm.ToolCall{{
		ID:        "call-" + name,
		Name:      name,
		Arguments: json.RawMessage(args),
	}}}
}

func TestTurnPlainAnswer(t *testing.T) {
	client := llm.NewScriptedClient([]llm.Response{{Content: "just an answer"}}, nil)
	ag, _ := newTestAgent(t, client, nil, testConfig())

	result := ag.Turn(context.Background(), "hello")

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "just an answer", result.FinalAnswer)
	assert.Equal(t, 1, result.Rounds)
	assert.Empty(t, result.ToolCalls)
}

func TestTurnWithToolCall(t *testing.T) {
	client := llm.NewScriptedClient([]llm.Response{
		toolCallResponse("list_directory", `{}`),
		{Content: "the directory is empty"},
	}, nil)
	ag, _ := newTestAgent(t, client, nil, testConfig())

	result := ag.Turn(context.Background(), "what is here?")

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "the directory is empty", result.FinalAnswer)
	assert.Equal(t, 2, result.Rounds)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "list_directory", result.ToolCalls[0].ToolName)
	assert.Equal(t, "ok", result.ToolCalls[0].Status)
}

func TestTurnUnknownToolIsRecoverable(t *testing.T) {
	client := llm.NewScriptedClient([]llm.Response{
		toolCallResponse("repo_browser.search", `{"pattern":"x"}`),
		{Content: "recovered"},
	}, nil)
	ag, _ := newTestAgent(t, client, nil, testConfig())

	result := ag.Turn(context.Background(), "find x")

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "recovered", result.FinalAnswer)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "error", result.ToolCalls[0].Status)
	assert.Contains(t, result.ToolCalls[0].Error, "unknown tool")
}

func TestTurnRejectedApprovalLeavesNoSideEffect(t *testing.T) {
	client := llm.NewScriptedClient([]llm.Response{
		toolCallResponse("write_file", `{"path":"evil.txt","content":"boo"}`),
		{Content: "understood, not writing"},
	}, nil)
	ag, root := newTestAgent(t, client, approval.Policy{Grant: false, Reason: "denied by user"}, testConfig())

	result := ag.Turn(context.Background(), "write a file")

	assert.Equal(t, StatusSuccess, result.Status)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "rejected", result.ToolCalls[0].Status)
	_, err := os.Stat(filepath.Join(root, "evil.txt"))
	assert.True(t, os.IsNotExist(err), "rejected write must not create the file")
}

func TestTurnLimitForcesPartialAnswer(t *testing.T) {
	// The scripted client repeats the last response, so the model would
	// call tools forever without the round ceiling.
	client := llm.NewScriptedClient([]llm.Response{
		toolCallResponse("list_directory", `{}`),
	}, nil)
	cfg := testConfig()
	cfg.MaxToolRounds = 3
	ag, _ := newTestAgent(t, client, nil, cfg)

	result := ag.Turn(context.Background(), "loop forever")

	assert.Equal(t, StatusPartial, result.Status)
	assert.Equal(t, 3, result.Rounds)
	assert.Contains(t, result.FinalAnswer, "Turn limit reached after 3 tool rounds")
	assert.Len(t, result.ToolCalls, 3)
	assert.Equal(t, 3, client.Calls())

	// The notice goes into the transcript exactly once; a duplicate entry
	// would be replayed to the model on every later turn.
	notices := 0
	for _, entry := range ag.conv.Snapshot() {
		if entry.Role == conversation.RoleAssistant && strings.Contains(entry.Content, "Turn limit reached") {
			notices++
		}
	}
	assert.Equal(t, 1, notices)
}

func TestTurnModelFailureIsRecoverable(t *testing.T) {
	client := llm.NewScriptedClient([]llm.Response{{Content: "never reached"}}, []error{errors.New("connection refused")})
	ag, _ := newTestAgent(t, client, nil, testConfig())

	result := ag.Turn(context.Background(), "hello")
	assert.Equal(t, StatusFailure, result.Status)
	assert.Contains(t, result.FinalAnswer, "model backend error")

	// The next turn still works; the failure did not poison the session.
	next := ag.Turn(context.Background(), "hello again")
	assert.Equal(t, StatusSuccess, next.Status)
	assert.Equal(t, "never reached", next.FinalAnswer)
}

func TestTurnCancelledContext(t *testing.T) {
	client := llm.NewScriptedClient(nil, nil)
	ag, _ := newTestAgent(t, client, nil, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := ag.Turn(ctx, "hello")

	assert.Equal(t, StatusCancelled, result.Status)
}

// streamSpyClient records the context handed to Stream.
type streamSpyClient struct {
	streamCtx context.Context
}

func (c *streamSpyClient) Create(ctx context.Context, req llm.Request) (llm.Response, error) {
	return llm.Response{Content: "plain answer"}, nil
}

func (c *streamSpyClient) Stream(ctx context.Context, req llm.Request, onDelta func(string)) (llm.Response, error) {
	c.streamCtx = ctx
	if onDelta != nil {
		onDelta("streamed answer")
	}
	return llm.Response{Content: "streamed answer"}, nil
}

type turnCtxKey struct{}

func TestStreamedFinalAnswerUsesTurnContext(t *testing.T) {
	client := &streamSpyClient{}
	cfg := testConfig()
	cfg.Stream = true
	ag, _ := newTestAgent(t, client, nil, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = context.WithValue(ctx, turnCtxKey{}, "turn")

	result := ag.Turn(ctx, "hello")

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "streamed answer", result.FinalAnswer)
	require.NotNil(t, client.streamCtx)
	// The streaming call must observe turn cancellation and timeout, so it
	// has to run under the turn's context, not a fresh background one.
	assert.NotNil(t, client.streamCtx.Done())
	assert.Equal(t, "turn", client.streamCtx.Value(turnCtxKey{}))
}

func TestTurnValidationErrorFedBackToModel(t *testing.T) {
	client := llm.NewScriptedClient([]llm.Response{
		toolCallResponse("read_file", `{"start_line":1}`), // missing required path
		{Content: "let me fix the arguments"},
	}, nil)
	ag, _ := newTestAgent(t, client, nil, testConfig())

	result := ag.Turn(context.Background(), "read something")

	assert.Equal(t, StatusSuccess, result.Status)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "error", result.ToolCalls[0].Status)
	assert.Contains(t, result.ToolCalls[0].Error, "path")
}

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"demon-cli/internal/approval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// spyTool records executions so tests can assert a call never ran.
type spyTool struct {
	desc   Descriptor
	calls  int
	output string
	err    error
}

func (s *spyTool) Descriptor() Descriptor { return s.desc }

func (s *spyTool) Execute(ctx context.Context, input json.RawMessage, meta Meta) (string, error) {
	s.calls++
	return s.output, s.err
}

func newSpy(name string, requiresApproval bool) *spyTool {
	return &spyTool{
		desc: Descriptor{
			Name:        name,
			Description: "spy tool for tests",
			Category:    CategoryFiles,
			Parameters: []Parameter{
				{Name: "path", Type: "string", Description: "a path", Required: true},
			},
			RequiresApproval: requiresApproval,
		},
		output: "done",
	}
}

func newTestDispatcher(t *testing.T, presenter approval.Presenter, items ...Tool) (*Dispatcher, *Registry) {
	t.Helper()
	r := NewRegistry()
	r.MustRegister(items...)
	if presenter == nil {
		presenter = approval.Policy{Grant: true}
	}
	return NewDispatcher(r, presenter, zap.NewNop()), r
}

func TestDispatchUnknownToolNeverExecutes(t *testing.T) {
	spy := newSpy("read_file", false)
	d, _ := newTestDispatcher(t, nil, spy)

	res := d.Dispatch(context.Background(), Request{
		CallID:    "call-1",
		ToolName:  "reed_file",
		Arguments: json.RawMessage(`{"path":"x"}`),
	}, Meta{})

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.ErrorMessage, `unknown tool "reed_file"`)
	assert.Contains(t, res.ErrorMessage, "read_file")
	assert.Zero(t, spy.calls)
}

func TestDispatchRejectsMalformedJSON(t *testing.T) {
	spy := newSpy("spy", false)
	d, _ := newTestDispatcher(t, nil, spy)

	res := d.Dispatch(context.Background(), Request{
		CallID:    "call-1",
		ToolName:  "spy",
		Arguments: json.RawMessage(`{"path":`),
	}, Meta{})

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.ErrorMessage, "not valid JSON")
	assert.Zero(t, spy.calls)
}

func TestDispatchRejectsNonObjectArguments(t *testing.T) {
	spy := newSpy("spy", false)
	d, _ := newTestDispatcher(t, nil, spy)

	res := d.Dispatch(context.Background(), Request{
		CallID:    "call-1",
		ToolName:  "spy",
		Arguments: json.RawMessage(`[1,2,3]`),
	}, Meta{})

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.ErrorMessage, "must be a JSON object")
	assert.Zero(t, spy.calls)
}

func TestDispatchValidationNamesMissingParameter(t *testing.T) {
	spy := newSpy("spy", false)
	d, _ := newTestDispatcher(t, nil, spy)

	res := d.Dispatch(context.Background(), Request{
		CallID:    "call-1",
		ToolName:  "spy",
		Arguments: json.RawMessage(`{}`),
	}, Meta{})

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.ErrorMessage, "path")
	assert.Zero(t, spy.calls)
}

func TestDispatchValidationNamesWrongType(t *testing.T) {
	spy := newSpy("spy", false)
	d, _ := newTestDispatcher(t, nil, spy)

	res := d.Dispatch(context.Background(), Request{
		CallID:    "call-1",
		ToolName:  "spy",
		Arguments: json.RawMessage(`{"path":42}`),
	}, Meta{})

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.ErrorMessage, "path")
	assert.Zero(t, spy.calls)
}

func TestDispatchIgnoresUnknownExtraParameters(t *testing.T) {
	spy := newSpy("spy", false)
	d, _ := newTestDispatcher(t, nil, spy)

	res := d.Dispatch(context.Background(), Request{
		CallID:    "call-1",
		ToolName:  "spy",
		Arguments: json.RawMessage(`{"path":"x","future_param":true}`),
	}, Meta{})

	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 1, spy.calls)
}

func TestDispatchEmptyArgumentsTreatedAsEmptyObject(t *testing.T) {
	spy := newSpy("spy", false)
	spy.desc.Parameters = nil
	d, _ := newTestDispatcher(t, nil, spy)

	res := d.Dispatch(context.Background(), Request{CallID: "call-1", ToolName: "spy"}, Meta{})

	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, "done", res.Payload)
	assert.Equal(t, 1, spy.calls)
}

func TestDispatchDeniedApprovalIsInert(t *testing.T) {
	spy := newSpy("spy", true)
	d, _ := newTestDispatcher(t, approval.Policy{Grant: false, Reason: "not today"}, spy)

	res := d.Dispatch(context.Background(), Request{
		CallID:    "call-1",
		ToolName:  "spy",
		Arguments: json.RawMessage(`{"path":"x"}`),
	}, Meta{})

	assert.Equal(t, StatusRejected, res.Status)
	assert.Contains(t, res.ErrorMessage, "was not executed")
	assert.Contains(t, res.ErrorMessage, "not today")
	assert.Zero(t, spy.calls)
}

func TestDispatchGrantedApprovalExecutes(t *testing.T) {
	spy := newSpy("spy", true)
	d, _ := newTestDispatcher(t, approval.Policy{Grant: true}, spy)

	res := d.Dispatch(context.Background(), Request{
		CallID:    "call-1",
		ToolName:  "spy",
		Arguments: json.RawMessage(`{"path":"x"}`),
	}, Meta{})

	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 1, spy.calls)
}

func TestDispatchWrapsExecutionError(t *testing.T) {
	spy := newSpy("spy", false)
	spy.err = errors.New("disk on fire")
	d, _ := newTestDispatcher(t, nil, spy)

	res := d.Dispatch(context.Background(), Request{
		CallID:    "call-1",
		ToolName:  "spy",
		Arguments: json.RawMessage(`{"path":"x"}`),
	}, Meta{})

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "disk on fire", res.ErrorMessage)
	assert.Equal(t, 1, spy.calls)
}

func TestResultModelPayload(t *testing.T) {
	res := Result{CallID: "c", ToolName: "spy", Status: StatusOK, Payload: "hello"}
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.ModelPayload()), &decoded))
	assert.Equal(t, "ok", decoded["status"])
	assert.Equal(t, "hello", decoded["output"])

	res = Result{Status: StatusRejected, ErrorMessage: "denied"}
	require.NoError(t, json.Unmarshal([]byte(res.ModelPayload()), &decoded))
	assert.Equal(t, "rejected", decoded["status"])
	assert.Equal(t, "denied", decoded["error"])
}

package llm

import (
	"context"
	"errors"
	"sync"
)

// ScriptedClient replays a fixed sequence of responses. It backs tests and
// the DEMON_MOCK_LLM demo mode.
type ScriptedClient struct {
	mu        sync.Mutex
	responses []Response
	errs      []error
	calls     int
}

// NewScriptedClient builds a client that returns the given responses in
// order. A nil error slice means every call succeeds.
func NewScriptedClient(responses []Response, errs []error) *ScriptedClient {
	return &ScriptedClient{responses: responses, errs: errs}
}

// Calls reports how many completions have been requested.
func (s *ScriptedClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *ScriptedClient) next() (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return Response{}, s.errs[idx]
	}
	if len(s.responses) == 0 {
		return Response{}, errors.New("scripted client has no responses")
	}
	if idx >= len(s.responses) {
		// Repeat the last response so turn-limit tests can loop forever.
		return s.responses[len(s.responses)-1], nil
	}
	return s.responses[idx], nil
}

func (s *ScriptedClient) Create(ctx context.Context, req Request) (Response, error) {
	return s.next()
}

func (s *ScriptedClient) Stream(ctx context.Context, req Request, onDelta func(string)) (Response, error) {
	resp, err := s.next()
	if err != nil {
		return Response{}, err
	}
	if onDelta != nil && resp.Content != "" {
		onDelta(resp.Content)
	}
	return resp, nil
}

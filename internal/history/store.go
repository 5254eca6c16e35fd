// Package history persists finished chat sessions as JSON files. Writes
// are best-effort: the agent loop never blocks on a persistence failure.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessageRecord is one transcript message in a stored session.
type MessageRecord struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ToolCallRecord is one tool call in a stored session.
type ToolCallRecord struct {
	Tool       string    `json:"tool"`
	Arguments  string    `json:"arguments"`
	Status     string    `json:"status"`
	Result     string    `json:"result"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
}

// Session is one complete chat session.
type Session struct {
	SessionID string           `json:"session_id"`
	StartTime time.Time        `json:"start_time"`
	EndTime   *time.Time       `json:"end_time,omitempty"`
	Messages  []MessageRecord  `json:"messages"`
	ToolCalls []ToolCallRecord `json:"tool_calls"`
	Success   bool             `json:"success"`
}

// Store writes sessions under a directory, one file per session.
type Store struct {
	dir     string
	logger  *zap.Logger
	current *Session
}

// NewStore builds a store rooted at dir.
func NewStore(dir string, logger *zap.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// StartSession opens a new session.
func (s *Store) StartSession() {
	s.current = &Session{
		SessionID: uuid.NewString(),
		StartTime: time.Now(),
	}
}

// AddMessage appends a transcript message to the current session.
func (s *Store) AddMessage(role, content string) {
	if s.current == nil {
		return
	}
	s.current.Messages = append(s.current.Messages, MessageRecord{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// AddToolCall appends a tool call record to the current session.
func (s *Store) AddToolCall(record ToolCallRecord) {
	if s.current == nil {
		return
	}
	s.current.ToolCalls = append(s.current.ToolCalls, record)
}

// EndSession closes the current session and writes it to disk.
func (s *Store) EndSession(success bool) {
	if s.current == nil {
		return
	}
	now := time.Now()
	s.current.EndTime = &now
	s.current.Success = success
	s.write(s.current)
	s.current = nil
}

func (s *Store) write(session *Session) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Warn("failed to create history dir", zap.Error(err))
		return
	}
	name := session.StartTime.Format("20060102_150405") + "_" + session.SessionID[:8] + ".json"
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		s.logger.Warn("failed to marshal session", zap.Error(err))
		return
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o600); err != nil {
		s.logger.Warn("failed to write session", zap.Error(err))
	}
}

// List returns stored sessions sorted by filename (chronological).
func (s *Store) List() ([]Session, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var sessions []Session
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var session Session
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

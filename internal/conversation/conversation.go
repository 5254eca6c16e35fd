// Package conversation holds the ordered transcript for one chat session
// and its truncation policy.
package conversation

import (
	"encoding/json"
	"time"
)

// Role tags a transcript entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCallRef records a tool call carried by an assistant entry.
type ToolCallRef struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Entry is one transcript element. Tool entries carry the CallID of the
// assistant request they answer.
type Entry struct {
	Role      Role
	Content   string
	CallID    string
	ToolCalls []ToolCallRef
	Timestamp time.Time
}

// Log is the append-only transcript with a bounded entry count. Only the
// agent loop mutates it; snapshots copy so callers can't alias the
// backing slice.
type Log struct {
	entries    []Entry
	maxEntries int
}

// NewLog starts a transcript with the given system prompt. maxEntries <= 0
// disables truncation.
func NewLog(systemPrompt string, maxEntries int) *Log {
	log := &Log{maxEntries: maxEntries}
	log.entries = append(log.entries, Entry{Role: RoleSystem, Content: systemPrompt, Timestamp: time.Now()})
	return log
}

// Append adds an entry and enforces the size ceiling.
func (l *Log) Append(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	l.entries = append(l.entries, entry)
	l.truncate()
}

// Snapshot returns a copy of the transcript in order.
func (l *Log) Snapshot() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the current entry count.
func (l *Log) Len() int {
	return len(l.entries)
}

// Reset drops everything except the system entry.
func (l *Log) Reset() {
	l.entries = l.entries[:1]
}

// truncate prunes oldest non-system entries until under the ceiling.
// An assistant entry that requested tool calls is pruned together with
// its tool result entries so a result never outlives its request. The
// system entry at index 0 is never pruned and order never changes.
func (l *Log) truncate() {
	if l.maxEntries <= 0 {
		return
	}
	for len(l.entries) > l.maxEntries && len(l.entries) > 1 {
		victim := l.entries[1]
		remove := map[int]bool{1: true}
		if victim.Role == RoleAssistant && len(victim.ToolCalls) > 0 {
			ids := map[string]bool{}
			for _, call := range victim.ToolCalls {
				ids[call.ID] = true
			}
			for i := 2; i < len(l.entries); i++ {
				if l.entries[i].Role == RoleTool && ids[l.entries[i].CallID] {
					remove[i] = true
				}
			}
		}
		kept := l.entries[:0]
		for i, entry := range l.entries {
			if !remove[i] {
				kept = append(kept, entry)
			}
		}
		l.entries = kept
	}
}

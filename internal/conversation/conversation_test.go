package conversation

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSeedsSystemEntry(t *testing.T) {
	log := NewLog("system prompt", 10)
	require.Equal(t, 1, log.Len())
	snapshot := log.Snapshot()
	assert.Equal(t, RoleSystem, snapshot[0].Role)
	assert.Equal(t, "system prompt", snapshot[0].Content)
}

func TestLogAppendPreservesOrder(t *testing.T) {
	log := NewLog("sys", 0)
	log.Append(Entry{Role: RoleUser, Content: "q1"})
	log.Append(Entry{Role: RoleAssistant, Content: "a1"})
	log.Append(Entry{Role: RoleUser, Content: "q2"})

	snapshot := log.Snapshot()
	require.Len(t, snapshot, 4)
	assert.Equal(t, "q1", snapshot[1].Content)
	assert.Equal(t, "a1", snapshot[2].Content)
	assert.Equal(t, "q2", snapshot[3].Content)
}

func TestLogTruncationKeepsSystemEntry(t *testing.T) {
	log := NewLog("sys", 4)
	for i := 0; i < 20; i++ {
		log.Append(Entry{Role: RoleUser, Content: fmt.Sprintf("msg-%d", i)})
	}
	snapshot := log.Snapshot()
	require.LessOrEqual(t, len(snapshot), 4)
	assert.Equal(t, RoleSystem, snapshot[0].Role)
	assert.Equal(t, "sys", snapshot[0].Content)
	// The newest entries survive.
	assert.Equal(t, "msg-19", snapshot[len(snapshot)-1].Content)
}

func TestLogTruncationRemovesToolResultsWithTheirRequest(t *testing.T) {
	log := NewLog("sys", 20)
	log.Append(Entry{Role: RoleUser, Content: "do things"})
	log.Append(Entry{
		Role: RoleAssistant,
		ToolCalls: []ToolCallRef{
			{ID: "call-1", Name: "read_file", Arguments: json.RawMessage(`{"path":"a"}`)},
			{ID: "call-2", Name: "read_file", Arguments: json.RawMessage(`{"path":"b"}`)},
		},
	})
	log.Append(Entry{Role: RoleTool, CallID: "call-1", Content: "result a"})
	log.Append(Entry{Role: RoleTool, CallID: "call-2", Content: "result b"})
	log.Append(Entry{Role: RoleAssistant, Content: "summary"})

	// Shrink the ceiling by appending against a tighter log.
	tight := NewLog("sys", 4)
	for _, entry := range log.Snapshot()[1:] {
		tight.Append(entry)
	}

	for _, entry := range tight.Snapshot() {
		if entry.Role == RoleTool {
			// Any surviving tool result must still have its request.
			found := false
			for _, other := range tight.Snapshot() {
				if other.Role == RoleAssistant {
					for _, call := range other.ToolCalls {
						if call.ID == entry.CallID {
							found = true
						}
					}
				}
			}
			assert.True(t, found, "tool result %s outlived its request", entry.CallID)
		}
	}
}

func TestLogTruncationPrunesWholeToolRound(t *testing.T) {
	log := NewLog("sys", 3)
	log.Append(Entry{Role: RoleUser, Content: "q"})
	log.Append(Entry{
		Role:      RoleAssistant,
		ToolCalls: []ToolCallRef{{ID: "call-1", Name: "list_directory"}},
	})
	log.Append(Entry{Role: RoleTool, CallID: "call-1", Content: "files"})
	log.Append(Entry{Role: RoleAssistant, Content: "final"})

	snapshot := log.Snapshot()
	assert.Equal(t, RoleSystem, snapshot[0].Role)
	for _, entry := range snapshot {
		if entry.Role == RoleTool {
			t.Fatalf("orphaned tool result survived truncation: %+v", entry)
		}
		assert.Empty(t, entry.ToolCalls)
	}
	assert.Equal(t, "final", snapshot[len(snapshot)-1].Content)
}

func TestLogReset(t *testing.T) {
	log := NewLog("sys", 10)
	log.Append(Entry{Role: RoleUser, Content: "q"})
	log.Append(Entry{Role: RoleAssistant, Content: "a"})
	log.Reset()
	require.Equal(t, 1, log.Len())
	assert.Equal(t, RoleSystem, log.Snapshot()[0].Role)
}

func TestLogUnboundedWhenMaxEntriesZero(t *testing.T) {
	log := NewLog("sys", 0)
	for i := 0; i < 100; i++ {
		log.Append(Entry{Role: RoleUser, Content: "x"})
	}
	assert.Equal(t, 101, log.Len())
}

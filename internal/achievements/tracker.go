package achievements

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Tracker owns achievement progress and persists it as JSON. Persistence
// is best-effort: a failed save is logged and never interrupts a session.
type Tracker struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger

	earned map[string]bool
	stats  map[string]int
	tools  map[string]bool
}

type trackerState struct {
	Earned []string       `json:"earned"`
	Stats  map[string]int `json:"stats"`
	Tools  []string       `json:"tools_seen"`
}

// NewTracker loads existing progress from path, starting fresh when the
// file is missing or unreadable.
func NewTracker(path string, logger *zap.Logger) *Tracker {
	t := &Tracker{
		path:   path,
		logger: logger,
		earned: map[string]bool{},
		stats:  map[string]int{},
		tools:  map[string]bool{},
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return t
	}
	var state trackerState
	if err := json.Unmarshal(data, &state); err != nil {
		logger.Warn("achievement state unreadable, starting fresh", zap.Error(err))
		return t
	}
	for _, id := range state.Earned {
		t.earned[id] = true
	}
	for _, name := range state.Tools {
		t.tools[name] = true
	}
	if state.Stats != nil {
		t.stats = state.Stats
	}
	return t
}

// MarkToolUsed records a tool call for achievement stats.
func (t *Tracker) MarkToolUsed(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats["tools_used"]++
	if !t.tools[name] {
		t.tools[name] = true
		t.stats["unique_tools_used"] = len(t.tools)
	}
	switch name {
	case "git_commit":
		t.stats["git_commits"]++
	case "edit_file", "write_file":
		t.stats["files_edited"]++
	}
	t.save()
}

// MarkApprovalDenied records a rejected approval request.
func (t *Tracker) MarkApprovalDenied() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats["approvals_denied"]++
	t.save()
}

// MarkSessionCompleted records the end of a session.
func (t *Tracker) MarkSessionCompleted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats["sessions_completed"]++
	t.save()
}

// CheckAndAward returns achievements newly earned since the last check.
func (t *Tracker) CheckAndAward() []Achievement {
	t.mu.Lock()
	defer t.mu.Unlock()
	var newly []Achievement
	for _, a := range All {
		if t.earned[a.ID] {
			continue
		}
		if t.stats[a.Stat] >= a.Threshold {
			t.earned[a.ID] = true
			newly = append(newly, a)
		}
	}
	if len(newly) > 0 {
		t.save()
	}
	return newly
}

// Earned returns the earned achievements sorted by ID.
func (t *Tracker) Earned() []Achievement {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Achievement
	for _, a := range All {
		if t.earned[a.ID] {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats returns a copy of the raw stat counters.
func (t *Tracker) Stats() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.stats))
	for k, v := range t.stats {
		out[k] = v
	}
	return out
}

// TotalPoints sums points over earned achievements.
func (t *Tracker) TotalPoints() int {
	total := 0
	for _, a := range t.Earned() {
		total += a.Points
	}
	return total
}

func (t *Tracker) save() {
	state := trackerState{Stats: t.stats}
	for id := range t.earned {
		state.Earned = append(state.Earned, id)
	}
	for name := range t.tools {
		state.Tools = append(state.Tools, name)
	}
	sort.Strings(state.Earned)
	sort.Strings(state.Tools)
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		t.logger.Warn("failed to marshal achievement state", zap.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		t.logger.Warn("failed to create achievement dir", zap.Error(err))
		return
	}
	if err := os.WriteFile(t.path, data, 0o600); err != nil {
		t.logger.Warn("failed to save achievement state", zap.Error(err))
	}
}

// Package achievements tracks usage milestones across sessions.
package achievements

// Rarity levels for achievements.
type Rarity string

const (
	Common    Rarity = "common"
	Uncommon  Rarity = "uncommon"
	Rare      Rarity = "rare"
	Epic      Rarity = "epic"
	Legendary Rarity = "legendary"
)

// Achievement is a static definition; progress lives in the Tracker.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Rarity      Rarity `json:"rarity"`
	Points      int    `json:"points"`

	// Stat and Threshold drive the award check: earned once the named
	// stat reaches the threshold.
	Stat      string `json:"-"`
	Threshold int    `json:"-"`
}

// All is the full achievement catalog.
var All = []Achievement{
	{ID: "first_blood", Name: "First Blood", Description: "Completed your first session", Category: "sessions", Rarity: Common, Points: 10, Stat: "sessions_completed", Threshold: 1},
	{ID: "veteran", Name: "Veteran", Description: "Completed 50 sessions", Category: "sessions", Rarity: Rare, Points: 75, Stat: "sessions_completed", Threshold: 50},
	{ID: "legend", Name: "Legend", Description: "Completed 100 sessions", Category: "sessions", Rarity: Epic, Points: 150, Stat: "sessions_completed", Threshold: 100},
	{ID: "first_tool", Name: "Apprentice", Description: "Used a tool for the first time", Category: "tools", Rarity: Common, Points: 10, Stat: "tools_used", Threshold: 1},
	{ID: "tool_enthusiast", Name: "Tool Enthusiast", Description: "Used 8 different tools", Category: "tools", Rarity: Uncommon, Points: 25, Stat: "unique_tools_used", Threshold: 8},
	{ID: "demon_master", Name: "Demon Master", Description: "Made 1000 tool calls", Category: "tools", Rarity: Legendary, Points: 300, Stat: "tools_used", Threshold: 1000},
	{ID: "first_commit", Name: "First Offering", Description: "Committed through the agent", Category: "git", Rarity: Common, Points: 15, Stat: "git_commits", Threshold: 1},
	{ID: "commit_master", Name: "Commit Master", Description: "Made 50 commits through the agent", Category: "git", Rarity: Rare, Points: 100, Stat: "git_commits", Threshold: 50},
	{ID: "file_editor", Name: "Code Surgeon", Description: "Edited 10 files", Category: "files", Rarity: Uncommon, Points: 30, Stat: "files_edited", Threshold: 10},
	{ID: "careful_one", Name: "The Careful One", Description: "Denied 5 approval requests", Category: "special", Rarity: Uncommon, Points: 20, Stat: "approvals_denied", Threshold: 5},
}

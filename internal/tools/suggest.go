package tools

import (
	"fmt"
	"sort"
	"strings"
)

const (
	suggestionThreshold = 0.4
	substringBonus      = 0.3
	maxSuggestions      = 3
)

// Suggestion is a ranked near-match for an unknown tool name.
type Suggestion struct {
	Name        string
	Description string
	Score       float64
}

// Suggest ranks registered tool names by similarity to the requested name.
// Scores combine a normalized edit-distance ratio with a fixed bonus when
// one name contains the other, which rewards partial or compound-name
// typos ("search" vs "search_files") over generic near-misses. Ties break
// on registration order so the ranking is deterministic.
func (r *Registry) Suggest(name string) []Suggestion {
	var out []Suggestion
	for _, candidate := range r.order {
		score := similarity(name, candidate)
		if containsFold(name, candidate) {
			score += substringBonus
		}
		if score > suggestionThreshold {
			out = append(out, Suggestion{
				Name:        candidate,
				Description: r.tools[candidate].Descriptor().Description,
				Score:       score,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

// UnknownToolMessage builds the error text returned to the model for an
// unresolved tool name, listing either ranked suggestions or the whole
// catalog so the model can self-correct on its next call.
func (r *Registry) UnknownToolMessage(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "unknown tool %q.", name)
	suggestions := r.Suggest(name)
	if len(suggestions) > 0 {
		b.WriteString(" Did you mean:\n")
		for _, s := range suggestions {
			fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
		}
	} else {
		b.WriteString(" Available tools:\n")
		var lastCategory Category
		for _, desc := range r.Descriptors() {
			if desc.Category != lastCategory {
				fmt.Fprintf(&b, "[%s]\n", desc.Category)
				lastCategory = desc.Category
			}
			fmt.Fprintf(&b, "- %s: %s\n", desc.Name, desc.Description)
		}
	}
	b.WriteString("Only tool names listed above may be used.")
	return b.String()
}

// containsFold reports whether either name contains the other,
// case-insensitively. Namespaced requests like "repo_browser.search" are
// also matched segment by segment so the trailing segment can still hit.
func containsFold(requested, candidate string) bool {
	lr, lc := strings.ToLower(requested), strings.ToLower(candidate)
	if strings.Contains(lr, lc) || strings.Contains(lc, lr) {
		return true
	}
	for _, segment := range strings.FieldsFunc(lr, func(r rune) bool { return r == '.' || r == '/' }) {
		if segment != "" && strings.Contains(lc, segment) {
			return true
		}
	}
	return false
}

// similarity returns a normalized edit-distance ratio in [0,1].
func similarity(a, b string) float64 {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == lb {
		return 1
	}
	longest := len(la)
	if len(lb) > longest {
		longest = len(lb)
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein(la, lb))/float64(longest)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.MustRegister(
		ReadFileTool{},
		WriteFileTool{},
		EditFileTool{},
		SearchFilesTool{},
		ListDirectoryTool{},
		GitStatusTool{},
		GitDiffTool{},
		GitBranchTool{},
		GitCommitTool{},
		GitPushTool{},
		ExecuteCommandTool{},
		NewFetchURLTool(),
	)
	return r
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(ReadFileTool{}))
	err := r.Register(ReadFileTool{})
	require.ErrorIs(t, err, ErrDuplicateTool)
}

func TestRegistryNamesPreserveRegistrationOrder(t *testing.T) {
	r := newTestRegistry(t)
	names := r.Names()
	require.Len(t, names, 12)
	assert.Equal(t, "read_file", names[0])
	assert.Equal(t, "fetch_url", names[len(names)-1])
}

func TestRegistryLookup(t *testing.T) {
	r := newTestRegistry(t)
	tool, ok := r.Lookup("git_status")
	require.True(t, ok)
	assert.Equal(t, "git_status", tool.Descriptor().Name)

	_, ok = r.Lookup("no_such_tool")
	assert.False(t, ok)
}

func TestRegistryDescriptorsGroupedByCategory(t *testing.T) {
	r := newTestRegistry(t)
	descs := r.Descriptors()
	require.Len(t, descs, 12)

	lastIndex := map[Category]int{}
	for i, d := range descs {
		lastIndex[d.Category] = i
	}
	// All files tools come before any git tool, git before execution,
	// execution before web.
	assert.Less(t, lastIndex[CategoryFiles], firstIndex(descs, CategoryGit))
	assert.Less(t, lastIndex[CategoryGit], firstIndex(descs, CategoryExecution))
	assert.Less(t, lastIndex[CategoryExecution], firstIndex(descs, CategoryWeb))
}

func firstIndex(descs []Descriptor, cat Category) int {
	for i, d := range descs {
		if d.Category == cat {
			return i
		}
	}
	return -1
}

func TestRegistryOpenAITools(t *testing.T) {
	r := newTestRegistry(t)
	defs := r.OpenAITools()
	require.Len(t, defs, 12)
	require.NotNil(t, defs[0].OfFunction)
	assert.Equal(t, "read_file", defs[0].OfFunction.Function.Name)
}

func TestDescriptorSchemaMarksRequired(t *testing.T) {
	schema := (ReadFileTool{}).Descriptor().Schema()
	assert.Equal(t, "object", schema["type"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "path")
	assert.Contains(t, props, "start_line")
	assert.Equal(t, []string{"path"}, schema["required"])
}

package tools

import (
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"
	"github.com/xeipuuv/gojsonschema"
)

// ErrDuplicateTool is returned when a tool name is registered twice.
var ErrDuplicateTool = errors.New("duplicate tool name")

// Registry stores the tool catalog. Registration happens once at startup;
// after that the registry is read-only and safe for concurrent lookups.
type Registry struct {
	tools   map[string]Tool
	schemas map[string]*gojsonschema.Schema
	order   []string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   map[string]Tool{},
		schemas: map[string]*gojsonschema.Schema{},
	}
}

// Register adds a tool to the catalog and compiles its argument schema.
func (r *Registry) Register(tool Tool) error {
	desc := tool.Descriptor()
	if desc.Name == "" {
		return errors.New("tool name is required")
	}
	if _, exists := r.tools[desc.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, desc.Name)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(desc.Schema()))
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", desc.Name, err)
	}
	r.tools[desc.Name] = tool
	r.schemas[desc.Name] = schema
	r.order = append(r.order, desc.Name)
	return nil
}

// MustRegister registers tools built at startup; a bad descriptor is a
// programming error, not a runtime condition.
func (r *Registry) MustRegister(items ...Tool) {
	for _, item := range items {
		if err := r.Register(item); err != nil {
			panic(err)
		}
	}
}

// Lookup returns a tool by name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Descriptors returns the catalog grouped by category, preserving
// registration order within each category.
func (r *Registry) Descriptors() []Descriptor {
	categories := []Category{CategoryFiles, CategoryGit, CategoryExecution, CategoryWeb}
	var out []Descriptor
	seen := map[string]bool{}
	for _, cat := range categories {
		for _, name := range r.order {
			desc := r.tools[name].Descriptor()
			if desc.Category == cat {
				out = append(out, desc)
				seen[name] = true
			}
		}
	}
	for _, name := range r.order {
		if !seen[name] {
			out = append(out, r.tools[name].Descriptor())
		}
	}
	return out
}

// OpenAITools converts the catalog to the OpenAI tool schema.
func (r *Registry) OpenAITools() []openai.ChatCompletionToolUnionParam {
	var defs []openai.ChatCompletionToolUnionParam
	for _, name := range r.order {
		desc := r.tools[name].Descriptor()
		defs = append(defs, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        desc.Name,
					Description: param.NewOpt(desc.Description),
					Parameters:  desc.Schema(),
				},
			},
		})
	}
	return defs
}

func (r *Registry) schemaFor(name string) *gojsonschema.Schema {
	return r.schemas[name]
}

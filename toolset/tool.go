package toolset

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/jmtasker/agent-backends-go/internal/schema"
)

// Tool is the generic agent tool interface. The type parameter T is the
// input struct deserialized from the model's JSON arguments.
type Tool[T any] interface {
	Name() string
	Description() string
	Run(ctx context.Context, input T) (*ToolResult, error)
}

// ToolResult is the outcome of a tool call.
type ToolResult struct {
	Content []anthropic.ContentBlockParamUnion
	IsError bool
}

// TextResult wraps text in a successful tool result.
func TextResult(text string) *ToolResult {
	return &ToolResult{
		Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(text)},
	}
}

// ErrorResult wraps text in a failed tool result.
func ErrorResult(text string) *ToolResult {
	return &ToolResult{
		Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(text)},
		IsError: true,
	}
}

// Text returns the concatenated text content of the result.
func (r *ToolResult) Text() string {
	var out string
	for _, block := range r.Content {
		if block.OfText != nil {
			out += block.OfText.Text
		}
	}
	return out
}

type registered struct {
	name        string
	description string
	schema      anthropic.ToolInputSchemaParam
	run         func(ctx context.Context, raw json.RawMessage) (*ToolResult, error)
}

// Registry holds tools by name in registration order. Concurrent-safe.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*registered
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*registered)}
}

// Register adds a generic tool. The input schema is derived from T's
// struct tags. Re-registering a name replaces the previous tool.
func Register[T any](r *Registry, tool Tool[T]) {
	entry := &registered{
		name:        tool.Name(),
		description: tool.Description(),
		schema:      schema.For[T](),
		run: func(ctx context.Context, raw json.RawMessage) (*ToolResult, error) {
			var input T
			if err := json.Unmarshal(raw, &input); err != nil {
				return ErrorResult(fmt.Sprintf("invalid input: %s", err.Error())), nil
			}
			return tool.Run(ctx, input)
		},
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[entry.name]; !exists {
		r.order = append(r.order, entry.name)
	}
	r.tools[entry.name] = entry
}

// Call runs a tool by name with raw JSON input.
func (r *Registry) Call(ctx context.Context, name string, input json.RawMessage) (*ToolResult, error) {
	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return entry.run(ctx, input)
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// ListForAPI renders the registry in the Anthropic API tool format.
func (r *Registry) ListForAPI() []anthropic.ToolUnionParam {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]anthropic.ToolUnionParam, 0, len(r.order))
	for _, name := range r.order {
		entry := r.tools[name]
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        entry.name,
				Description: param.NewOpt(entry.description),
				InputSchema: entry.schema,
			},
		})
	}
	return out
}

// Package agillm defines the single-operation LLM abstraction and its
// decorators (context truncation, auto-recovery), plus thin provider
// bindings.
package agillm

import (
	"context"

	"github.com/kadirpekel/agiloop/agimsg"
)

// ToolMetadata describes a tool's calling contract to the LLM.
type ToolMetadata struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Response is what a Port returns for one Generate call.
type Response struct {
	Content      *string
	ToolCalls    []agimsg.ToolCall
	FinishReason string
	Usage        *agimsg.Usage
}

// Port is the single operation every LLM binding and decorator
// implements, per spec §4.2.
type Port interface {
	Generate(ctx context.Context, messages []agimsg.Message, tools []ToolMetadata) (*Response, error)
}

// PortFunc adapts a function to Port, used by tests and simple
// decorator compositions.
type PortFunc func(ctx context.Context, messages []agimsg.Message, tools []ToolMetadata) (*Response, error)

func (f PortFunc) Generate(ctx context.Context, messages []agimsg.Message, tools []ToolMetadata) (*Response, error) {
	return f(ctx, messages, tools)
}

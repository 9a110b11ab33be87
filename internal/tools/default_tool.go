package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// DefaultTool is a base implementation of the Tool interface that can be embedded in other tools.
type DefaultTool struct {
	definition mcp.Tool
}

// NewDefaultTool creates a new DefaultTool with the given name and description.
// Extra options describe the input schema.
func NewDefaultTool(name, description string, opts ...mcp.ToolOption) *DefaultTool {
	base := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithTitleAnnotation(fmt.Sprintf("%s Tool", name)),
		mcp.WithOpenWorldHintAnnotation(true),
	}
	return &DefaultTool{
		definition: mcp.NewTool(name, append(base, opts...)...),
	}
}

// Name returns the name of the tool.
func (t *DefaultTool) Name() string {
	return t.definition.Name
}

// Definition returns the tool definition in MCP format.
func (t *DefaultTool) Definition() mcp.Tool {
	return t.definition
}

// Call is the default implementation of the Tool interface.
// Tools should override this method with their specific implementation.
func (t *DefaultTool) Call(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	return nil, fmt.Errorf("method not implemented for tool: %s", t.definition.Name)
}

package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// Tool is the interface that all tools must implement.
type Tool interface {
	// Name returns the name of the tool.
	Name() string

	// Definition returns the tool as advertised by tools/list.
	Definition() mcp.Tool

	// Call executes the tool with the JSON-encoded arguments of a tools/call
	// request. Failures the caller should see belong in the result with
	// IsError set; a returned error means the call could not be attempted.
	Call(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error)
}

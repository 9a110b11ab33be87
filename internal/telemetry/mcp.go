package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"weather-agent/internal/tools"
)

// ToolRegistryWrapper wraps a tool registry to record tool executions.
type ToolRegistryWrapper struct {
	*tools.Registry
	metrics *Metrics
}

func NewToolRegistryWrapper(registry *tools.Registry, metrics *Metrics) *ToolRegistryWrapper {
	return &ToolRegistryWrapper{
		Registry: registry,
		metrics:  metrics,
	}
}

// Call counts results with IsError set as errors, like failed calls.
func (w *ToolRegistryWrapper) Call(ctx context.Context, name string, args json.RawMessage) (*mcp.CallToolResult, error) {
	start := time.Now()
	result, err := w.Registry.Call(ctx, name, args)

	status := "success"
	if err != nil || (result != nil && result.IsError) {
		status = "error"
	}
	w.metrics.RecordToolExecution(name, status, time.Since(start))

	return result, err
}

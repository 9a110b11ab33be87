// Package tools calls tools hosted on a remote MCP server over streamable HTTP.
package tools

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

// ClientInfo identifies this process to MCP servers.
var ClientInfo = mcp.Implementation{Name: "weather-agent", Version: "1.0.0"}

// Session is an initialized MCP client session. Close ends it on the server.
type Session struct {
	client *client.Client
	server *mcp.InitializeResult
	logger zerolog.Logger
}

// Dial opens a session with the MCP server at url: it sends initialize and
// the initialized notification.
func Dial(ctx context.Context, url string, logger zerolog.Logger, opts ...transport.StreamableHTTPCOption) (*Session, error) {
	c, err := client.NewStreamableHttpClient(url, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create MCP client")
	}
	if err := c.Start(ctx); err != nil {
		return nil, errors.Wrap(err, "start MCP client")
	}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = ClientInfo

	server, err := c.Initialize(ctx, req)
	if err != nil {
		c.Close()
		return nil, errors.Wrapf(err, "initialize MCP session with %s", url)
	}

	logger = logger.With().Str("component", "mcp_client").Logger()
	logger.Debug().
		Str("server", server.ServerInfo.Name).
		Str("protocol_version", server.ProtocolVersion).
		Msg("MCP session initialized")

	return &Session{client: c, server: server, logger: logger}, nil
}

// Server returns the server's initialize result.
func (s *Session) Server() *mcp.InitializeResult {
	return s.server
}

func (s *Session) Ping(ctx context.Context) error {
	return errors.Wrap(s.client.Ping(ctx), "ping")
}

func (s *Session) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	res, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, errors.Wrap(err, "list tools")
	}
	return res.Tools, nil
}

func (s *Session) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	res, err := s.client.ListResources(ctx, mcp.ListResourcesRequest{})
	if err != nil {
		return nil, errors.Wrap(err, "list resources")
	}
	return res.Resources, nil
}

func (s *Session) ListPrompts(ctx context.Context) ([]mcp.Prompt, error) {
	res, err := s.client.ListPrompts(ctx, mcp.ListPromptsRequest{})
	if err != nil {
		return nil, errors.Wrap(err, "list prompts")
	}
	return res.Prompts, nil
}

// CallTool invokes name with args. Tool-level failures come back as a result
// with IsError set, not as an error.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := s.client.CallTool(ctx, req)
	if err != nil {
		return nil, errors.Wrapf(err, "call tool %s", name)
	}
	s.logger.Debug().Str("tool", name).Bool("is_error", res.IsError).Msg("Tool call returned")
	return res, nil
}

// Close terminates the session.
func (s *Session) Close() error {
	return s.client.Close()
}

// Text joins all text parts of a tool result with newlines, not only the
// first one. get_weather always returns a single part. Non-text parts are
// skipped.
func Text(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	var parts []string
	for _, c := range res.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

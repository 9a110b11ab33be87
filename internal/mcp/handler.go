// Package mcp serves the Model Context Protocol over streamable HTTP:
// JSON-RPC 2.0 messages POSTed to a single endpoint, with sessions carried
// in the Mcp-Session-Id header.
package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"slices"

	"github.com/cockroachdb/errors"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"weather-agent/internal/jsonrpc"
	"weather-agent/internal/session"
	"weather-agent/internal/tools"
)

const maxBodySize = 1 << 20

// SupportedProtocolVersions lists the revisions this server accepts, newest first.
var SupportedProtocolVersions = []string{"2025-06-18", "2025-03-26", "2024-11-05"}

// ToolProvider lists and invokes tools. *tools.Registry and the telemetry
// wrapper around it both satisfy it.
type ToolProvider interface {
	Definitions() []mcpgo.Tool
	Call(ctx context.Context, name string, args json.RawMessage) (*mcpgo.CallToolResult, error)
}

// RequestRecorder observes every handled JSON-RPC message.
type RequestRecorder interface {
	RecordMCPRequest(method, outcome string)
}

// ServerInfo is advertised in the initialize result.
type ServerInfo struct {
	Name         string
	Version      string
	Instructions string
}

// Handler implements the MCP endpoint.
type Handler struct {
	tools          ToolProvider
	sessions       session.SessionManager
	info           ServerInfo
	requireSession bool
	recorder       RequestRecorder
	logger         zerolog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithRecorder reports handled messages to r.
func WithRecorder(r RequestRecorder) Option {
	return func(h *Handler) { h.recorder = r }
}

// WithoutSessionRequirement accepts requests that carry no session header.
func WithoutSessionRequirement() Option {
	return func(h *Handler) { h.requireSession = false }
}

// NewHandler creates a new MCP handler.
func NewHandler(provider ToolProvider, sessions session.SessionManager, info ServerInfo, logger zerolog.Logger, opts ...Option) *Handler {
	h := &Handler{
		tools:          provider,
		sessions:       sessions,
		info:           info,
		requireSession: true,
		logger:         logger.With().Str("component", "mcp_handler").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandlePost handles POST requests carrying one JSON-RPC message.
func (h *Handler) HandlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		h.writeResponse(w, http.StatusRequestEntityTooLarge,
			jsonrpc.NewErrorResponse(nil, jsonrpc.NewError(jsonrpc.InvalidRequest, "Request body too large", nil)))
		return
	}

	msg, err := jsonrpc.ParseMessage(body)
	if err != nil {
		var rpcErr *jsonrpc.Error
		if !errors.As(err, &rpcErr) {
			rpcErr = jsonrpc.NewError(jsonrpc.ParseError, "Parse error", nil)
		}
		h.logger.Debug().Err(err).Msg("Rejected malformed JSON-RPC message")
		h.record("invalid", "error")
		h.writeResponse(w, http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, rpcErr))
		return
	}

	switch m := msg.(type) {
	case *jsonrpc.Notification:
		if _, ok := h.session(w, r, nil); !ok {
			return
		}
		h.logger.Debug().Str("method", m.Method).Msg("Received notification")
		h.record(m.Method, "notification")
		w.WriteHeader(http.StatusAccepted)

	case *jsonrpc.Response:
		// Replies to server-initiated requests; this server sends none.
		w.WriteHeader(http.StatusAccepted)

	case *jsonrpc.Request:
		if m.Method == string(mcpgo.MethodInitialize) {
			h.initialize(w, r, m)
			return
		}
		sess, ok := h.session(w, r, m.ID)
		if !ok {
			return
		}

		ctx := r.Context()
		if sess != nil {
			ctx = session.WithSession(ctx, sess)
		}
		result, rpcErr := h.dispatch(ctx, m)
		if rpcErr != nil {
			h.record(m.Method, "error")
			h.writeResponse(w, http.StatusOK, jsonrpc.NewErrorResponse(m.ID, rpcErr))
			return
		}
		h.record(m.Method, "ok")
		h.writeResponse(w, http.StatusOK, jsonrpc.NewResponse(m.ID, result))
	}
}

// HandleDelete terminates the session named by the Mcp-Session-Id header.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(session.HeaderName)
	if sessionID == "" {
		http.Error(w, "missing "+session.HeaderName+" header", http.StatusBadRequest)
		return
	}
	if err := session.ValidateID(sessionID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.sessions.DeleteSession(r.Context(), sessionID); err != nil {
		http.Error(w, err.Error(), session.HTTPStatus(err))
		return
	}
	h.logger.Info().Str("session_id", sessionID).Msg("Session terminated by client")
	w.WriteHeader(http.StatusNoContent)
}

// HandleGet rejects server-to-client streams, which this server does not offer.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "POST, DELETE")
	http.Error(w, "server-initiated streams are not supported", http.StatusMethodNotAllowed)
}

func (h *Handler) initialize(w http.ResponseWriter, r *http.Request, req *jsonrpc.Request) {
	var params struct {
		ProtocolVersion string               `json:"protocolVersion"`
		ClientInfo      mcpgo.Implementation `json:"clientInfo"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			h.record(req.Method, "error")
			h.writeResponse(w, http.StatusOK, jsonrpc.NewErrorResponse(req.ID,
				jsonrpc.NewError(jsonrpc.InvalidParams, "Invalid initialize params", err.Error())))
			return
		}
	}

	version := negotiateVersion(params.ProtocolVersion)
	sess, err := h.sessions.CreateSession(r.Context(), session.ClientInfo{
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
		Name:       params.ClientInfo.Name,
		Version:    params.ClientInfo.Version,
	}, version)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create session")
		h.record(req.Method, "error")
		h.writeResponse(w, http.StatusInternalServerError, jsonrpc.NewErrorResponse(req.ID,
			jsonrpc.NewError(jsonrpc.InternalError, "Failed to create session", nil)))
		return
	}

	result := mcpgo.InitializeResult{
		ProtocolVersion: version,
		ServerInfo: mcpgo.Implementation{
			Name:    h.info.Name,
			Version: h.info.Version,
		},
		Instructions: h.info.Instructions,
	}
	result.Capabilities.Tools = &struct {
		ListChanged bool `json:"listChanged,omitempty"`
	}{}
	result.Capabilities.Resources = &struct {
		Subscribe   bool `json:"subscribe,omitempty"`
		ListChanged bool `json:"listChanged,omitempty"`
	}{}
	result.Capabilities.Prompts = &struct {
		ListChanged bool `json:"listChanged,omitempty"`
	}{}

	h.logger.Info().
		Str("session_id", sess.ID).
		Str("client", params.ClientInfo.Name).
		Str("requested_version", params.ProtocolVersion).
		Str("protocol_version", version).
		Msg("Client initialized")

	w.Header().Set(session.HeaderName, sess.ID)
	h.record(req.Method, "ok")
	h.writeResponse(w, http.StatusOK, jsonrpc.NewResponse(req.ID, result))
}

func (h *Handler) dispatch(ctx context.Context, req *jsonrpc.Request) (any, *jsonrpc.Error) {
	switch mcpgo.MCPMethod(req.Method) {
	case mcpgo.MethodPing:
		return struct{}{}, nil

	case mcpgo.MethodToolsList:
		return mcpgo.ListToolsResult{Tools: h.tools.Definitions()}, nil

	case mcpgo.MethodToolsCall:
		return h.callTool(ctx, req.Params)

	case mcpgo.MethodResourcesList:
		return mcpgo.ListResourcesResult{Resources: []mcpgo.Resource{}}, nil

	case mcpgo.MethodResourcesTemplatesList:
		return mcpgo.ListResourceTemplatesResult{ResourceTemplates: []mcpgo.ResourceTemplate{}}, nil

	case mcpgo.MethodPromptsList:
		return mcpgo.ListPromptsResult{Prompts: []mcpgo.Prompt{}}, nil

	default:
		return nil, jsonrpc.NewError(jsonrpc.MethodNotFound, "Method not found", req.Method)
	}
}

func (h *Handler) callTool(ctx context.Context, raw json.RawMessage) (any, *jsonrpc.Error) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments,omitempty"`
	}
	if err := json.Unmarshal(raw, &params); err != nil || params.Name == "" {
		return nil, jsonrpc.NewError(jsonrpc.InvalidParams, "tools/call requires a tool name", nil)
	}

	result, err := h.tools.Call(ctx, params.Name, params.Arguments)
	if err != nil {
		var toolErr *tools.Error
		if errors.As(err, &toolErr) && toolErr.Code == tools.CodeToolNotFound {
			return nil, jsonrpc.NewError(jsonrpc.InvalidParams, toolErr.Message, params.Name)
		}
		h.logger.Error().Err(err).Str("tool", params.Name).Msg("Tool call failed")
		return nil, jsonrpc.NewError(jsonrpc.InternalError, "Tool call failed", err.Error())
	}

	h.logger.Debug().Str("tool", params.Name).Bool("is_error", result.IsError).Msg("Tool call completed")
	return result, nil
}

// session resolves the request's session. It writes the error response
// itself and returns ok=false when the request must be rejected.
func (h *Handler) session(w http.ResponseWriter, r *http.Request, id any) (*session.Session, bool) {
	sessionID := r.Header.Get(session.HeaderName)
	if sessionID == "" {
		if !h.requireSession {
			return nil, true
		}
		h.writeResponse(w, http.StatusBadRequest, jsonrpc.NewErrorResponse(id,
			jsonrpc.NewError(jsonrpc.InvalidRequest, "Bad Request: missing "+session.HeaderName+" header", nil)))
		return nil, false
	}

	sess, err := h.sessions.RefreshSession(r.Context(), sessionID)
	if err != nil {
		status := session.HTTPStatus(err)
		h.logger.Debug().Err(err).Str("session_id", sessionID).Int("status", status).Msg("Rejected session")
		h.writeResponse(w, status, jsonrpc.NewErrorResponse(id,
			jsonrpc.NewError(jsonrpc.InvalidRequest, err.Error(), session.ErrorCode(err))))
		return nil, false
	}
	return sess, true
}

func (h *Handler) writeResponse(w http.ResponseWriter, status int, resp *jsonrpc.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode JSON-RPC response")
	}
}

func (h *Handler) record(method, outcome string) {
	if h.recorder != nil {
		h.recorder.RecordMCPRequest(method, outcome)
	}
}

func negotiateVersion(requested string) string {
	if slices.Contains(SupportedProtocolVersions, requested) {
		return requested
	}
	return SupportedProtocolVersions[0]
}

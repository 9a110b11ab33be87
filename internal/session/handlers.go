package session

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/rs/zerolog"
)

// Handler serves the session administration endpoints. Routes other than
// Create expect Middleware to have placed the session in the request context.
type Handler struct {
	manager SessionManager
	logger  zerolog.Logger
}

func NewHandler(manager SessionManager, logger zerolog.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger.With().Str("component", "session_handler").Logger(),
	}
}

// CreateSessionRequest optionally overrides the client info derived from the request.
type CreateSessionRequest struct {
	Client *ClientInfo `json:"client,omitempty"`
}

// Response wraps a single session.
type Response struct {
	Success bool    `json:"success"`
	Session Session `json:"session"`
	Message string  `json:"message"`
}

// StatsResponse wraps session statistics.
type StatsResponse struct {
	Success   bool      `json:"success"`
	Stats     Stats     `json:"stats"`
	Timestamp time.Time `json:"timestamp"`
}

// Create handles POST /sessions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	client := ClientInfo{
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	}

	if r.ContentLength > 0 {
		var req CreateSessionRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			renderError(w, r, NewSessionInvalidError("malformed request body"))
			return
		}
		if req.Client != nil {
			if req.Client.Name != "" {
				client.Name = req.Client.Name
			}
			if req.Client.Version != "" {
				client.Version = req.Client.Version
			}
			if req.Client.UserAgent != "" {
				client.UserAgent = req.Client.UserAgent
			}
		}
	}

	session, err := h.manager.CreateSession(r.Context(), client, "")
	if err != nil {
		h.logger.Error().Err(err).Str("remote_addr", client.RemoteAddr).Msg("Failed to create session")
		renderError(w, r, err)
		return
	}

	w.Header().Set(HeaderName, session.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, Response{Success: true, Session: *session, Message: "Session created"})
}

// Get handles GET /sessions.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := FromContext(r.Context())
	if !ok {
		renderError(w, r, NewSessionError(ErrSessionRequired, "missing "+HeaderName+" header", nil))
		return
	}
	render.JSON(w, r, Response{Success: true, Session: *session, Message: "Session is active"})
}

// Refresh handles PUT /sessions/refresh. The middleware already extended the
// session; this reports the new expiry.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	session, ok := FromContext(r.Context())
	if !ok {
		renderError(w, r, NewSessionError(ErrSessionRequired, "missing "+HeaderName+" header", nil))
		return
	}
	render.JSON(w, r, Response{Success: true, Session: *session, Message: "Session refreshed"})
}

// Delete handles DELETE /sessions.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := FromContext(r.Context())
	if !ok {
		renderError(w, r, NewSessionError(ErrSessionRequired, "missing "+HeaderName+" header", nil))
		return
	}
	if err := h.manager.DeleteSession(r.Context(), session.ID); err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, Response{Success: true, Session: *session, Message: "Session deleted"})
}

// Stats handles GET /sessions/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.manager.GetSessionStats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to get session stats")
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, StatsResponse{Success: true, Stats: stats, Timestamp: time.Now().UTC()})
}

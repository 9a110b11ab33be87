package session

import (
	"context"
	"net/http"

	"github.com/go-chi/render"
	"github.com/rs/zerolog"
)

// Middleware validates the Mcp-Session-Id header, refreshes the session and
// stores it in the request context.
type Middleware struct {
	manager  SessionManager
	required bool
	logger   zerolog.Logger
}

// NewMiddleware creates the middleware. When required is false, requests
// without a session header pass through untouched.
func NewMiddleware(manager SessionManager, required bool, logger zerolog.Logger) *Middleware {
	return &Middleware{
		manager:  manager,
		required: required,
		logger:   logger.With().Str("component", "session_middleware").Logger(),
	}
}

type sessionContextKey struct{}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// FromContext retrieves the session stored by the middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(*Session)
	return session, ok && session != nil
}

// Handler returns the HTTP middleware handler function
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		sessionID := r.Header.Get(HeaderName)
		if sessionID == "" {
			if !m.required {
				next.ServeHTTP(w, r)
				return
			}
			m.logger.Debug().Str("path", r.URL.Path).Str("method", r.Method).Msg("Missing session ID header")
			renderError(w, r, NewSessionError(ErrSessionRequired, "missing "+HeaderName+" header", nil))
			return
		}

		session, err := m.manager.RefreshSession(r.Context(), sessionID)
		if err != nil {
			m.logger.Debug().Err(err).Str("session_id", sessionID).Str("path", r.URL.Path).Msg("Session validation failed")
			renderError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

// ErrorResponse is the JSON body of session errors.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{
		Error: ErrorDetail{
			Code:    ErrorCode(err),
			Message: err.Error(),
			Status:  status,
		},
	})
}

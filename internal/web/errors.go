package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//   - Answered with a status chosen from the sentinel error they wrap
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. Status is picked by statusFor, message by core.MapError
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is rendered as JSON for API routes, HTML otherwise

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/frame"
	"github.com/JonMunkholm/datasweeper/internal/logging"
	"github.com/JonMunkholm/datasweeper/internal/web/templates"
)

// errInvalidRequest wraps request decoding and validation failures.
var errInvalidRequest = errors.New("invalid request")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, core.ErrNoFiles),
		errors.Is(err, core.ErrUnknownOperation),
		errors.Is(err, core.ErrUnknownFormat),
		errors.Is(err, core.ErrUnsupportedFormat),
		errors.Is(err, core.ErrMergeNeedsFiles),
		errors.Is(err, core.ErrSessionFull),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, frame.ErrUnknownColumn),
		errors.Is(err, frame.ErrNoColumns),
		errors.Is(err, frame.ErrMergeKey),
		errors.Is(err, frame.ErrRaggedRow):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError handles error responses with user-friendly messages.
// It logs the technical error server-side and returns an appropriate response
// based on the request type (JSON or HTML).
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	s.respondErrorStatus(w, r, err, statusFor(err))
}

func (s *Server) respondErrorStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	userMsg := core.MapError(err)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request error", attrs...)
	}

	if wantsJSON(r) {
		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ErrorPage(userMsg.Message, userMsg.Action, userMsg.Code).Render(r.Context(), w); err != nil {
		log.Error("render error page", "error", err)
	}
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	// API routes default to JSON
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}

	// Check Accept header
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

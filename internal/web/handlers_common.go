package web

// handlers_common.go contains shared utilities used across handlers.

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/datasweeper/internal/core"
)

// newValidator returns a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON decodes the request body into dst and validates it.
func (s *Server) decodeJSON(r *http.Request, dst any) error {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", errInvalidRequest, err)
	}
	return s.validateStruct(dst)
}

// validateStruct runs struct validation and joins field errors into one
// errInvalidRequest.
func (s *Server) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = formatValidationError(fe)
	}
	return fmt.Errorf("%w: %s", errInvalidRequest, strings.Join(msgs, "; "))
}

// formatValidationError formats validation error messages.
func formatValidationError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// parseIntParam parses a positive integer query parameter, falling back to
// defaultVal when it is absent or invalid.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// ids returns the session and file IDs of the route.
func ids(r *http.Request) (sid, fid string) {
	return chi.URLParam(r, "sid"), chi.URLParam(r, "fid")
}

// writeJSON renders v as JSON with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// writeAttachment sends an export as a file download.
func writeAttachment(w http.ResponseWriter, exp *core.Export) {
	w.Header().Set("Content-Type", exp.MIME)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": exp.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Data)
}

package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Context keys shared with the API handlers.
const (
	RequestIDKey   = "request_id"
	SourceKey      = "edi_source"
	KindKey        = "edi_kind"
	DiagnosticsKey = "edi_diagnostics"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteError renders msg as an ErrorBody carrying the request id.
func WriteError(c echo.Context, status int, msg string) error {
	if c.Request().Method == http.MethodHead {
		return c.NoContent(status)
	}
	rid, _ := c.Get(RequestIDKey).(string)
	return c.JSON(status, ErrorBody{Error: msg, RequestID: rid})
}

// Tag names the upload a request is parsing and its input kind, so the
// request log and panic reports can say which payload was involved.
func Tag(c echo.Context, source, kind string) {
	c.Set(SourceKey, source)
	c.Set(KindKey, kind)
}

// TagDiagnostics records how many diagnostics the parse produced.
func TagDiagnostics(c echo.Context, n int) {
	c.Set(DiagnosticsKey, n)
}

// withTags adds whatever Tag and TagDiagnostics stored to e.
func withTags(c echo.Context, e *zerolog.Event) *zerolog.Event {
	if s, ok := c.Get(SourceKey).(string); ok && s != "" {
		e = e.Str("source", s)
	}
	if k, ok := c.Get(KindKey).(string); ok {
		if k == "" {
			k = "auto"
		}
		e = e.Str("kind", k)
	}
	if n, ok := c.Get(DiagnosticsKey).(int); ok {
		e = e.Int("diagnostics", n)
	}
	return e
}

package middleware

import (
	"github.com/labstack/echo/v4"
)

// apiHeaders go on every response. Parsed records and generated 835s are
// PHI, so nothing is cached or framed, and browser clients may read the
// request id and diagnostic count.
var apiHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "no-referrer"},
	{"Cache-Control", "no-store"},
	{"Pragma", "no-cache"},
	{"Access-Control-Expose-Headers", RequestIDHeader + ", " + DiagnosticsHeader},
}

// DiagnosticsHeader carries the diagnostic count of a text response such as
// a generated 835.
const DiagnosticsHeader = "X-EDI-Diagnostics"

func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range apiHeaders {
				h.Set(kv[0], kv[1])
			}
			return next(c)
		}
	}
}

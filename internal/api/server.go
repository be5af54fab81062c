package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/edi/internal/pipeline"
	"github.com/ehr/edi/internal/platform/db"
	"github.com/ehr/edi/internal/platform/middleware"
)

// Defaults for ServerOptions.
const (
	DefaultBodyLimit      = "32M"
	DefaultRequestTimeout = 60 * time.Second
)

// ServerOptions wires the server's collaborators. Pool and Claims are
// optional; without them the server only parses.
type ServerOptions struct {
	Runner         *pipeline.Runner
	Claims         ClaimStore
	Pool           *pgxpool.Pool
	Logger         zerolog.Logger
	BodyLimit      string
	RequestTimeout time.Duration
}

// NewServer builds the echo instance serving /health and /api/v1.
func NewServer(opts ServerOptions) *echo.Echo {
	if opts.BodyLimit == "" {
		opts.BodyLimit = DefaultBodyLimit
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(opts.Logger)

	e.Use(middleware.RequestID())
	e.Use(middleware.Recovery(opts.Logger))
	e.Use(middleware.Logger(opts.Logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(opts.BodyLimit))

	e.GET("/health", db.HealthHandler(opts.Pool))

	v1 := e.Group("/api/v1", middleware.RequestTimeout(opts.RequestTimeout))
	NewHandler(opts.Runner, opts.Claims, opts.Logger).RegisterRoutes(v1)

	return e
}

// errorHandler renders every error as a middleware.ErrorBody.
func errorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
		} else {
			logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("unhandled error")
		}

		if err := middleware.WriteError(c, code, msg); err != nil {
			logger.Error().Err(err).Msg("write error response")
		}
	}
}

// Package api exposes the parsing engine over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/diag"
	"github.com/ehr/edi/internal/pipeline"
	"github.com/ehr/edi/internal/platform/middleware"
	"github.com/ehr/edi/internal/record"
	"github.com/ehr/edi/internal/store"
	"github.com/ehr/edi/pkg/pagination"
)

// ClaimStore is the persistence the remittance and denial routes need.
type ClaimStore interface {
	SaveClaims(ctx context.Context, claims []*record.ClaimRecord) (uuid.UUID, error)
	Denials(ctx context.Context, f store.DenialFilter) ([]store.Denial, error)
}

type Handler struct {
	runner *pipeline.Runner
	claims ClaimStore
	logger zerolog.Logger
}

// NewHandler returns the API handlers. claims may be nil, in which case the
// remittance and denial routes are not registered.
func NewHandler(runner *pipeline.Runner, claims ClaimStore, logger zerolog.Logger) *Handler {
	return &Handler{runner: runner, claims: claims, logger: logger.With().Str("component", "api").Logger()}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/parse", h.Parse)
	api.POST("/parse/:kind", h.Parse)
	api.POST("/eob/convert", h.ConvertEOB)

	if h.claims != nil {
		api.POST("/remittances", h.LoadRemittance)
		api.GET("/denials", h.ListDenials)
	}
}

func readBody(c echo.Context) ([]byte, error) {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		if errors.Is(err, middleware.ErrBodyTooLarge) {
			return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "upload exceeds the body limit")
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "read body: "+err.Error())
	}
	if len(data) == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "empty body")
	}
	return data, nil
}

// sourceName labels the upload in diagnostics. Clients may pass ?name=.
func sourceName(c echo.Context) string {
	if n := c.QueryParam("name"); n != "" {
		return n
	}
	return "upload"
}

// Parse parses the raw request body as the :kind in the path, or sniffs it
// when the kind is absent or "auto". HL7 input takes ?system=.
func (h *Handler) Parse(c echo.Context) error {
	kind, err := pipeline.ParseKind(c.Param("kind"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	name := sourceName(c)
	middleware.Tag(c, name, string(kind))
	data, err := readBody(c)
	if err != nil {
		return err
	}

	res := h.runner.Run(c.Request().Context(), []pipeline.Source{{
		Name:   name,
		Data:   data,
		Kind:   kind,
		System: c.QueryParam("system"),
	}})
	middleware.TagDiagnostics(c, len(res.Diagnostics))

	status := http.StatusOK
	if len(res.Errors) > 0 {
		status = http.StatusUnprocessableEntity
		if errors.Is(res.Errors[0].Err, context.DeadlineExceeded) || errors.Is(res.Errors[0].Err, context.Canceled) {
			status = http.StatusServiceUnavailable
		}
	}
	return c.JSON(status, res.Report())
}

// ConvertEOB turns EOB report text into an 835 returned as text/plain. The
// diagnostic count from reading and re-parsing goes in X-EDI-Diagnostics.
func (h *Handler) ConvertEOB(c echo.Context) error {
	name := sourceName(c)
	middleware.Tag(c, name, string(pipeline.KindEOB))
	data, err := readBody(c)
	if err != nil {
		return err
	}
	text, err := pipeline.Decode(data)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	seq := 1
	if s := c.QueryParam("control"); s != "" {
		if seq, err = strconv.Atoi(s); err != nil || seq <= 0 || seq > 999999999 {
			return echo.NewHTTPError(http.StatusBadRequest, "control must be a positive number of at most nine digits")
		}
	}

	diags := diag.NewList(name)
	conv, err := h.runner.ConvertEOB(name, string(text), seq, diags, codes.NewAudit(name))
	middleware.TagDiagnostics(c, diags.Len())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	c.Response().Header().Set(middleware.DiagnosticsHeader, strconv.Itoa(diags.Len()))
	return c.String(http.StatusOK, conv.X12)
}

// LoadRemittance parses an 835 body and stores its claims.
func (h *Handler) LoadRemittance(c echo.Context) error {
	name := sourceName(c)
	middleware.Tag(c, name, string(pipeline.Kind835))
	data, err := readBody(c)
	if err != nil {
		return err
	}

	res := h.runner.Run(c.Request().Context(), []pipeline.Source{{
		Name: name,
		Data: data,
		Kind: pipeline.Kind835,
	}})
	middleware.TagDiagnostics(c, len(res.Diagnostics))
	if len(res.Errors) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, res.Report())
	}

	claims := res.Claims()
	batch, err := h.claims.SaveClaims(c.Request().Context(), claims)
	if err != nil {
		h.logger.Error().Err(err).Msg("save claims failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store claims")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"batch_id":    batch,
		"claims":      len(claims),
		"diagnostics": res.Diagnostics,
	})
}

// ListDenials pages through stored denied claims. Filters: payer,
// practice, carc.
func (h *Handler) ListDenials(c echo.Context) error {
	p := pagination.FromContext(c)
	rows, err := h.claims.Denials(c.Request().Context(), store.DenialFilter{
		PayerID:      c.QueryParam("payer"),
		PracticeType: c.QueryParam("practice"),
		CARC:         c.QueryParam("carc"),
		Limit:        p.FetchLimit(),
		Offset:       p.Offset,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("list denials failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list denials")
	}

	hasMore := len(rows) > p.Limit
	if hasMore {
		rows = rows[:p.Limit]
	}
	if rows == nil {
		rows = []store.Denial{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(rows, p, hasMore))
}

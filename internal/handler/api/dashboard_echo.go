package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/service/market"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/services/valuation"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/usecase"
	xhttp "github.com/y2kjoh23-ux/btc-compass-26/pkg/http"
	xlogger "github.com/y2kjoh23-ux/btc-compass-26/pkg/logger"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/util"
)

// SourceRequest marks observations supplied by an API caller.
const SourceRequest = "request"

// DashboardEchoHandler serves the valuation dashboard API.
type DashboardEchoHandler struct {
	logger    *xlogger.Logger
	dash      *usecase.Dashboard
	collector *usecase.SnapshotCollector
	now       func() time.Time
}

// NewDashboardEchoHandler wires the handler. collector may be nil, in which case every
// GET /api/snapshot fetches a fresh observation.
func NewDashboardEchoHandler(logger *xlogger.Logger, dash *usecase.Dashboard, collector *usecase.SnapshotCollector) *DashboardEchoHandler {
	return &DashboardEchoHandler{logger: logger, dash: dash, collector: collector, now: time.Now}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Group) {
	g := e.Group("/api")
	g.GET("/model", h.Model)
	g.GET("/indicators", h.Indicators)
	g.GET("/snapshot", h.Snapshot)
	g.POST("/snapshot", h.Ingest)
	g.GET("/chart", h.Chart)
	g.GET("/history", h.History)
	g.GET("/config", h.Config)
}

// Model returns the curve set for ?date= (default today).
func (h *DashboardEchoHandler) Model(c echo.Context) error {
	req := &models.ModelRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	date, err := h.parseDate("date", req.Date, h.now())
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return xhttp.SuccessResponse(c, toCurves(h.dash.Evaluate(date)))
}

// Indicators assesses ?price= and optional ?fng= against the model at ?date=.
func (h *DashboardEchoHandler) Indicators(c echo.Context) error {
	req := &models.IndicatorsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	date, err := h.parseDate("date", req.Date, h.now())
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	fng, err := util.ParseBoundedInt(req.FNG, 50, 0, 100)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("fng: %v", err).
			WithField("fng").WithParam("min", 0).WithParam("max", 100))
	}

	snap := h.dash.Derive(models.Observation{
		Price:     req.Price,
		Timestamp: date,
		FearGreed: fng,
		Source:    SourceRequest,
	}, date)
	return xhttp.SuccessResponse(c, toSnapshot(&snap))
}

// Snapshot returns the latest collected snapshot while it is fresh, else takes a new one.
func (h *DashboardEchoHandler) Snapshot(c echo.Context) error {
	if h.collector != nil {
		if s := h.collector.Latest(); s != nil && h.now().Sub(s.CreatedAt) < h.collector.Interval() {
			c.Response().Header().Set("X-Snapshot-Age", h.now().Sub(s.CreatedAt).Truncate(time.Second).String())
			return xhttp.SuccessResponse(c, toSnapshot(s))
		}
	}

	snap, err := h.dash.Snapshot(c.Request().Context())
	if err != nil && !errors.Is(err, usecase.ErrPersist) {
		h.logger.Error("snapshot usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, h.mapError(err))
	}
	return xhttp.SuccessResponse(c, toSnapshot(snap))
}

// Ingest assesses and records a caller-supplied observation.
func (h *DashboardEchoHandler) Ingest(c echo.Context) error {
	req := &models.IngestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ts, err := h.parseDate("timestamp", req.Timestamp, h.now())
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	snap, err := h.dash.Ingest(c.Request().Context(), models.Observation{
		Price:     req.Price,
		Timestamp: ts,
		FearGreed: req.FNGIndex,
		Source:    SourceRequest,
	})
	switch {
	case err == nil:
	case errors.Is(err, usecase.ErrPersist):
		h.logger.Warn("ingest persisted partially", xlogger.Error(err))
	default:
		h.logger.Error("ingest usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, h.mapError(err))
	}
	return xhttp.CreatedResponse(c, toSnapshot(snap))
}

// Chart returns the historical reconstruction followed by a forward projection.
func (h *DashboardEchoHandler) Chart(c echo.Context) error {
	req := &models.ChartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, err := h.parseDate("from", req.From, time.Time{})
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	to, err := h.parseDate("to", req.To, time.Time{})
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	chart, err := h.dash.Chart(c.Request().Context(), usecase.ChartParams{
		From:         from,
		To:           to,
		StepDays:     req.Step,
		ProjectYears: req.ProjectYears,
	})
	if err != nil {
		h.logger.Error("chart usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, h.mapError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return xhttp.SuccessResponse(c, toChart(chart))
}

// History lists stored snapshots, newest first.
func (h *DashboardEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, err := h.parseDate("from", req.From, time.Time{})
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	to, err := h.parseDate("to", req.To, time.Time{})
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	rows, err := h.dash.History(c.Request().Context(), from, to, req.Limit)
	if err != nil {
		h.logger.Error("history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, h.mapError(err))
	}
	out := make([]snapshotResponse, 0, len(rows))
	for _, s := range rows {
		out = append(out, toSnapshot(s))
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

// Config returns the active calibration and risk profile.
func (h *DashboardEchoHandler) Config(c echo.Context) error {
	return xhttp.SuccessResponse(c, toConfig(h.dash.Engine().Params(), h.dash.Profile()))
}

// parseDate parses an optional date parameter and rejects dates before genesis.
func (h *DashboardEchoHandler) parseDate(field, raw string, def time.Time) (time.Time, error) {
	if raw == "" {
		return def, nil
	}
	t, ok := util.ParseTime(raw)
	if !ok {
		return time.Time{}, xhttp.BadRequestErrorf("%s must be RFC3339, YYYY-MM-DD or unix seconds", field).
			WithField(field).WithParam("value", raw)
	}
	if err := h.dash.CheckDate(t); err != nil {
		return time.Time{}, xhttp.BadRequestErrorf("%s must be after the genesis block", field).
			WithField(field).WithError(err)
	}
	return t, nil
}

func (h *DashboardEchoHandler) mapError(err error) error {
	switch {
	case errors.Is(err, valuation.ErrBeforeGenesis),
		errors.Is(err, valuation.ErrInvalidRange),
		errors.Is(err, usecase.ErrInvalidObservation):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrHistoryDisabled):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, market.ErrUnavailable):
		return xhttp.ServiceUnavailableError("market data unavailable").WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}

var _ xhttp.Handler = (*DashboardEchoHandler)(nil)

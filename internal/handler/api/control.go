// Package api exposes the control surface: session status, pause/resume,
// the last decision with its explanation, and open positions. Trading
// decisions never depend on this surface; it observes and gates, nothing
// more.
package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"ToxicTide/internal/domain/models"
	"ToxicTide/internal/service/ratelimit"
	"ToxicTide/internal/services/position"
	"ToxicTide/internal/usecase"
	xhttp "ToxicTide/pkg/http"
	xlogger "ToxicTide/pkg/logger"
)

// ControlHandler implements the Echo HTTP handlers for the engine.
type ControlHandler struct {
	logger    *xlogger.Logger
	orch      *usecase.Orchestrator
	positions *position.Manager
	rl        *ratelimit.Limiter
	symbol    string
	started   time.Time
}

func NewControlHandler(logger *xlogger.Logger, orch *usecase.Orchestrator, positions *position.Manager, symbol string) *ControlHandler {
	return &ControlHandler{
		logger:    logger,
		orch:      orch,
		positions: positions,
		rl:        ratelimit.New(),
		symbol:    symbol,
		started:   time.Now().UTC(),
	}
}

func (h *ControlHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.POST("/pause", h.Pause)
	g.POST("/resume", h.Resume)
	g.GET("/explain", h.Explain)
	g.GET("/positions", h.Positions)
	e.GET("/healthz", h.Health)
}

type statusResponse struct {
	Symbol      string               `json:"symbol"`
	UptimeSec   float64              `json:"uptime_sec"`
	Paused      bool                 `json:"paused"`
	PauseReason string               `json:"pause_reason,omitempty"`
	LastSeq     uint64               `json:"last_seq"`
	LastTick    *time.Time           `json:"last_tick,omitempty"`
	Stress      *models.StressIndex  `json:"stress,omitempty"`
	Regime      *models.RegimeState  `json:"regime,omitempty"`
	Account     *models.AccountState `json:"account,omitempty"`
	Stats       position.Stats       `json:"stats"`
	Summary     string               `json:"summary"`
}

func (h *ControlHandler) Status(c echo.Context) error {
	reason, paused := h.orch.Paused()
	res := statusResponse{
		Symbol:      h.symbol,
		UptimeSec:   time.Since(h.started).Seconds(),
		Paused:      paused,
		PauseReason: reason,
		Stats:       h.positions.Statistics(),
		Summary:     h.orch.Summary(),
	}
	if last := h.orch.LastDecision(); last != nil {
		res.LastSeq = last.Seq
		ts := last.Timestamp
		res.LastTick = &ts
		res.Stress = last.Stress
		res.Regime = last.Regime
		res.Account = last.Account
	}
	return xhttp.SuccessResponse(c, res)
}

type pauseRequest struct {
	Reason string `json:"reason" default:"operator request" validate:"max=200"`
}

func (h *ControlHandler) Pause(c echo.Context) error {
	if !h.rl.Allow(c.RealIP()+":control", 5, 1) {
		return xhttp.ForbiddenResponse(c, "rate limited")
	}
	req := new(pauseRequest)
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.Reason == "" {
		req.Reason = "operator request"
	}

	h.orch.Pause(req.Reason)
	h.logger.Warn("pause requested",
		xlogger.String("reason", req.Reason),
		xlogger.String("remote", c.RealIP()),
	)
	return xhttp.SuccessResponse(c, map[string]string{"state": "paused", "reason": req.Reason})
}

func (h *ControlHandler) Resume(c echo.Context) error {
	if !h.rl.Allow(c.RealIP()+":control", 5, 1) {
		return xhttp.ForbiddenResponse(c, "rate limited")
	}
	h.orch.Resume()
	h.logger.Info("resume requested", xlogger.String("remote", c.RealIP()))
	return xhttp.SuccessResponse(c, map[string]string{"state": "running"})
}

type explainResponse struct {
	Seq       uint64                `json:"seq"`
	Timestamp time.Time             `json:"ts"`
	Explain   string                `json:"explain"`
	Intent    *models.TradeIntent   `json:"intent,omitempty"`
	Risk      *models.RiskDecision  `json:"risk,omitempty"`
	Plan      *models.ExecutionPlan `json:"plan,omitempty"`
}

// Explain returns the most recent decision with its human-readable text.
func (h *ControlHandler) Explain(c echo.Context) error {
	last := h.orch.LastDecision()
	if last == nil {
		return xhttp.NotFoundResponse(c, "no decisions yet")
	}
	return xhttp.SuccessResponse(c, explainResponse{
		Seq:       last.Seq,
		Timestamp: last.Timestamp,
		Explain:   last.Explain,
		Intent:    last.Intent,
		Risk:      last.Risk,
		Plan:      last.Plan,
	})
}

type positionsResponse struct {
	Active []*models.Position `json:"active"`
	Stats  position.Stats     `json:"stats"`
}

// Positions lists open positions, optionally capped by ?limit= and
// filtered by ?since= (RFC3339 or unix seconds).
func (h *ControlHandler) Positions(c echo.Context) error {
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 100)
	since := xhttp.ParseTimeDefault(c.QueryParam("since"), time.Time{})

	active := h.positions.Active()
	filtered := make([]*models.Position, 0, len(active))
	for _, p := range active {
		if !since.IsZero() && p.EntryTime.Before(since) {
			continue
		}
		filtered = append(filtered, p)
		if len(filtered) >= limit {
			break
		}
	}
	return xhttp.SuccessResponse(c, positionsResponse{
		Active: filtered,
		Stats:  h.positions.Statistics(),
	})
}

func (h *ControlHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

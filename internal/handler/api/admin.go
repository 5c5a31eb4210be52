package api

import (
	"errors"
	"net/http"
	"strconv"

	"X402/internal/domain/models"
	xhttp "X402/pkg/http"
	applogger "X402/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AdminHandler carries the audit trail, runtime settings, portfolio view
// and agent trigger.
type AdminHandler struct {
	audit     AuditTrail
	settings  SettingsStore
	portfolio PortfolioReader
	agent     AgentTrigger
	log       *applogger.Logger
}

// NewAdminHandler builds the handler. agent may be nil when no wallet is set.
func NewAdminHandler(audit AuditTrail, settings SettingsStore, portfolio PortfolioReader, agent AgentTrigger, l *applogger.Logger) *AdminHandler {
	return &AdminHandler{
		audit:     audit,
		settings:  settings,
		portfolio: portfolio,
		agent:     agent,
		log:       l.With("admin_handler"),
	}
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/log", h.AddLog)
	e.GET("/logs", h.Logs)
	e.GET("/clear_logs", h.ClearLogs)
	e.POST("/set_asset", h.SetAsset)
	e.POST("/set_risk", h.SetRisk)
	e.POST("/trigger_agent", h.TriggerAgent)
	e.GET("/portfolio", h.Portfolio)
	e.GET("/healthz", h.Health)
}

func (h *AdminHandler) AddLog(c echo.Context) error {
	req := &models.LogRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.audit.Record(c.Request().Context(), req.Source, req.Action, req.Message); err != nil {
		h.log.Error("append audit entry", applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "Logged"})
}

// Logs returns up to 50 most recent entries, newest first. ?limit narrows it.
func (h *AdminHandler) Logs(c echo.Context) error {
	n := models.MaxRecentLogs
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("limit", "limit must be a positive integer"))
		}
		n = v
	}
	entries, err := h.audit.Recent(c.Request().Context(), n)
	if err != nil {
		h.log.Error("read audit entries", applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *AdminHandler) ClearLogs(c echo.Context) error {
	if err := h.audit.Clear(c.Request().Context()); err != nil {
		h.log.Error("clear audit entries", applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "Cleared"})
}

func (h *AdminHandler) SetAsset(c echo.Context) error {
	req := &models.SetAssetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.settings.SetAsset(req.Ticker); err != nil {
		if errors.Is(err, models.ErrUnknownAsset) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("ticker", "unknown asset %q", req.Ticker).
				WithParam("allowed", h.settings.Assets()))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "success", "asset": req.Ticker})
}

func (h *AdminHandler) SetRisk(c echo.Context) error {
	req := &models.SetRiskRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	level := float64(*req.Level)
	if err := h.settings.SetRiskWeight(level); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("level", err.Error()).WithError(err))
	}
	_, weight := h.settings.Current()
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "success",
		"risk":      weight,
		"risk_mode": models.RiskModeFor(weight),
	})
}

func (h *AdminHandler) TriggerAgent(c echo.Context) error {
	if h.agent == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("agent wallet not configured"))
	}
	runID, err := h.agent.Trigger(c.Request().Context())
	switch {
	case errors.Is(err, models.ErrAgentUnavailable):
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError(err.Error()))
	case errors.Is(err, models.ErrAgentBusy):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_BUSY", "", err.Error(), http.StatusConflict))
	case err != nil:
		h.log.Error("trigger agent", applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return c.JSON(http.StatusAccepted, models.TriggerResponse{Status: "started", RunID: runID})
}

func (h *AdminHandler) Portfolio(c echo.Context) error {
	asset, weight := h.settings.Current()
	return xhttp.SuccessResponse(c, map[string]any{
		"asset":       asset,
		"risk_weight": weight,
		"risk_mode":   models.RiskModeFor(weight),
		"portfolio":   h.portfolio.Portfolio(),
	})
}

func (h *AdminHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

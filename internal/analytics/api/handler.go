package analytics_api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-deposits/internal/analytics"
	"ms-deposits/internal/logger"
	"ms-deposits/internal/utils"
)

// ReportService is the part of analytics.Service the handler needs.
type ReportService interface {
	Dashboard(ctx context.Context, owner string) (*analytics.Dashboard, error)
	PeriodReport(ctx context.Context, reference time.Time, g analytics.Granularity) (*analytics.PeriodReport, error)
	IndicatorReport(ctx context.Context, reference time.Time, g analytics.Granularity, owner string) (*analytics.IndicatorReport, error)
}

// Handler handles reporting HTTP endpoints
type Handler struct {
	Service ReportService
	Logger  *logger.Logger
}

func NewHandler(service ReportService, logger *logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/reports", func(r chi.Router) {
		r.Get("/dashboard", h.GetDashboard)
		r.Get("/period", h.GetPeriodReport)
		r.Get("/indicators", h.GetIndicatorReport)
	})
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))

	dashboard, err := h.Service.Dashboard(r.Context(), owner)
	if err != nil {
		h.Logger.Error("ANALYTICS", "Error building dashboard: "+err.Error())
		utils.SendError(w, http.StatusInternalServerError, "Failed to build dashboard", nil)
		return
	}

	utils.SendJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) GetPeriodReport(w http.ResponseWriter, r *http.Request) {
	reference, g, err := parsePeriod(r)
	if err != nil {
		utils.SendError(w, http.StatusBadRequest, "Invalid report period", err)
		return
	}

	report, err := h.Service.PeriodReport(r.Context(), reference, g)
	if err != nil {
		h.Logger.Error("ANALYTICS", "Error building period report: "+err.Error())
		utils.SendError(w, http.StatusInternalServerError, "Failed to build report", nil)
		return
	}

	utils.SendJSON(w, http.StatusOK, report)
}

func (h *Handler) GetIndicatorReport(w http.ResponseWriter, r *http.Request) {
	reference, g, err := parsePeriod(r)
	if err != nil {
		utils.SendError(w, http.StatusBadRequest, "Invalid report period", err)
		return
	}
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))

	report, err := h.Service.IndicatorReport(r.Context(), reference, g, owner)
	if err != nil {
		h.Logger.Error("ANALYTICS", "Error building indicator report: "+err.Error())
		utils.SendError(w, http.StatusInternalServerError, "Failed to build indicator report", nil)
		return
	}

	utils.SendJSON(w, http.StatusOK, report)
}

// parsePeriod reads granularity (default daily) and date (default today,
// returned as the zero time).
func parsePeriod(r *http.Request) (time.Time, analytics.Granularity, error) {
	q := r.URL.Query()

	g := analytics.Daily
	if raw := q.Get("granularity"); raw != "" {
		parsed, err := analytics.ParseGranularity(raw)
		if err != nil {
			return time.Time{}, g, err
		}
		g = parsed
	}

	var reference time.Time
	if raw := q.Get("date"); raw != "" {
		parsed, err := analytics.ParseDate(raw)
		if err != nil {
			return time.Time{}, g, fmt.Errorf("date: %w", err)
		}
		reference = parsed
	}
	return reference, g, nil
}

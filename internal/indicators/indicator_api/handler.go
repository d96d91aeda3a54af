package indicator_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ms-deposits/internal/indicators"
	"ms-deposits/internal/logger"
	"ms-deposits/internal/models"
	"ms-deposits/internal/utils"
)

type IndicatorService interface {
	List(ctx context.Context, owner string) ([]models.IndicatorRecord, error)
	Record(ctx context.Context, input models.IndicatorInput) (*models.IndicatorRecord, error)
}

type Handler struct {
	Service IndicatorService
	Logger  *logger.Logger
}

func NewHandler(service IndicatorService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/indicators", func(r chi.Router) {
		r.Post("/", h.RecordIndicators)
		r.Get("/", h.ListIndicators)
	})
}

func (h *Handler) RecordIndicators(w http.ResponseWriter, r *http.Request) {
	var input models.IndicatorInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		utils.SendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	record, err := h.Service.Record(r.Context(), input)
	if errors.Is(err, indicators.ErrValidation) {
		utils.SendError(w, http.StatusBadRequest, "Invalid indicators", err)
		return
	}
	if err != nil {
		h.Logger.Error("INDICATORS", fmt.Sprintf("Failed to record indicators: %v", err))
		utils.SendError(w, http.StatusInternalServerError, "Failed to record indicators", nil)
		return
	}

	utils.SendJSON(w, http.StatusCreated, record)
}

func (h *Handler) ListIndicators(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))

	records, err := h.Service.List(r.Context(), owner)
	if err != nil {
		h.Logger.Error("INDICATORS", fmt.Sprintf("Failed to list indicators: %v", err))
		utils.SendError(w, http.StatusInternalServerError, "Failed to list indicators", nil)
		return
	}
	utils.SendJSON(w, http.StatusOK, records)
}

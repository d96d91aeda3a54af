package deposit_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ms-deposits/internal/deposits"
	"ms-deposits/internal/deposits/db"
	"ms-deposits/internal/logger"
	"ms-deposits/internal/models"
	"ms-deposits/internal/sse"
	"ms-deposits/internal/tickets/ticket_api"
	"ms-deposits/internal/utils"
)

type DepositService interface {
	List(ctx context.Context, owner string) ([]models.DepositRecord, error)
	Get(ctx context.Context, id string) (*models.DepositRecord, error)
	Create(ctx context.Context, input models.DepositInput) (*models.DepositRecord, error)
	Update(ctx context.Context, id string, input models.DepositInput) (*models.DepositRecord, error)
	Delete(ctx context.Context, id string) error
}

type ReceiptRenderer interface {
	ReceiptFor(deposit models.DepositRecord) ([]byte, error)
}

type Handler struct {
	Service  DepositService
	Receipts ReceiptRenderer
	Events   *sse.DepositEventEmitter
	Logger   *logger.Logger
}

func NewHandler(service DepositService, receipts ReceiptRenderer, events *sse.DepositEventEmitter, log *logger.Logger) *Handler {
	return &Handler{
		Service:  service,
		Receipts: receipts,
		Events:   events,
		Logger:   log,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/deposits", func(r chi.Router) {
		r.Post("/", h.CreateDeposit)
		r.Get("/", h.ListDeposits)
		r.Get("/stream", h.StreamDeposits)
		r.Get("/{depositId}", h.GetDeposit)
		r.Put("/{depositId}", h.UpdateDeposit)
		r.Delete("/{depositId}", h.DeleteDeposit)
		r.Get("/{depositId}/receipt", h.GetReceipt)
	})
}

func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var input models.DepositInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		utils.SendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	deposit, err := h.Service.Create(r.Context(), input)
	if err != nil {
		h.sendServiceError(w, "create", err)
		return
	}

	utils.SendJSON(w, http.StatusCreated, deposit)
}

func (h *Handler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))

	list, err := h.Service.List(r.Context(), owner)
	if err != nil {
		h.sendServiceError(w, "list", err)
		return
	}
	utils.SendJSON(w, http.StatusOK, list)
}

func (h *Handler) GetDeposit(w http.ResponseWriter, r *http.Request) {
	depositID := chi.URLParam(r, "depositId")

	deposit, err := h.Service.Get(r.Context(), depositID)
	if err != nil {
		h.sendServiceError(w, "get", err)
		return
	}
	utils.SendJSON(w, http.StatusOK, deposit)
}

func (h *Handler) UpdateDeposit(w http.ResponseWriter, r *http.Request) {
	depositID := chi.URLParam(r, "depositId")

	var input models.DepositInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		utils.SendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	deposit, err := h.Service.Update(r.Context(), depositID, input)
	if err != nil {
		h.sendServiceError(w, "update", err)
		return
	}
	utils.SendJSON(w, http.StatusOK, deposit)
}

func (h *Handler) DeleteDeposit(w http.ResponseWriter, r *http.Request) {
	depositID := chi.URLParam(r, "depositId")

	if err := h.Service.Delete(r.Context(), depositID); err != nil {
		h.sendServiceError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetReceipt returns the deposit's encrypted ticket receipt as a QR PNG.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	depositID := chi.URLParam(r, "depositId")

	deposit, err := h.Service.Get(r.Context(), depositID)
	if err != nil {
		h.sendServiceError(w, "receipt", err)
		return
	}

	png, err := h.Receipts.ReceiptFor(*deposit)
	if err != nil {
		h.Logger.Error("DEPOSIT", fmt.Sprintf("Failed to render receipt for %s: %v", depositID, err))
		utils.SendError(w, http.StatusInternalServerError, "Failed to render receipt", nil)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"receipt-%s.png\"", depositID))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) sendServiceError(w http.ResponseWriter, action string, err error) {
	if status, ok := ticket_api.AllocationErrorStatus(err); ok {
		h.Logger.Warn("DEPOSIT", fmt.Sprintf("Ticket allocation failed on %s: %v", action, err))
		utils.SendError(w, status, "Could not allocate tickets", err)
		return
	}

	switch {
	case errors.Is(err, deposits.ErrValidation):
		utils.SendError(w, http.StatusBadRequest, "Invalid deposit", err)
	case errors.Is(err, db.ErrNotFound):
		utils.SendError(w, http.StatusNotFound, "Deposit not found", err)
	case errors.Is(err, deposits.ErrTicketCountMismatch):
		utils.SendError(w, http.StatusConflict, "Ticket count mismatch", err)
	default:
		h.Logger.Error("DEPOSIT", fmt.Sprintf("Failed to %s deposit: %v", action, err))
		utils.SendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to %s deposit", action), nil)
	}
}

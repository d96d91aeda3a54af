package ticket_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-deposits/internal/logger"
	"ms-deposits/internal/models"
	"ms-deposits/internal/tickets/allocator"
	qr "ms-deposits/internal/tickets/qr_genrator"
	tickets "ms-deposits/internal/tickets/service"
	"ms-deposits/internal/utils"
)

type TicketService interface {
	Preview(ctx context.Context, baseCount int, vip bool) ([]int, error)
	PoolStatus(ctx context.Context) (models.PoolStatus, error)
	VerifyReceipt(ctx context.Context, payload string) (*tickets.Verification, error)
}

type Handler struct {
	TicketService TicketService
	Logger        *logger.Logger
}

func NewHandler(ticketService TicketService, log *logger.Logger) *Handler {
	return &Handler{
		TicketService: ticketService,
		Logger:        log,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/tickets", func(r chi.Router) {
		r.Post("/preview", h.PreviewTickets)
		r.Get("/pool", h.GetPoolStatus)
		r.Post("/verify", h.VerifyReceipt)
	})
}

type previewRequest struct {
	TicketQuantity int  `json:"ticket_quantity"`
	VIP            bool `json:"is_vip"`
}

type previewResponse struct {
	Tickets []int `json:"tickets"`
	Primary int   `json:"primary_ticket"`
	Total   int   `json:"total"`
}

// PreviewTickets draws numbers for display without claiming them.
// Expected POST request body: {"ticket_quantity": 2, "is_vip": true}
func (h *Handler) PreviewTickets(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.SendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.TicketQuantity < 1 {
		req.TicketQuantity = 1
	}
	if req.TicketQuantity > models.PoolSize {
		utils.SendError(w, http.StatusBadRequest, fmt.Sprintf("ticket_quantity cannot exceed %d", models.PoolSize), nil)
		return
	}

	numbers, err := h.TicketService.Preview(r.Context(), req.TicketQuantity, req.VIP)
	if err != nil {
		if status, ok := AllocationErrorStatus(err); ok {
			utils.SendError(w, status, err.Error(), nil)
			return
		}
		h.Logger.Error("TICKETS", "Error previewing tickets: "+err.Error())
		utils.SendError(w, http.StatusInternalServerError, "Failed to generate tickets", nil)
		return
	}

	utils.SendJSON(w, http.StatusOK, previewResponse{
		Tickets: numbers,
		Primary: numbers[0],
		Total:   len(numbers),
	})
}

func (h *Handler) GetPoolStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.TicketService.PoolStatus(r.Context())
	if err != nil {
		h.Logger.Error("TICKETS", "Error reading pool status: "+err.Error())
		utils.SendError(w, http.StatusInternalServerError, "Failed to read ticket pool", nil)
		return
	}
	utils.SendJSON(w, http.StatusOK, status)
}

// VerifyReceipt checks a scanned receipt.
// Expected POST request body: {"encrypted_qr": "base64_encrypted_string"}
func (h *Handler) VerifyReceipt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EncryptedQR string `json:"encrypted_qr"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.SendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if body.EncryptedQR == "" {
		utils.SendError(w, http.StatusBadRequest, "encrypted_qr is required", nil)
		return
	}

	v, err := h.TicketService.VerifyReceipt(r.Context(), body.EncryptedQR)
	if err != nil {
		if errors.Is(err, qr.ErrInvalidPayload) {
			utils.SendError(w, http.StatusBadRequest, "Invalid receipt", err)
			return
		}
		h.Logger.Error("TICKETS", "Error verifying receipt: "+err.Error())
		utils.SendError(w, http.StatusInternalServerError, "Failed to verify receipt", nil)
		return
	}

	if !v.Valid {
		h.Logger.Warn("TICKETS", fmt.Sprintf("Receipt for deposit %s has unclaimed numbers %v", v.Receipt.DepositID, v.Unclaimed))
	}
	utils.SendJSON(w, http.StatusOK, v)
}

// AllocationErrorStatus maps ticket allocation failures to HTTP statuses.
func AllocationErrorStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, allocator.ErrPoolExhausted),
		errors.Is(err, allocator.ErrInsufficientCapacity):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, allocator.ErrInvalidQuantity):
		return http.StatusBadRequest, true
	case errors.Is(err, tickets.ErrAllocationConflict):
		return http.StatusConflict, true
	}
	return 0, false
}

package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gestor-comercial/gestor/internal/platform/httpx"
)

// Handler exposes the ledger over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds the ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/documents/{id}/balance", h.documentBalance)
	r.Get("/balances/{direction}/{counterpartyID}", h.entityBalance)
	r.Get("/pending/{direction}/{counterpartyID}", h.pendingDocuments)
	r.Get("/payments", h.listPayments)
	r.Get("/payments/{id}", h.getPayment)
	r.Post("/payments", h.applyPayment)
}

func (h *Handler) documentBalance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid document id")
		return
	}
	balance, err := h.service.DocumentBalance(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"document_id": id, "balance": balance})
}

func (h *Handler) entityBalance(w http.ResponseWriter, r *http.Request) {
	direction, counterpartyID, ok := h.parseEntityParams(w, r)
	if !ok {
		return
	}
	balance, err := h.service.EntityBalance(r.Context(), direction, counterpartyID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"direction":       direction,
		"counterparty_id": counterpartyID,
		"balance":         balance,
	})
}

func (h *Handler) pendingDocuments(w http.ResponseWriter, r *http.Request) {
	direction, counterpartyID, ok := h.parseEntityParams(w, r)
	if !ok {
		return
	}
	docs, err := h.service.PendingDocuments(r.Context(), direction, counterpartyID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *Handler) applyPayment(w http.ResponseWriter, r *http.Request) {
	var input ApplyPaymentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed payload")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	record, err := h.service.ApplyPayment(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.logger.Info("payment applied",
		slog.String("number", record.Number),
		slog.Float64("amount", record.Amount))
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid payment id")
		return
	}
	record, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	direction := PaymentDirection(r.URL.Query().Get("direction"))
	if direction != DirectionReceivable && direction != DirectionPayable {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "direction must be COBRO or PAGO")
		return
	}
	records, err := h.service.ListPayments(r.Context(), direction)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": records})
}

func (h *Handler) parseEntityParams(w http.ResponseWriter, r *http.Request) (PaymentDirection, int64, bool) {
	direction := PaymentDirection(chi.URLParam(r, "direction"))
	if direction != DirectionReceivable && direction != DirectionPayable {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "direction must be COBRO or PAGO")
		return "", 0, false
	}
	counterpartyID, err := strconv.ParseInt(chi.URLParam(r, "counterpartyID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid counterparty id")
		return "", 0, false
	}
	return direction, counterpartyID, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnknownCounterparty):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("ledger request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mpsingh12/imageshop/internal/domain"
)

type BasketService interface {
	AddItem(ctx context.Context, ownerID string, item *domain.Item) (domain.Outcome, error)
	RemoveItem(ctx context.Context, ownerID string, item *domain.Item) (domain.Outcome, error)
	GetBasket(ctx context.Context, ownerID string) (*domain.Basket, error)
}

type BasketHandler struct {
	baskets BasketService
	timeout time.Duration
	logger  *slog.Logger
}

func NewBasketHandler(baskets BasketService, timeout time.Duration, logger *slog.Logger) *BasketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BasketHandler{
		baskets: baskets,
		timeout: timeout,
		logger:  logger,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type OutcomeResponse struct {
	Outcome domain.Outcome `json:"outcome"`
	Message string         `json:"message"`
}

// ImagesRequestDTO is the add/remove body. The owner comes from the path.
type ImagesRequestDTO struct {
	Images []domain.Item `json:"images"`
}

func (h *BasketHandler) GetBasket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ownerID := chi.URLParam(r, "ownerID")
	basket, err := h.baskets.GetBasket(ctx, ownerID)
	if err != nil {
		h.logger.ErrorContext(ctx, "get basket", "owner_id", ownerID, "request_id", getRequestID(ctx), "error", err)
		respondError(w, http.StatusServiceUnavailable, "store_unavailable", domain.OutcomeStoreUnavailable.Message())
		return
	}
	if basket == nil {
		respondError(w, http.StatusNotFound, "no_basket", "basket not found")
		return
	}

	respondJSON(w, http.StatusOK, basket)
}

func (h *BasketHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.baskets.AddItem)
}

func (h *BasketHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.baskets.RemoveItem)
}

type membershipOp func(ctx context.Context, ownerID string, item *domain.Item) (domain.Outcome, error)

func (h *BasketHandler) mutate(w http.ResponseWriter, r *http.Request, op membershipOp) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ImagesRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ownerID := chi.URLParam(r, "ownerID")
	payload := domain.BasketRequest{OwnerID: ownerID, Items: req.Images}

	outcome, err := op(ctx, payload.OwnerID, payload.Candidate())
	if err != nil {
		h.logger.ErrorContext(ctx, "basket operation failed",
			"owner_id", ownerID,
			"request_id", getRequestID(ctx),
			"outcome", outcome.String(),
			"error", err,
		)
	}

	respondJSON(w, statusFor(outcome), OutcomeResponse{Outcome: outcome, Message: outcome.Message()})
}

func statusFor(outcome domain.Outcome) int {
	switch outcome {
	case domain.OutcomeCreated:
		return http.StatusCreated
	case domain.OutcomeAdded, domain.OutcomeRemoved, domain.OutcomeRemovedBasketDeleted:
		return http.StatusOK
	case domain.OutcomeAlreadyExists:
		return http.StatusConflict
	case domain.OutcomeMissingInput:
		return http.StatusBadRequest
	case domain.OutcomeNoBasket, domain.OutcomeNotFound, domain.OutcomeNotFoundBasketPruned:
		return http.StatusNotFound
	case domain.OutcomeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

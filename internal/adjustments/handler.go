package adjustments

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/rbac"
	"github.com/enstockapp/mono-stock/internal/shared"
	"github.com/enstockapp/mono-stock/internal/stock"
)

// Handler wires HTTP endpoints for manual stock adjustments.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), rbac: rbac}
}

// MountRoutes registers adjustment routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("inventory.edit"))
		r.Post("/adjustments", h.handleApply)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("inventory.view"))
		r.Get("/adjustments", h.handleList)
	})
}

type applyRequest struct {
	StockID   int64   `json:"skuId" validate:"required"`
	Direction string  `json:"direction" validate:"required,oneof=INCREMENT DECREMENT"`
	Quantity  float64 `json:"quantity" validate:"gt=0"`
	Reason    string  `json:"reason" validate:"required"`
}

type adjustmentResponse struct {
	ID                int64   `json:"id"`
	StockID           int64   `json:"skuId"`
	Direction         string  `json:"direction"`
	Quantity          float64 `json:"quantity"`
	Reason            string  `json:"reason"`
	ResultingQuantity float64 `json:"resultingQuantity"`
}

func toResponse(a Adjustment) adjustmentResponse {
	dir := "INCREMENT"
	if a.Direction == stock.Decrement {
		dir = "DECREMENT"
	}
	return adjustmentResponse{
		ID:                a.ID,
		StockID:           a.StockID,
		Direction:         dir,
		Quantity:          a.Quantity,
		Reason:            a.Reason,
		ResultingQuantity: a.ResultingQuantity,
	}
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req applyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	dir := stock.Increment
	if req.Direction == "DECREMENT" {
		dir = stock.Decrement
	}
	applied, err := h.service.Apply(r.Context(), actor, ApplyInput{
		StockID:   req.StockID,
		Direction: dir,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
	})
	if err != nil {
		h.logger.Error("apply adjustment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(applied))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	page := shared.PaginationFromQuery(r.URL.Query())
	items, err := h.service.List(r.Context(), actor.ClientID, page)
	if err != nil {
		h.logger.Error("list adjustments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]adjustmentResponse, 0, len(items))
	for _, a := range items {
		out = append(out, toResponse(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

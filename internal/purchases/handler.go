package purchases

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/enstockapp/mono-stock/internal/currency"
	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/rbac"
	"github.com/enstockapp/mono-stock/internal/shared"
)

// IdempotencyGuard deduplicates document posts by client-supplied key.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Handler wires HTTP endpoints for purchases.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
	idem      IdempotencyGuard
}

// NewHandler constructs a Handler instance. idem may be nil.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, idem IdempotencyGuard) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), rbac: rbac, idem: idem}
}

// MountRoutes registers purchase routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("purchases.view"))
		r.Get("/purchases", h.handleList)
		r.Get("/purchases/{id}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("purchases.manage"))
		r.Post("/purchases", h.handleCreate)
		r.Delete("/purchases/{id}", h.handleDelete)
	})
}

type linePayload struct {
	StockID        int64   `json:"skuId" validate:"required"`
	Quantity       float64 `json:"quantity" validate:"gt=0"`
	Amount         float64 `json:"amount" validate:"gte=0"`
	UpdateBaseCost bool    `json:"updateProductBaseCost"`
}

type createRequest struct {
	SupplierID    int64         `json:"supplierId" validate:"required"`
	DocumentType  string        `json:"documentType"`
	InvoiceNumber string        `json:"invoiceNumber"`
	ControlNumber string        `json:"controlNumber"`
	Date          time.Time     `json:"date"`
	Currency      string        `json:"currency" validate:"required"`
	ExchangeFrom  string        `json:"currencyExchangeFrom"`
	ExchangeTo    string        `json:"currencyExchangeTo"`
	ExchangeRate  float64       `json:"exchangeRate"`
	Comment       string        `json:"comment"`
	Lines         []linePayload `json:"items" validate:"required,min=1,dive"`
}

type lineResponse struct {
	ID             int64   `json:"id"`
	StockID        int64   `json:"skuId"`
	ProductID      int64   `json:"productId"`
	Quantity       float64 `json:"quantity"`
	Amount         float64 `json:"amount"`
	UpdateBaseCost bool    `json:"updateProductBaseCost"`
	IsActive       bool    `json:"isActive"`
}

type purchaseResponse struct {
	ID            int64          `json:"id"`
	SupplierID    int64          `json:"supplierId"`
	DocumentType  string         `json:"documentType,omitempty"`
	InvoiceNumber string         `json:"invoiceNumber,omitempty"`
	ControlNumber string         `json:"controlNumber,omitempty"`
	Date          time.Time      `json:"date"`
	Currency      string         `json:"currency"`
	ExchangeFrom  string         `json:"currencyExchangeFrom"`
	ExchangeTo    string         `json:"currencyExchangeTo"`
	ExchangeRate  float64        `json:"exchangeRate"`
	Total         float64        `json:"total"`
	Comment       string         `json:"comment,omitempty"`
	IsActive      bool           `json:"isActive"`
	Lines         []lineResponse `json:"items,omitempty"`
}

func toResponse(p Purchase) purchaseResponse {
	resp := purchaseResponse{
		ID:            p.ID,
		SupplierID:    p.SupplierID,
		DocumentType:  p.DocumentType,
		InvoiceNumber: p.InvoiceNumber,
		ControlNumber: p.ControlNumber,
		Date:          p.Date,
		Currency:      string(p.Currency),
		ExchangeFrom:  string(p.Exchange.From),
		ExchangeTo:    string(p.Exchange.To),
		ExchangeRate:  p.Exchange.Rate,
		Total:         p.Total,
		Comment:       p.Comment,
		IsActive:      p.IsActive,
	}
	for _, l := range p.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ID:             l.ID,
			StockID:        l.StockID,
			ProductID:      l.ProductID,
			Quantity:       l.Quantity,
			Amount:         l.Amount,
			UpdateBaseCost: l.UpdateProductBaseCost,
			IsActive:       l.IsActive,
		})
	}
	return resp
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if req.Date.IsZero() {
		req.Date = time.Now()
	}

	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idem != nil {
		if err := h.idem.CheckAndInsert(r.Context(), idemKey, "purchases"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate Request", "this idempotency key was already processed")
				return
			}
			h.logger.Error("idempotency check", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
	}

	input := CreateInput{
		SupplierID:    req.SupplierID,
		DocumentType:  req.DocumentType,
		InvoiceNumber: req.InvoiceNumber,
		ControlNumber: req.ControlNumber,
		Date:          req.Date,
		Currency:      currency.Code(req.Currency),
		Exchange: currency.Exchange{
			From: currency.Code(req.ExchangeFrom),
			To:   currency.Code(req.ExchangeTo),
			Rate: req.ExchangeRate,
		},
		Comment: req.Comment,
	}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, LineInput{
			StockID:               l.StockID,
			Quantity:              l.Quantity,
			Amount:                l.Amount,
			UpdateProductBaseCost: l.UpdateBaseCost,
		})
	}

	created, err := h.service.Create(r.Context(), actor, input)
	if err != nil {
		if idemKey != "" && h.idem != nil {
			_ = h.idem.Delete(r.Context(), idemKey)
		}
		h.logger.Error("create purchase", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid purchase id")
		return
	}
	deleted, err := h.service.Delete(r.Context(), actor, id)
	if err != nil {
		h.logger.Error("delete purchase", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(deleted))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid purchase id")
		return
	}
	p, err := h.service.GetByID(r.Context(), actor.ClientID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	page := shared.PaginationFromQuery(r.URL.Query())
	includeInactive := r.URL.Query().Get("includeInactive") == "true"
	items, err := h.service.List(r.Context(), actor.ClientID, page, includeInactive)
	if err != nil {
		h.logger.Error("list purchases", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]purchaseResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

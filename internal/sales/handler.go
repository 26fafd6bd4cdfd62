package sales

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

// Handler wires HTTP endpoints for sales.
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

// MountRoutes registers sale routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("sales.view"))
		r.Get("/sales", h.handleList)
		r.Get("/sales/{id}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("sales.manage"))
		r.Post("/sales", h.handleCreate)
		r.Delete("/sales/{id}", h.handleDelete)
	})
}

type linePayload struct {
	StockID  int64   `json:"skuId" validate:"required"`
	Quantity float64 `json:"quantity" validate:"gt=0"`
}

type createRequest struct {
	CustomerID    int64         `json:"customerId" validate:"required"`
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
	ID       int64   `json:"id"`
	StockID  int64   `json:"skuId"`
	Quantity float64 `json:"quantity"`
	Amount   float64 `json:"amount"`
	IsActive bool    `json:"isActive"`
}

type saleResponse struct {
	ID            int64          `json:"id"`
	CustomerID    int64          `json:"customerId"`
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

func toResponse(s Sale) saleResponse {
	resp := saleResponse{
		ID:            s.ID,
		CustomerID:    s.CustomerID,
		DocumentType:  s.DocumentType,
		InvoiceNumber: s.InvoiceNumber,
		ControlNumber: s.ControlNumber,
		Date:          s.Date,
		Currency:      string(s.Currency),
		ExchangeFrom:  string(s.Exchange.From),
		ExchangeTo:    string(s.Exchange.To),
		ExchangeRate:  s.Exchange.Rate,
		Total:         s.Total,
		Comment:       s.Comment,
		IsActive:      s.IsActive,
	}
	for _, l := range s.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ID:       l.ID,
			StockID:  l.StockID,
			Quantity: l.Quantity,
			Amount:   l.Amount,
			IsActive: l.IsActive,
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
		if err := h.idem.CheckAndInsert(r.Context(), idemKey, "sales"); err != nil {
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
		CustomerID:    req.CustomerID,
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
		input.Lines = append(input.Lines, LineInput{StockID: l.StockID, Quantity: l.Quantity})
	}

	created, err := h.service.Create(r.Context(), actor, input)
	if err != nil {
		if idemKey != "" && h.idem != nil {
			_ = h.idem.Delete(r.Context(), idemKey)
		}
		h.logger.Error("create sale", slog.Any("error", err))
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
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sale id")
		return
	}
	deleted, err := h.service.Delete(r.Context(), actor, id)
	if err != nil {
		h.logger.Error("delete sale", slog.Any("error", err))
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
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sale id")
		return
	}
	s, err := h.service.GetByID(r.Context(), actor.ClientID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(s))
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
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]saleResponse, 0, len(items))
	for _, s := range items {
		out = append(out, toResponse(s))
	}
	httpx.JSON(w, http.StatusOK, out)
}

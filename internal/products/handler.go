package products

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/rbac"
	"github.com/enstockapp/mono-stock/internal/shared"
)

// Handler wires HTTP endpoints for products.
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

// MountRoutes registers product routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("products.view"))
		r.Get("/products", h.handleList)
		r.Get("/products/{id}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("products.edit"))
		r.Post("/products", h.handleCreate)
		r.Put("/products/{id}", h.handleUpdate)
		r.Put("/products/stocks/{stockId}/status", h.handleStockStatus)
	})
}

type combinationPayload struct {
	OptionIDs       []int64 `json:"optionIds" validate:"required,min=1"`
	InitialQuantity float64 `json:"initialQuantity" validate:"gte=0"`
	Status          string  `json:"status"`
}

type createProductRequest struct {
	Name            string               `json:"name" validate:"required"`
	Description     string               `json:"description"`
	Price           float64              `json:"price" validate:"gte=0"`
	BaseCost        float64              `json:"baseCost" validate:"gte=0"`
	InitialQuantity float64              `json:"initialQuantity" validate:"gte=0"`
	Status          string               `json:"status"`
	Combinations    []combinationPayload `json:"optionCombinations" validate:"dive"`
}

type stockResponse struct {
	ID                int64   `json:"id"`
	OptionCombination []int64 `json:"optionCombination,omitempty"`
	Quantity          float64 `json:"quantity"`
	InitialQuantity   float64 `json:"initialQuantity"`
	Cost              float64 `json:"cost"`
	Status            string  `json:"status"`
}

type productResponse struct {
	ID                  int64           `json:"id"`
	Name                string          `json:"name"`
	Description         string          `json:"description,omitempty"`
	Kind                string          `json:"kind"`
	Price               float64         `json:"price"`
	BaseCost            float64         `json:"baseCost"`
	AverageCost         float64         `json:"averageCost"`
	TotalForAverageCost float64         `json:"totalForAverageCost"`
	Status              string          `json:"status"`
	Stocks              []stockResponse `json:"stocks,omitempty"`
}

func toProductResponse(p Product) productResponse {
	resp := productResponse{
		ID:                  p.ID,
		Name:                p.Name,
		Description:         p.Description,
		Kind:                string(p.Kind),
		Price:               p.Price,
		BaseCost:            p.BaseCost,
		AverageCost:         p.AverageCost,
		TotalForAverageCost: p.TotalForAverageCost,
		Status:              string(p.Status),
	}
	for _, s := range p.Stocks {
		resp.Stocks = append(resp.Stocks, stockResponse{
			ID:                s.ID,
			OptionCombination: s.OptionCombination,
			Quantity:          s.Quantity,
			InitialQuantity:   s.InitialQuantity,
			Cost:              s.Cost,
			Status:            string(s.Status),
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
	var req createProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	var created Product
	var err error
	if len(req.Combinations) == 0 {
		created, err = h.service.CreateUnique(r.Context(), actor.ClientID, CreateUniqueInput{
			Name:            req.Name,
			Description:     req.Description,
			Price:           req.Price,
			BaseCost:        req.BaseCost,
			InitialQuantity: req.InitialQuantity,
			Status:          Status(req.Status),
		})
	} else {
		input := CreateParentInput{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			BaseCost:    req.BaseCost,
		}
		for _, c := range req.Combinations {
			input.Combinations = append(input.Combinations, CombinationInput{
				OptionIDs:       c.OptionIDs,
				InitialQuantity: c.InitialQuantity,
				Status:          Status(c.Status),
			})
		}
		created, err = h.service.CreateParent(r.Context(), actor.ClientID, input)
	}
	if err != nil {
		h.logger.Error("create product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toProductResponse(created))
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
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]productResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toProductResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	p, err := h.service.GetByID(r.Context(), actor.ClientID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProductResponse(p))
}

type updateProductRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	BaseCost    *float64 `json:"baseCost"`
	Status      string   `json:"status"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	var req updateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	p, err := h.service.Update(r.Context(), actor.ClientID, id, UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		BaseCost:    req.BaseCost,
		Status:      Status(req.Status),
	})
	if err != nil {
		h.logger.Error("update product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProductResponse(p))
}

type stockStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE"`
}

func (h *Handler) handleStockStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	stockID, err := strconv.ParseInt(chi.URLParam(r, "stockId"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sku id")
		return
	}
	var req stockStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.SetStockStatus(r.Context(), actor.ClientID, stockID, Status(req.Status)); err != nil {
		h.logger.Error("set sku status", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

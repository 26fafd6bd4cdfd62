package suppliers

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

// Handler wires HTTP endpoints for suppliers.
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

// MountRoutes registers supplier routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("masterdata.view"))
		r.Get("/suppliers", h.handleList)
		r.Get("/suppliers/{id}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("masterdata.edit"))
		r.Post("/suppliers", h.handleCreate)
		r.Put("/suppliers/{id}", h.handleUpdate)
		r.Delete("/suppliers/{id}", h.handleDelete)
	})
}

type supplierPayload struct {
	Name    string `json:"name" validate:"required"`
	TaxID   string `json:"taxId"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address"`
}

type supplierResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	TaxID   string `json:"taxId,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

func toResponse(s Supplier) supplierResponse {
	return supplierResponse{ID: s.ID, Name: s.Name, TaxID: s.TaxID, Phone: s.Phone, Email: s.Email, Address: s.Address}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	items, err := h.service.List(r.Context(), actor.ClientID, shared.PaginationFromQuery(r.URL.Query()))
	if err != nil {
		h.logger.Error("list suppliers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]supplierResponse, 0, len(items))
	for _, s := range items {
		out = append(out, toResponse(s))
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
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid supplier id")
		return
	}
	s, err := h.service.GetByID(r.Context(), actor.ClientID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(s))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req supplierPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), actor.ClientID, Supplier{
		Name: req.Name, TaxID: req.TaxID, Phone: req.Phone, Email: req.Email, Address: req.Address,
	})
	if err != nil {
		h.logger.Error("create supplier", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid supplier id")
		return
	}
	var req supplierPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	updated, err := h.service.Update(r.Context(), actor.ClientID, id, Supplier{
		Name: req.Name, TaxID: req.TaxID, Phone: req.Phone, Email: req.Email, Address: req.Address,
	})
	if err != nil {
		h.logger.Error("update supplier", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(updated))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid supplier id")
		return
	}
	if err := h.service.Delete(r.Context(), actor.ClientID, id); err != nil {
		h.logger.Error("delete supplier", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package customers

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

// Handler wires HTTP endpoints for customers.
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

// MountRoutes registers customer routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("masterdata.view"))
		r.Get("/customers", h.handleList)
		r.Get("/customers/{id}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("masterdata.edit"))
		r.Post("/customers", h.handleCreate)
		r.Put("/customers/{id}", h.handleUpdate)
		r.Delete("/customers/{id}", h.handleDelete)
	})
}

type customerPayload struct {
	Name    string `json:"name" validate:"required"`
	TaxID   string `json:"taxId"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address"`
}

type customerResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	TaxID   string `json:"taxId,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

func toResponse(c Customer) customerResponse {
	return customerResponse{ID: c.ID, Name: c.Name, TaxID: c.TaxID, Phone: c.Phone, Email: c.Email, Address: c.Address}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	items, err := h.service.List(r.Context(), actor.ClientID, shared.PaginationFromQuery(r.URL.Query()))
	if err != nil {
		h.logger.Error("list customers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]customerResponse, 0, len(items))
	for _, c := range items {
		out = append(out, toResponse(c))
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
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid customer id")
		return
	}
	c, err := h.service.GetByID(r.Context(), actor.ClientID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req customerPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), actor.ClientID, Customer{
		Name: req.Name, TaxID: req.TaxID, Phone: req.Phone, Email: req.Email, Address: req.Address,
	})
	if err != nil {
		h.logger.Error("create customer", slog.Any("error", err))
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
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid customer id")
		return
	}
	var req customerPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	updated, err := h.service.Update(r.Context(), actor.ClientID, id, Customer{
		Name: req.Name, TaxID: req.TaxID, Phone: req.Phone, Email: req.Email, Address: req.Address,
	})
	if err != nil {
		h.logger.Error("update customer", slog.Any("error", err))
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
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid customer id")
		return
	}
	if err := h.service.Delete(r.Context(), actor.ClientID, id); err != nil {
		h.logger.Error("delete customer", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

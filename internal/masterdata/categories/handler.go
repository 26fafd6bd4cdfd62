package categories

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

// Handler wires HTTP endpoints for categories.
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

// MountRoutes registers category routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("masterdata.view"))
		r.Get("/categories", h.handleList)
		r.Get("/categories/{id}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("masterdata.edit"))
		r.Post("/categories", h.handleCreate)
		r.Put("/categories/{id}", h.handleUpdate)
		r.Delete("/categories/{id}", h.handleDelete)
	})
}

type categoryPayload struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type categoryResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func toResponse(c Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Description: c.Description}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	items, err := h.service.List(r.Context(), actor.ClientID, shared.PaginationFromQuery(r.URL.Query()))
	if err != nil {
		h.logger.Error("list categories", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]categoryResponse, 0, len(items))
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
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid category id")
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
	var req categoryPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), actor.ClientID, Category{Name: req.Name, Description: req.Description})
	if err != nil {
		h.logger.Error("create category", slog.Any("error", err))
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
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid category id")
		return
	}
	var req categoryPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	updated, err := h.service.Update(r.Context(), actor.ClientID, id, Category{Name: req.Name, Description: req.Description})
	if err != nil {
		h.logger.Error("update category", slog.Any("error", err))
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
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid category id")
		return
	}
	if err := h.service.Delete(r.Context(), actor.ClientID, id); err != nil {
		h.logger.Error("delete category", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

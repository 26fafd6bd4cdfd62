package variants

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

// Handler wires HTTP endpoints for variant dimensions.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		rbac:      rbac,
	}
}

// MountRoutes registers variant routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("variants.view"))
		r.Get("/variants", h.handleList)
		r.Get("/variants/{id}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("variants.edit"))
		r.Post("/variants", h.handleCreate)
		r.Put("/variants/{id}", h.handleUpdate)
		r.Delete("/variants/{id}", h.handleDelete)
	})
}

type createRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Options     []string `json:"options" validate:"required,min=1,dive,required"`
}

type optionPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type updateRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Options     []optionPayload `json:"options"`
}

type variantResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	CanEdit     bool            `json:"canEdit"`
	Options     []optionPayload `json:"options"`
}

func toResponse(v Variant) variantResponse {
	resp := variantResponse{
		ID:          v.ID,
		Name:        v.Name,
		Description: v.Description,
		CanEdit:     v.CanEdit,
		Options:     make([]optionPayload, 0, len(v.Options)),
	}
	for _, opt := range v.Options {
		resp.Options = append(resp.Options, optionPayload{ID: opt.ID, Name: opt.Name})
	}
	return resp
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	dims, err := h.service.List(r.Context(), actor.ClientID)
	if err != nil {
		h.logger.Error("list variants", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]variantResponse, 0, len(dims))
	for _, v := range dims {
		out = append(out, toResponse(v))
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
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid variant id")
		return
	}
	v, err := h.service.GetByID(r.Context(), actor.ClientID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(v))
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
	v, err := h.service.Create(r.Context(), actor.ClientID, CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Options:     req.Options,
	})
	if err != nil {
		h.logger.Error("create variant", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(v))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid variant id")
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	input := UpdateInput{Name: req.Name, Description: req.Description}
	for _, opt := range req.Options {
		input.Options = append(input.Options, OptionUpdate{ID: opt.ID, Name: opt.Name})
	}
	v, err := h.service.Update(r.Context(), actor.ClientID, id, input)
	if err != nil {
		h.logger.Error("update variant", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(v))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid variant id")
		return
	}
	if err := h.service.Delete(r.Context(), actor.ClientID, id); err != nil {
		h.logger.Error("delete variant", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
)

// Handler wires role and permission management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), rbac: rbac}
}

// MountRoutes registers RBAC routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("rbac.view"))
		r.Get("/roles", h.handleListRoles)
		r.Get("/roles/{id}", h.handleGetRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("rbac.edit"))
		r.Post("/roles", h.handleCreateRole)
		r.Post("/roles/{id}/permissions", h.handleGrant)
		r.Post("/users/{id}/roles", h.handleAssign)
		r.Post("/permissions", h.handleEnsurePermission)
	})
}

type roleResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func toRoleResponse(r Role) roleResponse {
	return roleResponse{ID: r.ID, Name: r.Name, Description: r.Description}
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

type rolePayload struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (h *Handler) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req rolePayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		h.logger.Error("create role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleResponse(role))
}

type grantPayload struct {
	PermissionID int64 `json:"permissionId" validate:"required,gt=0"`
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	roleID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	var req grantPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.GrantPermission(r.Context(), roleID, req.PermissionID); err != nil {
		h.logger.Error("grant permission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignPayload struct {
	RoleID int64 `json:"roleId" validate:"required,gt=0"`
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	var req assignPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.AssignRole(r.Context(), userID, req.RoleID); err != nil {
		h.logger.Error("assign role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type permissionPayload struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (h *Handler) handleEnsurePermission(w http.ResponseWriter, r *http.Request) {
	var req permissionPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.service.EnsurePermission(r.Context(), req.Name, req.Description)
	if err != nil {
		h.logger.Error("ensure permission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": p.ID, "name": p.Name})
}

package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/shared"
)

// Handler wires the authentication endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountPublicRoutes registers routes that do not require a session.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
}

// MountRoutes registers routes behind the session middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/logout", h.handleLogout)
	r.Post("/auth/password", h.handleChangePassword)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	token, user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Info("login rejected", slog.String("email", req.Email))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{Token: token, Name: user.Name, Email: user.Email})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), TokenFromRequest(r)); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changePasswordRequest struct {
	Current string `json:"current" validate:"required"`
	Next    string `json:"next" validate:"required,min=8"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.ChangePassword(r.Context(), actor.UserID, req.Current, req.Next); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

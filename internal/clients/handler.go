package clients

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/enstockapp/mono-stock/internal/currency"
	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/shared"
)

// Handler wires HTTP endpoints for tenant accounts.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountPublicRoutes registers the tenant sign-up endpoint.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/clients", h.handleRegister)
}

// MountRoutes registers routes behind the session middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/clients/me", h.handleMe)
}

type registerRequest struct {
	Name         string `json:"name" validate:"required"`
	MainCurrency string `json:"mainCurrency" validate:"omitempty,oneof=USD EUR VES COP"`
}

type clientResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MainCurrency string `json:"mainCurrency"`
	Status       string `json:"status"`
}

func toResponse(c Client) clientResponse {
	return clientResponse{
		ID:           c.ID.String(),
		Name:         c.Name,
		MainCurrency: string(c.MainCurrency),
		Status:       string(c.Status),
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Register(r.Context(), RegisterInput{
		Name:         req.Name,
		MainCurrency: currency.Code(req.MainCurrency),
	})
	if err != nil {
		h.logger.Error("register client", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	c, err := h.service.Get(r.Context(), actor.ClientID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(c))
}

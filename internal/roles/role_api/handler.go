package role_api

import (
	"net/http"
	"time"

	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/logger"
	"ms-festbuzz/internal/models"
	"ms-festbuzz/internal/roles"
	"ms-festbuzz/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *roles.Service
	Logger  *logger.Logger
}

func NewHandler(service *roles.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/festivals/{festId}", func(r chi.Router) {
		r.Post("/roles", h.Assign)
		r.Delete("/roles/{userId}", h.Remove)
		r.Get("/users", h.ListUsers)
		r.Get("/my-role", h.MyRole)
	})
}

// access resolves the caller inside the festival named in the path.
func (h *Handler) access(r *http.Request) (auth.Access, error) {
	p, _ := auth.PrincipalFrom(r.Context())
	return h.Service.Resolve(r.Context(), p, chi.URLParam(r, "festId"))
}

type assignRequest struct {
	UserID    string              `json:"user_id"`
	Role      models.FestivalRole `json:"role"`
	ExpiresAt *time.Time          `json:"expires_at,omitempty"`
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	access, err := h.access(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var expires time.Time
	if req.ExpiresAt != nil {
		expires = *req.ExpiresAt
	}
	assignment, err := h.Service.AssignRole(r.Context(), access, chi.URLParam(r, "festId"), req.UserID, req.Role, expires)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Role assigned", assignment)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	access, err := h.access(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.Service.RemoveRole(r.Context(), access, chi.URLParam(r, "festId"), chi.URLParam(r, "userId")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Role removed", nil)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	access, err := h.access(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	users, err := h.Service.ListFestivalUsers(r.Context(), access, chi.URLParam(r, "festId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Festival users", users)
}

func (h *Handler) MyRole(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	role, err := h.Service.MyRole(r.Context(), p, chi.URLParam(r, "festId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Festival role", role)
}

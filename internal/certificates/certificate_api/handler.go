package certificate_api

import (
	"net/http"

	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/certificates"
	"ms-festbuzz/internal/logger"
	"ms-festbuzz/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *certificates.Service
	Logger  *logger.Logger
}

func NewHandler(service *certificates.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/certificates", func(r chi.Router) {
		r.Get("/my", h.Mine)
		r.Get("/user/{eventId}", h.ForUser)
		r.Get("/events/{eventId}", h.GetTemplate)
		r.Put("/events/{eventId}/template", h.SaveTemplate)
		r.Post("/events/{eventId}/issue", h.Issue)
	})
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

func (h *Handler) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	var in certificates.TemplateInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	cert, err := h.Service.SaveTemplate(r.Context(), principal(r), chi.URLParam(r, "eventId"), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Certificate template saved", cert)
}

func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	cert, err := h.Service.GetTemplate(r.Context(), principal(r), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Certificate", cert)
}

func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	var in certificates.IssueInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	cert, err := h.Service.Issue(r.Context(), principal(r), chi.URLParam(r, "eventId"), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Certificates issued", cert)
}

func (h *Handler) ForUser(w http.ResponseWriter, r *http.Request) {
	cert, err := h.Service.ForUser(r.Context(), principal(r), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Certificate", cert)
}

func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	certs, err := h.Service.Mine(r.Context(), principal(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Certificates", certs)
}

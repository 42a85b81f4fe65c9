package registration_api

import (
	"net/http"

	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/logger"
	"ms-festbuzz/internal/models"
	"ms-festbuzz/internal/registration"
	"ms-festbuzz/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *registration.Service
	Logger  *logger.Logger
}

func NewHandler(service *registration.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes mounts the registration routes; r must sit behind auth.Middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/registrations", func(r chi.Router) {
		r.Post("/fest", h.RegisterForFest)
		r.Get("/fest/me", h.MyFestRegistrations)
		r.Get("/fest/{festId}/status", h.FestStatus)
		r.Get("/fest/{festId}/count", h.FestCount)
		r.Get("/fest/{festId}/candidates", h.FestCandidates)
		r.Delete("/fest/{festId}/unregister", h.UnregisterForFest)

		r.Post("/event/solo", h.RegisterForEvent)
		r.Get("/event/me", h.MyEventRegistrations)
		r.Get("/event/{eventId}/count", h.EventCount)
		r.Get("/event/{eventId}/candidates", h.EventCandidates)
		r.Delete("/event/{eventId}/unregister", h.UnregisterFromEvent)

		r.Post("/verify", h.VerifyTicket)
		r.Get("/{id}/qrcode", h.QRCode)
		r.Delete("/{id}", h.Cancel)
	})
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

type festRequest struct {
	FestID string `json:"fest_id"`
	registration.FestInput
}

func (h *Handler) RegisterForFest(w http.ResponseWriter, r *http.Request) {
	var req festRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	reg, err := h.Service.RegisterForFest(r.Context(), principal(r), req.FestID, req.FestInput)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Registered for festival", reg)
}

type eventRequest struct {
	EventID string `json:"event_id"`
	registration.EventInput
}

func (h *Handler) RegisterForEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	reg, err := h.Service.RegisterForEvent(r.Context(), principal(r), req.EventID, req.EventInput)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Registered for event", reg)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.CancelRegistration(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Registration cancelled", nil)
}

func (h *Handler) UnregisterForFest(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.UnregisterForFest(r.Context(), principal(r), chi.URLParam(r, "festId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Unregistered from festival", summary)
}

func (h *Handler) UnregisterFromEvent(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.UnregisterFromEvent(r.Context(), principal(r), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Unregistered from event", summary)
}

func (h *Handler) MyFestRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.Service.MyFestRegistrations(r.Context(), principal(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Festival registrations", regs)
}

func (h *Handler) MyEventRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.Service.MyEventRegistrations(r.Context(), principal(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event registrations", regs)
}

func (h *Handler) FestStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Service.FestRegistrationStatus(r.Context(), principal(r), chi.URLParam(r, "festId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Registration status", status)
}

// QRCode streams the PNG of one of the caller's registrations.
func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request) {
	img, err := h.Service.RegistrationQR(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img); err != nil {
		h.Logger.Warn("HTTP", "write qr code: "+err.Error())
	}
}

func (h *Handler) FestCount(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Service.FestCounts(r.Context(), chi.URLParam(r, "festId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Festival registration counts", counts)
}

func (h *Handler) EventCount(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Service.EventCounts(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event registration counts", counts)
}

func candidateFilter(r *http.Request) models.CandidateFilter {
	q := r.URL.Query()
	return models.CandidateFilter{
		Status: models.RegistrationStatus(q.Get("status")),
		Search: q.Get("search"),
		Page:   utils.PageFromQuery(r),
	}
}

func (h *Handler) FestCandidates(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.FestCandidates(r.Context(), principal(r), chi.URLParam(r, "festId"), candidateFilter(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Festival candidates", page)
}

func (h *Handler) EventCandidates(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.EventCandidates(r.Context(), principal(r), chi.URLParam(r, "eventId"), candidateFilter(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event candidates", page)
}

type verifyRequest struct {
	Code string `json:"code"`
}

// VerifyTicket checks a scanned QR ticket at the festival gate.
func (h *Handler) VerifyTicket(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	check, err := h.Service.VerifyTicket(r.Context(), principal(r), req.Code)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket is valid", check)
}

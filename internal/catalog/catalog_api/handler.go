package catalog_api

import (
	"context"
	"net/http"

	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/catalog"
	"ms-festbuzz/internal/logger"
	"ms-festbuzz/internal/models"
	"ms-festbuzz/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *catalog.Service
	Logger  *logger.Logger
}

func NewHandler(service *catalog.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterPublicRoutes mounts the read routes; r should carry
// auth.OptionalMiddleware so organisers also see drafts.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/fests", h.ListFestivals)
	r.Get("/fests/{festId}", h.GetFestival)
	r.Get("/fests/{festId}/events", h.ListEvents)
	r.Get("/events/{eventId}", h.GetEvent)
	r.Get("/events/{eventId}/judges", h.ListJudges)
	r.Get("/events/{eventId}/roles", h.ListEventRoles)
}

// RegisterRoutes mounts the write routes behind auth.Middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/fests", h.CreateFestival)
	r.Put("/fests/{festId}", h.UpdateFestival)
	r.Delete("/fests/{festId}", h.DeleteFestival)
	r.Post("/fests/{festId}/events", h.CreateEvent)

	r.Put("/events/{eventId}", h.UpdateEvent)
	r.Delete("/events/{eventId}", h.DeleteEvent)
	r.Post("/events/{eventId}/publish", h.PublishEvent)
	r.Post("/events/{eventId}/unpublish", h.UnpublishEvent)
	r.Post("/events/{eventId}/archive", h.ArchiveEvent)
	r.Post("/events/{eventId}/judges", h.AddJudge)
	r.Delete("/events/{eventId}/judges/{index}", h.RemoveJudge)
	r.Post("/events/{eventId}/roles", h.AddEventRole)
	r.Delete("/events/{eventId}/roles/{index}", h.RemoveEventRole)
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

func (h *Handler) ListFestivals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.FestivalFilter{
		City:   q.Get("city"),
		State:  q.Get("state"),
		Type:   q.Get("type"),
		Search: q.Get("search"),
		Page:   utils.PageFromQuery(r),
	}
	fests, page, err := h.Service.ListFestivals(r.Context(), filter)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Festivals", map[string]any{"festivals": fests, "pagination": page})
}

func (h *Handler) GetFestival(w http.ResponseWriter, r *http.Request) {
	fest, err := h.Service.GetFestival(r.Context(), chi.URLParam(r, "festId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Festival", fest)
}

func (h *Handler) CreateFestival(w http.ResponseWriter, r *http.Request) {
	var in catalog.FestivalInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	fest, err := h.Service.CreateFestival(r.Context(), principal(r), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Festival created", fest)
}

func (h *Handler) UpdateFestival(w http.ResponseWriter, r *http.Request) {
	var in catalog.FestivalInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	fest, err := h.Service.UpdateFestival(r.Context(), principal(r), chi.URLParam(r, "festId"), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Festival updated", fest)
}

func (h *Handler) DeleteFestival(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteFestival(r.Context(), principal(r), chi.URLParam(r, "festId")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Festival deleted", nil)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.ListEvents(r.Context(), principal(r), chi.URLParam(r, "festId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Events", events)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.Service.GetEvent(r.Context(), principal(r), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event", event)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in catalog.EventInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	event, err := h.Service.CreateEvent(r.Context(), principal(r), chi.URLParam(r, "festId"), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Event saved as draft", event)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var in catalog.EventInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	event, err := h.Service.UpdateEvent(r.Context(), principal(r), chi.URLParam(r, "eventId"), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event updated", event)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteEvent(r.Context(), principal(r), chi.URLParam(r, "eventId")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event deleted", nil)
}

type transitionFunc func(ctx context.Context, p auth.Principal, eventID string) (*models.Event, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc, message string) {
	event, err := fn(r.Context(), principal(r), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, message, event)
}

func (h *Handler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.PublishEvent, "Event published")
}

func (h *Handler) UnpublishEvent(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.UnpublishEvent, "Event unpublished")
}

func (h *Handler) ArchiveEvent(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.ArchiveEvent, "Event archived")
}

func (h *Handler) AddJudge(w http.ResponseWriter, r *http.Request) {
	var judge models.Judge
	if err := utils.DecodeJSON(r, &judge); err != nil {
		utils.WriteError(w, err)
		return
	}
	event, err := h.Service.AddJudge(r.Context(), principal(r), chi.URLParam(r, "eventId"), judge)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Judge added", event)
}

func (h *Handler) RemoveJudge(w http.ResponseWriter, r *http.Request) {
	index, err := utils.IntParam("index", chi.URLParam(r, "index"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	event, err := h.Service.RemoveJudge(r.Context(), principal(r), chi.URLParam(r, "eventId"), index)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Judge removed", event)
}

func (h *Handler) ListJudges(w http.ResponseWriter, r *http.Request) {
	judges, err := h.Service.ListJudges(r.Context(), principal(r), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Judges", judges)
}

func (h *Handler) ListEventRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.ListEventRoles(r.Context(), principal(r), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event roles", roles)
}

func (h *Handler) AddEventRole(w http.ResponseWriter, r *http.Request) {
	var role models.EventRole
	if err := utils.DecodeJSON(r, &role); err != nil {
		utils.WriteError(w, err)
		return
	}
	roles, err := h.Service.AddEventRole(r.Context(), principal(r), chi.URLParam(r, "eventId"), role)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Event role added", roles)
}

func (h *Handler) RemoveEventRole(w http.ResponseWriter, r *http.Request) {
	index, err := utils.IntParam("index", chi.URLParam(r, "index"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	roles, err := h.Service.RemoveEventRole(r.Context(), principal(r), chi.URLParam(r, "eventId"), index)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event role removed", roles)
}

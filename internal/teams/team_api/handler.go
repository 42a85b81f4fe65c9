package team_api

import (
	"net/http"

	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/logger"
	"ms-festbuzz/internal/teams"
	"ms-festbuzz/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *teams.Service
	Logger  *logger.Logger
}

func NewHandler(service *teams.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/teams", func(r chi.Router) {
		r.Post("/create", h.Create)
		r.Post("/join", h.Join)
		r.Get("/my-teams", h.MyTeams)
		r.Get("/event/{eventId}/available", h.Available)
		r.Get("/{teamId}", h.Get)
		r.Post("/{teamId}/leave", h.Leave)
		r.Post("/{teamId}/remove-member", h.RemoveMember)
		r.Post("/{teamId}/transfer-leadership", h.TransferLeadership)
		r.Post("/{teamId}/disband", h.Disband)
	})
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in teams.CreateInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	team, err := h.Service.CreateTeam(r.Context(), principal(r), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Team created", team)
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamCode string `json:"team_code"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	team, err := h.Service.JoinTeam(r.Context(), principal(r), req.TeamCode)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Joined team", team)
}

func (h *Handler) MyTeams(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.MyTeams(r.Context(), principal(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Teams", list)
}

func (h *Handler) Available(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.AvailableTeams(r.Context(), principal(r), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Available teams", list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.GetTeam(r.Context(), principal(r), chi.URLParam(r, "teamId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Team", view)
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.LeaveTeam(r.Context(), principal(r), chi.URLParam(r, "teamId")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Left team", nil)
}

type memberRequest struct {
	MemberID    string `json:"member_id"`
	NewLeaderID string `json:"new_leader_id"`
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.Service.RemoveMember(r.Context(), principal(r), chi.URLParam(r, "teamId"), req.MemberID); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Member removed", nil)
}

func (h *Handler) TransferLeadership(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	team, err := h.Service.TransferLeadership(r.Context(), principal(r), chi.URLParam(r, "teamId"), req.NewLeaderID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Leadership transferred", team)
}

func (h *Handler) Disband(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.DisbandTeam(r.Context(), principal(r), chi.URLParam(r, "teamId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Team disbanded", summary)
}

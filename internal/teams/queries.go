package teams

import (
	"context"

	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/models"
)

type Member struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	IsLeader bool   `json:"is_leader"`
}

type TeamView struct {
	*models.Team
	MemberDetails []Member `json:"member_details"`
	IsMember      bool     `json:"is_member"`
	IsLeader      bool     `json:"is_leader"`
	SlotsLeft     int      `json:"slots_left"`
}

// GetTeam returns the team with member details and the caller's place in it.
func (s *Service) GetTeam(ctx context.Context, p auth.Principal, teamID string) (*TeamView, error) {
	team, err := s.Store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, db.AppError(err, "team not found", "")
	}
	users, err := s.Store.GetUsers(ctx, team.Members)
	if err != nil {
		return nil, db.AppError(err, "", "")
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	view := &TeamView{
		Team:          team,
		MemberDetails: make([]Member, 0, len(team.Members)),
		IsMember:      team.HasMember(p.UserID),
		IsLeader:      team.IsLeader(p.UserID),
		SlotsLeft:     team.SlotsLeft(),
	}
	for _, id := range team.Members {
		u := byID[id]
		view.MemberDetails = append(view.MemberDetails, Member{UserID: id, Name: u.Name, Email: u.Email, IsLeader: team.IsLeader(id)})
	}
	return view, nil
}

// MyTeams lists the caller's teams that are not disbanded.
func (s *Service) MyTeams(ctx context.Context, p auth.Principal) ([]models.Team, error) {
	teams, err := s.Store.ListTeamsForMember(ctx, p.UserID)
	return teams, db.AppError(err, "", "")
}

// AvailableTeams lists active teams of eventID with free slots that the
// caller is not already part of.
func (s *Service) AvailableTeams(ctx context.Context, p auth.Principal, eventID string) ([]models.Team, error) {
	if _, err := s.Store.GetEvent(ctx, eventID); err != nil {
		return nil, db.AppError(err, "event not found", "")
	}
	teams, err := s.Store.ListTeamsByEvent(ctx, eventID, models.TeamActive)
	if err != nil {
		return nil, db.AppError(err, "", "")
	}
	out := make([]models.Team, 0, len(teams))
	for _, t := range teams {
		if t.SlotsLeft() > 0 && !t.HasMember(p.UserID) {
			out = append(out, t)
		}
	}
	return out, nil
}

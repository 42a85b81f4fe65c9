package teams

import (
	"context"
	"fmt"
	"strings"

	"ms-festbuzz/internal/apperr"
	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/models"

	"github.com/google/uuid"
)

type CreateInput struct {
	EventID     string `json:"event_id"`
	Name        string `json:"team_name"`
	Description string `json:"description,omitempty"`
}

// CreateTeam creates a team for a team event with the caller as leader and
// registers the caller's seat in the same transaction.
func (s *Service) CreateTeam(ctx context.Context, p auth.Principal, in CreateInput) (*models.Team, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("team name is required")
	}

	event, err := s.Store.GetEvent(ctx, in.EventID)
	if err != nil {
		return nil, db.AppError(err, "event not found", "")
	}
	if !event.IsTeamEvent {
		return nil, apperr.Validation("this is not a team event")
	}
	if event.Status != models.EventPublished {
		return nil, apperr.Validation("event is not open for registration")
	}

	unlock, err := s.acquire(ctx, p.UserID, event.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Step 1: fest registration and no existing seat
	festReg, err := s.eligible(ctx, p.UserID, event)
	if err != nil {
		return nil, err
	}

	// Step 2: code, team and leader seat
	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}
	size := event.TeamSize
	if size < 1 {
		size = s.Options.DefaultTeamSize
	}
	team := models.NewTeam(uuid.NewString(), name, code, event, p.UserID, size, s.Now())
	team.Description = strings.TrimSpace(in.Description)
	seat, err := s.seat(event, festReg.ID, team.ID, p.UserID, models.TeamRoleLeader)
	if err != nil {
		return nil, err
	}

	// Step 3: both rows or neither
	err = s.Store.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.Store.CreateTeam(ctx, team); err != nil {
			return db.AppError(err, "", "team code already taken, please retry")
		}
		return db.AppError(s.Store.CreateEventRegistration(ctx, seat), "", "already registered for this event")
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogTeam("CREATED", team.ID, fmt.Sprintf("%q created by %s for event %s", team.Name, p.UserID, event.ID))
	created := s.event(team, models.TeamCreated, p.UserID)
	created.RegistrationID = seat.ID
	s.publish(ctx, created)
	return team, nil
}

// JoinTeam adds the caller to the team with code and registers their seat.
func (s *Service) JoinTeam(ctx context.Context, p auth.Principal, code string) (*models.Team, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperr.Validation("team code is required")
	}

	team, err := s.Store.GetTeamByCode(ctx, code)
	if err != nil {
		return nil, db.AppError(err, "no team with this code", "")
	}
	if team.Disbanded() {
		return nil, apperr.Validation("team is no longer active")
	}
	if team.HasMember(p.UserID) {
		return nil, apperr.Conflict("you are already a member of this team")
	}
	if team.Status == models.TeamFull {
		return nil, apperr.Conflict("team is full")
	}
	event, err := s.Store.GetEvent(ctx, team.EventID)
	if err != nil {
		return nil, db.AppError(err, "event not found", "")
	}

	unlock, err := s.acquire(ctx, p.UserID, event.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	festReg, err := s.eligible(ctx, p.UserID, event)
	if err != nil {
		return nil, err
	}
	seat, err := s.seat(event, festReg.ID, team.ID, p.UserID, models.TeamRoleMember)
	if err != nil {
		return nil, err
	}

	err = s.Store.RunInTx(ctx, func(ctx context.Context) error {
		// re-read under the lock; the pre-checks above may be stale
		locked, err := s.lockTeam(ctx, team.ID)
		if err != nil {
			return err
		}
		if err := locked.AddMember(p.UserID, s.Now()); err != nil {
			return err
		}
		if err := s.Store.UpdateTeam(ctx, locked); err != nil {
			return db.AppError(err, "team not found", "")
		}
		if err := s.Store.CreateEventRegistration(ctx, seat); err != nil {
			return db.AppError(err, "", "already registered for this event")
		}
		team = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogTeam("JOINED", team.ID, fmt.Sprintf("%s joined (%d/%d)", p.UserID, len(team.Members), team.MaxSize))
	joined := s.event(team, models.TeamMemberJoined, p.UserID)
	joined.RegistrationID = seat.ID
	s.publish(ctx, joined)
	return team, nil
}

// detach removes memberID from a locked team and cancels their seat.
func (s *Service) detach(ctx context.Context, team *models.Team, memberID string) error {
	team.Detach(memberID, s.Now())
	if err := s.Store.UpdateTeam(ctx, team); err != nil {
		return db.AppError(err, "team not found", "")
	}
	_, err := s.Store.CancelTeamRegistrations(ctx, team.ID, memberID)
	return db.AppError(err, "", "")
}

// LeaveTeam removes the caller from a team. Leaders must hand over or
// disband first.
func (s *Service) LeaveTeam(ctx context.Context, p auth.Principal, teamID string) error {
	if err := requirePrincipal(p); err != nil {
		return err
	}

	var team *models.Team
	err := s.Store.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if team, err = s.lockTeam(ctx, teamID); err != nil {
			return err
		}
		switch {
		case team.Disbanded():
			return apperr.Validation("team has been disbanded")
		case !team.HasMember(p.UserID):
			return apperr.Validation("you are not a member of this team")
		case team.IsLeader(p.UserID):
			return apperr.Validation("the team leader cannot leave; transfer leadership or disband the team")
		}
		return s.detach(ctx, team, p.UserID)
	})
	if err != nil {
		return err
	}

	s.Logger.LogTeam("LEFT", team.ID, p.UserID+" left")
	s.publish(ctx, s.event(team, models.TeamMemberLeft, p.UserID))
	return nil
}

// RemoveMember lets the leader remove another member.
func (s *Service) RemoveMember(ctx context.Context, p auth.Principal, teamID, memberID string) error {
	if err := requirePrincipal(p); err != nil {
		return err
	}

	var team *models.Team
	err := s.Store.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if team, err = s.lockTeam(ctx, teamID); err != nil {
			return err
		}
		switch {
		case !team.IsLeader(p.UserID):
			return apperr.Forbidden("only the team leader can remove members")
		case team.Disbanded():
			return apperr.Validation("team has been disbanded")
		case memberID == team.LeaderID:
			return apperr.Validation("the team leader cannot be removed")
		case !team.HasMember(memberID):
			return apperr.Validation("user is not a member of this team")
		}
		return s.detach(ctx, team, memberID)
	})
	if err != nil {
		return err
	}

	s.Logger.LogTeam("REMOVED", team.ID, fmt.Sprintf("%s removed by %s", memberID, p.UserID))
	s.publish(ctx, s.event(team, models.TeamMemberRemoved, memberID))
	return nil
}

// TransferLeadership hands the leader role to another member and swaps the
// roles recorded on both seats.
func (s *Service) TransferLeadership(ctx context.Context, p auth.Principal, teamID, newLeaderID string) (*models.Team, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}

	var team *models.Team
	err := s.Store.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if team, err = s.lockTeam(ctx, teamID); err != nil {
			return err
		}
		if !team.IsLeader(p.UserID) {
			return apperr.Forbidden("only the team leader can transfer leadership")
		}
		if err := team.TransferLeadership(newLeaderID, s.Now()); err != nil {
			return err
		}
		if err := s.Store.UpdateTeam(ctx, team); err != nil {
			return db.AppError(err, "team not found", "")
		}
		if err := s.Store.SetTeamRole(ctx, team.ID, p.UserID, models.TeamRoleMember); err != nil {
			return db.AppError(err, "", "")
		}
		return db.AppError(s.Store.SetTeamRole(ctx, team.ID, newLeaderID, models.TeamRoleLeader), "", "")
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogTeam("LEADER", team.ID, fmt.Sprintf("leadership %s -> %s", p.UserID, newLeaderID))
	s.publish(ctx, s.event(team, models.TeamLeaderChanged, newLeaderID))
	return team, nil
}

type DisbandSummary struct {
	CancelledRegistrations int `json:"cancelledRegistrations"`
}

// DisbandTeam cancels every active seat of the team and marks it disbanded.
func (s *Service) DisbandTeam(ctx context.Context, p auth.Principal, teamID string) (*DisbandSummary, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}

	var (
		team    *models.Team
		summary DisbandSummary
	)
	err := s.Store.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if team, err = s.lockTeam(ctx, teamID); err != nil {
			return err
		}
		if !team.IsLeader(p.UserID) {
			return apperr.Forbidden("only the team leader can disband the team")
		}
		if err := team.Disband(s.Now()); err != nil {
			return err
		}
		if err := s.Store.UpdateTeam(ctx, team); err != nil {
			return db.AppError(err, "team not found", "")
		}
		summary.CancelledRegistrations, err = s.Store.CancelTeamRegistrations(ctx, team.ID, "")
		return db.AppError(err, "", "")
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogTeam("DISBANDED", team.ID, fmt.Sprintf("by %s, %d registrations cancelled", p.UserID, summary.CancelledRegistrations))
	disbanded := s.event(team, models.TeamDisbandedEvent, p.UserID)
	disbanded.Data = map[string]any{"cancelled_registrations": summary.CancelledRegistrations}
	s.publish(ctx, disbanded)
	return &summary, nil
}

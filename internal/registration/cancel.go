package registration

import (
	"context"
	"time"

	"ms-festbuzz/internal/apperr"
	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/models"
	"ms-festbuzz/internal/utils"
)

// checkCutoff rejects changes once start is within the cancellation cutoff.
func (s *Service) checkCutoff(start time.Time) error {
	if start.IsZero() {
		return nil
	}
	if utils.DaysUntil(start, s.Now()) <= s.cutoffDays() {
		return apperr.Validation("registrations cannot be cancelled within %d day(s) of the start", s.cutoffDays())
	}
	return nil
}

// authorize allows the holder of a registration or a festival admin.
func (s *Service) authorize(ctx context.Context, p auth.Principal, festID, holderID string) error {
	if holderID == p.UserID {
		return nil
	}
	access, err := s.Roles.Resolve(ctx, p, festID)
	if err != nil {
		return err
	}
	if !access.IsFestivalAdmin() {
		return apperr.Forbidden("not allowed to cancel this registration")
	}
	return nil
}

// CancelRegistration hard-deletes a single fest or solo event registration.
// It never cascades: a fest registration still backing event registrations
// must go through UnregisterForFest, and team seats through the team flows.
func (s *Service) CancelRegistration(ctx context.Context, p auth.Principal, registrationID string) error {
	if err := requirePrincipal(p); err != nil {
		return err
	}
	kind, err := models.ParseRegistrationID(registrationID)
	if err != nil {
		return err
	}
	if kind == models.KindFestRegistration {
		return s.cancelFestRegistration(ctx, p, registrationID)
	}
	return s.cancelEventRegistration(ctx, p, registrationID)
}

func (s *Service) cancelFestRegistration(ctx context.Context, p auth.Principal, id string) error {
	reg, err := s.Store.GetFestRegistration(ctx, id)
	if err != nil {
		return db.AppError(err, "registration not found", "")
	}
	if err := s.authorize(ctx, p, reg.FestID, reg.UserID); err != nil {
		return err
	}
	fest, err := s.Store.GetFestival(ctx, reg.FestID)
	if err != nil {
		return db.AppError(err, "festival not found", "")
	}
	if err := s.checkCutoff(fest.StartDate); err != nil {
		return err
	}

	err = s.Store.RunInTx(ctx, func(ctx context.Context) error {
		n, err := s.Store.CountActiveByFestRegistration(ctx, reg.ID)
		if err != nil {
			return db.AppError(err, "", "")
		}
		if n > 0 {
			return apperr.Conflict("festival registration still has %d active event registration(s); use DELETE /registrations/fest/%s/unregister to leave the festival and its events together", n, reg.FestID)
		}
		return db.AppError(s.Store.DeleteFestRegistration(ctx, reg.ID), "registration not found", "")
	})
	if err != nil {
		return err
	}

	s.logf("FEST_CANCELLED", reg.ID, "cancelled by %s", p.UserID)
	s.publish(ctx, models.DomainEvent{
		Type:           models.FestRegistrationDeleted,
		UserID:         reg.UserID,
		FestID:         reg.FestID,
		RegistrationID: reg.ID,
		OccurredAt:     s.Now(),
	})
	return nil
}

func (s *Service) cancelEventRegistration(ctx context.Context, p auth.Principal, id string) error {
	reg, err := s.Store.GetEventRegistration(ctx, id)
	if err != nil {
		return db.AppError(err, "registration not found", "")
	}
	if err := s.authorize(ctx, p, reg.FestID, reg.HolderID); err != nil {
		return err
	}
	if reg.Type == models.RegistrationTeam {
		return apperr.Validation("team registrations are cancelled by leaving the team or unregistering from the event")
	}

	event, err := s.Store.GetEvent(ctx, reg.EventID)
	if err != nil {
		return db.AppError(err, "event not found", "")
	}
	fest, err := s.Store.GetFestival(ctx, reg.FestID)
	if err != nil {
		return db.AppError(err, "festival not found", "")
	}
	if err := s.checkCutoff(event.StartsAt(fest)); err != nil {
		return err
	}

	if err := s.Store.DeleteEventRegistration(ctx, reg.ID); err != nil {
		return db.AppError(err, "registration not found", "")
	}

	s.logf("EVENT_CANCELLED", reg.ID, "cancelled by %s", p.UserID)
	s.publish(ctx, models.DomainEvent{
		Type:           models.EventRegistrationDeleted,
		UserID:         reg.HolderID,
		FestID:         reg.FestID,
		EventID:        reg.EventID,
		RegistrationID: reg.ID,
		OccurredAt:     s.Now(),
	})
	return nil
}

type UnregisterSummary struct {
	DeletedEventRegistrations int `json:"deletedEventRegistrations"`
	UpdatedTeams              int `json:"updatedTeams"`
	DeletedTeams              int `json:"deletedTeams"`
}

// detachFromTeam removes userID from a locked team, deleting it when empty
// and handing the leader role on otherwise.
func (s *Service) detachFromTeam(ctx context.Context, team *models.Team, userID string) (deleted bool, events []models.DomainEvent, err error) {
	now := s.Now()
	newLeader, removed := team.Detach(userID, now)
	if !removed {
		return false, nil, nil
	}

	base := models.DomainEvent{UserID: userID, FestID: team.FestID, EventID: team.EventID, TeamID: team.ID, OccurredAt: now}
	if team.Empty() {
		if err := s.Store.DeleteTeam(ctx, team.ID); err != nil {
			return false, nil, db.AppError(err, "", "")
		}
		base.Type = models.TeamDeleted
		return true, []models.DomainEvent{base}, nil
	}

	if err := s.Store.UpdateTeam(ctx, team); err != nil {
		return false, nil, db.AppError(err, "", "")
	}
	base.Type = models.TeamMemberLeft
	events = append(events, base)
	if newLeader != "" {
		if err := s.Store.SetTeamRole(ctx, team.ID, newLeader, models.TeamRoleLeader); err != nil {
			return false, nil, db.AppError(err, "", "")
		}
		leader := base
		leader.Type = models.TeamLeaderChanged
		leader.UserID = newLeader
		events = append(events, leader)
	}
	return false, events, nil
}

// UnregisterForFest removes the caller from festID entirely in one
// transaction: the fest registration, every event registration under the
// festival and every team membership, deleting teams left empty.
func (s *Service) UnregisterForFest(ctx context.Context, p auth.Principal, festID string) (*UnregisterSummary, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if _, err := s.Store.GetFestival(ctx, festID); err != nil {
		return nil, db.AppError(err, "festival not found", "")
	}

	unlock, err := s.acquire(ctx, p.UserID, festScope(festID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		summary UnregisterSummary
		festReg *models.FestRegistration
		events  []models.DomainEvent
	)
	err = s.Store.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		festReg, err = s.Store.FindFestRegistration(ctx, p.UserID, festID)
		if err != nil {
			return db.AppError(err, "not registered for this festival", "")
		}

		// Step 1: the fest registration itself
		if err := s.Store.DeleteFestRegistration(ctx, festReg.ID); err != nil {
			return db.AppError(err, "not registered for this festival", "")
		}

		// Step 2: every event registration the user holds under the festival
		eventIDs, err := s.Store.ListEventIDs(ctx, festID)
		if err != nil {
			return db.AppError(err, "", "")
		}
		summary.DeletedEventRegistrations, err = s.Store.DeleteEventRegistrationsByHolder(ctx, p.UserID, eventIDs)
		if err != nil {
			return db.AppError(err, "", "")
		}

		// Step 3: team memberships
		teams, err := s.Store.LockTeamsForMember(ctx, p.UserID, eventIDs)
		if err != nil {
			return db.AppError(err, "", "")
		}
		for i := range teams {
			team := &teams[i]
			deleted, evs, err := s.detachFromTeam(ctx, team, p.UserID)
			if err != nil {
				return err
			}
			if deleted {
				summary.DeletedTeams++
			} else {
				summary.UpdatedTeams++
			}
			events = append(events, evs...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logf("FEST_UNREGISTERED", festReg.ID, "user %s left festival %s: %d event registrations, %d teams updated, %d teams deleted",
		p.UserID, festID, summary.DeletedEventRegistrations, summary.UpdatedTeams, summary.DeletedTeams)
	s.publish(ctx, append([]models.DomainEvent{{
		Type:           models.FestRegistrationDeleted,
		UserID:         p.UserID,
		FestID:         festID,
		RegistrationID: festReg.ID,
		OccurredAt:     s.Now(),
		Data:           map[string]any{"deleted_event_registrations": summary.DeletedEventRegistrations},
	}}, events...)...)
	return &summary, nil
}

type EventUnregisterSummary struct {
	DeletedRegistration string `json:"deletedRegistration"`
	TeamUpdated         bool   `json:"teamUpdated"`
	TeamDeleted         bool   `json:"teamDeleted"`
}

// UnregisterFromEvent deletes the caller's active registration for eventID.
// A team seat also leaves the team, with the same leader and empty-team
// handling as UnregisterForFest.
func (s *Service) UnregisterFromEvent(ctx context.Context, p auth.Principal, eventID string) (*EventUnregisterSummary, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	event, err := s.Store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, db.AppError(err, "event not found", "")
	}

	unlock, err := s.acquire(ctx, p.UserID, eventScope(eventID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		summary EventUnregisterSummary
		events  []models.DomainEvent
	)
	err = s.Store.RunInTx(ctx, func(ctx context.Context) error {
		reg, err := s.Store.FindActiveEventRegistration(ctx, p.UserID, eventID)
		if err != nil {
			return db.AppError(err, "no active registration for this event", "")
		}

		// The registration goes before the team so the leader hand-off only
		// touches remaining members.
		if err := s.Store.DeleteEventRegistration(ctx, reg.ID); err != nil {
			return db.AppError(err, "no active registration for this event", "")
		}
		summary = EventUnregisterSummary{DeletedRegistration: reg.ID}
		events = []models.DomainEvent{{
			Type:           models.EventRegistrationDeleted,
			UserID:         p.UserID,
			FestID:         event.FestID,
			EventID:        eventID,
			TeamID:         reg.TeamID,
			RegistrationID: reg.ID,
			OccurredAt:     s.Now(),
		}}

		if reg.Type != models.RegistrationTeam {
			return nil
		}
		team, err := s.Store.LockTeam(ctx, reg.TeamID)
		if err != nil {
			return db.AppError(err, "team not found", "")
		}
		deleted, evs, err := s.detachFromTeam(ctx, team, p.UserID)
		if err != nil {
			return err
		}
		summary.TeamDeleted = deleted
		summary.TeamUpdated = !deleted && len(evs) > 0
		events = append(events, evs...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logf("EVENT_UNREGISTERED", summary.DeletedRegistration, "user %s left event %s", p.UserID, eventID)
	s.publish(ctx, events...)
	return &summary, nil
}

package catalog

import (
	"context"
	"strings"
	"time"

	"ms-festbuzz/internal/apperr"
	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/models"

	"github.com/google/uuid"
)

// EventInput carries event attributes. Nil pointers and empty strings leave
// a field unchanged on update.
type EventInput struct {
	Name         string               `json:"name"`
	Type         string               `json:"type"`
	Visibility   string               `json:"visibility"`
	Mode         string               `json:"mode"`
	Location     string               `json:"location"`
	Venue        string               `json:"venue"`
	Description  string               `json:"description"`
	RulebookLink string               `json:"rulebook_link"`
	StartDate    time.Time            `json:"start_date"`
	EndDate      time.Time            `json:"end_date"`
	IsTeamEvent  *bool                `json:"is_team_event"`
	TeamSize     *int                 `json:"team_size"`
	Capacity     *int                 `json:"capacity"`
	Tickets      []models.EventTicket `json:"tickets"`
	Sponsors     []models.Sponsor     `json:"sponsors"`
	Rewards      []models.Reward      `json:"rewards"`
}

func (in EventInput) apply(e *models.Event) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&e.Name, in.Name)
	set(&e.Type, in.Type)
	set(&e.Visibility, in.Visibility)
	set(&e.Mode, in.Mode)
	set(&e.Location, in.Location)
	set(&e.Venue, in.Venue)
	set(&e.Description, in.Description)
	set(&e.RulebookLink, in.RulebookLink)
	if !in.StartDate.IsZero() {
		e.StartDate = in.StartDate.UTC()
	}
	if !in.EndDate.IsZero() {
		e.EndDate = in.EndDate.UTC()
	}
	if in.IsTeamEvent != nil {
		e.IsTeamEvent = *in.IsTeamEvent
	}
	if in.TeamSize != nil {
		e.TeamSize = *in.TeamSize
	}
	if in.Capacity != nil {
		e.Capacity = *in.Capacity
	}
	if in.Tickets != nil {
		e.Tickets = in.Tickets
	}
	if in.Sponsors != nil {
		e.Sponsors = in.Sponsors
	}
	if in.Rewards != nil {
		e.Rewards = in.Rewards
	}
}

func validateEvent(e *models.Event) error {
	switch {
	case e.Name == "":
		return apperr.Validation("event name is required")
	case e.TeamSize < 0:
		return apperr.Validation("team_size must not be negative")
	case e.Capacity < 0:
		return apperr.Validation("capacity must not be negative")
	case !e.EndDate.IsZero() && !e.StartDate.IsZero() && e.EndDate.Before(e.StartDate):
		return apperr.Validation("event end_date is before start_date")
	}
	if e.Status == models.EventPublished {
		if missing := e.MissingPublishFields(); len(missing) > 0 {
			return apperr.Validation("published event is missing: %s", strings.Join(missing, ", "))
		}
	}
	return nil
}

// CreateEvent adds a draft event to festID.
func (s *Service) CreateEvent(ctx context.Context, p auth.Principal, festID string, in EventInput) (*models.Event, error) {
	if _, err := s.GetFestival(ctx, festID); err != nil {
		return nil, err
	}
	if err := s.require(ctx, p, festID, auth.CanCreateEvents); err != nil {
		return nil, err
	}

	now := s.Now()
	event := &models.Event{
		ID:               uuid.NewString(),
		FestID:           festID,
		CreatedBy:        p.UserID,
		Status:           models.EventDraft,
		DraftVersion:     1,
		LastSavedAsDraft: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	in.apply(event)
	if err := validateEvent(event); err != nil {
		return nil, err
	}
	if err := s.Store.CreateEvent(ctx, event); err != nil {
		return nil, db.AppError(err, "", "event already exists")
	}
	s.logf("event %s (%s) drafted in %s by %s", event.ID, event.Name, festID, p.UserID)
	return event, nil
}

// loadForChange fetches eventID and checks perm in its festival.
func (s *Service) loadForChange(ctx context.Context, p auth.Principal, eventID string, perm auth.Permission) (*models.Event, error) {
	event, err := s.Store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, db.AppError(err, "event not found", "")
	}
	if err := s.require(ctx, p, event.FestID, perm); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Service) save(ctx context.Context, event *models.Event) (*models.Event, error) {
	if err := s.Store.UpdateEvent(ctx, event); err != nil {
		return nil, db.AppError(err, "event not found", "")
	}
	return event, nil
}

// UpdateEvent edits an event. Drafts get a new draft version. The event row
// stays locked while live registrations are checked against the edit.
func (s *Service) UpdateEvent(ctx context.Context, p auth.Principal, eventID string, in EventInput) (*models.Event, error) {
	if _, err := s.loadForChange(ctx, p, eventID, auth.CanModifyEvents); err != nil {
		return nil, err
	}

	var event *models.Event
	err := s.Store.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		event, err = s.Store.LockEvent(ctx, eventID)
		if err != nil {
			return db.AppError(err, "event not found", "")
		}
		before := *event
		if err := event.SaveDraft(s.Now()); err != nil {
			return err
		}
		in.apply(event)
		if err := validateEvent(event); err != nil {
			return err
		}
		if err := s.checkRegistrations(ctx, &before, event); err != nil {
			return err
		}
		_, err = s.save(ctx, event)
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// checkRegistrations rejects edits that active registrations could no longer
// satisfy: switching between solo and team, or a cap below the current count.
func (s *Service) checkRegistrations(ctx context.Context, before, after *models.Event) error {
	teamChanged := before.IsTeamEvent != after.IsTeamEvent
	capped := after.Capacity > 0 && after.Capacity != before.Capacity
	if !teamChanged && !capped {
		return nil
	}
	n, err := s.Store.CountActiveEventRegistrations(ctx, after.ID)
	if err != nil {
		return db.AppError(err, "", "")
	}
	switch {
	case n == 0:
		return nil
	case teamChanged:
		return apperr.Validation("is_team_event cannot change while the event has %d active registrations", n)
	case after.Capacity < n:
		return apperr.Validation("capacity %d is below the %d active registrations", after.Capacity, n)
	}
	return nil
}

func (s *Service) PublishEvent(ctx context.Context, p auth.Principal, eventID string) (*models.Event, error) {
	event, err := s.loadForChange(ctx, p, eventID, auth.CanManageEvents)
	if err != nil {
		return nil, err
	}
	if err := event.Publish(p.UserID, s.Now()); err != nil {
		return nil, err
	}
	s.logf("event %s published by %s", event.ID, p.UserID)
	return s.save(ctx, event)
}

func (s *Service) UnpublishEvent(ctx context.Context, p auth.Principal, eventID string) (*models.Event, error) {
	event, err := s.loadForChange(ctx, p, eventID, auth.CanManageEvents)
	if err != nil {
		return nil, err
	}
	if err := event.Unpublish(s.Now()); err != nil {
		return nil, err
	}
	s.logf("event %s unpublished by %s", event.ID, p.UserID)
	return s.save(ctx, event)
}

// DeleteEvent removes an event with its teams, cancelled registrations and
// certificate. Events with active registrations must be emptied first.
func (s *Service) DeleteEvent(ctx context.Context, p auth.Principal, eventID string) error {
	if _, err := s.loadForChange(ctx, p, eventID, auth.CanManageEvents); err != nil {
		return err
	}
	err := s.Store.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.Store.LockEvent(ctx, eventID); err != nil {
			return db.AppError(err, "event not found", "")
		}
		n, err := s.Store.CountActiveEventRegistrations(ctx, eventID)
		if err != nil {
			return db.AppError(err, "", "")
		}
		if n > 0 {
			return apperr.Conflict("event has %d active registrations, cancel them first", n)
		}
		return db.AppError(s.Store.DeleteEvent(ctx, eventID), "event not found", "")
	})
	if err != nil {
		return err
	}
	s.logf("event %s deleted by %s", eventID, p.UserID)
	return nil
}

func (s *Service) ArchiveEvent(ctx context.Context, p auth.Principal, eventID string) (*models.Event, error) {
	event, err := s.loadForChange(ctx, p, eventID, auth.CanManageEvents)
	if err != nil {
		return nil, err
	}
	if err := event.Archive(s.Now()); err != nil {
		return nil, err
	}
	return s.save(ctx, event)
}

// GetEvent returns a published event to anyone and an unpublished one only
// to callers who may view event details; others see NotFound.
func (s *Service) GetEvent(ctx context.Context, p auth.Principal, eventID string) (*models.Event, error) {
	event, err := s.Store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, db.AppError(err, "event not found", "")
	}
	if event.Status != models.EventPublished && !s.canSeeDrafts(ctx, p, event.FestID) {
		return nil, apperr.NotFound("event not found")
	}
	return event, nil
}

func (s *Service) ListEvents(ctx context.Context, p auth.Principal, festID string) ([]models.Event, error) {
	if _, err := s.GetFestival(ctx, festID); err != nil {
		return nil, err
	}
	events, err := s.Store.ListEvents(ctx, festID, s.canSeeDrafts(ctx, p, festID))
	return events, db.AppError(err, "", "")
}

func (s *Service) AddJudge(ctx context.Context, p auth.Principal, eventID string, judge models.Judge) (*models.Event, error) {
	judge.Name = strings.TrimSpace(judge.Name)
	if judge.Name == "" {
		return nil, apperr.Validation("judge name is required")
	}
	event, err := s.loadForChange(ctx, p, eventID, auth.CanModifyEvents)
	if err != nil {
		return nil, err
	}
	if err := event.SaveDraft(s.Now()); err != nil {
		return nil, err
	}
	event.Judges = append(event.Judges, judge)
	return s.save(ctx, event)
}

// ListJudges returns the judges of an event visible to p.
func (s *Service) ListJudges(ctx context.Context, p auth.Principal, eventID string) ([]models.Judge, error) {
	event, err := s.GetEvent(ctx, p, eventID)
	if err != nil {
		return nil, err
	}
	if event.Judges == nil {
		return []models.Judge{}, nil
	}
	return event.Judges, nil
}

// RemoveJudge drops the judge at index.
func (s *Service) RemoveJudge(ctx context.Context, p auth.Principal, eventID string, index int) (*models.Event, error) {
	event, err := s.loadForChange(ctx, p, eventID, auth.CanModifyEvents)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(event.Judges) {
		return nil, apperr.NotFound("no judge at index %d", index)
	}
	if err := event.SaveDraft(s.Now()); err != nil {
		return nil, err
	}
	event.Judges = append(event.Judges[:index:index], event.Judges[index+1:]...)
	return s.save(ctx, event)
}

func (s *Service) ListEventRoles(ctx context.Context, p auth.Principal, eventID string) ([]models.EventRole, error) {
	event, err := s.GetEvent(ctx, p, eventID)
	if err != nil {
		return nil, err
	}
	if event.Roles == nil {
		return []models.EventRole{}, nil
	}
	return event.Roles, nil
}

func (s *Service) AddEventRole(ctx context.Context, p auth.Principal, eventID string, role models.EventRole) ([]models.EventRole, error) {
	role.Type = strings.ToLower(strings.TrimSpace(role.Type))
	role.Name = strings.TrimSpace(role.Name)
	role.Email = strings.TrimSpace(role.Email)
	switch {
	case role.Type == "":
		return nil, apperr.Validation("role type is required")
	case role.Name == "":
		return nil, apperr.Validation("role name is required")
	case role.Email != "" && !strings.Contains(role.Email, "@"):
		return nil, apperr.Validation("role email %q is not valid", role.Email)
	}
	event, err := s.loadForChange(ctx, p, eventID, auth.CanAssignEventRoles)
	if err != nil {
		return nil, err
	}
	if err := event.SaveDraft(s.Now()); err != nil {
		return nil, err
	}
	event.Roles = append(event.Roles, role)
	if _, err := s.save(ctx, event); err != nil {
		return nil, err
	}
	return event.Roles, nil
}

// RemoveEventRole drops the role at index.
func (s *Service) RemoveEventRole(ctx context.Context, p auth.Principal, eventID string, index int) ([]models.EventRole, error) {
	event, err := s.loadForChange(ctx, p, eventID, auth.CanAssignEventRoles)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(event.Roles) {
		return nil, apperr.NotFound("no role at index %d", index)
	}
	if err := event.SaveDraft(s.Now()); err != nil {
		return nil, err
	}
	event.Roles = append(event.Roles[:index:index], event.Roles[index+1:]...)
	if _, err := s.save(ctx, event); err != nil {
		return nil, err
	}
	return event.Roles, nil
}

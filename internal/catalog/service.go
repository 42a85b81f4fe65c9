// Package catalog manages festivals and their events, including the event
// draft/publish lifecycle.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ms-festbuzz/internal/apperr"
	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/logger"
	"ms-festbuzz/internal/models"

	"github.com/google/uuid"
)

type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreateFestival(ctx context.Context, fest *models.Festival) error
	GetFestival(ctx context.Context, id string) (*models.Festival, error)
	UpdateFestival(ctx context.Context, fest *models.Festival) error
	ListFestivals(ctx context.Context, f models.FestivalFilter) ([]models.Festival, int, error)
	DeleteFestival(ctx context.Context, id string) error
	CountActiveFestivalRegistrations(ctx context.Context, festID string) (int, error)

	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	LockEvent(ctx context.Context, id string) (*models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event) error
	ListEvents(ctx context.Context, festID string, includeDrafts bool) ([]models.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	CountActiveEventRegistrations(ctx context.Context, eventID string) (int, error)
}

type AccessResolver interface {
	Resolve(ctx context.Context, p auth.Principal, festID string) (auth.Access, error)
}

type Service struct {
	Store  Store
	Roles  AccessResolver
	Logger *logger.Logger
	Now    func() time.Time
}

func NewService(store Store, roles AccessResolver, log *logger.Logger) *Service {
	return &Service{
		Store:  store,
		Roles:  roles,
		Logger: log,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// require resolves p inside festID and checks perm.
func (s *Service) require(ctx context.Context, p auth.Principal, festID string, perm auth.Permission) error {
	if p.UserID == "" {
		return apperr.Unauthenticated("authentication required")
	}
	access, err := s.Roles.Resolve(ctx, p, festID)
	if err != nil {
		return err
	}
	if !access.Can(perm) {
		return apperr.Forbidden("missing permission %s", perm)
	}
	return nil
}

// canSeeDrafts reports whether p may read unpublished events of festID.
func (s *Service) canSeeDrafts(ctx context.Context, p auth.Principal, festID string) bool {
	if p.UserID == "" {
		return false
	}
	access, err := s.Roles.Resolve(ctx, p, festID)
	if err != nil {
		s.Logger.Warn("CATALOG", fmt.Sprintf("resolve %s in %s: %v", p.UserID, festID, err))
		return false
	}
	return access.Can(auth.CanViewEventDetails)
}

func (s *Service) logf(format string, args ...any) {
	s.Logger.Info("CATALOG", fmt.Sprintf(format, args...))
}

// FestivalInput carries festival attributes. Zero values leave a field
// unchanged on update.
type FestivalInput struct {
	Name               string              `json:"name"`
	Type               string              `json:"type"`
	Visibility         string              `json:"visibility"`
	Mode               string              `json:"mode"`
	Description        string              `json:"description"`
	College            string              `json:"college"`
	Venue              string              `json:"venue"`
	City               string              `json:"city"`
	State              string              `json:"state"`
	StartDate          time.Time           `json:"start_date"`
	EndDate            time.Time           `json:"end_date"`
	RegistrationClosed *bool               `json:"registration_closed"`
	Sponsors           []models.Sponsor    `json:"sponsors"`
	Tickets            []models.TicketTier `json:"tickets"`
}

func (in FestivalInput) apply(f *models.Festival) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&f.Name, in.Name)
	set(&f.Type, in.Type)
	set(&f.Visibility, in.Visibility)
	set(&f.Mode, in.Mode)
	set(&f.Description, in.Description)
	set(&f.College, in.College)
	set(&f.Venue, in.Venue)
	set(&f.City, in.City)
	set(&f.State, in.State)
	if !in.StartDate.IsZero() {
		f.StartDate = in.StartDate.UTC()
	}
	if !in.EndDate.IsZero() {
		f.EndDate = in.EndDate.UTC()
	}
	if in.RegistrationClosed != nil {
		f.RegistrationClosed = *in.RegistrationClosed
	}
	if in.Sponsors != nil {
		f.Sponsors = in.Sponsors
	}
	if in.Tickets != nil {
		f.Tickets = in.Tickets
	}
}

func validateFestival(f *models.Festival) error {
	if f.Name == "" {
		return apperr.Validation("festival name is required")
	}
	if f.StartDate.IsZero() {
		return apperr.Validation("festival start_date is required")
	}
	if !f.EndDate.IsZero() && f.EndDate.Before(f.StartDate) {
		return apperr.Validation("festival end_date is before start_date")
	}
	return nil
}

func (s *Service) CreateFestival(ctx context.Context, p auth.Principal, in FestivalInput) (*models.Festival, error) {
	if err := s.require(ctx, p, "", auth.CanCreateFests); err != nil {
		return nil, err
	}
	now := s.Now()
	fest := &models.Festival{ID: uuid.NewString(), CreatedBy: p.UserID, CreatedAt: now, UpdatedAt: now}
	in.apply(fest)
	if err := validateFestival(fest); err != nil {
		return nil, err
	}
	if err := s.Store.CreateFestival(ctx, fest); err != nil {
		return nil, db.AppError(err, "", "festival already exists")
	}
	s.logf("festival %s (%s) created by %s", fest.ID, fest.Name, p.UserID)
	return fest, nil
}

func (s *Service) UpdateFestival(ctx context.Context, p auth.Principal, festID string, in FestivalInput) (*models.Festival, error) {
	fest, err := s.GetFestival(ctx, festID)
	if err != nil {
		return nil, err
	}
	if err := s.require(ctx, p, festID, auth.CanManageFests); err != nil {
		return nil, err
	}
	in.apply(fest)
	if err := validateFestival(fest); err != nil {
		return nil, err
	}
	fest.UpdatedAt = s.Now()
	if err := s.Store.UpdateFestival(ctx, fest); err != nil {
		return nil, db.AppError(err, "festival not found", "")
	}
	return fest, nil
}

// DeleteFestival removes a festival with its events, teams and roles. It
// refuses while anyone still holds an active registration in it.
func (s *Service) DeleteFestival(ctx context.Context, p auth.Principal, festID string) error {
	if _, err := s.GetFestival(ctx, festID); err != nil {
		return err
	}
	if err := s.require(ctx, p, festID, auth.CanManageFests); err != nil {
		return err
	}
	err := s.Store.RunInTx(ctx, func(ctx context.Context) error {
		n, err := s.Store.CountActiveFestivalRegistrations(ctx, festID)
		if err != nil {
			return db.AppError(err, "", "")
		}
		if n > 0 {
			return apperr.Conflict("festival has %d active registrations, cancel them first", n)
		}
		return db.AppError(s.Store.DeleteFestival(ctx, festID), "festival not found", "")
	})
	if err != nil {
		return err
	}
	s.logf("festival %s deleted by %s", festID, p.UserID)
	return nil
}

func (s *Service) GetFestival(ctx context.Context, festID string) (*models.Festival, error) {
	fest, err := s.Store.GetFestival(ctx, festID)
	if err != nil {
		return nil, db.AppError(err, "festival not found", "")
	}
	return fest, nil
}

func (s *Service) ListFestivals(ctx context.Context, f models.FestivalFilter) ([]models.Festival, models.Pagination, error) {
	fests, total, err := s.Store.ListFestivals(ctx, f)
	if err != nil {
		return nil, models.Pagination{}, db.AppError(err, "", "")
	}
	return fests, models.NewPagination(f.Page, total), nil
}

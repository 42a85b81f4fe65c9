// Package teams manages team registrations for team events: creation,
// joining by code, leaving, leadership and disbanding.
package teams

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-festbuzz/internal/apperr"
	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/lock"
	"ms-festbuzz/internal/logger"
	"ms-festbuzz/internal/models"
	"ms-festbuzz/internal/qr"
	"ms-festbuzz/internal/utils"
)

const (
	DefaultTeamSize = 4
	TeamCodeLength  = 6

	codeAttempts = 5
)

type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetUsers(ctx context.Context, ids []string) ([]models.User, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	FindFestRegistration(ctx context.Context, userID, festID string) (*models.FestRegistration, error)

	FindActiveEventRegistration(ctx context.Context, userID, eventID string) (*models.EventRegistration, error)
	CreateEventRegistration(ctx context.Context, reg *models.EventRegistration) error
	CancelTeamRegistrations(ctx context.Context, teamID, memberID string) (int, error)
	SetTeamRole(ctx context.Context, teamID, memberID string, role models.TeamRole) error

	CreateTeam(ctx context.Context, team *models.Team) error
	GetTeam(ctx context.Context, id string) (*models.Team, error)
	LockTeam(ctx context.Context, id string) (*models.Team, error)
	GetTeamByCode(ctx context.Context, code string) (*models.Team, error)
	TeamCodeExists(ctx context.Context, code string) (bool, error)
	UpdateTeam(ctx context.Context, team *models.Team) error
	ListTeamsByEvent(ctx context.Context, eventID string, statuses ...models.TeamStatus) ([]models.Team, error)
	ListTeamsForMember(ctx context.Context, userID string) ([]models.Team, error)
}

type QRGenerator interface {
	Generate(p qr.Payload) ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, events ...models.DomainEvent)
}

type Options struct {
	// DefaultTeamSize applies to team events without a team size.
	DefaultTeamSize int
	CodeLength      int
}

func DefaultOptions() Options {
	return Options{DefaultTeamSize: DefaultTeamSize, CodeLength: TeamCodeLength}
}

type Service struct {
	Store     Store
	QR        QRGenerator
	Locker    *lock.Locker
	Publisher Publisher
	Logger    *logger.Logger
	Options   Options
	Now       func() time.Time
	// NewCode draws a candidate team code; overridden in tests.
	NewCode func() (string, error)
}

func NewService(store Store, gen QRGenerator, locker *lock.Locker, pub Publisher, log *logger.Logger, opts Options) *Service {
	if opts.DefaultTeamSize < 1 {
		opts.DefaultTeamSize = DefaultTeamSize
	}
	if opts.CodeLength < 1 {
		opts.CodeLength = TeamCodeLength
	}
	s := &Service{
		Store:     store,
		QR:        gen,
		Locker:    locker,
		Publisher: pub,
		Logger:    log,
		Options:   opts,
		Now:       func() time.Time { return time.Now().UTC() },
	}
	s.NewCode = func() (string, error) {
		return utils.GenerateCode(utils.TeamCodeAlphabet, s.Options.CodeLength)
	}
	return s
}

// uniqueCode draws codes until one is unused. The unique index on teams.code
// still rejects a code taken between the check and the insert.
func (s *Service) uniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := s.NewCode()
		if err != nil {
			return "", apperr.Internal(err, "failed to generate team code")
		}
		taken, err := s.Store.TeamCodeExists(ctx, code)
		if err != nil {
			return "", db.AppError(err, "", "")
		}
		if !taken {
			return code, nil
		}
	}
	return "", apperr.Internal(fmt.Errorf("no free code after %d attempts", codeAttempts), "failed to generate team code")
}

// seat builds the team registration for userID with its QR code.
func (s *Service) seat(event *models.Event, festRegID, teamID, userID string, role models.TeamRole) (*models.EventRegistration, error) {
	reg := models.NewEventRegistration(event, festRegID, models.TeamSeat{TeamID: teamID, MemberID: userID, Role: role}, s.Now())
	img, err := s.QR.Generate(qr.Payload{
		Ticket:         reg.Ticket,
		RegistrationID: reg.ID,
		Kind:           "event",
		UserID:         userID,
		TeamID:         teamID,
		FestID:         reg.FestID,
		EventID:        reg.EventID,
		IssuedAt:       reg.CreatedAt,
	})
	if err != nil {
		return nil, apperr.Internal(err, "failed to generate QR code")
	}
	reg.QRCode = img
	return reg, nil
}

// eligible checks the caller may take a seat in event: registered for its
// festival and holding no active seat yet.
func (s *Service) eligible(ctx context.Context, userID string, event *models.Event) (*models.FestRegistration, error) {
	festReg, err := s.Store.FindFestRegistration(ctx, userID, event.FestID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.Forbidden("register for the festival before joining its events")
	}
	if err != nil {
		return nil, db.AppError(err, "", "")
	}

	existing, err := s.Store.FindActiveEventRegistration(ctx, userID, event.ID)
	switch {
	case err == nil && existing.Type == models.RegistrationTeam:
		return nil, apperr.Conflict("you are already in a team for this event")
	case err == nil:
		return nil, apperr.Conflict("already registered for this event")
	case !errors.Is(err, db.ErrNotFound):
		return nil, db.AppError(err, "", "")
	}
	return festReg, nil
}

func (s *Service) acquire(ctx context.Context, userID, eventID string) (func(), error) {
	// shares the registration engine's scope so solo and team sign-ups for
	// one event exclude each other
	unlock, err := s.Locker.Acquire(ctx, userID, "event:"+eventID)
	if errors.Is(err, lock.ErrHeld) {
		return nil, apperr.Conflict("a registration request is already in progress")
	}
	return unlock, err
}

func (s *Service) publish(ctx context.Context, events ...models.DomainEvent) {
	if s.Publisher != nil {
		s.Publisher.Publish(ctx, events...)
	}
}

func (s *Service) event(team *models.Team, kind models.DomainEventType, userID string) models.DomainEvent {
	return models.DomainEvent{
		Type:       kind,
		UserID:     userID,
		FestID:     team.FestID,
		EventID:    team.EventID,
		TeamID:     team.ID,
		OccurredAt: s.Now(),
	}
}

func requirePrincipal(p auth.Principal) error {
	if p.UserID == "" {
		return apperr.Unauthenticated("authentication required")
	}
	return nil
}

// lockTeam loads teamID under its row lock inside a transaction.
func (s *Service) lockTeam(ctx context.Context, teamID string) (*models.Team, error) {
	team, err := s.Store.LockTeam(ctx, teamID)
	if err != nil {
		return nil, db.AppError(err, "team not found", "")
	}
	return team, nil
}

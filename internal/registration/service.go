// Package registration implements fest and event registration, cancellation
// and the fest-level unregister cascade.
package registration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"ms-festbuzz/internal/apperr"
	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/lock"
	"ms-festbuzz/internal/logger"
	"ms-festbuzz/internal/models"
	"ms-festbuzz/internal/qr"
)

type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUsers(ctx context.Context, ids []string) ([]models.User, error)
	UpdatePersonalInfo(ctx context.Context, user *models.User) error

	GetFestival(ctx context.Context, id string) (*models.Festival, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	LockEvent(ctx context.Context, id string) (*models.Event, error)
	ListEventIDs(ctx context.Context, festID string) ([]string, error)

	CreateFestRegistration(ctx context.Context, reg *models.FestRegistration) error
	GetFestRegistration(ctx context.Context, id string) (*models.FestRegistration, error)
	FindFestRegistration(ctx context.Context, userID, festID string) (*models.FestRegistration, error)
	DeleteFestRegistration(ctx context.Context, id string) error
	ListFestRegistrationsByUser(ctx context.Context, userID string) ([]models.FestRegistration, error)
	CountFestRegistrations(ctx context.Context, festID string) (models.RegistrationCounts, error)
	ListFestRegistrations(ctx context.Context, festID string, f models.CandidateFilter) ([]models.FestRegistration, int, error)

	CreateEventRegistration(ctx context.Context, reg *models.EventRegistration) error
	GetEventRegistration(ctx context.Context, id string) (*models.EventRegistration, error)
	FindActiveEventRegistration(ctx context.Context, userID, eventID string) (*models.EventRegistration, error)
	CountActiveEventRegistrations(ctx context.Context, eventID string) (int, error)
	CountActiveByFestRegistration(ctx context.Context, festRegistrationID string) (int, error)
	DeleteEventRegistration(ctx context.Context, id string) error
	DeleteEventRegistrationsByHolder(ctx context.Context, userID string, eventIDs []string) (int, error)
	SetTeamRole(ctx context.Context, teamID, memberID string, role models.TeamRole) error
	ListEventRegistrationsByHolder(ctx context.Context, userID string) ([]models.EventRegistration, error)
	CountEventRegistrations(ctx context.Context, eventID string) (models.RegistrationCounts, error)
	ListEventRegistrations(ctx context.Context, eventID string, f models.CandidateFilter) ([]models.EventRegistration, int, error)

	LockTeam(ctx context.Context, id string) (*models.Team, error)
	LockTeamsForMember(ctx context.Context, userID string, eventIDs []string) ([]models.Team, error)
	UpdateTeam(ctx context.Context, team *models.Team) error
	DeleteTeam(ctx context.Context, id string) error
}

// AccessResolver computes the caller's authority inside a festival.
type AccessResolver interface {
	Resolve(ctx context.Context, p auth.Principal, festID string) (auth.Access, error)
}

type QRGenerator interface {
	Generate(p qr.Payload) ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, events ...models.DomainEvent)
}

type Options struct {
	// RequireFestRegistration rejects event registration without a fest
	// registration. When false one is created in the same transaction.
	RequireFestRegistration bool
	// CancelCutoff is how close to the start a registration may still be
	// cancelled, rounded up to whole days.
	CancelCutoff time.Duration
}

func DefaultOptions() Options {
	return Options{RequireFestRegistration: true, CancelCutoff: 24 * time.Hour}
}

type Service struct {
	Store     Store
	Roles     AccessResolver
	QR        QRGenerator
	Tickets   TicketDecoder
	Locker    *lock.Locker
	Publisher Publisher
	Logger    *logger.Logger
	Options   Options
	Now       func() time.Time
}

// NewService wires the engine. locker and publisher may be nil. A gen that
// can also decode its tickets enables VerifyTicket.
func NewService(store Store, roles AccessResolver, gen QRGenerator, locker *lock.Locker, pub Publisher, log *logger.Logger, opts Options) *Service {
	s := &Service{
		Store:     store,
		Roles:     roles,
		QR:        gen,
		Locker:    locker,
		Publisher: pub,
		Logger:    log,
		Options:   opts,
		Now:       func() time.Time { return time.Now().UTC() },
	}
	if d, ok := gen.(TicketDecoder); ok {
		s.Tickets = d
	}
	return s
}

// acquire takes the per-user request lock for scope.
func (s *Service) acquire(ctx context.Context, userID, scope string) (func(), error) {
	unlock, err := s.Locker.Acquire(ctx, userID, scope)
	if errors.Is(err, lock.ErrHeld) {
		return nil, apperr.Conflict("a registration request is already in progress")
	}
	return unlock, err
}

func (s *Service) publish(ctx context.Context, events ...models.DomainEvent) {
	if s.Publisher == nil {
		return
	}
	s.Publisher.Publish(ctx, events...)
}

func (s *Service) qrCode(p qr.Payload) ([]byte, error) {
	img, err := s.QR.Generate(p)
	if err != nil {
		return nil, apperr.Internal(err, "failed to generate QR code")
	}
	return img, nil
}

// cutoffDays is CancelCutoff in whole days, rounded up.
func (s *Service) cutoffDays() int {
	return int(math.Ceil(s.Options.CancelCutoff.Hours() / 24))
}

func requirePrincipal(p auth.Principal) error {
	if p.UserID == "" {
		return apperr.Unauthenticated("authentication required")
	}
	return nil
}

func festScope(festID string) string   { return "fest:" + festID }
func eventScope(eventID string) string { return "event:" + eventID }

func (s *Service) logf(action, id, format string, args ...any) {
	s.Logger.LogRegistration(action, id, fmt.Sprintf(format, args...))
}

func isNotFound(err error) bool {
	return errors.Is(err, db.ErrNotFound)
}

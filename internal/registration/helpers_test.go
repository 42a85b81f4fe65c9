package registration_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/db/dbtest"
	"ms-festbuzz/internal/models"
	"ms-festbuzz/internal/qr"
	"ms-festbuzz/internal/registration"
	"ms-festbuzz/internal/roles"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...models.DomainEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

func (p *recordingPublisher) types() []models.DomainEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.DomainEventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type env struct {
	store *db.DB
	svc   *registration.Service
	pub   *recordingPublisher
	gen   *qr.Generator
	now   time.Time
	fest  *models.Festival
}

func newEnv(t *testing.T) *env {
	t.Helper()
	d := dbtest.New(t)
	gen, err := qr.NewGenerator("test-secret-key", 64)
	require.NoError(t, err)

	pub := &recordingPublisher{}
	now := time.Now().UTC()
	svc := registration.NewService(d, roles.NewService(d, nil, nil), gen, nil, pub, nil, registration.DefaultOptions())
	svc.Now = func() time.Time { return now }

	return &env{
		store: d,
		svc:   svc,
		pub:   pub,
		gen:   gen,
		now:   now,
		fest:  dbtest.Festival(t, d, now.Add(10*24*time.Hour)),
	}
}

func (e *env) participant(t *testing.T) auth.Principal {
	u := dbtest.User(t, e.store, models.RoleParticipant)
	return auth.Principal{UserID: u.ID, Role: u.Role}
}

func festInput() registration.FestInput {
	return registration.FestInput{PersonalInfo: dbtest.PersonalInfo()}
}

func eventInput() registration.EventInput {
	return registration.EventInput{PersonalInfo: dbtest.PersonalInfo(), PaymentMethod: "upi"}
}

func (e *env) registerFest(t *testing.T, p auth.Principal) *models.FestRegistration {
	t.Helper()
	reg, err := e.svc.RegisterForFest(context.Background(), p, e.fest.ID, festInput())
	require.NoError(t, err)
	return reg
}

// seatTeam inserts a team and its members' seats directly, leader first.
func (e *env) seatTeam(t *testing.T, event *models.Event, members ...auth.Principal) *models.Team {
	t.Helper()
	ctx := context.Background()
	team := &models.Team{
		ID:        uuid.NewString(),
		Name:      "team " + uuid.NewString()[:4],
		Code:      uuid.NewString()[:6],
		EventID:   event.ID,
		FestID:    event.FestID,
		LeaderID:  members[0].UserID,
		MaxSize:   event.TeamSize,
		Status:    models.TeamActive,
		CreatedAt: e.now,
		UpdatedAt: e.now,
	}
	for _, m := range members {
		team.Members = append(team.Members, m.UserID)
	}
	if len(team.Members) >= team.MaxSize {
		team.Status = models.TeamFull
	}
	require.NoError(t, e.store.CreateTeam(ctx, team))

	for i, m := range members {
		festReg, err := e.store.FindFestRegistration(ctx, m.UserID, event.FestID)
		require.NoError(t, err)
		role := models.TeamRoleMember
		if i == 0 {
			role = models.TeamRoleLeader
		}
		seat := models.NewEventRegistration(event, festReg.ID, models.TeamSeat{TeamID: team.ID, MemberID: m.UserID, Role: role}, e.now)
		require.NoError(t, e.store.CreateEventRegistration(ctx, seat))
	}
	return team
}

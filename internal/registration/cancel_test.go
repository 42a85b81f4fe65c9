package registration_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ms-festbuzz/internal/apperr"
	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/db/dbtest"
	"ms-festbuzz/internal/models"
	"ms-festbuzz/internal/qr"
	"ms-festbuzz/internal/registration"
	"ms-festbuzz/internal/roles"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelRegistration_SoloEventByOwner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.participant(t)
	e.registerFest(t, p)
	event := dbtest.Event(t, e.store, e.fest)
	reg, err := e.svc.RegisterForEvent(ctx, p, event.ID, eventInput())
	require.NoError(t, err)

	require.NoError(t, e.svc.CancelRegistration(ctx, p, reg.ID))

	_, err = e.store.GetEventRegistration(ctx, reg.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.Contains(t, e.pub.types(), models.EventRegistrationDeleted)

	// The seat is free again
	_, err = e.svc.RegisterForEvent(ctx, p, event.ID, eventInput())
	assert.NoError(t, err)
}

func TestCancelRegistration_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.participant(t)
	festReg := e.registerFest(t, p)

	err := e.svc.CancelRegistration(ctx, p, "reg-123")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = e.svc.CancelRegistration(ctx, p, "freg_"+uuid.NewString())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	stranger := e.participant(t)
	err = e.svc.CancelRegistration(ctx, stranger, festReg.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = e.store.GetFestRegistration(ctx, festReg.ID)
	assert.NoError(t, err)
}

func TestCancelRegistration_AdminMayCancelForOthers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.participant(t)
	festReg := e.registerFest(t, p)

	admin := dbtest.User(t, e.store, models.RoleAdmin)
	require.NoError(t, e.svc.CancelRegistration(ctx, auth.Principal{UserID: admin.ID, Role: admin.Role}, festReg.ID))

	_, err := e.store.GetFestRegistration(ctx, festReg.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestCancelRegistration_WithinCutoff(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.participant(t)
	soon := dbtest.Festival(t, e.store, e.now.Add(12*time.Hour))

	reg, err := e.svc.RegisterForFest(ctx, p, soon.ID, festInput())
	require.NoError(t, err)

	err = e.svc.CancelRegistration(ctx, p, reg.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
}

func TestCancelRegistration_FestWithActiveEventRegistrations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.participant(t)
	festReg := e.registerFest(t, p)
	event := dbtest.Event(t, e.store, e.fest)
	_, err := e.svc.RegisterForEvent(ctx, p, event.ID, eventInput())
	require.NoError(t, err)

	err = e.svc.CancelRegistration(ctx, p, festReg.ID)
	require.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Contains(t, apperr.PublicMessage(err), "1 active event registration")
	assert.Contains(t, apperr.PublicMessage(err), "/registrations/fest/"+e.fest.ID+"/unregister")

	_, err = e.store.GetFestRegistration(ctx, festReg.ID)
	assert.NoError(t, err)
}

func TestCancelRegistration_TeamSeatIsRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	leader, member := e.participant(t), e.participant(t)
	e.registerFest(t, leader)
	e.registerFest(t, member)
	event := dbtest.Event(t, e.store, e.fest, dbtest.TeamEvent(4))
	e.seatTeam(t, event, leader, member)

	seat, err := e.store.FindActiveEventRegistration(ctx, member.UserID, event.ID)
	require.NoError(t, err)

	err = e.svc.CancelRegistration(ctx, member, seat.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUnregisterForFest_Cascade(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user, teammate := e.participant(t), e.participant(t)
	e.registerFest(t, user)
	e.registerFest(t, teammate)

	solo := dbtest.Event(t, e.store, e.fest)
	_, err := e.svc.RegisterForEvent(ctx, user, solo.ID, eventInput())
	require.NoError(t, err)

	shared := dbtest.Event(t, e.store, e.fest, dbtest.TeamEvent(3))
	sharedTeam := e.seatTeam(t, shared, user, teammate)
	alone := dbtest.Event(t, e.store, e.fest, dbtest.TeamEvent(3))
	aloneTeam := e.seatTeam(t, alone, user)

	// a team of the same event without the user is left alone
	outsider := e.participant(t)
	e.registerFest(t, outsider)
	otherTeam := e.seatTeam(t, shared, outsider)

	summary, err := e.svc.UnregisterForFest(ctx, user, e.fest.ID)
	require.NoError(t, err)
	assert.Equal(t, registration.UnregisterSummary{DeletedEventRegistrations: 3, UpdatedTeams: 1, DeletedTeams: 1}, *summary)

	_, err = e.store.FindFestRegistration(ctx, user.UserID, e.fest.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
	regs, err := e.store.ListEventRegistrationsByHolder(ctx, user.UserID)
	require.NoError(t, err)
	assert.Empty(t, regs)

	team, err := e.store.GetTeam(ctx, sharedTeam.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{teammate.UserID}, team.Members)
	assert.Equal(t, teammate.UserID, team.LeaderID)

	seat, err := e.store.FindActiveEventRegistration(ctx, teammate.UserID, shared.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TeamRoleLeader, seat.TeamRole)

	_, err = e.store.GetTeam(ctx, aloneTeam.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)

	untouched, err := e.store.GetTeam(ctx, otherTeam.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{outsider.UserID}, untouched.Members)
	assert.Equal(t, outsider.UserID, untouched.LeaderID)

	assert.Contains(t, e.pub.types(), models.TeamLeaderChanged)
	assert.Contains(t, e.pub.types(), models.TeamDeleted)
}

func TestUnregisterForFest_NotRegistered(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.UnregisterForFest(context.Background(), e.participant(t), e.fest.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

// brokenTeamStore fails the last step of the cascade.
type brokenTeamStore struct {
	*db.DB
}

func (brokenTeamStore) DeleteTeam(context.Context, string) error {
	return errors.New("connection reset")
}

func TestUnregisterForFest_RollsBackOnFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.participant(t)
	festReg := e.registerFest(t, user)

	solo := dbtest.Event(t, e.store, e.fest)
	soloReg, err := e.svc.RegisterForEvent(ctx, user, solo.ID, eventInput())
	require.NoError(t, err)
	teamEvent := dbtest.Event(t, e.store, e.fest, dbtest.TeamEvent(2))
	team := e.seatTeam(t, teamEvent, user)

	gen, err := qr.NewGenerator("", 64)
	require.NoError(t, err)
	svc := registration.NewService(brokenTeamStore{e.store}, roles.NewService(e.store, nil, nil), gen, nil, nil, nil, registration.DefaultOptions())

	_, err = svc.UnregisterForFest(ctx, user, e.fest.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInternal))

	_, err = e.store.GetFestRegistration(ctx, festReg.ID)
	assert.NoError(t, err)
	_, err = e.store.GetEventRegistration(ctx, soloReg.ID)
	assert.NoError(t, err)
	_, err = e.store.FindActiveEventRegistration(ctx, user.UserID, teamEvent.ID)
	assert.NoError(t, err)
	kept, err := e.store.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{user.UserID}, kept.Members)
}

func TestUnregisterFromEvent_Solo(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.participant(t)
	e.registerFest(t, p)
	event := dbtest.Event(t, e.store, e.fest)
	reg, err := e.svc.RegisterForEvent(ctx, p, event.ID, eventInput())
	require.NoError(t, err)

	summary, err := e.svc.UnregisterFromEvent(ctx, p, event.ID)
	require.NoError(t, err)
	assert.Equal(t, registration.EventUnregisterSummary{DeletedRegistration: reg.ID}, *summary)

	_, err = e.svc.UnregisterFromEvent(ctx, p, event.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUnregisterFromEvent_LeaderHandsOver(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	leader, member := e.participant(t), e.participant(t)
	e.registerFest(t, leader)
	e.registerFest(t, member)
	event := dbtest.Event(t, e.store, e.fest, dbtest.TeamEvent(2))
	team := e.seatTeam(t, event, leader, member)
	assert.Equal(t, models.TeamFull, team.Status)

	summary, err := e.svc.UnregisterFromEvent(ctx, leader, event.ID)
	require.NoError(t, err)
	assert.True(t, summary.TeamUpdated)
	assert.False(t, summary.TeamDeleted)

	got, err := e.store.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, member.UserID, got.LeaderID)
	assert.Equal(t, models.TeamActive, got.Status)

	summary, err = e.svc.UnregisterFromEvent(ctx, member, event.ID)
	require.NoError(t, err)
	assert.True(t, summary.TeamDeleted)
	_, err = e.store.GetTeam(ctx, team.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

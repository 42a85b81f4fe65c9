package registration_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ms-festbuzz/internal/apperr"
	"ms-festbuzz/internal/db/dbtest"
	"ms-festbuzz/internal/lock"
	"ms-festbuzz/internal/models"
	"ms-festbuzz/internal/qr"
	"ms-festbuzz/internal/registration"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterForFest_ConfirmedThenConflict(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.participant(t)

	in := registration.FestInput{PersonalInfo: models.PersonalInfo{
		Phone:         "9999999999",
		DateOfBirth:   "2000-01-01",
		Gender:        models.GenderMale,
		City:          "X",
		State:         "Y",
		InstituteName: "Z",
	}}

	reg, err := e.svc.RegisterForFest(ctx, p, e.fest.ID, in)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationConfirmed, reg.Status)
	assert.True(t, strings.HasPrefix(reg.Ticket, "FEST-"))
	assert.NotEmpty(t, reg.QRCode)

	// Personal info lands on the profile
	user, err := e.store.GetUser(ctx, p.UserID)
	require.NoError(t, err)
	assert.Equal(t, "9999999999", user.Phone)
	assert.Equal(t, "Z", user.InstituteName)

	_, err = e.svc.RegisterForFest(ctx, p, e.fest.ID, in)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)

	assert.Equal(t, []models.DomainEventType{models.FestRegistrationCreated}, e.pub.types())
}

func TestRegisterForFest_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.participant(t)

	bad := festInput()
	bad.PersonalInfo.Gender = "Robot"
	_, err := e.svc.RegisterForFest(ctx, p, e.fest.ID, bad)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	missing := festInput()
	missing.PersonalInfo.City = ""
	_, err = e.svc.RegisterForFest(ctx, p, e.fest.ID, missing)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = e.svc.RegisterForFest(ctx, p, "no-such-fest", festInput())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	e.fest.RegistrationClosed = true
	require.NoError(t, e.store.UpdateFestival(ctx, e.fest))
	_, err = e.svc.RegisterForFest(ctx, p, e.fest.ID, festInput())
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestRegisterForFest_QRFailureWritesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.participant(t)
	e.svc.QR = failingQR{}

	_, err := e.svc.RegisterForFest(ctx, p, e.fest.ID, festInput())
	assert.True(t, apperr.Is(err, apperr.KindInternal))

	_, err = e.store.FindFestRegistration(ctx, p.UserID, e.fest.ID)
	assert.Error(t, err)
	user, err := e.store.GetUser(ctx, p.UserID)
	require.NoError(t, err)
	assert.Empty(t, user.Phone)
}

type failingQR struct{}

func (failingQR) Generate(qr.Payload) ([]byte, error) { return nil, errors.New("encoder down") }

func TestRegisterForEvent_DraftIsValidationError(t *testing.T) {
	e := newEnv(t)
	p := e.participant(t)
	e.registerFest(t, p)
	draft := dbtest.Event(t, e.store, e.fest, dbtest.Draft, dbtest.Capacity(100))

	_, err := e.svc.RegisterForEvent(context.Background(), p, draft.ID, eventInput())
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
}

func TestRegisterForEvent_TeamEventNeedsTeamFlow(t *testing.T) {
	e := newEnv(t)
	p := e.participant(t)
	e.registerFest(t, p)
	teamEvent := dbtest.Event(t, e.store, e.fest, dbtest.TeamEvent(3))

	_, err := e.svc.RegisterForEvent(context.Background(), p, teamEvent.ID, eventInput())
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestRegisterForEvent_RequiresFestRegistration(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.participant(t)
	event := dbtest.Event(t, e.store, e.fest)

	_, err := e.svc.RegisterForEvent(ctx, p, event.ID, eventInput())
	assert.True(t, apperr.Is(err, apperr.KindForbidden), "got %v", err)

	festReg := e.registerFest(t, p)
	reg, err := e.svc.RegisterForEvent(ctx, p, event.ID, eventInput())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reg.Ticket, "EVENT-"))
	assert.Equal(t, models.RegistrationSolo, reg.Type)
	assert.Equal(t, models.RegistrationConfirmed, reg.Status)
	assert.Equal(t, festReg.ID, reg.FestRegistrationID)
	assert.Equal(t, "upi", reg.PaymentMethod)
	assert.Equal(t, "pending", reg.PaymentStatus)

	_, err = e.svc.RegisterForEvent(ctx, p, event.ID, eventInput())
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestRegisterForEvent_AutoFestRegistrationWhenNotRequired(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.svc.Options.RequireFestRegistration = false
	p := e.participant(t)
	event := dbtest.Event(t, e.store, e.fest)

	reg, err := e.svc.RegisterForEvent(ctx, p, event.ID, eventInput())
	require.NoError(t, err)

	festReg, err := e.store.FindFestRegistration(ctx, p.UserID, e.fest.ID)
	require.NoError(t, err)
	assert.Equal(t, festReg.ID, reg.FestRegistrationID)
	assert.Equal(t, []models.DomainEventType{models.FestRegistrationCreated, models.EventRegistrationCreated}, e.pub.types())
}

func TestRegisterForEvent_CapacityBound(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	event := dbtest.Event(t, e.store, e.fest, dbtest.Capacity(2))

	for i := 0; i < 2; i++ {
		p := e.participant(t)
		e.registerFest(t, p)
		_, err := e.svc.RegisterForEvent(ctx, p, event.ID, eventInput())
		require.NoError(t, err)
	}

	late := e.participant(t)
	e.registerFest(t, late)
	_, err := e.svc.RegisterForEvent(ctx, late, event.ID, eventInput())
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Contains(t, apperr.PublicMessage(err), "full")

	n, err := e.store.CountActiveEventRegistrations(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRegisterForEvent_HeldRequestLockIsConflict(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	e.svc.Locker = lock.NewLocker(client, time.Minute, nil)
	p := e.participant(t)
	e.registerFest(t, p)
	event := dbtest.Event(t, e.store, e.fest)

	// A request still in flight holds the lock
	unlock, err := e.svc.Locker.Acquire(ctx, p.UserID, "event:"+event.ID)
	require.NoError(t, err)

	_, err = e.svc.RegisterForEvent(ctx, p, event.ID, eventInput())
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	unlock()
	_, err = e.svc.RegisterForEvent(ctx, p, event.ID, eventInput())
	assert.NoError(t, err)
}

package certificates_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"ms-festbuzz/internal/apperr"
	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/certificates"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/db/dbtest"
	"ms-festbuzz/internal/models"
	"ms-festbuzz/internal/roles"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
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

type env struct {
	store *db.DB
	svc   *certificates.Service
	pub   *recordingPublisher
	fest  *models.Festival
	event *models.Event
}

func newEnv(t *testing.T) *env {
	t.Helper()
	d := dbtest.New(t)
	pub := &recordingPublisher{}
	fest := dbtest.Festival(t, d, time.Now().UTC().Add(-48*time.Hour))
	return &env{
		store: d,
		svc:   certificates.NewService(d, roles.NewService(d, nil, nil), pub, nil),
		pub:   pub,
		fest:  fest,
		event: dbtest.Event(t, d, fest),
	}
}

func (e *env) principal(t *testing.T, role models.Role) auth.Principal {
	u := dbtest.User(t, e.store, role)
	return auth.Principal{UserID: u.ID, Role: u.Role}
}

// festivalRole grants p a role inside the env's festival.
func (e *env) festivalRole(t *testing.T, p auth.Principal, role models.FestivalRole) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, e.store.UpsertFestivalRole(context.Background(), &models.FestivalUserRole{
		ID:         uuid.NewString(),
		UserID:     p.UserID,
		FestID:     e.fest.ID,
		Role:       role,
		IsActive:   true,
		AssignedAt: now,
		UpdatedAt:  now,
	}))
}

func (e *env) registered(t *testing.T) auth.Principal {
	p := e.principal(t, models.RoleParticipant)
	dbtest.SoloRegistration(t, e.store, e.event, p.UserID)
	return p
}

func TestSaveTemplate_Upserts(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	manager := e.principal(t, models.RoleParticipant)
	e.festivalRole(t, manager, models.FestivalRoleEventManager)

	first, err := e.svc.SaveTemplate(ctx, manager, e.event.ID, certificates.TemplateInput{Template: "classic", Name1: " Dr. Rao "})
	require.NoError(t, err)
	assert.Equal(t, "Dr. Rao", first.Name1)
	assert.Equal(t, e.fest.ID, first.FestID)

	second, err := e.svc.SaveTemplate(ctx, manager, e.event.ID, certificates.TemplateInput{Template: "modern"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "modern", second.Template)
	assert.Empty(t, second.Name1)

	_, err = e.svc.SaveTemplate(ctx, e.principal(t, models.RoleParticipant), e.event.ID, certificates.TemplateInput{})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = e.svc.SaveTemplate(ctx, manager, "missing", certificates.TemplateInput{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestIssue_RequiresTemplate(t *testing.T) {
	e := newEnv(t)
	admin := e.principal(t, models.RoleAdmin)
	winner := e.registered(t)

	_, err := e.svc.Issue(context.Background(), admin, e.event.ID, certificates.IssueInput{Participants: []string{winner.UserID}})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestIssue_RecipientsAndWinners(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.principal(t, models.RoleAdmin)
	alice, bob, carol := e.registered(t), e.registered(t), e.registered(t)

	_, err := e.svc.SaveTemplate(ctx, admin, e.event.ID, certificates.TemplateInput{Template: "classic"})
	require.NoError(t, err)

	cert, err := e.svc.Issue(ctx, admin, e.event.ID, certificates.IssueInput{
		Participants: []string{alice.UserID, bob.UserID, carol.UserID},
		Winners:      []certificates.Winner{{UserID: bob.UserID, Position: "1st"}},
	})
	require.NoError(t, err)
	assert.True(t, cert.Issued())
	assert.Equal(t, admin.UserID, cert.IssuedBy)
	require.Len(t, cert.Recipients, 3)

	mine, err := e.svc.ForUser(ctx, bob, e.event.ID)
	require.NoError(t, err)
	assert.True(t, mine.IsWinner)
	assert.Equal(t, "1st", mine.Position)

	mine, err = e.svc.ForUser(ctx, alice, e.event.ID)
	require.NoError(t, err)
	assert.False(t, mine.IsWinner)

	_, err = e.svc.ForUser(ctx, e.registered(t), e.event.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	list, err := e.svc.Mine(ctx, carol)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, cert.ID, list[0].Certificate.ID)
	require.Len(t, list[0].Certificate.Recipients, 1)
	assert.Equal(t, carol.UserID, list[0].Certificate.Recipients[0].UserID)

	require.Len(t, e.pub.events, 1)
	assert.Equal(t, models.CertificatesIssued, e.pub.events[0].Type)
	assert.Equal(t, 1, e.pub.events[0].Data["winners"])

	// reissuing replaces the recipient list
	_, err = e.svc.Issue(ctx, admin, e.event.ID, certificates.IssueInput{Participants: []string{alice.UserID}})
	require.NoError(t, err)
	_, err = e.svc.ForUser(ctx, carol, e.event.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestIssue_RejectsUnregisteredRecipients(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.principal(t, models.RoleAdmin)
	_, err := e.svc.SaveTemplate(ctx, admin, e.event.ID, certificates.TemplateInput{})
	require.NoError(t, err)

	stranger := e.principal(t, models.RoleParticipant)
	_, err = e.svc.Issue(ctx, admin, e.event.ID, certificates.IssueInput{Participants: []string{e.registered(t).UserID, stranger.UserID}})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, apperr.PublicMessage(err), stranger.UserID)

	_, err = e.svc.Issue(ctx, admin, e.event.ID, certificates.IssueInput{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	// nothing was issued
	_, err = e.svc.ForUser(ctx, stranger, e.event.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestIssue_Permissions(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.principal(t, models.RoleAdmin)
	_, err := e.svc.SaveTemplate(ctx, admin, e.event.ID, certificates.TemplateInput{})
	require.NoError(t, err)
	winner := e.registered(t)

	coordinator := e.principal(t, models.RoleParticipant)
	e.festivalRole(t, coordinator, models.FestivalRoleEventCoordinator)
	_, err = e.svc.Issue(ctx, coordinator, e.event.ID, certificates.IssueInput{Winners: []certificates.Winner{{UserID: winner.UserID}}})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = e.svc.Issue(ctx, auth.Principal{}, e.event.ID, certificates.IssueInput{Participants: []string{winner.UserID}})
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	manager := e.principal(t, models.RoleParticipant)
	e.festivalRole(t, manager, models.FestivalRoleEventManager)
	cert, err := e.svc.Issue(ctx, manager, e.event.ID, certificates.IssueInput{Winners: []certificates.Winner{{UserID: winner.UserID, Position: "2nd"}}})
	require.NoError(t, err)
	require.Len(t, cert.Recipients, 1)
	assert.True(t, cert.Recipients[0].IsWinner)
}

func TestDeleteEvent_RemovesCertificate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.principal(t, models.RoleAdmin)
	_, err := e.svc.SaveTemplate(ctx, admin, e.event.ID, certificates.TemplateInput{})
	require.NoError(t, err)

	require.NoError(t, e.store.DeleteEvent(ctx, e.event.ID))
	_, err = e.store.GetCertificateByEvent(ctx, e.event.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

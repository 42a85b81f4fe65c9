package models

import (
	"strings"
	"testing"
	"time"

	"ms-festbuzz/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegistrationID(t *testing.T) {
	kind, err := ParseRegistrationID(NewFestRegistrationID())
	require.NoError(t, err)
	assert.Equal(t, KindFestRegistration, kind)

	kind, err = ParseRegistrationID(NewEventRegistrationID())
	require.NoError(t, err)
	assert.Equal(t, KindEventRegistration, kind)

	for _, bad := range []string{"", "abc", "freg_not-a-uuid", "team_3f1c"} {
		_, err := ParseRegistrationID(bad)
		assert.True(t, apperr.Is(err, apperr.KindValidation), bad)
	}
}

func TestTicketCodes(t *testing.T) {
	assert.True(t, strings.HasPrefix(NewFestTicket(), "FEST-"))
	assert.True(t, strings.HasPrefix(NewEventTicket(), "EVENT-"))
	assert.NotEqual(t, NewEventTicket(), NewEventTicket())
}

func TestEventRegistration_SoloShape(t *testing.T) {
	event := &Event{ID: "e1", FestID: "f1"}
	reg := NewEventRegistration(event, "freg", Solo{UserID: "u1"}, time.Now())

	assert.Equal(t, RegistrationSolo, reg.Type)
	assert.Equal(t, "u1", reg.UserID)
	assert.Equal(t, "u1", reg.HolderID)
	assert.Empty(t, reg.TeamID)
	assert.Equal(t, RegistrationConfirmed, reg.Status)
	assert.NoError(t, reg.Validate())
	assert.Equal(t, Solo{UserID: "u1"}, reg.Registrant())
}

func TestEventRegistration_TeamShape(t *testing.T) {
	event := &Event{ID: "e1", FestID: "f1"}
	seat := TeamSeat{TeamID: "t1", MemberID: "u2", Role: TeamRoleMember}
	reg := NewEventRegistration(event, "freg", seat, time.Now())

	assert.Equal(t, RegistrationTeam, reg.Type)
	assert.Empty(t, reg.UserID)
	assert.Equal(t, "u2", reg.HolderID)
	assert.NoError(t, reg.Validate())
	assert.Equal(t, seat, reg.Registrant())
}

func TestEventRegistration_ValidateRejectsMixedShape(t *testing.T) {
	reg := &EventRegistration{Type: RegistrationTeam, TeamID: "t1", MemberID: "u1", UserID: "u1", HolderID: "u1", TeamRole: TeamRoleMember}
	assert.Error(t, reg.Validate())

	reg = &EventRegistration{Type: RegistrationSolo, UserID: "u1", TeamID: "t1", HolderID: "u1"}
	assert.Error(t, reg.Validate())
}

func TestPersonalInfo_Validate(t *testing.T) {
	valid := PersonalInfo{
		Phone:         "+919876543210",
		DateOfBirth:   "2002-05-14",
		Gender:        GenderFemale,
		City:          "Roorkee",
		State:         "Uttarakhand",
		InstituteName: "IIT Roorkee",
	}
	assert.NoError(t, valid.Validate())

	missing := valid
	missing.City = " "
	err := missing.Validate()
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "city")

	badGender := valid
	badGender.Gender = "Unknown"
	assert.Error(t, badGender.Validate())

	badDate := valid
	badDate.DateOfBirth = "14/05/2002"
	assert.Error(t, badDate.Validate())

	badPhone := valid
	badPhone.Phone = "12ab"
	assert.Error(t, badPhone.Validate())
}

func TestEvent_PublishLifecycle(t *testing.T) {
	now := time.Now()
	e := &Event{Status: EventDraft, Name: "Hackathon", Type: "technical", Visibility: "public", Mode: "offline", Location: "LHC"}

	err := e.Publish("admin-1", now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "venue")

	e.Venue = "LHC-001"
	require.NoError(t, e.Publish("admin-1", now))
	assert.Equal(t, EventPublished, e.Status)
	assert.Equal(t, "admin-1", e.PublishedBy)

	assert.Error(t, e.Archive(now))

	require.NoError(t, e.Unpublish(now))
	assert.Equal(t, EventDraft, e.Status)
	assert.True(t, e.PublishedAt.IsZero())
	assert.Empty(t, e.PublishedBy)
	assert.Equal(t, now, e.LastSavedAsDraft)

	require.NoError(t, e.Archive(now))
	assert.Error(t, e.Publish("admin-1", now))
	assert.Error(t, e.SaveDraft(now))
}

func TestEvent_TeamEventNeedsTeamSizeToPublish(t *testing.T) {
	e := &Event{Status: EventDraft, Name: "Relay", Type: "sports", Visibility: "public", Mode: "offline", Location: "Ground", Venue: "Track", IsTeamEvent: true}
	assert.Contains(t, e.MissingPublishFields(), "team_size")

	e.TeamSize = 4
	assert.Empty(t, e.MissingPublishFields())
}

func TestFestivalUserRole_Effective(t *testing.T) {
	now := time.Now()
	r := &FestivalUserRole{IsActive: true}
	assert.True(t, r.Effective(now))

	r.ExpiresAt = now.Add(-time.Minute)
	assert.False(t, r.Effective(now))

	r.ExpiresAt = time.Time{}
	r.IsActive = false
	assert.False(t, r.Effective(now))

	var none *FestivalUserRole
	assert.False(t, none.Effective(now))
}

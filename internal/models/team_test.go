package models

import (
	"testing"
	"time"

	"ms-festbuzz/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTeam(max int, members ...string) *Team {
	t := &Team{ID: "team-1", LeaderID: members[0], Members: members, MaxSize: max, Status: TeamActive}
	t.refreshStatus()
	return t
}

func TestTeam_AddMemberFlipsToFull(t *testing.T) {
	now := time.Now()
	team := newTeam(3, "u1")

	require.NoError(t, team.AddMember("u2", now))
	assert.Equal(t, TeamActive, team.Status)

	require.NoError(t, team.AddMember("u3", now))
	assert.Equal(t, TeamFull, team.Status)

	err := team.AddMember("u4", now)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Len(t, team.Members, 3)
	assert.NoError(t, team.Validate())
}

func TestTeam_AddMemberRejectsDuplicateAndDisbanded(t *testing.T) {
	now := time.Now()
	team := newTeam(4, "u1", "u2")

	assert.True(t, apperr.Is(team.AddMember("u2", now), apperr.KindConflict))

	require.NoError(t, team.Disband(now))
	assert.True(t, apperr.Is(team.AddMember("u3", now), apperr.KindValidation))
}

func TestTeam_DetachReopensFullTeam(t *testing.T) {
	team := newTeam(2, "u1", "u2")
	require.Equal(t, TeamFull, team.Status)

	newLeader, removed := team.Detach("u2", time.Now())
	assert.True(t, removed)
	assert.Empty(t, newLeader)
	assert.Equal(t, TeamActive, team.Status)
	assert.Equal(t, []string{"u1"}, team.Members)
}

func TestTeam_DetachLeaderPromotesEarliestMember(t *testing.T) {
	team := newTeam(4, "u1", "u2", "u3")

	newLeader, removed := team.Detach("u1", time.Now())
	assert.True(t, removed)
	assert.Equal(t, "u2", newLeader)
	assert.Equal(t, "u2", team.LeaderID)
	assert.NoError(t, team.Validate())
}

func TestTeam_DetachLastMemberEmptiesTeam(t *testing.T) {
	team := newTeam(4, "u1")

	_, removed := team.Detach("u1", time.Now())
	assert.True(t, removed)
	assert.True(t, team.Empty())

	_, removed = team.Detach("ghost", time.Now())
	assert.False(t, removed)
}

func TestTeam_DetachKeepsDisbandedStatus(t *testing.T) {
	team := newTeam(2, "u1", "u2")
	require.NoError(t, team.Disband(time.Now()))

	team.Detach("u2", time.Now())
	assert.Equal(t, TeamDisbanded, team.Status)
}

func TestTeam_TransferLeadership(t *testing.T) {
	now := time.Now()
	team := newTeam(4, "u1", "u2")

	assert.True(t, apperr.Is(team.TransferLeadership("u9", now), apperr.KindValidation))
	require.NoError(t, team.TransferLeadership("u2", now))
	assert.Equal(t, "u2", team.LeaderID)
	assert.ElementsMatch(t, []string{"u1", "u2"}, team.Members)
}

func TestTeam_ValidateCatchesBrokenInvariants(t *testing.T) {
	team := &Team{LeaderID: "u9", Members: []string{"u1"}, MaxSize: 2, Status: TeamActive}
	assert.Error(t, team.Validate())

	team = &Team{LeaderID: "u1", Members: []string{"u1", "u2"}, MaxSize: 2, Status: TeamActive}
	assert.Error(t, team.Validate())
}

package models

import (
	"slices"
	"time"

	"ms-festbuzz/internal/apperr"

	"github.com/uptrace/bun"
)

type TeamStatus string

const (
	TeamActive    TeamStatus = "active"
	TeamFull      TeamStatus = "full"
	TeamDisbanded TeamStatus = "disbanded"
)

// Team is a group registered together for a team event. Members keeps join
// order and always contains LeaderID.
type Team struct {
	bun.BaseModel `bun:"table:teams"`

	ID          string     `bun:"id,pk" json:"id"`
	Name        string     `bun:"name,notnull" json:"name"`
	Code        string     `bun:"code,notnull,unique" json:"code"`
	EventID     string     `bun:"event_id,notnull" json:"event_id"`
	FestID      string     `bun:"fest_id,notnull" json:"fest_id"`
	LeaderID    string     `bun:"leader_id,notnull" json:"leader_id"`
	Members     []string   `bun:"members,type:jsonb" json:"members"`
	MaxSize     int        `bun:"max_size,notnull" json:"max_size"`
	Status      TeamStatus `bun:"status,notnull" json:"status"`
	Description string     `bun:"description" json:"description,omitempty"`
	Notes       string     `bun:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull" json:"updated_at"`
}

// NewTeam returns a team whose only member is its leader.
func NewTeam(id, name, code string, event *Event, leaderID string, maxSize int, now time.Time) *Team {
	t := &Team{
		ID:        id,
		Name:      name,
		Code:      code,
		EventID:   event.ID,
		FestID:    event.FestID,
		LeaderID:  leaderID,
		Members:   []string{leaderID},
		MaxSize:   maxSize,
		Status:    TeamActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.refreshStatus()
	return t
}

func (t *Team) HasMember(userID string) bool {
	return slices.Contains(t.Members, userID)
}

func (t *Team) IsLeader(userID string) bool { return t.LeaderID == userID }

func (t *Team) Disbanded() bool { return t.Status == TeamDisbanded }

func (t *Team) SlotsLeft() int {
	if n := t.MaxSize - len(t.Members); n > 0 {
		return n
	}
	return 0
}

// refreshStatus keeps active/full in step with the member count.
func (t *Team) refreshStatus() {
	if t.Status == TeamDisbanded {
		return
	}
	if len(t.Members) >= t.MaxSize {
		t.Status = TeamFull
	} else {
		t.Status = TeamActive
	}
}

func (t *Team) AddMember(userID string, now time.Time) error {
	switch {
	case t.Status == TeamDisbanded:
		return apperr.Validation("team has been disbanded")
	case t.HasMember(userID):
		return apperr.Conflict("you are already a member of this team")
	case t.Status == TeamFull || len(t.Members) >= t.MaxSize:
		return apperr.Conflict("team is full")
	}
	t.Members = append(t.Members, userID)
	t.refreshStatus()
	t.UpdatedAt = now
	return nil
}

// Detach removes userID from the membership without any role rules. When the
// leader leaves and members remain, the earliest remaining member is promoted
// and returned.
func (t *Team) Detach(userID string, now time.Time) (newLeader string, removed bool) {
	idx := slices.Index(t.Members, userID)
	if idx < 0 {
		return "", false
	}
	t.Members = slices.Delete(slices.Clone(t.Members), idx, idx+1)
	if t.LeaderID == userID && len(t.Members) > 0 {
		t.LeaderID = t.Members[0]
		newLeader = t.LeaderID
	}
	t.refreshStatus()
	t.UpdatedAt = now
	return newLeader, true
}

func (t *Team) Empty() bool { return len(t.Members) == 0 }

func (t *Team) TransferLeadership(to string, now time.Time) error {
	if t.Status == TeamDisbanded {
		return apperr.Validation("team has been disbanded")
	}
	if !t.HasMember(to) {
		return apperr.Validation("new leader must be a member of the team")
	}
	if to == t.LeaderID {
		return apperr.Validation("user is already the team leader")
	}
	t.LeaderID = to
	t.UpdatedAt = now
	return nil
}

func (t *Team) Disband(now time.Time) error {
	if t.Status == TeamDisbanded {
		return apperr.Validation("team has already been disbanded")
	}
	t.Status = TeamDisbanded
	t.UpdatedAt = now
	return nil
}

// Validate checks the structural invariants of a non-empty team.
func (t *Team) Validate() error {
	if !t.HasMember(t.LeaderID) {
		return apperr.Validation("team leader must be a member")
	}
	if len(t.Members) > t.MaxSize {
		return apperr.Validation("team has %d members but max size is %d", len(t.Members), t.MaxSize)
	}
	seen := make(map[string]struct{}, len(t.Members))
	for _, m := range t.Members {
		if _, dup := seen[m]; dup {
			return apperr.Validation("duplicate team member %s", m)
		}
		seen[m] = struct{}{}
	}
	switch t.Status {
	case TeamFull:
		if len(t.Members) < t.MaxSize {
			return apperr.Validation("team marked full with free slots")
		}
	case TeamActive:
		if len(t.Members) >= t.MaxSize {
			return apperr.Validation("team marked active without free slots")
		}
	}
	return nil
}

package models

import "time"

type DomainEventType string

const (
	FestRegistrationCreated   DomainEventType = "fest_registration.created"
	FestRegistrationDeleted   DomainEventType = "fest_registration.deleted"
	EventRegistrationCreated  DomainEventType = "event_registration.created"
	EventRegistrationDeleted  DomainEventType = "event_registration.deleted"
	EventRegistrationCanceled DomainEventType = "event_registration.cancelled"
	TeamCreated               DomainEventType = "team.created"
	TeamMemberJoined          DomainEventType = "team.member_joined"
	TeamMemberLeft            DomainEventType = "team.member_left"
	TeamMemberRemoved         DomainEventType = "team.member_removed"
	TeamLeaderChanged         DomainEventType = "team.leader_changed"
	TeamDisbandedEvent        DomainEventType = "team.disbanded"
	TeamDeleted               DomainEventType = "team.deleted"
	CertificatesIssued        DomainEventType = "certificate.issued"
)

// DomainEvent is published after a registration or team change commits.
type DomainEvent struct {
	Type           DomainEventType `json:"type"`
	UserID         string          `json:"user_id,omitempty"`
	FestID         string          `json:"fest_id,omitempty"`
	EventID        string          `json:"event_id,omitempty"`
	TeamID         string          `json:"team_id,omitempty"`
	RegistrationID string          `json:"registration_id,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Data           map[string]any  `json:"data,omitempty"`
}

// Key partitions events so one team or user stays ordered.
func (e DomainEvent) Key() string {
	if e.TeamID != "" {
		return e.TeamID
	}
	return e.UserID
}

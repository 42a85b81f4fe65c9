package models

import (
	"strings"
	"time"

	"ms-festbuzz/internal/apperr"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

// Active statuses occupy a seat and count towards exclusivity.
func (s RegistrationStatus) Active() bool {
	return s == RegistrationPending || s == RegistrationConfirmed
}

type RegistrationType string

const (
	RegistrationSolo RegistrationType = "solo"
	RegistrationTeam RegistrationType = "team"
)

type TeamRole string

const (
	TeamRoleLeader TeamRole = "leader"
	TeamRoleMember TeamRole = "member"
)

// Registration ids carry their kind so a bare id can be routed to the right table.
const (
	festRegistrationPrefix  = "freg_"
	eventRegistrationPrefix = "ereg_"
)

type RegistrationKind int

const (
	KindFestRegistration RegistrationKind = iota + 1
	KindEventRegistration
)

func NewFestRegistrationID() string { return festRegistrationPrefix + uuid.NewString() }
func NewEventRegistrationID() string { return eventRegistrationPrefix + uuid.NewString() }

func ParseRegistrationID(id string) (RegistrationKind, error) {
	var rest string
	var kind RegistrationKind
	switch {
	case strings.HasPrefix(id, festRegistrationPrefix):
		kind, rest = KindFestRegistration, strings.TrimPrefix(id, festRegistrationPrefix)
	case strings.HasPrefix(id, eventRegistrationPrefix):
		kind, rest = KindEventRegistration, strings.TrimPrefix(id, eventRegistrationPrefix)
	default:
		return 0, apperr.Validation("malformed registration id %q", id)
	}
	if _, err := uuid.Parse(rest); err != nil {
		return 0, apperr.Validation("malformed registration id %q", id)
	}
	return kind, nil
}

func NewFestTicket() string { return "FEST-" + uuid.NewString() }
func NewEventTicket() string { return "EVENT-" + uuid.NewString() }

type FestRegistration struct {
	bun.BaseModel `bun:"table:fest_registrations"`

	ID        string             `bun:"id,pk" json:"id"`
	UserID    string             `bun:"user_id,notnull,unique:fest_registrations_user_fest" json:"user_id"`
	FestID    string             `bun:"fest_id,notnull,unique:fest_registrations_user_fest" json:"fest_id"`
	Status    RegistrationStatus `bun:"status,notnull" json:"status"`
	Ticket    string             `bun:"ticket,notnull,unique" json:"ticket"`
	QRCode    []byte             `bun:"qr_code" json:"-"`
	Answers   []string           `bun:"answers,type:jsonb" json:"answers,omitempty"`
	CreatedAt time.Time          `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time          `bun:"updated_at,notnull" json:"updated_at"`
}

func NewFestRegistration(userID, festID string, now time.Time) *FestRegistration {
	return &FestRegistration{
		ID:        NewFestRegistrationID(),
		UserID:    userID,
		FestID:    festID,
		Status:    RegistrationConfirmed,
		Ticket:    NewFestTicket(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Registrant is who holds an event registration: a Solo user or a TeamSeat.
type Registrant interface {
	// Holder is the user occupying the seat.
	Holder() string
	kind() RegistrationType
}

type Solo struct {
	UserID string
}

func (s Solo) Holder() string { return s.UserID }
func (Solo) kind() RegistrationType { return RegistrationSolo }

type TeamSeat struct {
	TeamID   string
	MemberID string
	Role     TeamRole
}

func (s TeamSeat) Holder() string { return s.MemberID }
func (TeamSeat) kind() RegistrationType { return RegistrationTeam }

// EventRegistration is persisted flat. Registrant() recovers the typed form;
// HolderID duplicates the seat holder so one index covers both paths.
type EventRegistration struct {
	bun.BaseModel `bun:"table:event_registrations"`

	ID                 string             `bun:"id,pk" json:"id"`
	EventID            string             `bun:"event_id,notnull" json:"event_id"`
	FestID             string             `bun:"fest_id,notnull" json:"fest_id"`
	FestRegistrationID string             `bun:"fest_registration_id,nullzero" json:"fest_registration_id,omitempty"`
	Type               RegistrationType   `bun:"type,notnull" json:"type"`
	UserID             string             `bun:"user_id,nullzero" json:"user_id,omitempty"`
	TeamID             string             `bun:"team_id,nullzero" json:"team_id,omitempty"`
	MemberID           string             `bun:"member_id,nullzero" json:"member_id,omitempty"`
	TeamRole           TeamRole           `bun:"team_role,nullzero" json:"team_role,omitempty"`
	HolderID           string             `bun:"holder_id,notnull" json:"holder_id"`
	Status             RegistrationStatus `bun:"status,notnull" json:"status"`
	Ticket             string             `bun:"ticket,notnull,unique" json:"ticket"`
	QRCode             []byte             `bun:"qr_code" json:"-"`
	PaymentMethod      string             `bun:"payment_method,nullzero" json:"payment_method,omitempty"`
	PaymentStatus      string             `bun:"payment_status,notnull" json:"payment_status"`
	PaymentAmount      float64            `bun:"payment_amount,notnull" json:"payment_amount"`
	Answers            []string           `bun:"answers,type:jsonb" json:"answers,omitempty"`
	CreatedAt          time.Time          `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt          time.Time          `bun:"updated_at,notnull" json:"updated_at"`
}

func NewEventRegistration(event *Event, festRegistrationID string, who Registrant, now time.Time) *EventRegistration {
	r := &EventRegistration{
		ID:                 NewEventRegistrationID(),
		EventID:            event.ID,
		FestID:             event.FestID,
		FestRegistrationID: festRegistrationID,
		Status:             RegistrationConfirmed,
		Ticket:             NewEventTicket(),
		PaymentStatus:      "pending",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	r.SetRegistrant(who)
	return r
}

// SetRegistrant writes who into the flat columns, clearing the other variant.
func (r *EventRegistration) SetRegistrant(who Registrant) {
	r.Type = who.kind()
	r.HolderID = who.Holder()
	switch v := who.(type) {
	case Solo:
		r.UserID = v.UserID
		r.TeamID, r.MemberID, r.TeamRole = "", "", ""
	case TeamSeat:
		r.UserID = ""
		r.TeamID, r.MemberID, r.TeamRole = v.TeamID, v.MemberID, v.Role
	}
}

func (r *EventRegistration) Registrant() Registrant {
	if r.Type == RegistrationTeam {
		return TeamSeat{TeamID: r.TeamID, MemberID: r.MemberID, Role: r.TeamRole}
	}
	return Solo{UserID: r.UserID}
}

func (r *EventRegistration) IsActive() bool { return r.Status.Active() }

// Validate rejects rows that mix the solo and team shapes.
func (r *EventRegistration) Validate() error {
	switch r.Type {
	case RegistrationSolo:
		if r.UserID == "" || r.TeamID != "" || r.MemberID != "" {
			return apperr.Validation("solo registration requires user_id and no team fields")
		}
		if r.HolderID != r.UserID {
			return apperr.Validation("solo registration holder must be its user")
		}
	case RegistrationTeam:
		if r.TeamID == "" || r.MemberID == "" || r.UserID != "" {
			return apperr.Validation("team registration requires team_id and member_id and no user_id")
		}
		if r.TeamRole != TeamRoleLeader && r.TeamRole != TeamRoleMember {
			return apperr.Validation("team registration requires a team role")
		}
		if r.HolderID != r.MemberID {
			return apperr.Validation("team registration holder must be its member")
		}
	default:
		return apperr.Validation("unknown registration type %q", r.Type)
	}
	return nil
}

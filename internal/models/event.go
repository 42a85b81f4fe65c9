package models

import (
	"strings"
	"time"

	"ms-festbuzz/internal/apperr"

	"github.com/uptrace/bun"
)

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventArchived  EventStatus = "archived"
)

type EventTicket struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity,omitempty"`
}

type Judge struct {
	Name        string `json:"name"`
	Designation string `json:"designation,omitempty"`
	Bio         string `json:"bio,omitempty"`
	Photo       string `json:"photo,omitempty"`
}

// EventRole is a named organiser contact shown on the event page, such as a
// coordinator or volunteer lead. It grants no permissions.
type EventRole struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type Reward struct {
	Position string  `json:"position"`
	Title    string  `json:"title,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
}

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID           string `bun:"id,pk" json:"id"`
	FestID       string `bun:"fest_id,notnull" json:"fest_id"`
	CreatedBy    string `bun:"created_by" json:"created_by"`
	Name         string `bun:"name,notnull" json:"name"`
	Type         string `bun:"type" json:"type"`
	Visibility   string `bun:"visibility" json:"visibility"`
	Mode         string `bun:"mode" json:"mode"`
	Location     string `bun:"location" json:"location"`
	Venue        string `bun:"venue" json:"venue"`
	Description  string `bun:"description" json:"description,omitempty"`
	RulebookLink string `bun:"rulebook_link" json:"rulebook_link,omitempty"`

	StartDate time.Time `bun:"start_date,nullzero" json:"start_date,omitempty"`
	EndDate   time.Time `bun:"end_date,nullzero" json:"end_date,omitempty"`

	IsTeamEvent bool `bun:"is_team_event,notnull" json:"is_team_event"`
	TeamSize    int  `bun:"team_size,notnull" json:"team_size,omitempty"`
	// Capacity caps active solo registrations; zero means unlimited.
	Capacity int `bun:"capacity,notnull" json:"capacity"`

	Status           EventStatus `bun:"status,notnull" json:"status"`
	PublishedAt      time.Time   `bun:"published_at,nullzero" json:"published_at,omitempty"`
	PublishedBy      string      `bun:"published_by,nullzero" json:"published_by,omitempty"`
	DraftVersion     int         `bun:"draft_version,notnull" json:"draft_version"`
	LastSavedAsDraft time.Time   `bun:"last_saved_as_draft,nullzero" json:"last_saved_as_draft,omitempty"`

	Tickets  []EventTicket `bun:"tickets,type:jsonb" json:"tickets,omitempty"`
	Sponsors []Sponsor     `bun:"sponsors,type:jsonb" json:"sponsors,omitempty"`
	Judges   []Judge       `bun:"judges,type:jsonb" json:"judges,omitempty"`
	Rewards  []Reward      `bun:"rewards,type:jsonb" json:"rewards,omitempty"`
	Roles    []EventRole   `bun:"roles,type:jsonb" json:"roles,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// MissingPublishFields lists the attributes that must be set before publishing.
func (e *Event) MissingPublishFields() []string {
	required := []struct {
		name  string
		value string
	}{
		{"name", e.Name},
		{"type", e.Type},
		{"visibility", e.Visibility},
		{"mode", e.Mode},
		{"location", e.Location},
		{"venue", e.Venue},
	}

	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if e.IsTeamEvent && e.TeamSize < 1 {
		missing = append(missing, "team_size")
	}
	return missing
}

func (e *Event) Publish(by string, now time.Time) error {
	if e.Status != EventDraft {
		return apperr.Validation("only draft events can be published (event is %s)", e.Status)
	}
	if missing := e.MissingPublishFields(); len(missing) > 0 {
		return apperr.Validation("event cannot be published, missing: %s", strings.Join(missing, ", "))
	}
	e.Status = EventPublished
	e.PublishedAt = now
	e.PublishedBy = by
	e.UpdatedAt = now
	return nil
}

func (e *Event) Unpublish(now time.Time) error {
	if e.Status != EventPublished {
		return apperr.Validation("only published events can be unpublished (event is %s)", e.Status)
	}
	e.Status = EventDraft
	e.PublishedAt = time.Time{}
	e.PublishedBy = ""
	e.LastSavedAsDraft = now
	e.UpdatedAt = now
	return nil
}

func (e *Event) Archive(now time.Time) error {
	if e.Status != EventDraft {
		return apperr.Validation("only draft events can be archived (event is %s)", e.Status)
	}
	e.Status = EventArchived
	e.UpdatedAt = now
	return nil
}

// SaveDraft stamps an edit. Archived events are read-only.
func (e *Event) SaveDraft(now time.Time) error {
	switch e.Status {
	case EventArchived:
		return apperr.Validation("archived events cannot be modified")
	case EventDraft:
		e.DraftVersion++
		e.LastSavedAsDraft = now
	}
	e.UpdatedAt = now
	return nil
}

// StartsAt is the event start, falling back to the festival start.
func (e *Event) StartsAt(fest *Festival) time.Time {
	if !e.StartDate.IsZero() || fest == nil {
		return e.StartDate
	}
	return fest.StartDate
}

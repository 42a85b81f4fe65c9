package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Sponsor struct {
	Name    string `json:"name"`
	Logo    string `json:"logo,omitempty"`
	Website string `json:"website,omitempty"`
	Tier    string `json:"tier,omitempty"`
}

type TicketTier struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Festival is the top-level catalog entity. It has no lifecycle states.
type Festival struct {
	bun.BaseModel `bun:"table:festivals"`

	ID                 string       `bun:"id,pk" json:"id"`
	Name               string       `bun:"name,notnull" json:"name"`
	Type               string       `bun:"type" json:"type"`
	Visibility         string       `bun:"visibility" json:"visibility"`
	Mode               string       `bun:"mode" json:"mode"`
	Description        string       `bun:"description" json:"description,omitempty"`
	College            string       `bun:"college" json:"college,omitempty"`
	Venue              string       `bun:"venue" json:"venue,omitempty"`
	City               string       `bun:"city" json:"city,omitempty"`
	State              string       `bun:"state" json:"state,omitempty"`
	StartDate          time.Time    `bun:"start_date,notnull" json:"start_date"`
	EndDate            time.Time    `bun:"end_date,nullzero" json:"end_date,omitempty"`
	RegistrationClosed bool         `bun:"registration_closed,notnull" json:"registration_closed"`
	Sponsors           []Sponsor    `bun:"sponsors,type:jsonb" json:"sponsors,omitempty"`
	Tickets            []TicketTier `bun:"tickets,type:jsonb" json:"tickets,omitempty"`
	CreatedBy          string       `bun:"created_by" json:"created_by"`
	CreatedAt          time.Time    `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt          time.Time    `bun:"updated_at,notnull" json:"updated_at"`
}

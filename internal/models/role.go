package models

import (
	"time"

	"github.com/uptrace/bun"
)

// FestivalRole is a role scoped to one festival.
type FestivalRole string

const (
	FestivalRoleAdmin            FestivalRole = "admin"
	FestivalRoleHead             FestivalRole = "festival-head"
	FestivalRoleEventManager     FestivalRole = "event-manager"
	FestivalRoleEventCoordinator FestivalRole = "event-coordinator"
	FestivalRoleEventVolunteer   FestivalRole = "event-volunteer"
)

func (r FestivalRole) Valid() bool {
	switch r {
	case FestivalRoleAdmin, FestivalRoleHead, FestivalRoleEventManager,
		FestivalRoleEventCoordinator, FestivalRoleEventVolunteer:
		return true
	}
	return false
}

// FestivalUserRole is unique per (user, festival); assignment is an upsert.
type FestivalUserRole struct {
	bun.BaseModel `bun:"table:festival_user_roles"`

	ID         string       `bun:"id,pk" json:"id"`
	UserID     string       `bun:"user_id,notnull,unique:festival_user_roles_user_fest" json:"user_id"`
	FestID     string       `bun:"fest_id,notnull,unique:festival_user_roles_user_fest" json:"fest_id"`
	Role       FestivalRole `bun:"role,notnull" json:"role"`
	AssignedBy string       `bun:"assigned_by" json:"assigned_by"`
	IsActive   bool         `bun:"is_active,notnull" json:"is_active"`
	AssignedAt time.Time    `bun:"assigned_at,notnull" json:"assigned_at"`
	ExpiresAt  time.Time    `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	UpdatedAt  time.Time    `bun:"updated_at,notnull" json:"updated_at"`
}

// Effective reports whether the role grants anything at now.
func (r *FestivalUserRole) Effective(now time.Time) bool {
	if r == nil || !r.IsActive {
		return false
	}
	return r.ExpiresAt.IsZero() || now.Before(r.ExpiresAt)
}

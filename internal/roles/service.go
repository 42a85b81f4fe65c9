// Package roles resolves and administers festival-scoped roles.
package roles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-festbuzz/internal/apperr"
	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/logger"
	"ms-festbuzz/internal/models"

	"github.com/google/uuid"
)

type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUsers(ctx context.Context, ids []string) ([]models.User, error)
	GetFestival(ctx context.Context, id string) (*models.Festival, error)
	GetFestivalRole(ctx context.Context, userID, festID string) (*models.FestivalUserRole, error)
	UpsertFestivalRole(ctx context.Context, role *models.FestivalUserRole) error
	DeleteFestivalRole(ctx context.Context, userID, festID string) error
	ListFestivalRoles(ctx context.Context, festID string) ([]models.FestivalUserRole, error)
}

type Service struct {
	Store  Store
	Cache  *RedisRoleCache
	Logger *logger.Logger
	Now    func() time.Time
}

// NewService wires the store. cache may be nil.
func NewService(store Store, cache *RedisRoleCache, log *logger.Logger) *Service {
	return &Service{Store: store, Cache: cache, Logger: log, Now: time.Now}
}

// Resolve computes the caller's authority inside festID. Cache failures fall
// back to the store.
func (s *Service) Resolve(ctx context.Context, p auth.Principal, festID string) (auth.Access, error) {
	access := auth.Access{UserID: p.UserID, GlobalRole: p.Role}
	if festID == "" {
		return access, nil
	}

	now := s.Now()
	if s.Cache != nil {
		cr, err := s.Cache.Get(ctx, p.UserID, festID)
		if err != nil {
			s.Logger.Warn("REDIS", err.Error())
		} else if cr != nil {
			access.FestivalRole = cr.effective(now)
			return access, nil
		}
	}

	role, err := s.Store.GetFestivalRole(ctx, p.UserID, festID)
	var cr cachedRole
	switch {
	case errors.Is(err, db.ErrNotFound):
	case err != nil:
		return access, apperr.Internal(err, "failed to resolve festival role")
	case role.Effective(now):
		cr = cachedRole{Role: role.Role, ExpiresAt: role.ExpiresAt}
	}
	access.FestivalRole = cr.Role

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, p.UserID, festID, cr); err != nil {
			s.Logger.Warn("REDIS", err.Error())
		}
	}
	return access, nil
}

func (s *Service) invalidate(ctx context.Context, userID, festID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, userID, festID); err != nil {
		s.Logger.Warn("REDIS", fmt.Sprintf("invalidate role %s/%s: %v", festID, userID, err))
	}
}

// AssignRole gives userID role in festID, replacing any role held there.
func (s *Service) AssignRole(ctx context.Context, access auth.Access, festID, userID string, role models.FestivalRole, expiresAt time.Time) (*models.FestivalUserRole, error) {
	if !access.Can(auth.CanManageFests) {
		return nil, apperr.Forbidden("not allowed to assign festival roles")
	}
	if !role.Valid() {
		return nil, apperr.Validation("invalid festival role %q", role)
	}
	now := s.Now().UTC()
	if !expiresAt.IsZero() && !expiresAt.After(now) {
		return nil, apperr.Validation("expiry must be in the future")
	}
	if err := s.mustExist(ctx, festID, userID); err != nil {
		return nil, err
	}

	assignment := &models.FestivalUserRole{
		ID:         uuid.NewString(),
		UserID:     userID,
		FestID:     festID,
		Role:       role,
		AssignedBy: access.UserID,
		IsActive:   true,
		AssignedAt: now,
		ExpiresAt:  expiresAt,
		UpdatedAt:  now,
	}
	if err := s.Store.UpsertFestivalRole(ctx, assignment); err != nil {
		return nil, apperr.Internal(err, "failed to assign role")
	}
	s.invalidate(ctx, userID, festID)
	s.Logger.LogSecurity("ROLE_ASSIGNED", fmt.Sprintf("%s granted %s in %s by %s", userID, role, festID, access.UserID))
	return assignment, nil
}

func (s *Service) RemoveRole(ctx context.Context, access auth.Access, festID, userID string) error {
	if !access.Can(auth.CanManageFests) {
		return apperr.Forbidden("not allowed to remove festival roles")
	}
	err := s.Store.DeleteFestivalRole(ctx, userID, festID)
	if errors.Is(err, db.ErrNotFound) {
		return apperr.NotFound("user has no role in this festival")
	}
	if err != nil {
		return apperr.Internal(err, "failed to remove role")
	}
	s.invalidate(ctx, userID, festID)
	s.Logger.LogSecurity("ROLE_REMOVED", fmt.Sprintf("%s removed from %s by %s", userID, festID, access.UserID))
	return nil
}

// FestivalUser pairs an assignment with the user it belongs to.
type FestivalUser struct {
	models.FestivalUserRole
	Name      string `json:"name"`
	Email     string `json:"email"`
	Effective bool   `json:"effective"`
}

func (s *Service) ListFestivalUsers(ctx context.Context, access auth.Access, festID string) ([]FestivalUser, error) {
	if !access.Can(auth.CanManageFests) && !access.Can(auth.CanAssignEventRoles) {
		return nil, apperr.Forbidden("not allowed to view festival roles")
	}
	assignments, err := s.Store.ListFestivalRoles(ctx, festID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list festival roles")
	}

	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.UserID)
	}
	users, err := s.Store.GetUsers(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load users")
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	now := s.Now()
	out := make([]FestivalUser, 0, len(assignments))
	for _, a := range assignments {
		u := byID[a.UserID]
		out = append(out, FestivalUser{FestivalUserRole: a, Name: u.Name, Email: u.Email, Effective: a.Effective(now)})
	}
	return out, nil
}

// MyRole describes the caller's standing in a festival.
type MyRole struct {
	FestID       string              `json:"fest_id"`
	GlobalRole   models.Role         `json:"global_role"`
	FestivalRole models.FestivalRole `json:"festival_role,omitempty"`
	IsAdmin      bool                `json:"is_admin"`
	Permissions  []auth.Permission   `json:"permissions"`
}

func (s *Service) MyRole(ctx context.Context, p auth.Principal, festID string) (*MyRole, error) {
	if _, err := s.Store.GetFestival(ctx, festID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.NotFound("festival not found")
		}
		return nil, apperr.Internal(err, "failed to load festival")
	}
	access, err := s.Resolve(ctx, p, festID)
	if err != nil {
		return nil, err
	}
	perms := access.Permissions()
	if perms == nil {
		perms = []auth.Permission{}
	}
	return &MyRole{
		FestID:       festID,
		GlobalRole:   access.GlobalRole,
		FestivalRole: access.FestivalRole,
		IsAdmin:      access.IsFestivalAdmin(),
		Permissions:  perms,
	}, nil
}

func (s *Service) mustExist(ctx context.Context, festID, userID string) error {
	if _, err := s.Store.GetFestival(ctx, festID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperr.NotFound("festival not found")
		}
		return apperr.Internal(err, "failed to load festival")
	}
	if _, err := s.Store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal(err, "failed to load user")
	}
	return nil
}

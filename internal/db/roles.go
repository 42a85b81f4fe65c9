package db

import (
	"context"

	"ms-festbuzz/internal/models"
)

// UpsertFestivalRole inserts or replaces the single role a user holds in a
// festival.
func (d *DB) UpsertFestivalRole(ctx context.Context, role *models.FestivalUserRole) error {
	_, err := d.conn(ctx).NewInsert().
		Model(role).
		On("CONFLICT (user_id, fest_id) DO UPDATE").
		Set("role = EXCLUDED.role").
		Set("assigned_by = EXCLUDED.assigned_by").
		Set("is_active = EXCLUDED.is_active").
		Set("assigned_at = EXCLUDED.assigned_at").
		Set("expires_at = EXCLUDED.expires_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return translate(err)
}

func (d *DB) GetFestivalRole(ctx context.Context, userID, festID string) (*models.FestivalUserRole, error) {
	var role models.FestivalUserRole
	err := d.conn(ctx).NewSelect().
		Model(&role).
		Where("user_id = ?", userID).
		Where("fest_id = ?", festID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (d *DB) DeleteFestivalRole(ctx context.Context, userID, festID string) error {
	res, err := d.conn(ctx).NewDelete().
		Model((*models.FestivalUserRole)(nil)).
		Where("user_id = ?", userID).
		Where("fest_id = ?", festID).
		Exec(ctx)
	if err != nil {
		return translate(err)
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) ListFestivalRoles(ctx context.Context, festID string) ([]models.FestivalUserRole, error) {
	roles := []models.FestivalUserRole{}
	err := d.conn(ctx).NewSelect().
		Model(&roles).
		Where("fest_id = ?", festID).
		Order("assigned_at ASC").
		Scan(ctx)
	return roles, translate(err)
}

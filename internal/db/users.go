package db

import (
	"context"

	"ms-festbuzz/internal/models"

	"github.com/uptrace/bun"
)

func (d *DB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := d.conn(ctx).NewInsert().Model(user).Exec(ctx)
	return translate(err)
}

func (d *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.conn(ctx).NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (d *DB) GetUsers(ctx context.Context, ids []string) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	err := d.conn(ctx).NewSelect().
		Model(&users).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	return users, translate(err)
}

// UpdatePersonalInfo persists the profile fields collected at registration.
func (d *DB) UpdatePersonalInfo(ctx context.Context, user *models.User) error {
	res, err := d.conn(ctx).NewUpdate().
		Model(user).
		Column("phone", "date_of_birth", "gender", "city", "state", "institute_name", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return translate(err)
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

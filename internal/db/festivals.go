package db

import (
	"context"
	"strings"

	"ms-festbuzz/internal/models"

	"github.com/uptrace/bun"
)

func (d *DB) CreateFestival(ctx context.Context, fest *models.Festival) error {
	_, err := d.conn(ctx).NewInsert().Model(fest).Exec(ctx)
	return translate(err)
}

func (d *DB) GetFestival(ctx context.Context, id string) (*models.Festival, error) {
	var fest models.Festival
	err := d.conn(ctx).NewSelect().
		Model(&fest).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return &fest, nil
}

func (d *DB) UpdateFestival(ctx context.Context, fest *models.Festival) error {
	res, err := d.conn(ctx).NewUpdate().
		Model(fest).
		ExcludeColumn("id", "created_by", "created_at").
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

func (d *DB) ListFestivals(ctx context.Context, f models.FestivalFilter) ([]models.Festival, int, error) {
	page := f.Page.Normalize()
	fests := []models.Festival{}

	q := d.conn(ctx).NewSelect().Model(&fests)
	if f.City != "" {
		q = q.Where("LOWER(city) = ?", strings.ToLower(f.City))
	}
	if f.State != "" {
		q = q.Where("LOWER(state) = ?", strings.ToLower(f.State))
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(name) LIKE ?", pattern).WhereOr("LOWER(college) LIKE ?", pattern)
		})
	}

	total, err := q.Order("start_date ASC").
		Limit(page.Size).
		Offset(page.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, translate(err)
	}
	return fests, total, nil
}

// CountActiveFestivalRegistrations counts pending or confirmed registrations
// for the festival and any of its events.
func (d *DB) CountActiveFestivalRegistrations(ctx context.Context, festID string) (int, error) {
	fest, err := d.conn(ctx).NewSelect().
		Model((*models.FestRegistration)(nil)).
		Where("fest_id = ?", festID).
		Where("status IN (?)", bun.In(activeStatuses)).
		Count(ctx)
	if err != nil {
		return 0, translate(err)
	}
	events, err := d.conn(ctx).NewSelect().
		Model((*models.EventRegistration)(nil)).
		Where("fest_id = ?", festID).
		Where("status IN (?)", bun.In(activeStatuses)).
		Count(ctx)
	if err != nil {
		return 0, translate(err)
	}
	return fest + events, nil
}

// DeleteFestival removes the festival, its events and every row scoped to
// either.
func (d *DB) DeleteFestival(ctx context.Context, id string) error {
	return d.RunInTx(ctx, func(ctx context.Context) error {
		eventIDs, err := d.ListEventIDs(ctx, id)
		if err != nil {
			return err
		}
		if err := d.deleteEventChildren(ctx, eventIDs); err != nil {
			return err
		}
		deletes := []*bun.DeleteQuery{
			d.conn(ctx).NewDelete().Model((*models.Event)(nil)).Where("fest_id = ?", id),
			d.conn(ctx).NewDelete().Model((*models.FestRegistration)(nil)).Where("fest_id = ?", id),
			d.conn(ctx).NewDelete().Model((*models.FestivalUserRole)(nil)).Where("fest_id = ?", id),
			d.conn(ctx).NewDelete().Model((*models.WishlistItem)(nil)).Where("fest_id = ?", id),
			d.conn(ctx).NewDelete().Model((*models.RecentlyViewed)(nil)).Where("fest_id = ?", id),
		}
		for _, q := range deletes {
			if _, err := q.Exec(ctx); err != nil {
				return translate(err)
			}
		}
		res, err := d.conn(ctx).NewDelete().
			Model((*models.Festival)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return translate(err)
		}
		if rowsAffected(res) == 0 {
			return ErrNotFound
		}
		return nil
	})
}

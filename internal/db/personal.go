package db

import (
	"context"

	"ms-festbuzz/internal/models"
)

func (d *DB) AddWishlistItem(ctx context.Context, item *models.WishlistItem) error {
	_, err := d.conn(ctx).NewInsert().Model(item).Exec(ctx)
	return translate(err)
}

func (d *DB) DeleteWishlistItem(ctx context.Context, userID, festID string) error {
	res, err := d.conn(ctx).NewDelete().
		Model((*models.WishlistItem)(nil)).
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

func (d *DB) ListWishlist(ctx context.Context, userID string, page models.Page) ([]models.WishlistItem, int, error) {
	page = page.Normalize()
	items := []models.WishlistItem{}
	total, err := d.conn(ctx).NewSelect().
		Model(&items).
		Relation("Festival").
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.added_at DESC").
		Limit(page.Size).
		Offset(page.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, translate(err)
	}
	return items, total, nil
}

func (d *DB) WishlistContains(ctx context.Context, userID, festID string) (bool, error) {
	exists, err := d.conn(ctx).NewSelect().
		Model((*models.WishlistItem)(nil)).
		Where("user_id = ?", userID).
		Where("fest_id = ?", festID).
		Exists(ctx)
	return exists, translate(err)
}

func (d *DB) CountWishlist(ctx context.Context, userID string) (int, error) {
	n, err := d.conn(ctx).NewSelect().
		Model((*models.WishlistItem)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
	return n, translate(err)
}

func (d *DB) ClearWishlist(ctx context.Context, userID string) (int, error) {
	res, err := d.conn(ctx).NewDelete().
		Model((*models.WishlistItem)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, translate(err)
	}
	return rowsAffected(res), nil
}

func (d *DB) FindRecentlyViewed(ctx context.Context, userID, festID string) (*models.RecentlyViewed, error) {
	var rv models.RecentlyViewed
	err := d.conn(ctx).NewSelect().
		Model(&rv).
		Where("user_id = ?", userID).
		Where("fest_id = ?", festID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return &rv, nil
}

func (d *DB) CreateRecentlyViewed(ctx context.Context, rv *models.RecentlyViewed) error {
	_, err := d.conn(ctx).NewInsert().Model(rv).Exec(ctx)
	return translate(err)
}

func (d *DB) UpdateRecentlyViewed(ctx context.Context, rv *models.RecentlyViewed) error {
	_, err := d.conn(ctx).NewUpdate().
		Model(rv).
		Column("viewed_at", "view_count").
		WherePK().
		Exec(ctx)
	return translate(err)
}

// ListRecentlyViewed orders by recency, or by view count when byCount is set.
func (d *DB) ListRecentlyViewed(ctx context.Context, userID string, page models.Page, byCount bool) ([]models.RecentlyViewed, int, error) {
	page = page.Normalize()
	items := []models.RecentlyViewed{}
	q := d.conn(ctx).NewSelect().
		Model(&items).
		Relation("Festival").
		Where("?TableAlias.user_id = ?", userID)
	if byCount {
		q = q.OrderExpr("?TableAlias.view_count DESC, ?TableAlias.viewed_at DESC")
	} else {
		q = q.OrderExpr("?TableAlias.viewed_at DESC")
	}
	total, err := q.Limit(page.Size).Offset(page.Offset()).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, translate(err)
	}
	return items, total, nil
}

func (d *DB) DeleteRecentlyViewed(ctx context.Context, userID, festID string) error {
	res, err := d.conn(ctx).NewDelete().
		Model((*models.RecentlyViewed)(nil)).
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

func (d *DB) ClearRecentlyViewed(ctx context.Context, userID string) (int, error) {
	res, err := d.conn(ctx).NewDelete().
		Model((*models.RecentlyViewed)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, translate(err)
	}
	return rowsAffected(res), nil
}

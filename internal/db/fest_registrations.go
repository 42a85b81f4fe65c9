package db

import (
	"context"
	"strings"

	"ms-festbuzz/internal/models"

	"github.com/uptrace/bun"
)

func (d *DB) CreateFestRegistration(ctx context.Context, reg *models.FestRegistration) error {
	_, err := d.conn(ctx).NewInsert().Model(reg).Exec(ctx)
	return translate(err)
}

func (d *DB) GetFestRegistration(ctx context.Context, id string) (*models.FestRegistration, error) {
	var reg models.FestRegistration
	err := d.conn(ctx).NewSelect().
		Model(&reg).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (d *DB) FindFestRegistration(ctx context.Context, userID, festID string) (*models.FestRegistration, error) {
	var reg models.FestRegistration
	err := d.conn(ctx).NewSelect().
		Model(&reg).
		Where("user_id = ?", userID).
		Where("fest_id = ?", festID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (d *DB) DeleteFestRegistration(ctx context.Context, id string) error {
	res, err := d.conn(ctx).NewDelete().
		Model((*models.FestRegistration)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return translate(err)
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) ListFestRegistrationsByUser(ctx context.Context, userID string) ([]models.FestRegistration, error) {
	regs := []models.FestRegistration{}
	err := d.conn(ctx).NewSelect().
		Model(&regs).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	return regs, translate(err)
}

func (d *DB) CountFestRegistrations(ctx context.Context, festID string) (models.RegistrationCounts, error) {
	var rows []statusCount
	err := d.conn(ctx).NewSelect().
		Model((*models.FestRegistration)(nil)).
		Column("status").
		ColumnExpr("COUNT(*) AS n").
		Where("fest_id = ?", festID).
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return models.RegistrationCounts{}, translate(err)
	}

	var counts models.RegistrationCounts
	for _, r := range rows {
		addStatusCount(&counts, r.Status, r.N)
	}
	return counts, nil
}

// ListFestRegistrations pages through a festival's registrations. Search
// matches the registrant's name or email.
func (d *DB) ListFestRegistrations(ctx context.Context, festID string, f models.CandidateFilter) ([]models.FestRegistration, int, error) {
	page := f.Page.Normalize()
	regs := []models.FestRegistration{}

	q := d.conn(ctx).NewSelect().
		Model(&regs).
		Where("?TableAlias.fest_id = ?", festID)
	if f.Status != "" {
		q = q.Where("?TableAlias.status = ?", f.Status)
	}
	if f.Search != "" {
		q = q.Join("JOIN users AS u ON u.id = ?TableAlias.user_id")
		q = whereUserMatches(q, f.Search)
	}

	total, err := q.OrderExpr("?TableAlias.created_at DESC").
		Limit(page.Size).
		Offset(page.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, translate(err)
	}
	return regs, total, nil
}

func whereUserMatches(q *bun.SelectQuery, search string) *bun.SelectQuery {
	pattern := "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
	return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("LOWER(u.name) LIKE ?", pattern).WhereOr("LOWER(u.email) LIKE ?", pattern)
	})
}

type statusCount struct {
	Status models.RegistrationStatus `bun:"status"`
	Type   models.RegistrationType   `bun:"type"`
	N      int                       `bun:"n"`
}

func addStatusCount(c *models.RegistrationCounts, status models.RegistrationStatus, n int) {
	switch status {
	case models.RegistrationConfirmed:
		c.Confirmed += n
	case models.RegistrationPending:
		c.Pending += n
	case models.RegistrationCancelled:
		c.Cancelled += n
	}
	if status.Active() {
		c.Total += n
	}
}

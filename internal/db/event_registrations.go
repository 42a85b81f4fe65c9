package db

import (
	"context"
	"time"

	"ms-festbuzz/internal/models"

	"github.com/uptrace/bun"
)

func (d *DB) CreateEventRegistration(ctx context.Context, reg *models.EventRegistration) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	_, err := d.conn(ctx).NewInsert().Model(reg).Exec(ctx)
	return translate(err)
}

func (d *DB) GetEventRegistration(ctx context.Context, id string) (*models.EventRegistration, error) {
	var reg models.EventRegistration
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

// FindActiveEventRegistration returns the seat userID holds for eventID,
// whether solo or through a team.
func (d *DB) FindActiveEventRegistration(ctx context.Context, userID, eventID string) (*models.EventRegistration, error) {
	var reg models.EventRegistration
	err := d.conn(ctx).NewSelect().
		Model(&reg).
		Where("holder_id = ?", userID).
		Where("event_id = ?", eventID).
		Where("status IN (?)", bun.In(activeStatuses)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (d *DB) CountActiveEventRegistrations(ctx context.Context, eventID string) (int, error) {
	n, err := d.conn(ctx).NewSelect().
		Model((*models.EventRegistration)(nil)).
		Where("event_id = ?", eventID).
		Where("status IN (?)", bun.In(activeStatuses)).
		Count(ctx)
	return n, translate(err)
}

func (d *DB) CountActiveByFestRegistration(ctx context.Context, festRegistrationID string) (int, error) {
	n, err := d.conn(ctx).NewSelect().
		Model((*models.EventRegistration)(nil)).
		Where("fest_registration_id = ?", festRegistrationID).
		Where("status IN (?)", bun.In(activeStatuses)).
		Count(ctx)
	return n, translate(err)
}

func (d *DB) DeleteEventRegistration(ctx context.Context, id string) error {
	res, err := d.conn(ctx).NewDelete().
		Model((*models.EventRegistration)(nil)).
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

// DeleteEventRegistrationsByHolder removes every registration, in any status,
// that userID holds for the given events.
func (d *DB) DeleteEventRegistrationsByHolder(ctx context.Context, userID string, eventIDs []string) (int, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}
	res, err := d.conn(ctx).NewDelete().
		Model((*models.EventRegistration)(nil)).
		Where("holder_id = ?", userID).
		Where("event_id IN (?)", bun.In(eventIDs)).
		Exec(ctx)
	if err != nil {
		return 0, translate(err)
	}
	return rowsAffected(res), nil
}

// CancelTeamRegistrations soft-cancels the active seats of a team. An empty
// memberID cancels every member.
func (d *DB) CancelTeamRegistrations(ctx context.Context, teamID, memberID string) (int, error) {
	q := d.conn(ctx).NewUpdate().
		Model((*models.EventRegistration)(nil)).
		Set("status = ?", models.RegistrationCancelled).
		Set("updated_at = ?", time.Now().UTC()).
		Where("team_id = ?", teamID).
		Where("status IN (?)", bun.In(activeStatuses))
	if memberID != "" {
		q = q.Where("member_id = ?", memberID)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, translate(err)
	}
	return rowsAffected(res), nil
}

// SetTeamRole updates the role recorded on a member's active seat.
func (d *DB) SetTeamRole(ctx context.Context, teamID, memberID string, role models.TeamRole) error {
	_, err := d.conn(ctx).NewUpdate().
		Model((*models.EventRegistration)(nil)).
		Set("team_role = ?", role).
		Set("updated_at = ?", time.Now().UTC()).
		Where("team_id = ?", teamID).
		Where("member_id = ?", memberID).
		Where("status IN (?)", bun.In(activeStatuses)).
		Exec(ctx)
	return translate(err)
}

func (d *DB) ListEventRegistrationsByHolder(ctx context.Context, userID string) ([]models.EventRegistration, error) {
	regs := []models.EventRegistration{}
	err := d.conn(ctx).NewSelect().
		Model(&regs).
		Where("holder_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	return regs, translate(err)
}

func (d *DB) CountEventRegistrations(ctx context.Context, eventID string) (models.RegistrationCounts, error) {
	var rows []statusCount
	err := d.conn(ctx).NewSelect().
		Model((*models.EventRegistration)(nil)).
		Column("status", "type").
		ColumnExpr("COUNT(*) AS n").
		Where("event_id = ?", eventID).
		Group("status", "type").
		Scan(ctx, &rows)
	if err != nil {
		return models.RegistrationCounts{}, translate(err)
	}

	var counts models.RegistrationCounts
	for _, r := range rows {
		addStatusCount(&counts, r.Status, r.N)
		if !r.Status.Active() {
			continue
		}
		switch r.Type {
		case models.RegistrationSolo:
			counts.Solo += r.N
		case models.RegistrationTeam:
			counts.Team += r.N
		}
	}
	return counts, nil
}

func (d *DB) ListEventRegistrations(ctx context.Context, eventID string, f models.CandidateFilter) ([]models.EventRegistration, int, error) {
	page := f.Page.Normalize()
	regs := []models.EventRegistration{}

	q := d.conn(ctx).NewSelect().
		Model(&regs).
		Where("?TableAlias.event_id = ?", eventID)
	if f.Status != "" {
		q = q.Where("?TableAlias.status = ?", f.Status)
	}
	if f.Search != "" {
		q = q.Join("JOIN users AS u ON u.id = ?TableAlias.holder_id")
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

package db

import (
	"context"
	"encoding/json"

	"ms-festbuzz/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// validTeam checks a team before it is written. A team emptied by its last
// member leaving is about to be deleted and is let through.
func validTeam(team *models.Team) error {
	if len(team.Members) == 0 {
		return nil
	}
	return team.Validate()
}

func (d *DB) CreateTeam(ctx context.Context, team *models.Team) error {
	if err := validTeam(team); err != nil {
		return err
	}
	_, err := d.conn(ctx).NewInsert().Model(team).Exec(ctx)
	return translate(err)
}

func (d *DB) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	return d.getTeam(ctx, "id = ?", id, false)
}

// LockTeam loads the team and holds its row lock until the transaction ends.
func (d *DB) LockTeam(ctx context.Context, id string) (*models.Team, error) {
	return d.getTeam(ctx, "id = ?", id, true)
}

func (d *DB) GetTeamByCode(ctx context.Context, code string) (*models.Team, error) {
	return d.getTeam(ctx, "code = ?", code, false)
}

func (d *DB) getTeam(ctx context.Context, where, arg string, lock bool) (*models.Team, error) {
	var team models.Team
	q := d.conn(ctx).NewSelect().
		Model(&team).
		Where(where, arg).
		Limit(1)
	if lock {
		q = d.forUpdate(q)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, translate(err)
	}
	return &team, nil
}

func (d *DB) TeamCodeExists(ctx context.Context, code string) (bool, error) {
	exists, err := d.conn(ctx).NewSelect().
		Model((*models.Team)(nil)).
		Where("code = ?", code).
		Exists(ctx)
	return exists, translate(err)
}

func (d *DB) UpdateTeam(ctx context.Context, team *models.Team) error {
	if err := validTeam(team); err != nil {
		return err
	}
	res, err := d.conn(ctx).NewUpdate().
		Model(team).
		Column("name", "leader_id", "members", "status", "description", "notes", "updated_at").
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

func (d *DB) DeleteTeam(ctx context.Context, id string) error {
	res, err := d.conn(ctx).NewDelete().
		Model((*models.Team)(nil)).
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

// LockTeamsForMember loads and locks the teams, in any status, under eventIDs
// that list userID as a member. Other teams of those events stay unlocked.
func (d *DB) LockTeamsForMember(ctx context.Context, userID string, eventIDs []string) ([]models.Team, error) {
	teams := []models.Team{}
	if len(eventIDs) == 0 {
		return teams, nil
	}
	q := d.conn(ctx).NewSelect().
		Model(&teams).
		Where("event_id IN (?)", bun.In(eventIDs))
	if d.Bun.Dialect().Name() == dialect.PG {
		member, err := json.Marshal([]string{userID})
		if err != nil {
			return nil, err
		}
		q = q.Where("members @> ?::jsonb", string(member))
	} else {
		q = q.Where("EXISTS (SELECT 1 FROM json_each(team.members) WHERE json_each.value = ?)", userID)
	}
	err := d.forUpdate(q.Order("id ASC")).Scan(ctx)
	return teams, translate(err)
}

func (d *DB) ListTeamsByEvent(ctx context.Context, eventID string, statuses ...models.TeamStatus) ([]models.Team, error) {
	teams := []models.Team{}
	q := d.conn(ctx).NewSelect().
		Model(&teams).
		Where("event_id = ?", eventID)
	if len(statuses) > 0 {
		q = q.Where("status IN (?)", bun.In(statuses))
	}
	err := q.Order("created_at ASC").Scan(ctx)
	return teams, translate(err)
}

// ListTeamsForMember finds teams through the member's active team seats, so
// disbanded teams and teams the user left are excluded.
func (d *DB) ListTeamsForMember(ctx context.Context, userID string) ([]models.Team, error) {
	teams := []models.Team{}
	sub := d.conn(ctx).NewSelect().
		Model((*models.EventRegistration)(nil)).
		Column("team_id").
		Where("holder_id = ?", userID).
		Where("type = ?", models.RegistrationTeam).
		Where("status IN (?)", bun.In(activeStatuses))

	err := d.conn(ctx).NewSelect().
		Model(&teams).
		Where("id IN (?)", sub).
		Where("status != ?", models.TeamDisbanded).
		Order("created_at DESC").
		Scan(ctx)
	return teams, translate(err)
}

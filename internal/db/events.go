package db

import (
	"context"

	"ms-festbuzz/internal/models"

	"github.com/uptrace/bun"
)

func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	_, err := d.conn(ctx).NewInsert().Model(event).Exec(ctx)
	return translate(err)
}

func (d *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return d.getEvent(ctx, id, false)
}

// LockEvent loads the event and holds its row lock until the transaction ends.
func (d *DB) LockEvent(ctx context.Context, id string) (*models.Event, error) {
	return d.getEvent(ctx, id, true)
}

func (d *DB) getEvent(ctx context.Context, id string, lock bool) (*models.Event, error) {
	var event models.Event
	q := d.conn(ctx).NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1)
	if lock {
		q = d.forUpdate(q)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, translate(err)
	}
	return &event, nil
}

func (d *DB) UpdateEvent(ctx context.Context, event *models.Event) error {
	res, err := d.conn(ctx).NewUpdate().
		Model(event).
		ExcludeColumn("id", "fest_id", "created_by", "created_at").
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

func (d *DB) ListEvents(ctx context.Context, festID string, includeDrafts bool) ([]models.Event, error) {
	events := []models.Event{}
	q := d.conn(ctx).NewSelect().
		Model(&events).
		Where("fest_id = ?", festID)
	if !includeDrafts {
		q = q.Where("status = ?", models.EventPublished)
	}
	err := q.Order("start_date ASC", "created_at ASC").Scan(ctx)
	return events, translate(err)
}

func (d *DB) ListEventIDs(ctx context.Context, festID string) ([]string, error) {
	var ids []string
	err := d.conn(ctx).NewSelect().
		Model((*models.Event)(nil)).
		Column("id").
		Where("fest_id = ?", festID).
		Scan(ctx, &ids)
	return ids, translate(err)
}

// DeleteEvent removes the event and everything scoped to it. Callers check
// for active registrations first.
func (d *DB) DeleteEvent(ctx context.Context, id string) error {
	return d.RunInTx(ctx, func(ctx context.Context) error {
		if err := d.deleteEventChildren(ctx, []string{id}); err != nil {
			return err
		}
		res, err := d.conn(ctx).NewDelete().
			Model((*models.Event)(nil)).
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

// deleteEventChildren clears rows keyed by event id. SQLite test databases
// carry no foreign keys, so the cascade is spelled out here.
func (d *DB) deleteEventChildren(ctx context.Context, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	certs := d.conn(ctx).NewSelect().
		Model((*models.Certificate)(nil)).
		Column("id").
		Where("event_id IN (?)", bun.In(eventIDs))

	deletes := []*bun.DeleteQuery{
		d.conn(ctx).NewDelete().Model((*models.CertificateRecipient)(nil)).Where("certificate_id IN (?)", certs),
		d.conn(ctx).NewDelete().Model((*models.Certificate)(nil)).Where("event_id IN (?)", bun.In(eventIDs)),
		d.conn(ctx).NewDelete().Model((*models.EventRegistration)(nil)).Where("event_id IN (?)", bun.In(eventIDs)),
		d.conn(ctx).NewDelete().Model((*models.Team)(nil)).Where("event_id IN (?)", bun.In(eventIDs)),
	}
	for _, q := range deletes {
		if _, err := q.Exec(ctx); err != nil {
			return translate(err)
		}
	}
	return nil
}

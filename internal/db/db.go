// Package db is the bun-backed persistence layer. A transaction started with
// RunInTx travels in the context, so every query method joins it.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ms-festbuzz/internal/apperr"
	"ms-festbuzz/internal/models"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type DB struct {
	Bun *bun.DB
}

func New(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

type txKey struct{}

// conn returns the transaction carried by ctx, or the pool.
func (d *DB) conn(ctx context.Context) bun.IDB {
	if tx, ok := ctx.Value(txKey{}).(bun.Tx); ok {
		return tx
	}
	return d.Bun
}

// RunInTx runs fn in a transaction. Calls nested inside fn join the outer
// transaction. fn's error rolls everything back.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(bun.Tx); ok {
		return fn(ctx)
	}
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// forUpdate adds a row lock where the dialect supports one. SQLite serializes
// writers on its own.
func (d *DB) forUpdate(q *bun.SelectQuery) *bun.SelectQuery {
	if d.Bun.Dialect().Name() == dialect.PG {
		return q.For("UPDATE")
	}
	return q
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// AppError translates a store error for callers of the service layer.
// Errors that already carry a kind pass through; ErrNotFound and
// ErrDuplicate become notFound and duplicate when those are set.
func AppError(err error, notFound, duplicate string) error {
	var ae *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae):
		return err
	case notFound != "" && errors.Is(err, ErrNotFound):
		return apperr.NotFound("%s", notFound)
	case duplicate != "" && errors.Is(err, ErrDuplicate):
		return apperr.Conflict("%s", duplicate)
	}
	return apperr.Internal(err, "storage failure")
}

func rowsAffected(res sql.Result) int {
	if res == nil {
		return 0
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}

var activeStatuses = []models.RegistrationStatus{models.RegistrationPending, models.RegistrationConfirmed}

var tables = []any{
	(*models.User)(nil),
	(*models.Festival)(nil),
	(*models.Event)(nil),
	(*models.FestRegistration)(nil),
	(*models.EventRegistration)(nil),
	(*models.Team)(nil),
	(*models.FestivalUserRole)(nil),
	(*models.WishlistItem)(nil),
	(*models.RecentlyViewed)(nil),
	(*models.Certificate)(nil),
	(*models.CertificateRecipient)(nil),
}

// indexes mirror migrations/000001_init_schema.up.sql.
var indexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS event_registrations_active_holder_idx
		ON event_registrations (holder_id, event_id)
		WHERE status IN ('pending', 'confirmed')`,
	`CREATE INDEX IF NOT EXISTS event_registrations_event_idx ON event_registrations (event_id, status)`,
	`CREATE INDEX IF NOT EXISTS event_registrations_team_idx ON event_registrations (team_id)`,
	`CREATE INDEX IF NOT EXISTS event_registrations_fest_reg_idx ON event_registrations (fest_registration_id)`,
	`CREATE INDEX IF NOT EXISTS fest_registrations_fest_idx ON fest_registrations (fest_id, status)`,
	`CREATE INDEX IF NOT EXISTS events_fest_idx ON events (fest_id, status)`,
	`CREATE INDEX IF NOT EXISTS teams_event_idx ON teams (event_id, status)`,
	`CREATE INDEX IF NOT EXISTS festival_user_roles_fest_idx ON festival_user_roles (fest_id)`,
	`CREATE INDEX IF NOT EXISTS certificate_recipients_user_idx ON certificate_recipients (user_id)`,
}

// CreateSchema creates every table and index when missing. Production
// databases are managed by the SQL migrations instead.
func (d *DB) CreateSchema(ctx context.Context) error {
	for _, model := range tables {
		if _, err := d.Bun.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	for _, stmt := range indexes {
		if _, err := d.Bun.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// Package dbtest provides an in-memory SQLite database and fixtures for tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// New returns a migrated in-memory database closed at test cleanup.
func New(t testing.TB) *db.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	d := db.New(bunDB)
	require.NoError(t, d.CreateSchema(context.Background()))
	return d
}

func User(t testing.TB, d *db.DB, role models.Role) *models.User {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	u := &models.User{
		ID:        id,
		Name:      "user " + id[:8],
		Email:     fmt.Sprintf("%s@festbuzz.test", id[:8]),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, d.CreateUser(context.Background(), u))
	return u
}

func Festival(t testing.TB, d *db.DB, start time.Time) *models.Festival {
	t.Helper()
	now := time.Now().UTC()
	f := &models.Festival{
		ID:         uuid.NewString(),
		Name:       "Cognizance",
		Type:       "technical",
		Visibility: "public",
		Mode:       "offline",
		City:       "Roorkee",
		State:      "Uttarakhand",
		StartDate:  start,
		EndDate:    start.Add(72 * time.Hour),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, d.CreateFestival(context.Background(), f))
	return f
}

// Event creates a published solo event; opts may adjust it before insert.
func Event(t testing.TB, d *db.DB, fest *models.Festival, opts ...func(*models.Event)) *models.Event {
	t.Helper()
	now := time.Now().UTC()
	e := &models.Event{
		ID:          uuid.NewString(),
		FestID:      fest.ID,
		Name:        "Hackathon",
		Type:        "technical",
		Visibility:  "public",
		Mode:        "offline",
		Location:    "Main Building",
		Venue:       "LHC",
		StartDate:   fest.StartDate,
		Status:      models.EventPublished,
		PublishedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, opt := range opts {
		opt(e)
	}
	require.NoError(t, d.CreateEvent(context.Background(), e))
	return e
}

func TeamEvent(size int) func(*models.Event) {
	return func(e *models.Event) {
		e.IsTeamEvent = true
		e.TeamSize = size
	}
}

func Draft(e *models.Event) {
	e.Status = models.EventDraft
	e.PublishedAt = time.Time{}
}

func Capacity(n int) func(*models.Event) {
	return func(e *models.Event) { e.Capacity = n }
}

func PersonalInfo() models.PersonalInfo {
	return models.PersonalInfo{
		Phone:         "9876543210",
		DateOfBirth:   "2003-08-21",
		Gender:        models.GenderMale,
		City:          "Roorkee",
		State:         "Uttarakhand",
		InstituteName: "IIT Roorkee",
	}
}

// SoloRegistration inserts a confirmed solo seat for userID, without a fest
// registration.
func SoloRegistration(t testing.TB, d *db.DB, event *models.Event, userID string) *models.EventRegistration {
	t.Helper()
	reg := models.NewEventRegistration(event, "", models.Solo{UserID: userID}, time.Now().UTC())
	require.NoError(t, d.CreateEventRegistration(context.Background(), reg))
	return reg
}

package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"planetarium-service/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open SQLite: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.User)(nil),
		(*models.Dome)(nil),
		(*models.ShowTheme)(nil),
		(*models.Show)(nil),
		(*models.ShowThemeLink)(nil),
		(*models.ShowSession)(nil),
		(*models.Reservation)(nil),
		(*models.Ticket)(nil),
	} {
		if err := bunDB.ResetModel(ctx, model); err != nil {
			t.Fatalf("Failed to create table for %T: %v", model, err)
		}
	}

	return &DB{Bun: bunDB}
}

func seedSession(t *testing.T, d *DB, rows, seatsInRow int) (domeID, sessionID string) {
	t.Helper()
	ctx := context.Background()

	dome := models.Dome{ID: "dome-1", Name: "Main Dome", Rows: rows, SeatsInRow: seatsInRow}
	if err := d.CreateDome(ctx, dome); err != nil {
		t.Fatalf("Failed to create dome: %v", err)
	}

	show := models.Show{ID: "show-1", Title: "Stars Tonight", Description: "A tour of the night sky"}
	if err := d.CreateShow(ctx, show, nil); err != nil {
		t.Fatalf("Failed to create show: %v", err)
	}

	session := models.ShowSession{
		ID:       "session-1",
		ShowID:   show.ID,
		DomeID:   dome.ID,
		ShowTime: time.Now().Add(24 * time.Hour).UTC(),
	}
	if err := d.CreateSession(ctx, session); err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	return dome.ID, session.ID
}

func insertTicket(t *testing.T, d *DB, sessionID string, row, seat int) {
	t.Helper()
	ctx := context.Background()

	ticket := models.Ticket{
		TicketID:      "ticket-" + time.Now().Format("150405.000000000"),
		ReservationID: "res-1",
		ShowSessionID: sessionID,
		Row:           row,
		Seat:          seat,
		IssuedAt:      time.Now().UTC(),
	}
	if _, err := d.Bun.NewInsert().Model(&ticket).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert ticket: %v", err)
	}
}

func TestSessionAvailabilityEmptySession(t *testing.T) {
	d := setupTestDB(t)
	_, sessionID := seedSession(t, d, 10, 20)

	available, err := d.SessionAvailability(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Failed to compute availability: %v", err)
	}
	if available != 200 {
		t.Errorf("Expected 200 available seats, got %d", available)
	}
}

func TestSessionAvailabilityDecreasesWithTickets(t *testing.T) {
	d := setupTestDB(t)
	_, sessionID := seedSession(t, d, 10, 20)

	insertTicket(t, d, sessionID, 1, 1)

	available, err := d.SessionAvailability(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Failed to compute availability: %v", err)
	}
	if available != 199 {
		t.Errorf("Expected 199 available seats after one booking, got %d", available)
	}
}

func TestSessionAvailabilityZeroGeometry(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	dome := models.Dome{ID: "dome-flat", Name: "Flat Dome", Rows: 0, SeatsInRow: 20}
	if err := d.CreateDome(ctx, dome); err != nil {
		t.Fatalf("Failed to create dome: %v", err)
	}
	show := models.Show{ID: "show-z", Title: "Zero"}
	if err := d.CreateShow(ctx, show, nil); err != nil {
		t.Fatalf("Failed to create show: %v", err)
	}
	session := models.ShowSession{ID: "session-z", ShowID: show.ID, DomeID: dome.ID, ShowTime: time.Now().UTC()}
	if err := d.CreateSession(ctx, session); err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	available, err := d.SessionAvailability(ctx, session.ID)
	if err != nil {
		t.Fatalf("Failed to compute availability: %v", err)
	}
	if available != 0 {
		t.Errorf("Expected 0 available seats for zero-row dome, got %d", available)
	}
}

func TestSessionAvailabilityIdempotentReads(t *testing.T) {
	d := setupTestDB(t)
	_, sessionID := seedSession(t, d, 5, 5)
	insertTicket(t, d, sessionID, 2, 3)

	ctx := context.Background()
	first, err := d.SessionAvailability(ctx, sessionID)
	if err != nil {
		t.Fatalf("Failed to compute availability: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := d.SessionAvailability(ctx, sessionID)
		if err != nil {
			t.Fatalf("Failed to recompute availability: %v", err)
		}
		if again != first {
			t.Errorf("Availability changed between identical reads: %d then %d", first, again)
		}
	}
}

func TestSessionAvailabilityTracksDomeGeometryChanges(t *testing.T) {
	d := setupTestDB(t)
	domeID, sessionID := seedSession(t, d, 10, 20)
	ctx := context.Background()

	// Geometry is borrowed at query time, so shrinking the dome changes
	// every existing session's availability.
	if err := d.UpdateDome(ctx, models.Dome{ID: domeID, Name: "Main Dome", Rows: 2, SeatsInRow: 2}); err != nil {
		t.Fatalf("Failed to update dome: %v", err)
	}

	available, err := d.SessionAvailability(ctx, sessionID)
	if err != nil {
		t.Fatalf("Failed to compute availability: %v", err)
	}
	if available != 4 {
		t.Errorf("Expected availability 4 after dome shrink, got %d", available)
	}
}

func TestListSessionsResolvesNamesAndAvailability(t *testing.T) {
	d := setupTestDB(t)
	_, sessionID := seedSession(t, d, 10, 20)
	insertTicket(t, d, sessionID, 1, 1)
	insertTicket(t, d, sessionID, 1, 2)

	items, err := d.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(items))
	}

	item := items[0]
	if item.ShowTitle != "Stars Tonight" {
		t.Errorf("Expected show title 'Stars Tonight', got %q", item.ShowTitle)
	}
	if item.DomeName != "Main Dome" {
		t.Errorf("Expected dome name 'Main Dome', got %q", item.DomeName)
	}
	if item.TicketsAvailable != 198 {
		t.Errorf("Expected 198 tickets available, got %d", item.TicketsAvailable)
	}
}

func TestListShowsResolvesThemeNames(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	for _, theme := range []models.ShowTheme{
		{ID: "theme-1", Name: "Galaxies"},
		{ID: "theme-2", Name: "Black Holes"},
	} {
		if err := d.CreateTheme(ctx, theme); err != nil {
			t.Fatalf("Failed to create theme: %v", err)
		}
	}

	show := models.Show{ID: "show-1", Title: "Deep Sky"}
	if err := d.CreateShow(ctx, show, []string{"theme-1", "theme-2"}); err != nil {
		t.Fatalf("Failed to create show: %v", err)
	}

	items, err := d.ListShows(ctx)
	if err != nil {
		t.Fatalf("Failed to list shows: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 show, got %d", len(items))
	}
	if len(items[0].ThemeNames) != 2 {
		t.Fatalf("Expected 2 theme names, got %v", items[0].ThemeNames)
	}
	if items[0].ThemeNames[0] != "Black Holes" || items[0].ThemeNames[1] != "Galaxies" {
		t.Errorf("Expected sorted theme names, got %v", items[0].ThemeNames)
	}
}

func TestDomeCRUDAndNotFound(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	if _, err := d.GetDomeByID(ctx, "missing"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound for missing dome, got %v", err)
	}

	dome := models.Dome{ID: "dome-1", Name: "Main Dome", Rows: 3, SeatsInRow: 4}
	if err := d.CreateDome(ctx, dome); err != nil {
		t.Fatalf("Failed to create dome: %v", err)
	}

	got, err := d.GetDomeByID(ctx, "dome-1")
	if err != nil {
		t.Fatalf("Failed to get dome: %v", err)
	}
	if got.Capacity() != 12 {
		t.Errorf("Expected capacity 12, got %d", got.Capacity())
	}

	if err := d.SetDomeImage(ctx, "dome-1", []byte{0x89, 0x50, 0x4e, 0x47}); err != nil {
		t.Fatalf("Failed to set dome image: %v", err)
	}
	got, err = d.GetDomeByID(ctx, "dome-1")
	if err != nil {
		t.Fatalf("Failed to re-get dome: %v", err)
	}
	if len(got.Image) != 4 {
		t.Errorf("Expected stored image of 4 bytes, got %d", len(got.Image))
	}

	if err := d.DeleteDome(ctx, "dome-1"); err != nil {
		t.Fatalf("Failed to delete dome: %v", err)
	}
	if err := d.DeleteDome(ctx, "dome-1"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound on double delete, got %v", err)
	}
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"planetarium-service/internal/booking"
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
		(*models.Show)(nil),
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

type fixture struct {
	userID    string
	sessionID string
}

func seedFixture(t *testing.T, d *DB, rows, seatsInRow int) fixture {
	t.Helper()
	ctx := context.Background()

	user := models.User{ID: "user-1", Email: "astro@example.com", PasswordHash: "hash", CreatedAt: time.Now().UTC()}
	if _, err := d.Bun.NewInsert().Model(&user).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}

	dome := models.Dome{ID: "dome-1", Name: "Main Dome", Rows: rows, SeatsInRow: seatsInRow}
	if _, err := d.Bun.NewInsert().Model(&dome).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert dome: %v", err)
	}

	show := models.Show{ID: "show-1", Title: "Stars Tonight"}
	if _, err := d.Bun.NewInsert().Model(&show).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert show: %v", err)
	}

	session := models.ShowSession{ID: "session-1", ShowID: show.ID, DomeID: dome.ID, ShowTime: time.Now().Add(24 * time.Hour).UTC()}
	if _, err := d.Bun.NewInsert().Model(&session).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert session: %v", err)
	}

	return fixture{userID: user.ID, sessionID: session.ID}
}

func newReservation(userID string) models.Reservation {
	return models.Reservation{ID: uuid.NewString(), UserID: userID, CreatedAt: time.Now().UTC()}
}

func newTicket(reservationID, sessionID string, row, seat int) models.Ticket {
	return models.Ticket{
		TicketID:      uuid.NewString(),
		ReservationID: reservationID,
		ShowSessionID: sessionID,
		Row:           row,
		Seat:          seat,
		IssuedAt:      time.Now().UTC(),
	}
}

func TestSessionGeometry(t *testing.T) {
	d := setupTestDB(t)
	fx := seedFixture(t, d, 10, 20)
	ctx := context.Background()

	geom, err := d.SessionGeometry(ctx, fx.sessionID)
	if err != nil {
		t.Fatalf("Failed to resolve geometry: %v", err)
	}
	if geom.Rows != 10 || geom.SeatsInRow != 20 {
		t.Errorf("Expected 10x20 grid, got %dx%d", geom.Rows, geom.SeatsInRow)
	}

	if _, err := d.SessionGeometry(ctx, "missing"); !errors.Is(err, booking.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing session, got %v", err)
	}
}

func TestCreateReservationPersistsAllTickets(t *testing.T) {
	d := setupTestDB(t)
	fx := seedFixture(t, d, 10, 20)
	ctx := context.Background()

	res := newReservation(fx.userID)
	tickets := []models.Ticket{
		newTicket(res.ID, fx.sessionID, 1, 1),
		newTicket(res.ID, fx.sessionID, 1, 2),
	}

	if err := d.CreateReservation(ctx, res, tickets); err != nil {
		t.Fatalf("Failed to create reservation: %v", err)
	}

	count, err := d.CountTicketsForSession(ctx, fx.sessionID)
	if err != nil {
		t.Fatalf("Failed to count tickets: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 committed tickets, got %d", count)
	}
}

func TestCreateReservationRejectsDuplicateSeat(t *testing.T) {
	d := setupTestDB(t)
	fx := seedFixture(t, d, 10, 20)
	ctx := context.Background()

	first := newReservation(fx.userID)
	if err := d.CreateReservation(ctx, first, []models.Ticket{newTicket(first.ID, fx.sessionID, 1, 1)}); err != nil {
		t.Fatalf("Failed to create first reservation: %v", err)
	}

	second := newReservation(fx.userID)
	err := d.CreateReservation(ctx, second, []models.Ticket{newTicket(second.ID, fx.sessionID, 1, 1)})
	if !errors.Is(err, booking.ErrSeatTaken) {
		t.Fatalf("Expected ErrSeatTaken, got %v", err)
	}

	count, err := d.CountTicketsForSession(ctx, fx.sessionID)
	if err != nil {
		t.Fatalf("Failed to count tickets: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected ticket count unchanged at 1, got %d", count)
	}

	if _, err := d.GetReservation(ctx, second.ID, fx.userID); !errors.Is(err, booking.ErrNotFound) {
		t.Errorf("Expected rejected reservation to be rolled back, got %v", err)
	}
}

func TestCreateReservationBatchIsAllOrNothing(t *testing.T) {
	d := setupTestDB(t)
	fx := seedFixture(t, d, 10, 20)
	ctx := context.Background()

	first := newReservation(fx.userID)
	if err := d.CreateReservation(ctx, first, []models.Ticket{newTicket(first.ID, fx.sessionID, 3, 7)}); err != nil {
		t.Fatalf("Failed to create first reservation: %v", err)
	}

	// Second ticket of the batch collides; the first must not survive.
	batch := newReservation(fx.userID)
	err := d.CreateReservation(ctx, batch, []models.Ticket{
		newTicket(batch.ID, fx.sessionID, 2, 1),
		newTicket(batch.ID, fx.sessionID, 3, 7),
		newTicket(batch.ID, fx.sessionID, 2, 2),
	})
	if !errors.Is(err, booking.ErrSeatTaken) {
		t.Fatalf("Expected ErrSeatTaken, got %v", err)
	}

	count, err := d.CountTicketsForSession(ctx, fx.sessionID)
	if err != nil {
		t.Fatalf("Failed to count tickets: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected only the original ticket, got %d", count)
	}
}

func TestUniqueConstraintBackstop(t *testing.T) {
	d := setupTestDB(t)
	fx := seedFixture(t, d, 10, 20)
	ctx := context.Background()

	res := newReservation(fx.userID)
	if _, err := d.Bun.NewInsert().Model(&res).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert reservation: %v", err)
	}

	taken := newTicket(res.ID, fx.sessionID, 5, 5)
	if _, err := d.Bun.NewInsert().Model(&taken).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert first ticket: %v", err)
	}

	// Raw insert bypasses the pre-check; the UNIQUE constraint must stop it
	// and the violation must be recognizable.
	dup := newTicket(res.ID, fx.sessionID, 5, 5)
	_, err := d.Bun.NewInsert().Model(&dup).Exec(ctx)
	if err == nil {
		t.Fatal("Expected unique constraint violation")
	}
	if !booking.IsUniqueViolation(err) {
		t.Errorf("Expected IsUniqueViolation to recognize %v", err)
	}
}

func TestAddTicketRejectsTakenSeat(t *testing.T) {
	d := setupTestDB(t)
	fx := seedFixture(t, d, 10, 20)
	ctx := context.Background()

	res := newReservation(fx.userID)
	if err := d.CreateReservation(ctx, res, []models.Ticket{newTicket(res.ID, fx.sessionID, 4, 4)}); err != nil {
		t.Fatalf("Failed to create reservation: %v", err)
	}

	if err := d.AddTicket(ctx, newTicket(res.ID, fx.sessionID, 4, 4)); !errors.Is(err, booking.ErrSeatTaken) {
		t.Fatalf("Expected ErrSeatTaken, got %v", err)
	}
	if err := d.AddTicket(ctx, newTicket(res.ID, fx.sessionID, 4, 5)); err != nil {
		t.Fatalf("Expected adjacent seat to book, got %v", err)
	}
}

func TestDeleteReservationCascadesTickets(t *testing.T) {
	d := setupTestDB(t)
	fx := seedFixture(t, d, 10, 20)
	ctx := context.Background()

	res := newReservation(fx.userID)
	if err := d.CreateReservation(ctx, res, []models.Ticket{
		newTicket(res.ID, fx.sessionID, 1, 1),
		newTicket(res.ID, fx.sessionID, 1, 2),
	}); err != nil {
		t.Fatalf("Failed to create reservation: %v", err)
	}

	if err := d.DeleteReservation(ctx, res.ID, fx.userID); err != nil {
		t.Fatalf("Failed to delete reservation: %v", err)
	}

	count, err := d.CountTicketsForSession(ctx, fx.sessionID)
	if err != nil {
		t.Fatalf("Failed to count tickets: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected tickets cascaded away, got %d remaining", count)
	}

	// Freed seats are bookable again.
	rebook := newReservation(fx.userID)
	if err := d.CreateReservation(ctx, rebook, []models.Ticket{newTicket(rebook.ID, fx.sessionID, 1, 1)}); err != nil {
		t.Fatalf("Expected freed seat to rebook, got %v", err)
	}
}

func TestDeleteReservationScopedToOwner(t *testing.T) {
	d := setupTestDB(t)
	fx := seedFixture(t, d, 10, 20)
	ctx := context.Background()

	other := models.User{ID: "user-2", Email: "other@example.com", PasswordHash: "hash", CreatedAt: time.Now().UTC()}
	if _, err := d.Bun.NewInsert().Model(&other).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert second user: %v", err)
	}

	res := newReservation(fx.userID)
	if err := d.CreateReservation(ctx, res, []models.Ticket{newTicket(res.ID, fx.sessionID, 2, 2)}); err != nil {
		t.Fatalf("Failed to create reservation: %v", err)
	}

	if err := d.DeleteReservation(ctx, res.ID, other.ID); !errors.Is(err, booking.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for foreign reservation, got %v", err)
	}
	if _, err := d.GetReservation(ctx, res.ID, other.ID); !errors.Is(err, booking.ErrNotFound) {
		t.Errorf("Expected ErrNotFound reading foreign reservation, got %v", err)
	}
	if _, err := d.GetReservation(ctx, res.ID, fx.userID); err != nil {
		t.Errorf("Expected owner read to succeed, got %v", err)
	}
}

func TestListReservationsPaginates(t *testing.T) {
	d := setupTestDB(t)
	fx := seedFixture(t, d, 10, 20)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res := models.Reservation{
			ID:        uuid.NewString(),
			UserID:    fx.userID,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Minute).UTC(),
		}
		ticket := newTicket(res.ID, fx.sessionID, i+1, 1)
		if err := d.CreateReservation(ctx, res, []models.Ticket{ticket}); err != nil {
			t.Fatalf("Failed to create reservation %d: %v", i, err)
		}
	}

	page, total, err := d.ListReservations(ctx, fx.userID, 2, 0)
	if err != nil {
		t.Fatalf("Failed to list reservations: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected total 3, got %d", total)
	}
	if len(page) != 2 {
		t.Fatalf("Expected 2 results on first page, got %d", len(page))
	}
	if len(page[0].Tickets) != 1 {
		t.Errorf("Expected tickets attached, got %d", len(page[0].Tickets))
	}
	if !page[0].Reservation.CreatedAt.After(page[1].Reservation.CreatedAt) {
		t.Error("Expected newest reservation first")
	}

	rest, _, err := d.ListReservations(ctx, fx.userID, 2, 2)
	if err != nil {
		t.Fatalf("Failed to list second page: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("Expected 1 result on second page, got %d", len(rest))
	}
}

func TestTicketQueriesScopedToOwner(t *testing.T) {
	d := setupTestDB(t)
	fx := seedFixture(t, d, 10, 20)
	ctx := context.Background()

	other := models.User{ID: "user-2", Email: "other@example.com", PasswordHash: "hash", CreatedAt: time.Now().UTC()}
	if _, err := d.Bun.NewInsert().Model(&other).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert second user: %v", err)
	}

	res := newReservation(fx.userID)
	ticket := newTicket(res.ID, fx.sessionID, 6, 6)
	if err := d.CreateReservation(ctx, res, []models.Ticket{ticket}); err != nil {
		t.Fatalf("Failed to create reservation: %v", err)
	}

	got, err := d.GetTicketByUser(ctx, ticket.TicketID, fx.userID)
	if err != nil {
		t.Fatalf("Failed to get own ticket: %v", err)
	}
	if got.Row != 6 || got.Seat != 6 {
		t.Errorf("Expected seat 6-6, got %d-%d", got.Row, got.Seat)
	}

	if _, err := d.GetTicketByUser(ctx, ticket.TicketID, other.ID); !errors.Is(err, booking.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for foreign ticket, got %v", err)
	}

	items, err := d.ListTicketsByUser(ctx, fx.userID)
	if err != nil {
		t.Fatalf("Failed to list tickets: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 ticket, got %d", len(items))
	}
	if items[0].ShowTitle != "Stars Tonight" {
		t.Errorf("Expected resolved show title, got %q", items[0].ShowTitle)
	}
	if items[0].OwnerMail != "astro@example.com" {
		t.Errorf("Expected resolved owner email, got %q", items[0].OwnerMail)
	}

	foreign, err := d.ListTicketsByUser(ctx, other.ID)
	if err != nil {
		t.Fatalf("Failed to list foreign tickets: %v", err)
	}
	if len(foreign) != 0 {
		t.Errorf("Expected no tickets for other user, got %d", len(foreign))
	}
}

func TestDeleteTicketFreesSeat(t *testing.T) {
	d := setupTestDB(t)
	fx := seedFixture(t, d, 10, 20)
	ctx := context.Background()

	res := newReservation(fx.userID)
	ticket := newTicket(res.ID, fx.sessionID, 7, 7)
	if err := d.CreateReservation(ctx, res, []models.Ticket{ticket}); err != nil {
		t.Fatalf("Failed to create reservation: %v", err)
	}

	if err := d.DeleteTicketByUser(ctx, ticket.TicketID, "someone-else"); !errors.Is(err, booking.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting foreign ticket, got %v", err)
	}

	if err := d.DeleteTicketByUser(ctx, ticket.TicketID, fx.userID); err != nil {
		t.Fatalf("Failed to delete ticket: %v", err)
	}

	if err := d.AddTicket(ctx, newTicket(res.ID, fx.sessionID, 7, 7)); err != nil {
		t.Fatalf("Expected freed seat to rebook, got %v", err)
	}
}

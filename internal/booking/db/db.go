package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"planetarium-service/internal/booking"
	"planetarium-service/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// SessionGeometry resolves a session to the current seating grid of its
// dome. Geometry is read fresh on every call: dome edits apply to existing
// sessions immediately.
func (d *DB) SessionGeometry(ctx context.Context, sessionID string) (*models.SessionGeometry, error) {
	var geom models.SessionGeometry
	err := d.Bun.NewSelect().
		ColumnExpr("s.id AS session_id").
		ColumnExpr("dm.id AS dome_id").
		ColumnExpr(`dm."rows"`).
		ColumnExpr("dm.seats_in_row").
		TableExpr("show_sessions AS s").
		Join("JOIN domes AS dm ON dm.id = s.dome_id").
		Where("s.id = ?", sessionID).
		Scan(ctx, &geom)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrNotFound
		}
		return nil, err
	}
	return &geom, nil
}

// CreateReservation commits a reservation and all of its tickets in one
// transaction. Each ticket is probed for an existing claim before the
// insert; the UNIQUE (show_session_id, row, seat) constraint backstops any
// race the probe misses, and its violation is re-expressed as the same
// duplicate-seat rejection. Any failure rolls back the whole batch.
func (d *DB) CreateReservation(ctx context.Context, res models.Reservation, tickets []models.Ticket) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewInsert().Model(&res).Exec(ctx); err != nil {
				return fmt.Errorf("failed to create reservation: %w", err)
			}
			for i := range tickets {
				if err := insertTicketTx(ctx, tx, &tickets[i]); err != nil {
					return err
				}
			}
			return nil
		})
}

// AddTicket commits a single ticket into an existing reservation under the
// same check-then-insert discipline.
func (d *DB) AddTicket(ctx context.Context, ticket models.Ticket) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		func(ctx context.Context, tx bun.Tx) error {
			return insertTicketTx(ctx, tx, &ticket)
		})
}

func insertTicketTx(ctx context.Context, tx bun.Tx, ticket *models.Ticket) error {
	taken, err := tx.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("show_session_id = ?", ticket.ShowSessionID).
		Where(`"row" = ?`, ticket.Row).
		Where("seat = ?", ticket.Seat).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check seat %d-%d: %w", ticket.Row, ticket.Seat, err)
	}
	if taken {
		return booking.ErrSeatTaken
	}

	if _, err := tx.NewInsert().Model(ticket).Exec(ctx); err != nil {
		if booking.IsUniqueViolation(err) {
			return booking.ErrSeatTaken
		}
		return fmt.Errorf("failed to insert ticket: %w", err)
	}
	return nil
}

// GetReservation returns a reservation only to its owner.
func (d *DB) GetReservation(ctx context.Context, id, userID string) (*models.Reservation, error) {
	var res models.Reservation
	err := d.Bun.NewSelect().
		Model(&res).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

// DeleteReservation removes a reservation and cascades to its tickets.
func (d *DB) DeleteReservation(ctx context.Context, id, userID string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*models.Reservation)(nil)).
			Where("id = ?", id).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return booking.ErrNotFound
		}

		_, err = tx.NewDelete().
			Model((*models.Ticket)(nil)).
			Where("reservation_id = ?", id).
			Exec(ctx)
		return err
	})
}

// ListReservations pages through one user's reservations, newest first,
// with their tickets attached.
func (d *DB) ListReservations(ctx context.Context, userID string, limit, offset int) ([]models.ReservationWithTickets, int, error) {
	var reservations []models.Reservation
	total, err := d.Bun.NewSelect().
		Model(&reservations).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	if len(reservations) == 0 {
		return []models.ReservationWithTickets{}, total, nil
	}

	reservationIDs := make([]string, len(reservations))
	for i, res := range reservations {
		reservationIDs[i] = res.ID
	}

	var tickets []models.Ticket
	err = d.Bun.NewSelect().
		Model(&tickets).
		Where("reservation_id IN (?)", bun.In(reservationIDs)).
		Order("reservation_id", "issued_at").
		Scan(ctx)
	if err != nil {
		return nil, 0, err
	}

	ticketsByReservation := make(map[string][]models.TicketResponse)
	for i := range tickets {
		ticketsByReservation[tickets[i].ReservationID] =
			append(ticketsByReservation[tickets[i].ReservationID], tickets[i].ToResponse())
	}

	result := make([]models.ReservationWithTickets, len(reservations))
	for i, res := range reservations {
		result[i] = models.ReservationWithTickets{
			Reservation: res,
			Tickets:     ticketsByReservation[res.ID],
		}
		if result[i].Tickets == nil {
			result[i].Tickets = []models.TicketResponse{}
		}
	}

	return result, total, nil
}

// ---------------- TICKETS ----------------

// ListTicketsByUser resolves each ticket to its show title and owner email,
// scoped to the requesting user's reservations.
func (d *DB) ListTicketsByUser(ctx context.Context, userID string) ([]models.TicketListItem, error) {
	var items []models.TicketListItem
	err := d.Bun.NewSelect().
		ColumnExpr("t.ticket_id").
		ColumnExpr(`t."row"`).
		ColumnExpr("t.seat").
		ColumnExpr("sh.title AS show_title").
		ColumnExpr("u.email AS owner_email").
		TableExpr("tickets AS t").
		Join("JOIN reservations AS res ON res.id = t.reservation_id").
		Join("JOIN users AS u ON u.id = res.user_id").
		Join("JOIN show_sessions AS s ON s.id = t.show_session_id").
		Join("JOIN shows AS sh ON sh.id = s.show_id").
		Where("res.user_id = ?", userID).
		Order("t.issued_at").
		Scan(ctx, &items)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.TicketListItem{}
	}
	return items, nil
}

// GetTicketByUser returns a ticket only if it belongs to one of the user's
// reservations.
func (d *DB) GetTicketByUser(ctx context.Context, ticketID, userID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Join("JOIN reservations AS res ON res.id = ticket.reservation_id").
		Where("ticket.ticket_id = ?", ticketID).
		Where("res.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// DeleteTicketByUser frees a seat by removing the ticket; the next
// availability read picks the change up automatically.
func (d *DB) DeleteTicketByUser(ctx context.Context, ticketID, userID string) error {
	ticket, err := d.GetTicketByUser(ctx, ticketID, userID)
	if err != nil {
		return err
	}

	_, err = d.Bun.NewDelete().
		Model((*models.Ticket)(nil)).
		Where("ticket_id = ?", ticket.TicketID).
		Exec(ctx)
	return err
}

// CountTicketsForSession recounts committed tickets; used by tests and the
// availability invariant checks.
func (d *DB) CountTicketsForSession(ctx context.Context, sessionID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("show_session_id = ?", sessionID).
		Count(ctx)
}

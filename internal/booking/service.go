package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"planetarium-service/internal/booking/qr"
	"planetarium-service/internal/models"
)

type DBLayer interface {
	SessionGeometry(ctx context.Context, sessionID string) (*models.SessionGeometry, error)
	CreateReservation(ctx context.Context, res models.Reservation, tickets []models.Ticket) error
	AddTicket(ctx context.Context, ticket models.Ticket) error
	GetReservation(ctx context.Context, id, userID string) (*models.Reservation, error)
	DeleteReservation(ctx context.Context, id, userID string) error
	ListReservations(ctx context.Context, userID string, limit, offset int) ([]models.ReservationWithTickets, int, error)
	ListTicketsByUser(ctx context.Context, userID string) ([]models.TicketListItem, error)
	GetTicketByUser(ctx context.Context, ticketID, userID string) (*models.Ticket, error)
	DeleteTicketByUser(ctx context.Context, ticketID, userID string) error
}

// EventPublisher streams booking lifecycle events. Publish failures must
// never fail a committed booking.
type EventPublisher interface {
	PublishReservationCreated(topic string, res models.Reservation, tickets []models.TicketResponse) error
	PublishReservationCancelled(topic string, res models.Reservation) error
	PublishTicketCancelled(topic string, ticket models.TicketResponse) error
}

type Topics struct {
	ReservationCreated   string
	ReservationCancelled string
	TicketCancelled      string
}

type Service struct {
	DB     DBLayer
	Events EventPublisher
	QR     *qr.Generator
	Topics Topics
}

func NewService(db DBLayer, events EventPublisher, qrGen *qr.Generator, topics Topics) *Service {
	return &Service{DB: db, Events: events, QR: qrGen, Topics: topics}
}

// validateGeometry checks one proposed seat against the session's dome
// grid. Row is checked before seat so the first offending field is named.
func validateGeometry(geom *models.SessionGeometry, row, seat int) error {
	if row < 1 || row > geom.Rows {
		return &GeometryError{Field: "row", Value: row, Max: geom.Rows}
	}
	if seat < 1 || seat > geom.SeatsInRow {
		return &GeometryError{Field: "seat", Value: seat, Max: geom.SeatsInRow}
	}
	return nil
}

// CreateReservation validates and commits a batch of tickets atomically:
// either every ticket passes geometry and uniqueness and all are committed,
// or nothing persists.
func (s *Service) CreateReservation(ctx context.Context, userID string, req models.ReservationRequest) (*models.ReservationResponse, error) {
	if len(req.Tickets) == 0 {
		return nil, ErrEmptyReservation
	}

	reservation := models.Reservation{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	tickets, err := s.buildTickets(ctx, reservation.ID, req.Tickets)
	if err != nil {
		return nil, err
	}

	if err := s.DB.CreateReservation(ctx, reservation, tickets); err != nil {
		return nil, err
	}

	responses := make([]models.TicketResponse, len(tickets))
	for i := range tickets {
		responses[i] = tickets[i].ToResponse()
	}

	if s.Events != nil {
		if err := s.Events.PublishReservationCreated(s.Topics.ReservationCreated, reservation, responses); err != nil {
			fmt.Printf("Kafka publish error (reservation created): %v\n", err)
		}
	}

	return &models.ReservationResponse{
		ID:        reservation.ID,
		CreatedAt: reservation.CreatedAt,
		Tickets:   responses,
	}, nil
}

// buildTickets runs the geometry precondition for every proposed ticket and
// materializes the rows to insert, QR codes included. Geometry of each
// session is fetched once per request.
func (s *Service) buildTickets(ctx context.Context, reservationID string, reqs []models.TicketRequest) ([]models.Ticket, error) {
	geometries := make(map[string]*models.SessionGeometry)
	tickets := make([]models.Ticket, 0, len(reqs))
	now := time.Now().UTC()

	for _, treq := range reqs {
		geom, ok := geometries[treq.ShowSessionID]
		if !ok {
			var err error
			geom, err = s.DB.SessionGeometry(ctx, treq.ShowSessionID)
			if err != nil {
				return nil, fmt.Errorf("session %s: %w", treq.ShowSessionID, err)
			}
			geometries[treq.ShowSessionID] = geom
		}

		if err := validateGeometry(geom, treq.Row, treq.Seat); err != nil {
			return nil, err
		}

		ticket := models.Ticket{
			TicketID:      uuid.NewString(),
			ReservationID: reservationID,
			ShowSessionID: treq.ShowSessionID,
			Row:           treq.Row,
			Seat:          treq.Seat,
			IssuedAt:      now,
		}

		if s.QR != nil {
			qrBytes, err := s.QR.GenerateEncryptedQR(qr.Claim{
				TicketID:      ticket.TicketID,
				ShowSessionID: ticket.ShowSessionID,
				Row:           ticket.Row,
				Seat:          ticket.Seat,
				IssuedAt:      ticket.IssuedAt,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to generate QR: %w", err)
			}
			ticket.QRCode = qrBytes
		}

		tickets = append(tickets, ticket)
	}

	return tickets, nil
}

// AddTicket books a single seat into one of the caller's reservations.
func (s *Service) AddTicket(ctx context.Context, userID string, req models.TicketRequest) (*models.TicketResponse, error) {
	if _, err := s.DB.GetReservation(ctx, req.ReservationID, userID); err != nil {
		return nil, err
	}

	tickets, err := s.buildTickets(ctx, req.ReservationID, []models.TicketRequest{req})
	if err != nil {
		return nil, err
	}

	if err := s.DB.AddTicket(ctx, tickets[0]); err != nil {
		return nil, err
	}

	resp := tickets[0].ToResponse()
	return &resp, nil
}

// UpdateTicket always rejects: committed tickets are immutable. Freeing a
// seat goes through deletion.
func (s *Service) UpdateTicket(ctx context.Context, userID, ticketID string) error {
	if _, err := s.DB.GetTicketByUser(ctx, ticketID, userID); err != nil {
		return err
	}
	return ErrTicketImmutable
}

// DeleteTicket frees a seat and announces the cancellation.
func (s *Service) DeleteTicket(ctx context.Context, userID, ticketID string) error {
	ticket, err := s.DB.GetTicketByUser(ctx, ticketID, userID)
	if err != nil {
		return err
	}

	if err := s.DB.DeleteTicketByUser(ctx, ticketID, userID); err != nil {
		return err
	}

	if s.Events != nil {
		if err := s.Events.PublishTicketCancelled(s.Topics.TicketCancelled, ticket.ToResponse()); err != nil {
			fmt.Printf("Kafka publish error (ticket cancelled): %v\n", err)
		}
	}
	return nil
}

func (s *Service) ListTickets(ctx context.Context, userID string) ([]models.TicketListItem, error) {
	return s.DB.ListTicketsByUser(ctx, userID)
}

func (s *Service) GetTicket(ctx context.Context, userID, ticketID string) (*models.Ticket, error) {
	return s.DB.GetTicketByUser(ctx, ticketID, userID)
}

// ListReservations pages through the caller's reservations.
func (s *Service) ListReservations(ctx context.Context, userID string, page, pageSize int) (*models.ReservationPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	offset := (page - 1) * pageSize
	results, total, err := s.DB.ListReservations(ctx, userID, pageSize, offset)
	if err != nil {
		return nil, err
	}

	pageResp := &models.ReservationPage{
		Count:   total,
		Results: results,
	}
	if offset+len(results) < total {
		next := page + 1
		pageResp.Next = &next
	}
	if page > 1 {
		prev := page - 1
		pageResp.Previous = &prev
	}
	return pageResp, nil
}

// CancelReservation deletes a reservation and all of its tickets.
func (s *Service) CancelReservation(ctx context.Context, userID, reservationID string) error {
	reservation, err := s.DB.GetReservation(ctx, reservationID, userID)
	if err != nil {
		return err
	}

	if err := s.DB.DeleteReservation(ctx, reservationID, userID); err != nil {
		return err
	}

	if s.Events != nil {
		if err := s.Events.PublishReservationCancelled(s.Topics.ReservationCancelled, *reservation); err != nil {
			fmt.Printf("Kafka publish error (reservation cancelled): %v\n", err)
		}
	}
	return nil
}

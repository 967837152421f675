package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Reservation is an atomic batch of tickets owned by one user. Tickets live
// and die with their reservation.
type Reservation struct {
	bun.BaseModel `bun:"table:reservations"`

	ID        string    `bun:"id,pk" json:"id"`
	UserID    string    `bun:"user_id,notnull" json:"user_id"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

type ReservationRequest struct {
	Tickets []TicketRequest `json:"tickets"`
}

type ReservationResponse struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Tickets   []TicketResponse `json:"tickets"`
}

type ReservationWithTickets struct {
	Reservation
	Tickets []TicketResponse `json:"tickets"`
}

// ReservationPage mirrors the paginated listing envelope.
type ReservationPage struct {
	Count    int                      `json:"count"`
	Next     *int                     `json:"next"`
	Previous *int                     `json:"previous"`
	Results  []ReservationWithTickets `json:"results"`
}

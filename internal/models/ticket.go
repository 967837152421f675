package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket claims one seat of one session. The unique group on
// (show_session_id, row, seat) is the storage backstop for the booking
// validator and is present in every schema built from this model.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	TicketID      string    `bun:"ticket_id,pk" json:"id"`
	ReservationID string    `bun:"reservation_id,notnull" json:"reservation"`
	ShowSessionID string    `bun:"show_session_id,notnull,unique:tickets_session_row_seat" json:"show_session"`
	Row           int       `bun:"row,notnull,unique:tickets_session_row_seat" json:"row"`
	Seat          int       `bun:"seat,notnull,unique:tickets_session_row_seat" json:"seat"`
	QRCode        []byte    `bun:"qr_code" json:"-"`
	IssuedAt      time.Time `bun:"issued_at,notnull" json:"issued_at"`
}

type TicketRequest struct {
	ShowSessionID string `json:"show_session"`
	Row           int    `json:"row"`
	Seat          int    `json:"seat"`
	// ReservationID is only used when adding a single ticket to an
	// existing reservation; batch creation supplies it implicitly.
	ReservationID string `json:"reservation,omitempty"`
}

type TicketResponse struct {
	TicketID      string    `json:"id"`
	ShowSessionID string    `json:"show_session"`
	Row           int       `json:"row"`
	Seat          int       `json:"seat"`
	IssuedAt      time.Time `json:"issued_at"`
}

func (t *Ticket) ToResponse() TicketResponse {
	return TicketResponse{
		TicketID:      t.TicketID,
		ShowSessionID: t.ShowSessionID,
		Row:           t.Row,
		Seat:          t.Seat,
		IssuedAt:      t.IssuedAt,
	}
}

// TicketListItem resolves foreign keys to display names the way the
// user-facing ticket listing shows them.
type TicketListItem struct {
	TicketID  string `bun:"ticket_id" json:"id"`
	Row       int    `bun:"row" json:"row"`
	Seat      int    `bun:"seat" json:"seat"`
	ShowTitle string `bun:"show_title" json:"show_session"`
	OwnerMail string `bun:"owner_email" json:"reservation"`
}

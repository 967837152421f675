package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ShowSession references its Dome and Show; seating geometry is read from
// the Dome at query time, never copied onto the session.
type ShowSession struct {
	bun.BaseModel `bun:"table:show_sessions"`

	ID       string    `bun:"id,pk" json:"id"`
	ShowID   string    `bun:"show_id,notnull" json:"show_id"`
	DomeID   string    `bun:"dome_id,notnull" json:"dome_id"`
	ShowTime time.Time `bun:"show_time,notnull" json:"show_time"`
}

type SessionRequest struct {
	ShowID   string    `json:"show_id"`
	DomeID   string    `json:"dome_id"`
	ShowTime time.Time `json:"show_time"`
}

// SessionListItem is the list shape: human-readable names plus the
// availability computed fresh from the dome geometry and ticket count.
type SessionListItem struct {
	ID               string    `bun:"id" json:"id"`
	ShowTitle        string    `bun:"show_title" json:"astronomy_show"`
	DomeName         string    `bun:"dome_name" json:"planetarium_dome"`
	ShowTime         time.Time `bun:"show_time" json:"show_time"`
	TicketsAvailable int       `bun:"tickets_available" json:"tickets_available"`
}

// SessionGeometry resolves a session to its dome's seating grid for the
// booking validator.
type SessionGeometry struct {
	SessionID  string `bun:"session_id"`
	DomeID     string `bun:"dome_id"`
	Rows       int    `bun:"rows"`
	SeatsInRow int    `bun:"seats_in_row"`
}

package models

import "github.com/uptrace/bun"

// Dome is a seating venue with a fixed row/seat grid. Capacity is always
// derived from the current geometry, never stored.
type Dome struct {
	bun.BaseModel `bun:"table:domes"`

	ID         string `bun:"id,pk" json:"id"`
	Name       string `bun:"name,notnull" json:"name"`
	Rows       int    `bun:"rows,notnull" json:"rows"`
	SeatsInRow int    `bun:"seats_in_row,notnull" json:"seats_in_row"`
	Image      []byte `bun:"image,nullzero" json:"-"`
}

func (d *Dome) Capacity() int {
	return d.Rows * d.SeatsInRow
}

type DomeRequest struct {
	Name       string `json:"name"`
	Rows       int    `json:"rows"`
	SeatsInRow int    `json:"seats_in_row"`
}

// DomeResponse is the list/detail shape: geometry plus derived capacity.
type DomeResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Rows       int    `json:"rows"`
	SeatsInRow int    `json:"seats_in_row"`
	Capacity   int    `json:"capacity"`
	HasImage   bool   `json:"has_image"`
}

func (d *Dome) ToResponse() DomeResponse {
	return DomeResponse{
		ID:         d.ID,
		Name:       d.Name,
		Rows:       d.Rows,
		SeatsInRow: d.SeatsInRow,
		Capacity:   d.Capacity(),
		HasImage:   len(d.Image) > 0,
	}
}

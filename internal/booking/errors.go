package booking

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSeatTaken rejects a (session, row, seat) triple that is already
// claimed by a committed ticket. It is produced both by the in-transaction
// pre-check and by translating the storage constraint violation, so callers
// see one rejection regardless of which layer caught the race.
var ErrSeatTaken = errors.New("this place is already taken")

// ErrTicketImmutable rejects updates to committed tickets.
var ErrTicketImmutable = errors.New("tickets cannot be changed after they are issued")

// ErrNotFound covers missing or not-owned reservations and tickets. Cross-
// user access deliberately maps here so ownership is not leaked.
var ErrNotFound = errors.New("record not found")

// ErrEmptyReservation rejects a reservation request without tickets.
var ErrEmptyReservation = errors.New("a reservation needs at least one ticket")

// GeometryError reports a row or seat outside the dome grid, naming the
// offending field so it renders differently from a duplicate-seat hit.
type GeometryError struct {
	Field string // "row" or "seat"
	Value int
	Max   int
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("%s %d is out of range (1..%d)", e.Field, e.Value, e.Max)
}

// IsUniqueViolation recognizes the unique-constraint error of the backing
// store. Message shapes differ between postgres and sqlite, so both are
// matched.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique failed")
}

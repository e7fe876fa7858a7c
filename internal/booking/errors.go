package booking

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated   = errors.New("booking: holder is not authenticated")
	ErrNoSeatsSelected   = errors.New("booking: no seats selected")
	ErrShowtimeNotFound  = errors.New("booking: showtime not found")
	ErrBookingNotFound   = errors.New("booking: booking not found")
	ErrSeatNotFound      = errors.New("booking: seat not found")
	ErrSeatNotInHall     = errors.New("booking: seat does not belong to the showtime's hall")
	ErrSeatAlreadyBooked = errors.New("booking: seat already booked")
	ErrNotOwner          = errors.New("booking: booking belongs to another user")
	ErrAlreadyOccurred   = errors.New("booking: showtime has already started")
)

// SeatError ties a seat-level failure to the seat that caused it.
// errors.Is matches it against Kind.
type SeatError struct {
	Kind   error
	SeatID uint64
	Label  string // empty when the seat does not exist
}

func (e *SeatError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Label)
	}
	return fmt.Sprintf("%v: id %d", e.Kind, e.SeatID)
}

func (e *SeatError) Unwrap() error { return e.Kind }

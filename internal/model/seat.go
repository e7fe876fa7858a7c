package model

import (
	"time"

	"github.com/iliyamo/movie-reservation/internal/layout"
)

// Seat describes a physical seat in a hall. Seats are uniquely
// identified by their hall, row label and seat number and are never
// deleted while a booking references them.
//
// Fields:
//  ID         – primary key identifier.
//  HallID     – hall to which this seat belongs.
//  RowLabel   – row designation (A, B, .. AA).
//  SeatNumber – number of the seat within the row, starting at 1.
//  CreatedAt  – creation timestamp.
type Seat struct {
	ID         uint64    `json:"id"`         // seats.id
	HallID     uint64    `json:"hall_id"`    // seats.hall_id
	RowLabel   string    `json:"row"`        // seats.row_label
	SeatNumber int       `json:"number"`     // seats.seat_number
	CreatedAt  time.Time `json:"created_at"` // seats.created_at
}

// Label returns the printable seat label, e.g. "B7".
func (s Seat) Label() string { return layout.SeatLabel(s.RowLabel, s.SeatNumber) }

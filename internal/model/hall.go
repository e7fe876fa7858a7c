package model

import "time"

// Hall represents a screening hall. Its seating is a rectangular grid
// of Rows x SeatsPerRow; individual seat rows in the `seats` table are
// created lazily from that grid.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – unique hall name.
//  Rows        – number of seat rows (at least 1).
//  SeatsPerRow – number of seats in every row (at least 1).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Hall struct {
	ID          uint64    `json:"id"`            // halls.id
	Name        string    `json:"name"`          // halls.name
	Rows        int       `json:"rows"`          // halls.rows
	SeatsPerRow int       `json:"seats_per_row"` // halls.seats_per_row
	CreatedAt   time.Time `json:"created_at"`    // halls.created_at
	UpdatedAt   time.Time `json:"updated_at"`    // halls.updated_at
}

// Capacity is the number of seats in the hall grid.
func (h Hall) Capacity() int {
	if h.Rows < 1 || h.SeatsPerRow < 1 {
		return 0
	}
	return h.Rows * h.SeatsPerRow
}

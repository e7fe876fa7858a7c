package model

import "time"

// Booking records one seat booked by one user for one showtime. A
// (showtime, seat) pair appears at most once. Cancelling removes the row.
//
// Fields:
//  ID         – primary key identifier.
//  ShowtimeID – showtime being booked.
//  SeatID     – seat being booked.
//  UserID     – user holding the booking.
//  CreatedAt  – when the booking was committed.
type Booking struct {
	ID         uint64    `json:"id"`          // bookings.id
	ShowtimeID uint64    `json:"showtime_id"` // bookings.showtime_id
	SeatID     uint64    `json:"seat_id"`     // bookings.seat_id
	UserID     uint64    `json:"user_id"`     // bookings.user_id
	CreatedAt  time.Time `json:"created_at"`  // bookings.created_at
}

// BookingDetail is a booking joined with its showtime, movie, hall and
// seat, as needed for listing and cancellation.
type BookingDetail struct {
	Booking
	StartTime  time.Time `json:"start_time"`
	MovieID    uint64    `json:"movie_id"`
	MovieTitle string    `json:"movie_title"`
	HallID     uint64    `json:"hall_id"`
	HallName   string    `json:"hall_name"`
	RowLabel   string    `json:"row"`
	SeatNumber int       `json:"number"`
	PriceCents uint32    `json:"price_cents"`
}

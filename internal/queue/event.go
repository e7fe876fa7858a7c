// Package queue defines booking events and moves them over RabbitMQ.
package queue

// Queue names. Both are durable and carry persistent JSON messages.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingConfirmedEvent is published when a batch of seats is booked.
// It carries enough information for downstream consumers to log or
// notify without querying the primary database.
type BookingConfirmedEvent struct {
	BookingIDs       []uint64 `json:"booking_ids"`
	UserID           uint64   `json:"user_id"`
	ShowtimeID       uint64   `json:"showtime_id"`
	HallID           uint64   `json:"hall_id"`
	HallName         string   `json:"hall_name"`
	MovieTitle       string   `json:"movie_title"`
	StartsAt         string   `json:"starts_at"`
	SeatLabels       []string `json:"seats"`
	TotalAmountCents uint32   `json:"total_amount_cents"`
	ConfirmedAt      string   `json:"confirmed_at"`
}

// BookingCancelledEvent is published when a booking is cancelled.
type BookingCancelledEvent struct {
	BookingID   uint64 `json:"booking_id"`
	UserID      uint64 `json:"user_id"`
	ShowtimeID  uint64 `json:"showtime_id"`
	HallName    string `json:"hall_name"`
	MovieTitle  string `json:"movie_title"`
	StartsAt    string `json:"starts_at"`
	SeatLabel   string `json:"seat"`
	CancelledAt string `json:"cancelled_at"`
}

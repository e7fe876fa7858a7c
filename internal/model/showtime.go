package model

import "time"

// Showtime is a scheduled screening of a movie in a hall. MovieTitle
// and HallName are filled by joined reads and are empty on insert.
//
// Fields:
//  ID         – primary key identifier.
//  MovieID    – movie being screened.
//  HallID     – hall where the screening takes place.
//  StartTime  – when the screening begins (UTC).
//  PriceCents – ticket price in cents.
type Showtime struct {
	ID         uint64    `json:"id"`          // showtimes.id
	MovieID    uint64    `json:"movie_id"`    // showtimes.movie_id
	HallID     uint64    `json:"hall_id"`     // showtimes.hall_id
	StartTime  time.Time `json:"start_time"`  // showtimes.start_time
	PriceCents uint32    `json:"price_cents"` // showtimes.price_cents
	MovieTitle string    `json:"movie_title,omitempty"`
	HallName   string    `json:"hall_name,omitempty"`
}

// Started reports whether the showtime has begun at now. A showtime
// starting exactly at now counts as started.
func (s Showtime) Started(now time.Time) bool {
	return !s.StartTime.After(now)
}

package model

import "time"

// Movie is a film in the catalog.
//
// Fields:
//  ID              – primary key identifier.
//  Title           – display title.
//  Description     – synopsis.
//  DurationMinutes – running time.
//  PosterURL       – optional poster location.
//  Genres          – genres attached through movie_genres.
type Movie struct {
	ID              uint64    `json:"id"`               // movies.id
	Title           string    `json:"title"`            // movies.title
	Description     string    `json:"description"`      // movies.description
	DurationMinutes int       `json:"duration_minutes"` // movies.duration_minutes
	PosterURL       string    `json:"poster_url,omitempty"`
	Genres          []Genre   `json:"genres"`
	CreatedAt       time.Time `json:"created_at"` // movies.created_at
	UpdatedAt       time.Time `json:"updated_at"` // movies.updated_at
}

// Genre is a movie category such as Drama.
type Genre struct {
	ID   uint64 `json:"id"`   // genres.id
	Name string `json:"name"` // genres.name
}

// Package seed loads the demo catalog: genres, movies, halls and five
// days of showtimes. Running it twice leaves the data unchanged.
package seed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/movie-reservation/internal/model"
)

// HallStore creates halls by name.
type HallStore interface {
	Ensure(ctx context.Context, name string, rows, seatsPerRow int) (*model.Hall, error)
}

// MovieStore creates genres and movies by name.
type MovieStore interface {
	EnsureGenre(ctx context.Context, name string) (uint64, error)
	EnsureMovie(ctx context.Context, m model.Movie, genreIDs []uint64) (uint64, error)
}

// ShowtimeStore inserts a showtime unless its hall slot is taken.
type ShowtimeStore interface {
	CreateIfFree(ctx context.Context, s *model.Showtime) (bool, error)
}

type movieSeed struct {
	movie  model.Movie
	genres []string
}

type hallSeed struct {
	name        string
	rows        int
	seatsPerRow int
}

var (
	genres = []string{"Action", "Comedy", "Drama"}

	movies = []movieSeed{
		{
			movie: model.Movie{
				Title:           "The Great Adventure",
				DurationMinutes: 120,
				Description:     "A new mystery villain leaves messages for the city's dark protector at every crime scene.",
			},
			genres: []string{"Action"},
		},
		{
			movie: model.Movie{
				Title:           "Funny Days",
				DurationMinutes: 95,
				Description:     "A bartender relives the adventures of a distant ancestor, with mixed results.",
			},
			genres: []string{"Comedy"},
		},
		{
			movie: model.Movie{
				Title:           "Dream House",
				DurationMinutes: 105,
				Description:     "A physicist leads a wartime project and lives with what it produced.",
			},
			genres: []string{"Drama"},
		},
	}

	halls = []hallSeed{
		{name: "Hall 1", rows: 10, seatsPerRow: 10},
		{name: "Hall 2", rows: 8, seatsPerRow: 10},
	}

	showHours = []int{10, 11, 13, 14, 16, 17, 19, 20, 22}
)

const (
	days             = 5
	showsPerMovie    = 3
	ticketPriceCents = 15000
)

// Summary counts what a run created.
type Summary struct {
	Genres    int
	Movies    int
	Halls     int
	Showtimes int
}

// Seeder writes the demo catalog through the stores.
type Seeder struct {
	Halls     HallStore
	Movies    MovieStore
	Showtimes ShowtimeStore
	Log       *zap.Logger
}

// Run seeds starting at the calendar day of now in zone. Each movie gets
// three showtimes a day at consecutive slots of showHours, alternating
// halls.
func (s *Seeder) Run(ctx context.Context, now time.Time, zone *time.Location) (Summary, error) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	var sum Summary

	genreIDs := make(map[string]uint64, len(genres))
	for _, name := range genres {
		id, err := s.Movies.EnsureGenre(ctx, name)
		if err != nil {
			return sum, fmt.Errorf("genre %q: %w", name, err)
		}
		genreIDs[name] = id
		sum.Genres++
	}

	movieIDs := make([]uint64, 0, len(movies))
	for _, ms := range movies {
		ids := make([]uint64, 0, len(ms.genres))
		for _, g := range ms.genres {
			ids = append(ids, genreIDs[g])
		}
		id, err := s.Movies.EnsureMovie(ctx, ms.movie, ids)
		if err != nil {
			return sum, fmt.Errorf("movie %q: %w", ms.movie.Title, err)
		}
		movieIDs = append(movieIDs, id)
		sum.Movies++
	}

	hallIDs := make([]uint64, 0, len(halls))
	for _, hs := range halls {
		h, err := s.Halls.Ensure(ctx, hs.name, hs.rows, hs.seatsPerRow)
		if err != nil {
			return sum, fmt.Errorf("hall %q: %w", hs.name, err)
		}
		hallIDs = append(hallIDs, h.ID)
		sum.Halls++
	}

	local := now.In(zone)
	first := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, zone)
	for d := 0; d < days; d++ {
		day := first.AddDate(0, 0, d)
		slot := 0
		for _, movieID := range movieIDs {
			for i := 0; i < showsPerMovie && slot < len(showHours); i++ {
				st := &model.Showtime{
					MovieID:    movieID,
					HallID:     hallIDs[slot%len(hallIDs)],
					StartTime:  day.Add(time.Duration(showHours[slot]) * time.Hour).UTC(),
					PriceCents: ticketPriceCents,
				}
				created, err := s.Showtimes.CreateIfFree(ctx, st)
				if err != nil {
					return sum, fmt.Errorf("showtime %s: %w", st.StartTime.Format(time.RFC3339), err)
				}
				if created {
					sum.Showtimes++
				}
				slot++
			}
		}
	}

	log.Info("seed complete",
		zap.Int("genres", sum.Genres),
		zap.Int("movies", sum.Movies),
		zap.Int("halls", sum.Halls),
		zap.Int("showtimes_created", sum.Showtimes))
	return sum, nil
}

package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-reservation/internal/repository"
	"github.com/iliyamo/movie-reservation/internal/repository/memory"
)

func TestSeeder_RunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := &Seeder{Halls: store.Halls(), Movies: store.Movies(), Showtimes: store.Showtimes()}
	zone := time.FixedZone("UTC+3", 3*3600)
	now := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)

	sum, err := s.Run(ctx, now, zone)
	require.NoError(t, err)
	assert.Equal(t, Summary{Genres: 3, Movies: 3, Halls: 2, Showtimes: 45}, sum)

	sum, err = s.Run(ctx, now, zone)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Showtimes)

	movies, err := store.Movies().List(ctx, repository.MovieFilter{})
	require.NoError(t, err)
	assert.Len(t, movies, 3)
	for _, m := range movies {
		assert.Len(t, m.Genres, 1, m.Title)
	}

	hallList, err := store.Halls().List(ctx)
	require.NoError(t, err)
	require.Len(t, hallList, 2)
	assert.Equal(t, 100, hallList[0].Capacity())
	assert.Equal(t, 80, hallList[1].Capacity())
}

func TestSeeder_Schedule(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := &Seeder{Halls: store.Halls(), Movies: store.Movies(), Showtimes: store.Showtimes()}
	zone := time.FixedZone("UTC+3", 3*3600)

	_, err := s.Run(ctx, time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC), zone)
	require.NoError(t, err)

	dayStart := time.Date(2025, 3, 1, 0, 0, 0, 0, zone)
	list, err := store.Showtimes().ListBetween(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, list, 9)

	hours := make([]int, 0, len(list))
	perMovie := map[uint64]int{}
	for _, st := range list {
		hours = append(hours, st.StartTime.In(zone).Hour())
		perMovie[st.MovieID]++
		assert.EqualValues(t, 15000, st.PriceCents)
	}
	assert.Equal(t, showHours, hours)
	assert.Len(t, perMovie, 3)
	for _, n := range perMovie {
		assert.Equal(t, 3, n)
	}
	assert.NotEqual(t, list[0].HallID, list[1].HallID)
}

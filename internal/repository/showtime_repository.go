package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/movie-reservation/internal/model"
)

// ShowtimeRepo manages persistence for showtimes. Reads join the movie
// title and hall name so callers can render a showtime without extra
// lookups.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
	return &ShowtimeRepo{db: db}
}

const showtimeSelect = `SELECT st.id, st.movie_id, st.hall_id, st.start_time, st.price_cents, m.title, h.name
	FROM showtimes st
	JOIN movies m ON m.id = st.movie_id
	JOIN halls h ON h.id = st.hall_id`

// GetByID returns the showtime or ErrShowtimeNotFound.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	var s model.Showtime
	err := r.db.QueryRowContext(ctx, showtimeSelect+` WHERE st.id = ?`, id).
		Scan(&s.ID, &s.MovieID, &s.HallID, &s.StartTime, &s.PriceCents, &s.MovieTitle, &s.HallName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowtimeNotFound
		}
		return nil, err
	}
	s.StartTime = s.StartTime.UTC()
	return &s, nil
}

// ListBetween returns showtimes starting in [from, to), ordered by start
// time.
func (r *ShowtimeRepo) ListBetween(ctx context.Context, from, to time.Time) ([]model.Showtime, error) {
	return r.list(ctx, showtimeSelect+` WHERE st.start_time >= ? AND st.start_time < ? ORDER BY st.start_time, st.id`,
		from.UTC(), to.UTC())
}

// ListByMovieBetween is ListBetween restricted to one movie.
func (r *ShowtimeRepo) ListByMovieBetween(ctx context.Context, movieID uint64, from, to time.Time) ([]model.Showtime, error) {
	return r.list(ctx, showtimeSelect+` WHERE st.movie_id = ? AND st.start_time >= ? AND st.start_time < ? ORDER BY st.start_time, st.id`,
		movieID, from.UTC(), to.UTC())
}

// CreateIfFree inserts a showtime unless the hall already has one at the
// same start time. It reports whether a row was inserted.
func (r *ShowtimeRepo) CreateIfFree(ctx context.Context, s *model.Showtime) (bool, error) {
	const q = `INSERT IGNORE INTO showtimes (movie_id, hall_id, start_time, price_cents) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.MovieID, s.HallID, s.StartTime.UTC(), s.PriceCents)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	s.ID = uint64(id)
	return true, nil
}

func (r *ShowtimeRepo) list(ctx context.Context, q string, args ...any) ([]model.Showtime, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Showtime
	for rows.Next() {
		var s model.Showtime
		if err := rows.Scan(&s.ID, &s.MovieID, &s.HallID, &s.StartTime, &s.PriceCents, &s.MovieTitle, &s.HallName); err != nil {
			return nil, err
		}
		s.StartTime = s.StartTime.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

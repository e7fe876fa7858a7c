package repository

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"time"

	"github.com/iliyamo/movie-reservation/internal/model"
)

// BookingRepo persists bookings. UNIQUE(showtime_id, seat_id) is the
// only guard against two users taking the same seat; CreateBatch relies
// on it and rolls the whole batch back on the first violation.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo with the given DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// BookedSeatIDs returns the ids of all seats booked for a showtime.
func (r *BookingRepo) BookedSeatIDs(ctx context.Context, showtimeID uint64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT seat_id FROM bookings WHERE showtime_id = ?`, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateBatch books every seat for the holder in one transaction. If any
// seat is already booked for the showtime nothing is written and a
// *SeatConflictError naming that seat is returned. Seats are inserted in
// ascending id order so overlapping batches take index locks in the same
// order; a deadlock or lock wait timeout that still occurs is reported as
// a conflict on the seat being inserted.
func (r *BookingRepo) CreateBatch(ctx context.Context, showtimeID, userID uint64, seatIDs []uint64, at time.Time) ([]model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO bookings (showtime_id, seat_id, user_id, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ordered := slices.Clone(seatIDs)
	slices.Sort(ordered)

	at = at.UTC()
	out := make([]model.Booking, 0, len(ordered))
	for _, seatID := range ordered {
		res, err := stmt.ExecContext(ctx, showtimeID, seatID, userID, at)
		if err != nil {
			if isSeatContention(err) {
				return nil, &SeatConflictError{ShowtimeID: showtimeID, SeatID: seatID}
			}
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		out = append(out, model.Booking{
			ID: uint64(id), ShowtimeID: showtimeID, SeatID: seatID, UserID: userID, CreatedAt: at,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return out, nil
}

const bookingDetailSelect = `SELECT b.id, b.showtime_id, b.seat_id, b.user_id, b.created_at,
	st.start_time, st.price_cents, m.id, m.title, h.id, h.name, s.row_label, s.seat_number
	FROM bookings b
	JOIN showtimes st ON st.id = b.showtime_id
	JOIN movies m ON m.id = st.movie_id
	JOIN halls h ON h.id = st.hall_id
	JOIN seats s ON s.id = b.seat_id`

func scanBookingDetail(row interface{ Scan(...any) error }) (*model.BookingDetail, error) {
	var d model.BookingDetail
	err := row.Scan(&d.ID, &d.ShowtimeID, &d.SeatID, &d.UserID, &d.CreatedAt,
		&d.StartTime, &d.PriceCents, &d.MovieID, &d.MovieTitle, &d.HallID, &d.HallName, &d.RowLabel, &d.SeatNumber)
	if err != nil {
		return nil, err
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.StartTime = d.StartTime.UTC()
	return &d, nil
}

// GetByID returns a booking with its showtime and seat details, or
// ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.BookingDetail, error) {
	d, err := scanBookingDetail(r.db.QueryRowContext(ctx, bookingDetailSelect+` WHERE b.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return d, nil
}

// DeleteForUser removes a booking held by userID. It returns
// ErrBookingNotFound when no such row exists, including when it was
// removed concurrently.
func (r *BookingRepo) DeleteForUser(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// ListByUser returns the user's bookings, latest showtime first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		bookingDetailSelect+` WHERE b.user_id = ? ORDER BY st.start_time DESC, CHAR_LENGTH(s.row_label), s.row_label, s.seat_number`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.BookingDetail, 0)
	for rows.Next() {
		d, err := scanBookingDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

package repository // repository defines data access for seats

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/movie-reservation/internal/layout"
	"github.com/iliyamo/movie-reservation/internal/model"
)

// SeatRepo materializes and reads seats. Seats are created on demand from
// the hall layout; UNIQUE(hall_id, row_label, seat_number) makes every
// write idempotent.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

const seatColumns = `id, hall_id, row_label, seat_number, created_at`

// EnsureSeat returns the seat at (hall, row, number), creating it when it
// does not exist yet. An existing row is returned unchanged.
func (r *SeatRepo) EnsureSeat(ctx context.Context, hallID uint64, row string, number int) (*model.Seat, error) {
	const q = `INSERT INTO seats (hall_id, row_label, seat_number) VALUES (?, ?, ?)
	           ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`
	res, err := r.db.ExecContext(ctx, q, hallID, row, number)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// EnsureHall creates every seat of the given layout that is missing and
// returns all seats of the hall, ordered by row then number.
func (r *SeatRepo) EnsureHall(ctx context.Context, hallID uint64, rows []layout.Row) ([]model.Seat, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`INSERT IGNORE INTO seats (hall_id, row_label, seat_number) VALUES `)
	for _, row := range rows {
		for _, n := range row.Numbers {
			if len(args) > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString("(?, ?, ?)")
			args = append(args, hallID, row.Label, n)
		}
	}
	if len(args) > 0 {
		if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
			return nil, err
		}
	}
	return r.GetByHall(ctx, hallID)
}

// GetByHall retrieves all seats of a hall. Row labels are ordered by
// length first so that Z sorts before AA.
func (r *SeatRepo) GetByHall(ctx context.Context, hallID uint64) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + `
	           FROM seats
	           WHERE hall_id = ?
	           ORDER BY CHAR_LENGTH(row_label), row_label, seat_number`
	return r.query(ctx, q, hallID)
}

// GetByID retrieves a seat by its id.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
	var s model.Seat
	err := r.db.QueryRowContext(ctx, `SELECT `+seatColumns+` FROM seats WHERE id = ?`, id).
		Scan(&s.ID, &s.HallID, &s.RowLabel, &s.SeatNumber, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetByIDs retrieves the seats with the given ids. Unknown ids are
// silently absent from the result.
func (r *SeatRepo) GetByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `SELECT ` + seatColumns + ` FROM seats WHERE id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`
	return r.query(ctx, q, args...)
}

func (r *SeatRepo) query(ctx context.Context, q string, args ...any) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.HallID, &s.RowLabel, &s.SeatNumber, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

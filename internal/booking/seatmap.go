package booking

import (
	"context"
	"fmt"

	"github.com/iliyamo/movie-reservation/internal/layout"
	"github.com/iliyamo/movie-reservation/internal/model"
)

// SeatState is one cell of a seat map.
type SeatState struct {
	SeatID   uint64 `json:"seat_id"`
	Row      string `json:"row"`
	Number   int    `json:"number"`
	Label    string `json:"label"`
	Occupied bool   `json:"occupied"`
}

// SeatRow is one row of a seat map.
type SeatRow struct {
	Label string      `json:"label"`
	Seats []SeatState `json:"seats"`
}

// SeatMap is the hall grid of a showtime with per-seat occupancy.
type SeatMap struct {
	Showtime model.Showtime `json:"showtime"`
	Hall     model.Hall     `json:"hall"`
	Rows     []SeatRow      `json:"rows"`
	Free     int            `json:"free"`
	Occupied int            `json:"occupied"`
}

type position struct {
	row    string
	number int
}

// SeatMap renders the grid of the showtime's hall. Missing seats are
// created on the way, and occupancy is read once for the whole showtime.
func (s *Service) SeatMap(ctx context.Context, showtimeID uint64) (*SeatMap, error) {
	st, err := s.showtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	hall, err := s.hall(ctx, st.HallID)
	if err != nil {
		return nil, err
	}
	rows, err := layout.Rows(hall.Rows, hall.SeatsPerRow)
	if err != nil {
		return nil, fmt.Errorf("hall %d: %w", hall.ID, err)
	}

	seats, err := s.seats.EnsureHall(ctx, hall.ID, rows)
	if err != nil {
		return nil, fmt.Errorf("ensure seats: %w", err)
	}
	byPos := make(map[position]model.Seat, len(seats))
	for _, seat := range seats {
		byPos[position{seat.RowLabel, seat.SeatNumber}] = seat
	}

	booked, err := s.bookedSet(ctx, st.ID)
	if err != nil {
		return nil, err
	}

	m := &SeatMap{Showtime: *st, Hall: *hall, Rows: make([]SeatRow, 0, len(rows))}
	for _, row := range rows {
		out := SeatRow{Label: row.Label, Seats: make([]SeatState, 0, len(row.Numbers))}
		for _, n := range row.Numbers {
			seat, ok := byPos[position{row.Label, n}]
			if !ok {
				return nil, fmt.Errorf("seat %s missing after ensure", layout.SeatLabel(row.Label, n))
			}
			occupied := booked[seat.ID]
			if occupied {
				m.Occupied++
			} else {
				m.Free++
			}
			out.Seats = append(out.Seats, SeatState{
				SeatID:   seat.ID,
				Row:      row.Label,
				Number:   n,
				Label:    seat.Label(),
				Occupied: occupied,
			})
		}
		m.Rows = append(m.Rows, out)
	}
	return m, nil
}

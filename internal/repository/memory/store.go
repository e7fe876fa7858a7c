// Package memory is an in-process implementation of the repositories in
// package repository. It keeps the same uniqueness rules as the MySQL
// schema and is used by tests and local tooling.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/movie-reservation/internal/layout"
	"github.com/iliyamo/movie-reservation/internal/model"
	"github.com/iliyamo/movie-reservation/internal/repository"
)

type seatKey struct {
	hallID uint64
	row    string
	number int
}

type bookingKey struct {
	showtimeID uint64
	seatID     uint64
}

type token struct {
	userID  uint64
	expires time.Time
	revoked bool
}

// Store holds every table behind one mutex.
type Store struct {
	mu sync.RWMutex

	nextID uint64

	halls       map[uint64]model.Hall
	seats       map[uint64]model.Seat
	seatIndex   map[seatKey]uint64
	movies      map[uint64]model.Movie
	genres      map[uint64]model.Genre
	movieGenres map[uint64][]uint64
	showtimes   map[uint64]model.Showtime
	bookings    map[uint64]model.Booking
	booked      map[bookingKey]uint64
	users       map[uint64]model.User
	tokens      map[string]token

	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		halls:       make(map[uint64]model.Hall),
		seats:       make(map[uint64]model.Seat),
		seatIndex:   make(map[seatKey]uint64),
		movies:      make(map[uint64]model.Movie),
		genres:      make(map[uint64]model.Genre),
		movieGenres: make(map[uint64][]uint64),
		showtimes:   make(map[uint64]model.Showtime),
		bookings:    make(map[uint64]model.Booking),
		booked:      make(map[bookingKey]uint64),
		users:       make(map[uint64]model.User),
		tokens:      make(map[string]token),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

// Halls returns the hall repository view.
func (s *Store) Halls() *HallRepo { return &HallRepo{s} }

// Seats returns the seat repository view.
func (s *Store) Seats() *SeatRepo { return &SeatRepo{s} }

// Showtimes returns the showtime repository view.
func (s *Store) Showtimes() *ShowtimeRepo { return &ShowtimeRepo{s} }

// Bookings returns the booking repository view.
func (s *Store) Bookings() *BookingRepo { return &BookingRepo{s} }

// Movies returns the movie repository view.
func (s *Store) Movies() *MovieRepo { return &MovieRepo{s} }

// Users returns the user repository view.
func (s *Store) Users() *UserRepo { return &UserRepo{s} }

// Tokens returns the refresh token repository view.
func (s *Store) Tokens() *TokenRepo { return &TokenRepo{s} }

// HallRepo mirrors repository.HallRepo.
type HallRepo struct{ s *Store }

func (r *HallRepo) GetByID(_ context.Context, id uint64) (*model.Hall, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	h, ok := r.s.halls[id]
	if !ok {
		return nil, repository.ErrHallNotFound
	}
	return &h, nil
}

func (r *HallRepo) List(_ context.Context) ([]model.Hall, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.Hall, 0, len(r.s.halls))
	for _, h := range r.s.halls {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *HallRepo) Ensure(_ context.Context, name string, rows, seatsPerRow int) (*model.Hall, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, h := range r.s.halls {
		if h.Name == name {
			return &h, nil
		}
	}
	now := r.s.now()
	h := model.Hall{ID: r.s.id(), Name: name, Rows: rows, SeatsPerRow: seatsPerRow, CreatedAt: now, UpdatedAt: now}
	r.s.halls[h.ID] = h
	return &h, nil
}

// SeatRepo mirrors repository.SeatRepo.
type SeatRepo struct{ s *Store }

func (r *SeatRepo) ensureLocked(hallID uint64, row string, number int) model.Seat {
	k := seatKey{hallID, row, number}
	if id, ok := r.s.seatIndex[k]; ok {
		return r.s.seats[id]
	}
	seat := model.Seat{ID: r.s.id(), HallID: hallID, RowLabel: row, SeatNumber: number, CreatedAt: r.s.now()}
	r.s.seats[seat.ID] = seat
	r.s.seatIndex[k] = seat.ID
	return seat
}

func (r *SeatRepo) EnsureSeat(_ context.Context, hallID uint64, row string, number int) (*model.Seat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seat := r.ensureLocked(hallID, row, number)
	return &seat, nil
}

func (r *SeatRepo) EnsureHall(ctx context.Context, hallID uint64, rows []layout.Row) ([]model.Seat, error) {
	r.s.mu.Lock()
	for _, row := range rows {
		for _, n := range row.Numbers {
			r.ensureLocked(hallID, row.Label, n)
		}
	}
	r.s.mu.Unlock()
	return r.GetByHall(ctx, hallID)
}

func (r *SeatRepo) GetByHall(_ context.Context, hallID uint64) ([]model.Seat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Seat
	for _, seat := range r.s.seats {
		if seat.HallID == hallID {
			out = append(out, seat)
		}
	}
	sortSeats(out)
	return out, nil
}

func (r *SeatRepo) GetByID(_ context.Context, id uint64) (*model.Seat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seat, ok := r.s.seats[id]
	if !ok {
		return nil, repository.ErrSeatNotFound
	}
	return &seat, nil
}

func (r *SeatRepo) GetByIDs(_ context.Context, ids []uint64) ([]model.Seat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Seat
	for _, id := range ids {
		if seat, ok := r.s.seats[id]; ok {
			out = append(out, seat)
		}
	}
	return out, nil
}

func sortSeats(seats []model.Seat) {
	sort.Slice(seats, func(i, j int) bool {
		a, b := seats[i], seats[j]
		if a.RowLabel != b.RowLabel {
			ai, _ := layout.RowIndex(a.RowLabel)
			bi, _ := layout.RowIndex(b.RowLabel)
			return ai < bi
		}
		return a.SeatNumber < b.SeatNumber
	})
}

// ShowtimeRepo mirrors repository.ShowtimeRepo.
type ShowtimeRepo struct{ s *Store }

func (r *ShowtimeRepo) decorate(st model.Showtime) model.Showtime {
	st.MovieTitle = r.s.movies[st.MovieID].Title
	st.HallName = r.s.halls[st.HallID].Name
	return st
}

func (r *ShowtimeRepo) GetByID(_ context.Context, id uint64) (*model.Showtime, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	st, ok := r.s.showtimes[id]
	if !ok {
		return nil, repository.ErrShowtimeNotFound
	}
	st = r.decorate(st)
	return &st, nil
}

func (r *ShowtimeRepo) ListBetween(ctx context.Context, from, to time.Time) ([]model.Showtime, error) {
	return r.filter(func(st model.Showtime) bool {
		return !st.StartTime.Before(from) && st.StartTime.Before(to)
	}), nil
}

func (r *ShowtimeRepo) ListByMovieBetween(ctx context.Context, movieID uint64, from, to time.Time) ([]model.Showtime, error) {
	return r.filter(func(st model.Showtime) bool {
		return st.MovieID == movieID && !st.StartTime.Before(from) && st.StartTime.Before(to)
	}), nil
}

func (r *ShowtimeRepo) filter(keep func(model.Showtime) bool) []model.Showtime {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Showtime
	for _, st := range r.s.showtimes {
		if keep(st) {
			out = append(out, r.decorate(st))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *ShowtimeRepo) CreateIfFree(_ context.Context, st *model.Showtime) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.showtimes {
		if existing.HallID == st.HallID && existing.StartTime.Equal(st.StartTime) {
			return false, nil
		}
	}
	st.ID = r.s.id()
	st.StartTime = st.StartTime.UTC()
	r.s.showtimes[st.ID] = model.Showtime{
		ID: st.ID, MovieID: st.MovieID, HallID: st.HallID, StartTime: st.StartTime, PriceCents: st.PriceCents,
	}
	return true, nil
}

// BookingRepo mirrors repository.BookingRepo. CreateBatch checks every
// seat before writing any, which gives the same all-or-nothing result as
// the transactional MySQL version.
type BookingRepo struct{ s *Store }

func (r *BookingRepo) BookedSeatIDs(_ context.Context, showtimeID uint64) ([]uint64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ids []uint64
	for k := range r.s.booked {
		if k.showtimeID == showtimeID {
			ids = append(ids, k.seatID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *BookingRepo) CreateBatch(_ context.Context, showtimeID, userID uint64, seatIDs []uint64, at time.Time) ([]model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := make(map[uint64]bool, len(seatIDs))
	for _, seatID := range seatIDs {
		if _, taken := r.s.booked[bookingKey{showtimeID, seatID}]; taken || seen[seatID] {
			return nil, &repository.SeatConflictError{ShowtimeID: showtimeID, SeatID: seatID}
		}
		seen[seatID] = true
	}
	out := make([]model.Booking, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		b := model.Booking{ID: r.s.id(), ShowtimeID: showtimeID, SeatID: seatID, UserID: userID, CreatedAt: at.UTC()}
		r.s.bookings[b.ID] = b
		r.s.booked[bookingKey{showtimeID, seatID}] = b.ID
		out = append(out, b)
	}
	return out, nil
}

func (r *BookingRepo) detail(b model.Booking) model.BookingDetail {
	st := r.s.showtimes[b.ShowtimeID]
	seat := r.s.seats[b.SeatID]
	return model.BookingDetail{
		Booking:    b,
		StartTime:  st.StartTime,
		MovieID:    st.MovieID,
		MovieTitle: r.s.movies[st.MovieID].Title,
		HallID:     st.HallID,
		HallName:   r.s.halls[st.HallID].Name,
		RowLabel:   seat.RowLabel,
		SeatNumber: seat.SeatNumber,
		PriceCents: st.PriceCents,
	}
}

func (r *BookingRepo) GetByID(_ context.Context, id uint64) (*model.BookingDetail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	d := r.detail(b)
	return &d, nil
}

func (r *BookingRepo) DeleteForUser(_ context.Context, id, userID uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok || b.UserID != userID {
		return repository.ErrBookingNotFound
	}
	delete(r.s.bookings, id)
	delete(r.s.booked, bookingKey{b.ShowtimeID, b.SeatID})
	return nil
}

func (r *BookingRepo) ListByUser(_ context.Context, userID uint64) ([]model.BookingDetail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.BookingDetail, 0)
	for _, b := range r.s.bookings {
		if b.UserID == userID {
			out = append(out, r.detail(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.After(b.StartTime)
		}
		if a.RowLabel != b.RowLabel {
			ai, _ := layout.RowIndex(a.RowLabel)
			bi, _ := layout.RowIndex(b.RowLabel)
			return ai < bi
		}
		return a.SeatNumber < b.SeatNumber
	})
	return out, nil
}

// MovieRepo mirrors repository.MovieRepo.
type MovieRepo struct{ s *Store }

func (r *MovieRepo) withGenres(m model.Movie) model.Movie {
	m.Genres = []model.Genre{}
	for _, gid := range r.s.movieGenres[m.ID] {
		m.Genres = append(m.Genres, r.s.genres[gid])
	}
	sort.Slice(m.Genres, func(i, j int) bool { return m.Genres[i].Name < m.Genres[j].Name })
	return m
}

func (r *MovieRepo) List(_ context.Context, f repository.MovieFilter) ([]model.Movie, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	title := strings.ToLower(strings.TrimSpace(f.Title))
	out := make([]model.Movie, 0)
	for _, m := range r.s.movies {
		if title != "" && !strings.Contains(strings.ToLower(m.Title), title) {
			continue
		}
		if f.GenreID != 0 && !containsID(r.s.movieGenres[m.ID], f.GenreID) {
			continue
		}
		out = append(out, r.withGenres(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MovieRepo) GetByID(_ context.Context, id uint64) (*model.Movie, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.movies[id]
	if !ok {
		return nil, repository.ErrMovieNotFound
	}
	m = r.withGenres(m)
	return &m, nil
}

func (r *MovieRepo) Genres(_ context.Context) ([]model.Genre, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.Genre, 0, len(r.s.genres))
	for _, g := range r.s.genres {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MovieRepo) EnsureGenre(_ context.Context, name string) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, g := range r.s.genres {
		if g.Name == name {
			return g.ID, nil
		}
	}
	g := model.Genre{ID: r.s.id(), Name: name}
	r.s.genres[g.ID] = g
	return g.ID, nil
}

func (r *MovieRepo) EnsureMovie(_ context.Context, m model.Movie, genreIDs []uint64) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.movies {
		if existing.Title == m.Title {
			return existing.ID, nil
		}
	}
	m.ID = r.s.id()
	m.CreatedAt = r.s.now()
	m.UpdatedAt = m.CreatedAt
	m.Genres = nil
	r.s.movies[m.ID] = m
	r.s.movieGenres[m.ID] = append([]uint64(nil), genreIDs...)
	return m.ID, nil
}

func containsID(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// UserRepo mirrors repository.UserRepo.
type UserRepo struct{ s *Store }

func (r *UserRepo) Create(_ context.Context, u model.User) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, other := range r.s.users {
		if other.Email == u.Email {
			return 0, repository.ErrEmailExists
		}
		if u.Phone != "" && other.Phone == u.Phone {
			return 0, repository.ErrPhoneExists
		}
	}
	now := r.s.now()
	u.ID, u.IsActive, u.CreatedAt, u.UpdatedAt = r.s.id(), true, now, now
	r.s.users[u.ID] = u
	return u.ID, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (r *UserRepo) GetByID(_ context.Context, id uint64) (model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

// TokenRepo mirrors repository.TokenRepo.
type TokenRepo struct{ s *Store }

func (r *TokenRepo) Save(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.tokens[tokenHash] = token{userID: userID, expires: exp}
	return nil
}

func (r *TokenRepo) Owner(_ context.Context, tokenHash string) (uint64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tokens[tokenHash]
	if !ok || t.revoked || r.s.now().After(t.expires) {
		return 0, repository.ErrInvalidRefresh
	}
	return t.userID, nil
}

func (r *TokenRepo) Revoke(_ context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tokens[tokenHash]; ok {
		t.revoked = true
		r.s.tokens[tokenHash] = t
	}
	return nil
}

func (r *TokenRepo) RevokeUser(_ context.Context, userID uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for h, t := range r.s.tokens {
		if t.userID == userID {
			t.revoked = true
			r.s.tokens[h] = t
		}
	}
	return nil
}

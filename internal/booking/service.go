// Package booking turns seat selections into bookings. It renders the
// per-showtime seat map, books a batch of seats atomically and cancels
// bookings of upcoming showtimes.
//
// The current time is always passed in by the caller; nothing here reads
// the wall clock.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/movie-reservation/internal/layout"
	"github.com/iliyamo/movie-reservation/internal/model"
	"github.com/iliyamo/movie-reservation/internal/queue"
	"github.com/iliyamo/movie-reservation/internal/repository"
)

// ShowtimeStore loads showtimes.
type ShowtimeStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Showtime, error)
}

// HallStore loads halls.
type HallStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Hall, error)
}

// SeatStore materializes and loads seats.
type SeatStore interface {
	EnsureHall(ctx context.Context, hallID uint64, rows []layout.Row) ([]model.Seat, error)
	GetByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error)
}

// BookingStore persists bookings. CreateBatch must be all-or-nothing and
// report a uniqueness violation as *repository.SeatConflictError.
type BookingStore interface {
	BookedSeatIDs(ctx context.Context, showtimeID uint64) ([]uint64, error)
	CreateBatch(ctx context.Context, showtimeID, userID uint64, seatIDs []uint64, at time.Time) ([]model.Booking, error)
	GetByID(ctx context.Context, id uint64) (*model.BookingDetail, error)
	DeleteForUser(ctx context.Context, id, userID uint64) error
	ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
}

// EventPublisher announces committed bookings and cancellations.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
	PublishBookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error
}

const publishTimeout = 3 * time.Second

// Service implements seat map rendering, booking and cancellation.
type Service struct {
	showtimes ShowtimeStore
	halls     HallStore
	seats     SeatStore
	bookings  BookingStore
	events    EventPublisher
	log       *zap.Logger
}

// NewService wires a Service. events may be nil, in which case no
// events are published.
func NewService(showtimes ShowtimeStore, halls HallStore, seats SeatStore, bookings BookingStore, events EventPublisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		showtimes: showtimes,
		halls:     halls,
		seats:     seats,
		bookings:  bookings,
		events:    events,
		log:       log,
	}
}

// BookRequest is a seat selection for one showtime.
type BookRequest struct {
	ShowtimeID uint64
	SeatIDs    []uint64
	HolderID   uint64
}

// BookResult is what a successful Book committed.
type BookResult struct {
	Showtime model.Showtime
	Bookings []model.Booking
	Seats    []model.Seat // in the order of Bookings
}

// TotalCents is the price of all booked seats.
func (r *BookResult) TotalCents() uint32 {
	return r.Showtime.PriceCents * uint32(len(r.Bookings))
}

// Book validates the selection and books every seat for the holder, or
// none of them. Validation runs in order: holder and selection, showtime
// existence, showtime not started, seats exist in the hall, seats free.
// A seat taken by a concurrent request between the check and the commit
// is reported as ErrSeatAlreadyBooked as well.
func (s *Service) Book(ctx context.Context, req BookRequest, now time.Time) (*BookResult, error) {
	if req.HolderID == 0 {
		return nil, ErrUnauthenticated
	}
	seatIDs := dedupe(req.SeatIDs)
	if len(seatIDs) == 0 {
		return nil, ErrNoSeatsSelected
	}

	st, err := s.showtime(ctx, req.ShowtimeID)
	if err != nil {
		return nil, err
	}
	if st.Started(now) {
		return nil, ErrAlreadyOccurred
	}
	hall, err := s.hall(ctx, st.HallID)
	if err != nil {
		return nil, err
	}

	found, err := s.seats.GetByIDs(ctx, seatIDs)
	if err != nil {
		return nil, fmt.Errorf("load seats: %w", err)
	}
	byID := make(map[uint64]model.Seat, len(found))
	for _, seat := range found {
		byID[seat.ID] = seat
	}
	ordered := make([]model.Seat, 0, len(seatIDs))
	for _, id := range seatIDs {
		seat, ok := byID[id]
		if !ok {
			return nil, &SeatError{Kind: ErrSeatNotFound, SeatID: id}
		}
		if !inHall(*hall, seat) {
			return nil, &SeatError{Kind: ErrSeatNotInHall, SeatID: id, Label: seat.Label()}
		}
		ordered = append(ordered, seat)
	}

	booked, err := s.bookedSet(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	for _, seat := range ordered {
		if booked[seat.ID] {
			return nil, &SeatError{Kind: ErrSeatAlreadyBooked, SeatID: seat.ID, Label: seat.Label()}
		}
	}

	created, err := s.bookings.CreateBatch(ctx, st.ID, req.HolderID, seatIDs, now)
	if err != nil {
		var conflict *repository.SeatConflictError
		if errors.As(err, &conflict) {
			seat := byID[conflict.SeatID]
			return nil, &SeatError{Kind: ErrSeatAlreadyBooked, SeatID: conflict.SeatID, Label: seat.Label()}
		}
		return nil, fmt.Errorf("create bookings: %w", err)
	}

	res := &BookResult{Showtime: *st, Bookings: created, Seats: ordered}
	s.publishConfirmed(ctx, res, now)
	return res, nil
}

// Cancel deletes a booking held by holderID while its showtime is still
// upcoming. A showtime starting exactly at now can no longer be cancelled.
func (s *Service) Cancel(ctx context.Context, bookingID, holderID uint64, now time.Time) (*model.BookingDetail, error) {
	if holderID == 0 {
		return nil, ErrUnauthenticated
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if b.UserID != holderID {
		return nil, ErrNotOwner
	}
	if !b.StartTime.After(now) {
		return nil, ErrAlreadyOccurred
	}
	if err := s.bookings.DeleteForUser(ctx, b.ID, holderID); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("delete booking: %w", err)
	}

	s.publishCancelled(ctx, b, now)
	return b, nil
}

// BookingView is a booking as shown to its holder.
type BookingView struct {
	model.BookingDetail
	Seat      string `json:"seat"`
	CanCancel bool   `json:"can_cancel"`
}

func viewOf(d model.BookingDetail, now time.Time) BookingView {
	return BookingView{
		BookingDetail: d,
		Seat:          layout.SeatLabel(d.RowLabel, d.SeatNumber),
		CanCancel:     d.StartTime.After(now),
	}
}

// ListForHolder returns the holder's bookings, latest showtime first.
func (s *Service) ListForHolder(ctx context.Context, holderID uint64, now time.Time) ([]BookingView, error) {
	if holderID == 0 {
		return nil, ErrUnauthenticated
	}
	list, err := s.bookings.ListByUser(ctx, holderID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	out := make([]BookingView, 0, len(list))
	for _, d := range list {
		out = append(out, viewOf(d, now))
	}
	return out, nil
}

// Confirmation summarizes the holder's seats for one showtime.
type Confirmation struct {
	Showtime   model.Showtime `json:"showtime"`
	Bookings   []BookingView  `json:"bookings"`
	TotalCents uint32         `json:"total_cents"`
}

// Confirmation returns the holder's bookings for a showtime, as shown
// after a successful booking.
func (s *Service) Confirmation(ctx context.Context, showtimeID, holderID uint64, now time.Time) (*Confirmation, error) {
	if holderID == 0 {
		return nil, ErrUnauthenticated
	}
	st, err := s.showtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	list, err := s.bookings.ListByUser(ctx, holderID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	c := &Confirmation{Showtime: *st, Bookings: []BookingView{}}
	for _, d := range list {
		if d.ShowtimeID != showtimeID {
			continue
		}
		c.Bookings = append(c.Bookings, viewOf(d, now))
		c.TotalCents += d.PriceCents
	}
	return c, nil
}

func (s *Service) showtime(ctx context.Context, id uint64) (*model.Showtime, error) {
	st, err := s.showtimes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return nil, ErrShowtimeNotFound
		}
		return nil, fmt.Errorf("load showtime: %w", err)
	}
	return st, nil
}

func (s *Service) hall(ctx context.Context, id uint64) (*model.Hall, error) {
	h, err := s.halls.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load hall %d: %w", id, err)
	}
	return h, nil
}

func (s *Service) bookedSet(ctx context.Context, showtimeID uint64) (map[uint64]bool, error) {
	ids, err := s.bookings.BookedSeatIDs(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("load occupancy: %w", err)
	}
	set := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// inHall reports whether the seat belongs to the hall and lies inside its
// current grid.
func inHall(h model.Hall, seat model.Seat) bool {
	if seat.HallID != h.ID {
		return false
	}
	row, ok := layout.RowIndex(seat.RowLabel)
	return ok && row < h.Rows && seat.SeatNumber >= 1 && seat.SeatNumber <= h.SeatsPerRow
}

func dedupe(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *Service) publishConfirmed(ctx context.Context, res *BookResult, now time.Time) {
	if s.events == nil {
		return
	}
	ev := queue.BookingConfirmedEvent{
		UserID:           res.Bookings[0].UserID,
		ShowtimeID:       res.Showtime.ID,
		HallID:           res.Showtime.HallID,
		HallName:         res.Showtime.HallName,
		MovieTitle:       res.Showtime.MovieTitle,
		StartsAt:         res.Showtime.StartTime.UTC().Format(time.RFC3339),
		TotalAmountCents: res.TotalCents(),
		ConfirmedAt:      now.UTC().Format(time.RFC3339),
	}
	for i, b := range res.Bookings {
		ev.BookingIDs = append(ev.BookingIDs, b.ID)
		ev.SeatLabels = append(ev.SeatLabels, res.Seats[i].Label())
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.PublishBookingConfirmed(pctx, ev); err != nil {
		s.log.Warn("publish booking confirmed failed",
			zap.Uint64("showtime_id", ev.ShowtimeID), zap.Uint64s("booking_ids", ev.BookingIDs), zap.Error(err))
	}
}

func (s *Service) publishCancelled(ctx context.Context, b *model.BookingDetail, now time.Time) {
	if s.events == nil {
		return
	}
	ev := queue.BookingCancelledEvent{
		BookingID:   b.ID,
		UserID:      b.UserID,
		ShowtimeID:  b.ShowtimeID,
		HallName:    b.HallName,
		MovieTitle:  b.MovieTitle,
		StartsAt:    b.StartTime.UTC().Format(time.RFC3339),
		SeatLabel:   layout.SeatLabel(b.RowLabel, b.SeatNumber),
		CancelledAt: now.UTC().Format(time.RFC3339),
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.PublishBookingCancelled(pctx, ev); err != nil {
		s.log.Warn("publish booking cancelled failed", zap.Uint64("booking_id", ev.BookingID), zap.Error(err))
	}
}

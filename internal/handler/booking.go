package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-reservation/internal/booking"
)

// BookingHandler serves seat maps, booking and cancellation on top of
// booking.Service. All write routes expect middleware.JWTAuth to have run.
type BookingHandler struct {
	Svc *booking.Service
	Now Clock
	Log *zap.Logger
}

func NewBookingHandler(svc *booking.Service, now Clock, log *zap.Logger) *BookingHandler {
	if svc == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{Svc: svc, Now: now, Log: log}
}

type bookReq struct {
	SeatIDs []uint64 `json:"seat_ids" validate:"dive,gt=0"`
}

// SeatMap handles GET /v1/showtimes/:id/seats.
func (h *BookingHandler) SeatMap(c echo.Context) error {
	showtimeID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	m, err := h.Svc.SeatMap(c.Request().Context(), showtimeID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Book handles POST /v1/showtimes/:id/bookings. All selected seats are
// booked or none; a seat lost to another customer yields 409 with the
// refreshed seat map.
func (h *BookingHandler) Book(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showtimeID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	var req bookReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	ctx := c.Request().Context()
	res, err := h.Svc.Book(ctx, booking.BookRequest{
		ShowtimeID: showtimeID,
		SeatIDs:    req.SeatIDs,
		HolderID:   userID,
	}, h.Now.now())
	if err != nil {
		if errors.Is(err, booking.ErrSeatAlreadyBooked) {
			body := echo.Map{"error": err.Error(), "level": "warning"}
			var se *booking.SeatError
			if errors.As(err, &se) {
				body["seat_id"] = se.SeatID
				body["seat"] = se.Label
			}
			if m, mapErr := h.Svc.SeatMap(ctx, showtimeID); mapErr == nil {
				body["seat_map"] = m
			} else {
				h.Log.Warn("reload seat map after conflict", zap.Uint64("showtime_id", showtimeID), zap.Error(mapErr))
			}
			return c.JSON(http.StatusConflict, body)
		}
		return h.fail(c, err)
	}

	h.Log.Info("booking confirmed",
		zap.Uint64("user_id", userID),
		zap.Uint64("showtime_id", showtimeID),
		zap.Int("seats", len(res.Bookings)))
	return c.JSON(http.StatusCreated, echo.Map{
		"showtime_id": showtimeID,
		"bookings":    res.Bookings,
		"total_cents": res.TotalCents(),
		"redirect":    fmt.Sprintf("/v1/showtimes/%d/bookings/success", showtimeID),
	})
}

// Success handles GET /v1/showtimes/:id/bookings/success.
func (h *BookingHandler) Success(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showtimeID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	conf, err := h.Svc.Confirmation(c.Request().Context(), showtimeID, userID, h.Now.now())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, conf)
}

// MyBookings handles GET /v1/my-bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Svc.ListForHolder(c.Request().Context(), userID, h.Now.now())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

// Cancel handles DELETE /v1/bookings/:id.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Svc.Cancel(c.Request().Context(), bookingID, userID, h.Now.now())
	if err != nil {
		if errors.Is(err, booking.ErrAlreadyOccurred) {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":    "showtime has already started",
				"notice":   "Bookings for past showtimes cannot be cancelled.",
				"level":    "warning",
				"redirect": "/v1/my-bookings",
			})
		}
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"notice":   fmt.Sprintf("Booking for %s cancelled.", b.MovieTitle),
		"level":    "success",
		"redirect": "/v1/my-bookings",
	})
}

// fail maps booking errors to status codes. Unknown errors are logged
// and reported as 500 without details.
func (h *BookingHandler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, booking.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.Is(err, booking.ErrShowtimeNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
	case errors.Is(err, booking.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, booking.ErrNotOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, booking.ErrNoSeatsSelected):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no seats selected"})
	case errors.Is(err, booking.ErrSeatNotFound), errors.Is(err, booking.ErrSeatNotInHall):
		body := echo.Map{"error": err.Error()}
		var se *booking.SeatError
		if errors.As(err, &se) {
			body["seat_id"] = se.SeatID
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, booking.ErrAlreadyOccurred):
		return c.JSON(http.StatusConflict, echo.Map{"error": "showtime has already started", "level": "warning"})
	case errors.Is(err, booking.ErrSeatAlreadyBooked):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "level": "warning"})
	}
	h.Log.Error("booking request failed",
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-reservation/internal/model"
	"github.com/iliyamo/movie-reservation/internal/repository"
)

// MovieStore is the read side of the movie catalog.
type MovieStore interface {
	List(ctx context.Context, f repository.MovieFilter) ([]model.Movie, error)
	GetByID(ctx context.Context, id uint64) (*model.Movie, error)
	Genres(ctx context.Context) ([]model.Genre, error)
}

// ShowtimeLister lists showtimes in a time window ordered by start.
type ShowtimeLister interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Showtime, error)
	ListByMovieBetween(ctx context.Context, movieID uint64, from, to time.Time) ([]model.Showtime, error)
}

const (
	dateLayout = "2006-01-02"
	dayTabs    = 7
)

// CatalogHandler serves the public movie and showtime listings. Calendar
// days are computed in a fixed zone offset from UTC.
type CatalogHandler struct {
	Movies    MovieStore
	Showtimes ShowtimeLister
	Zone      *time.Location
	Now       Clock
	Log       *zap.Logger
}

func NewCatalogHandler(movies MovieStore, showtimes ShowtimeLister, utcOffsetHours int, now Clock, log *zap.Logger) *CatalogHandler {
	if log == nil {
		log = zap.NewNop()
	}
	zone := time.FixedZone(fmt.Sprintf("UTC%+d", utcOffsetHours), utcOffsetHours*3600)
	return &CatalogHandler{Movies: movies, Showtimes: showtimes, Zone: zone, Now: now, Log: log}
}

type showtimeItem struct {
	ID         uint64    `json:"id"`
	StartTime  time.Time `json:"start_time"`
	LocalTime  string    `json:"local_time"`
	HallID     uint64    `json:"hall_id"`
	HallName   string    `json:"hall_name"`
	PriceCents uint32    `json:"price_cents"`
	Bookable   bool      `json:"bookable"`
	SeatsURL   string    `json:"seats_url"`
}

type movieShowtimes struct {
	Movie     movieSummary   `json:"movie"`
	Showtimes []showtimeItem `json:"showtimes"`
}

type movieSummary struct {
	ID    uint64 `json:"id"`
	Title string `json:"title"`
}

// today returns local midnight of the current day.
func (h *CatalogHandler) today() time.Time {
	now := h.Now.now().In(h.Zone)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.Zone)
}

// selectedDay parses raw as a local date; empty means today.
func (h *CatalogHandler) selectedDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return h.today(), nil
	}
	return time.ParseInLocation(dateLayout, raw, h.Zone)
}

func (h *CatalogHandler) days() []string {
	start := h.today()
	out := make([]string, 0, dayTabs)
	for i := 0; i < dayTabs; i++ {
		out = append(out, start.AddDate(0, 0, i).Format(dateLayout))
	}
	return out
}

func (h *CatalogHandler) item(st model.Showtime, now time.Time) showtimeItem {
	return showtimeItem{
		ID:         st.ID,
		StartTime:  st.StartTime.UTC(),
		LocalTime:  st.StartTime.In(h.Zone).Format("15:04"),
		HallID:     st.HallID,
		HallName:   st.HallName,
		PriceCents: st.PriceCents,
		Bookable:   !st.Started(now),
		SeatsURL:   "/v1/showtimes/" + strconv.FormatUint(st.ID, 10) + "/seats",
	}
}

// ListMovies handles GET /v1/movies?genre=&q=.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
	var f repository.MovieFilter
	if g := strings.TrimSpace(c.QueryParam("genre")); g != "" {
		id, err := strconv.ParseUint(g, 10, 64)
		if err != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid genre"})
		}
		f.GenreID = id
	}
	f.Title = strings.TrimSpace(c.QueryParam("q"))

	movies, err := h.Movies.List(c.Request().Context(), f)
	if err != nil {
		h.Log.Error("list movies", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": movies,
		"genre": f.GenreID,
		"q":     f.Title,
	})
}

// ListGenres handles GET /v1/genres.
func (h *CatalogHandler) ListGenres(c echo.Context) error {
	genres, err := h.Movies.Genres(c.Request().Context())
	if err != nil {
		h.Log.Error("list genres", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": genres})
}

// GetMovie handles GET /v1/movies/:id?date=YYYY-MM-DD.
func (h *CatalogHandler) GetMovie(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	day, err := h.selectedDay(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want YYYY-MM-DD"})
	}

	ctx := c.Request().Context()
	movie, err := h.Movies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		h.Log.Error("load movie", zap.Uint64("movie_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	list, err := h.Showtimes.ListByMovieBetween(ctx, id, day.UTC(), day.AddDate(0, 0, 1).UTC())
	if err != nil {
		h.Log.Error("list movie showtimes", zap.Uint64("movie_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	now := h.Now.now()
	items := make([]showtimeItem, 0, len(list))
	for _, st := range list {
		items = append(items, h.item(st, now))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"movie":         movie,
		"days":          h.days(),
		"selected_date": day.Format(dateLayout),
		"showtimes":     items,
	})
}

// ListShowtimes handles GET /v1/showtimes?date= and /v1/showtimes/day/:date.
// Showtimes of the day are grouped by movie in order of first screening.
func (h *CatalogHandler) ListShowtimes(c echo.Context) error {
	raw := c.Param("date")
	if raw == "" {
		raw = c.QueryParam("date")
	}
	day, err := h.selectedDay(raw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want YYYY-MM-DD"})
	}

	list, err := h.Showtimes.ListBetween(c.Request().Context(), day.UTC(), day.AddDate(0, 0, 1).UTC())
	if err != nil {
		h.Log.Error("list showtimes", zap.String("date", day.Format(dateLayout)), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	now := h.Now.now()
	groups := make([]movieShowtimes, 0)
	index := make(map[uint64]int)
	for _, st := range list {
		i, ok := index[st.MovieID]
		if !ok {
			i = len(groups)
			index[st.MovieID] = i
			groups = append(groups, movieShowtimes{Movie: movieSummary{ID: st.MovieID, Title: st.MovieTitle}})
		}
		groups[i].Showtimes = append(groups[i].Showtimes, h.item(st, now))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"days":          h.days(),
		"selected_date": day.Format(dateLayout),
		"movies":        groups,
	})
}

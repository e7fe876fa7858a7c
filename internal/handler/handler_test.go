package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/movie-reservation/internal/booking"
	"github.com/iliyamo/movie-reservation/internal/config"
	"github.com/iliyamo/movie-reservation/internal/middleware"
	"github.com/iliyamo/movie-reservation/internal/model"
	"github.com/iliyamo/movie-reservation/internal/repository/memory"
	"github.com/iliyamo/movie-reservation/internal/utils"
)

const testSecret = "test-secret"

var (
	showStart = time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)
	morning   = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
)

type env struct {
	e        *echo.Echo
	store    *memory.Store
	now      time.Time
	showtime model.Showtime
	movieID  uint64
	dramaID  uint64
	alice    uint64
	bob      uint64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	ev := &env{store: store, now: morning}
	clock := Clock(func() time.Time { return ev.now })

	hall, err := store.Halls().Ensure(ctx, "Hall 1", 2, 3)
	require.NoError(t, err)
	drama, err := store.Movies().EnsureGenre(ctx, "Drama")
	require.NoError(t, err)
	comedy, err := store.Movies().EnsureGenre(ctx, "Comedy")
	require.NoError(t, err)
	arrival, err := store.Movies().EnsureMovie(ctx, model.Movie{Title: "Arrival", DurationMinutes: 116}, []uint64{drama})
	require.NoError(t, err)
	_, err = store.Movies().EnsureMovie(ctx, model.Movie{Title: "Airplane!", DurationMinutes: 88}, []uint64{comedy})
	require.NoError(t, err)

	st := model.Showtime{MovieID: arrival, HallID: hall.ID, StartTime: showStart, PriceCents: 900}
	ok, err := store.Showtimes().CreateIfFree(ctx, &st)
	require.NoError(t, err)
	require.True(t, ok)
	// next day in UTC+3, still March 1st in UTC
	late := model.Showtime{MovieID: arrival, HallID: hall.ID, StartTime: time.Date(2025, 3, 1, 22, 0, 0, 0, time.UTC), PriceCents: 900}
	_, err = store.Showtimes().CreateIfFree(ctx, &late)
	require.NoError(t, err)

	ev.alice, err = store.Users().Create(ctx, model.User{Email: "alice@example.com", PasswordHash: "x", Role: model.RoleCustomer})
	require.NoError(t, err)
	ev.bob, err = store.Users().Create(ctx, model.User{Email: "bob@example.com", PasswordHash: "x", Role: model.RoleCustomer})
	require.NoError(t, err)

	svc := booking.NewService(store.Showtimes(), store.Halls(), store.Seats(), store.Bookings(), nil, zap.NewNop())
	bh := NewBookingHandler(svc, clock, zap.NewNop())
	ch := NewCatalogHandler(store.Movies(), store.Showtimes(), 3, clock, zap.NewNop())
	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: bcrypt.MinCost}
	ah := NewAuthHandler(cfg, store.Users(), store.Tokens(), zap.NewNop())

	e := echo.New()
	e.Validator = NewValidator()
	auth := []echo.MiddlewareFunc{middleware.JWTAuth(testSecret), middleware.RequireRole(model.RoleCustomer)}

	e.GET("/healthz", Health)
	e.GET("/v1/showtimes/:id/seats", bh.SeatMap)
	e.POST("/v1/showtimes/:id/bookings", bh.Book, auth...)
	e.GET("/v1/showtimes/:id/bookings/success", bh.Success, auth...)
	e.GET("/v1/my-bookings", bh.MyBookings, auth...)
	e.DELETE("/v1/bookings/:id", bh.Cancel, auth...)
	e.GET("/v1/movies", ch.ListMovies)
	e.GET("/v1/movies/:id", ch.GetMovie)
	e.GET("/v1/genres", ch.ListGenres)
	e.GET("/v1/showtimes", ch.ListShowtimes)
	e.GET("/v1/showtimes/day/:date", ch.ListShowtimes)
	e.POST("/v1/auth/register", ah.Register)
	e.POST("/v1/auth/login", ah.Login)
	e.POST("/v1/auth/refresh", ah.Refresh)
	e.POST("/v1/auth/refresh-access", ah.RefreshAccess)
	e.POST("/v1/auth/logout", ah.Logout)
	e.GET("/v1/me", ah.Me, auth...)

	ev.e = e
	ev.showtime = st
	ev.movieID = arrival
	ev.dramaID = drama
	return ev
}

func (ev *env) token(t *testing.T, userID uint64) string {
	t.Helper()
	at, err := utils.NewAccessToken(testSecret, userID, model.RoleCustomer, 15)
	require.NoError(t, err)
	return at.Token
}

func (ev *env) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ev.e.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 && rec.Header().Get(echo.HeaderContentType) != echo.MIMETextPlainCharsetUTF8 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func (ev *env) seatID(t *testing.T, label string) uint64 {
	t.Helper()
	_, body := ev.do(t, http.MethodGet, ev.seatsPath(), "", nil)
	for _, row := range body["rows"].([]interface{}) {
		for _, s := range row.(map[string]interface{})["seats"].([]interface{}) {
			seat := s.(map[string]interface{})
			if seat["label"] == label {
				return uint64(seat["seat_id"].(float64))
			}
		}
	}
	t.Fatalf("seat %s not found", label)
	return 0
}

func (ev *env) seatsPath() string { return fmt.Sprintf("/v1/showtimes/%d/seats", ev.showtime.ID) }
func (ev *env) bookPath() string  { return fmt.Sprintf("/v1/showtimes/%d/bookings", ev.showtime.ID) }

func TestHealth(t *testing.T) {
	ev := newEnv(t)
	rec, _ := ev.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestSeatMap(t *testing.T) {
	ev := newEnv(t)

	rec, body := ev.do(t, http.MethodGet, ev.seatsPath(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 6, body["free"])
	assert.EqualValues(t, 0, body["occupied"])
	rows := body["rows"].([]interface{})
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].(map[string]interface{})["label"])

	rec, _ = ev.do(t, http.MethodGet, "/v1/showtimes/abc/seats", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = ev.do(t, http.MethodGet, "/v1/showtimes/999/seats", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBook_Success(t *testing.T) {
	ev := newEnv(t)
	a1, a2 := ev.seatID(t, "A1"), ev.seatID(t, "A2")

	rec, body := ev.do(t, http.MethodPost, ev.bookPath(), ev.token(t, ev.alice), echo.Map{"seat_ids": []uint64{a1, a2}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, body["bookings"], 2)
	assert.EqualValues(t, 1800, body["total_cents"])
	assert.Equal(t, fmt.Sprintf("/v1/showtimes/%d/bookings/success", ev.showtime.ID), body["redirect"])

	_, m := ev.do(t, http.MethodGet, ev.seatsPath(), "", nil)
	assert.EqualValues(t, 2, m["occupied"])

	rec, conf := ev.do(t, http.MethodGet, body["redirect"].(string), ev.token(t, ev.alice), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, conf["bookings"], 2)
	assert.EqualValues(t, 1800, conf["total_cents"])
}

func TestBook_Conflict(t *testing.T) {
	ev := newEnv(t)
	b2 := ev.seatID(t, "B2")

	rec, _ := ev.do(t, http.MethodPost, ev.bookPath(), ev.token(t, ev.alice), echo.Map{"seat_ids": []uint64{b2}})
	require.Equal(t, http.StatusCreated, rec.Code)

	a1 := ev.seatID(t, "A1")
	rec, body := ev.do(t, http.MethodPost, ev.bookPath(), ev.token(t, ev.bob), echo.Map{"seat_ids": []uint64{a1, b2}})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "B2", body["seat"])
	assert.Equal(t, "warning", body["level"])
	seatMap := body["seat_map"].(map[string]interface{})
	assert.EqualValues(t, 1, seatMap["occupied"])

	// nothing of bob's selection was kept
	_, mine := ev.do(t, http.MethodGet, "/v1/my-bookings", ev.token(t, ev.bob), nil)
	assert.Empty(t, mine["items"])
}

func TestBook_BadRequests(t *testing.T) {
	ev := newEnv(t)
	tok := ev.token(t, ev.alice)

	rec, _ := ev.do(t, http.MethodPost, ev.bookPath(), "", echo.Map{"seat_ids": []uint64{1}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := ev.do(t, http.MethodPost, ev.bookPath(), tok, echo.Map{"seat_ids": []uint64{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no seats selected", body["error"])

	rec, body = ev.do(t, http.MethodPost, ev.bookPath(), tok, echo.Map{"seat_ids": []uint64{0}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "gt", body["rule"])

	rec, _ = ev.do(t, http.MethodPost, ev.bookPath(), tok, echo.Map{"seat_ids": []uint64{424242}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ev.do(t, http.MethodPost, "/v1/showtimes/999/bookings", tok, echo.Map{"seat_ids": []uint64{1}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	a1 := ev.seatID(t, "A1")
	ev.now = showStart
	rec, body = ev.do(t, http.MethodPost, ev.bookPath(), tok, echo.Map{"seat_ids": []uint64{a1}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "warning", body["level"])
}

func TestMyBookingsAndCancel(t *testing.T) {
	ev := newEnv(t)
	a3 := ev.seatID(t, "A3")
	alice := ev.token(t, ev.alice)

	_, created := ev.do(t, http.MethodPost, ev.bookPath(), alice, echo.Map{"seat_ids": []uint64{a3}})
	id := uint64(created["bookings"].([]interface{})[0].(map[string]interface{})["id"].(float64))

	rec, body := ev.do(t, http.MethodGet, "/v1/my-bookings", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "A3", item["seat"])
	assert.Equal(t, "Arrival", item["movie_title"])
	assert.Equal(t, true, item["can_cancel"])

	path := fmt.Sprintf("/v1/bookings/%d", id)
	rec, body = ev.do(t, http.MethodDelete, path, ev.token(t, ev.bob), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", body["error"])

	rec, _ = ev.do(t, http.MethodDelete, "/v1/bookings/999", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = ev.do(t, http.MethodDelete, path, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["level"])
	assert.Equal(t, "/v1/my-bookings", body["redirect"])

	rec, _ = ev.do(t, http.MethodDelete, path, alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancel_AfterStart(t *testing.T) {
	ev := newEnv(t)
	a1 := ev.seatID(t, "A1")
	alice := ev.token(t, ev.alice)
	_, created := ev.do(t, http.MethodPost, ev.bookPath(), alice, echo.Map{"seat_ids": []uint64{a1}})
	id := uint64(created["bookings"].([]interface{})[0].(map[string]interface{})["id"].(float64))

	ev.now = showStart.Add(time.Minute)
	rec, body := ev.do(t, http.MethodDelete, fmt.Sprintf("/v1/bookings/%d", id), alice, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "warning", body["level"])

	_, mine := ev.do(t, http.MethodGet, "/v1/my-bookings", alice, nil)
	items := mine["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, false, items[0].(map[string]interface{})["can_cancel"])
}

func TestCatalog_Movies(t *testing.T) {
	ev := newEnv(t)

	rec, body := ev.do(t, http.MethodGet, "/v1/movies", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["items"], 2)

	_, body = ev.do(t, http.MethodGet, fmt.Sprintf("/v1/movies?genre=%d", ev.dramaID), "", nil)
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Arrival", items[0].(map[string]interface{})["title"])

	_, body = ev.do(t, http.MethodGet, "/v1/movies?q=plane", "", nil)
	items = body["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Airplane!", items[0].(map[string]interface{})["title"])

	rec, _ = ev.do(t, http.MethodGet, "/v1/movies?genre=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, body = ev.do(t, http.MethodGet, "/v1/genres", "", nil)
	genres := body["items"].([]interface{})
	require.Len(t, genres, 2)
	assert.Equal(t, "Comedy", genres[0].(map[string]interface{})["name"])
}

func TestCatalog_MovieDetail(t *testing.T) {
	ev := newEnv(t)

	rec, body := ev.do(t, http.MethodGet, fmt.Sprintf("/v1/movies/%d", ev.movieID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-03-01", body["selected_date"])
	days := body["days"].([]interface{})
	require.Len(t, days, 7)
	assert.Equal(t, "2025-03-01", days[0])
	assert.Equal(t, "2025-03-07", days[6])
	// 22:00 UTC is already March 2nd at UTC+3
	shows := body["showtimes"].([]interface{})
	require.Len(t, shows, 1)
	assert.Equal(t, "22:00", shows[0].(map[string]interface{})["local_time"])
	assert.Equal(t, true, shows[0].(map[string]interface{})["bookable"])

	_, body = ev.do(t, http.MethodGet, fmt.Sprintf("/v1/movies/%d?date=2025-03-02", ev.movieID), "", nil)
	shows = body["showtimes"].([]interface{})
	require.Len(t, shows, 1)
	assert.Equal(t, "01:00", shows[0].(map[string]interface{})["local_time"])

	rec, _ = ev.do(t, http.MethodGet, fmt.Sprintf("/v1/movies/%d?date=03-01-2025", ev.movieID), "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = ev.do(t, http.MethodGet, "/v1/movies/999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalog_Showtimes(t *testing.T) {
	ev := newEnv(t)

	rec, body := ev.do(t, http.MethodGet, "/v1/showtimes", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	movies := body["movies"].([]interface{})
	require.Len(t, movies, 1)
	group := movies[0].(map[string]interface{})
	assert.Equal(t, "Arrival", group["movie"].(map[string]interface{})["title"])
	assert.Len(t, group["showtimes"], 1)

	_, body = ev.do(t, http.MethodGet, "/v1/showtimes/day/2025-03-05", "", nil)
	assert.Equal(t, "2025-03-05", body["selected_date"])
	assert.Empty(t, body["movies"])

	rec, _ = ev.do(t, http.MethodGet, "/v1/showtimes?date=tomorrow", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuth_Flow(t *testing.T) {
	ev := newEnv(t)

	rec, body := ev.do(t, http.MethodPost, "/v1/auth/register", "", echo.Map{"email": " Carol@Example.com ", "password": "password1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "carol@example.com", user["email"])
	assert.Equal(t, model.RoleCustomer, user["role"])

	rec, _ = ev.do(t, http.MethodPost, "/v1/auth/register", "", echo.Map{"email": "carol@example.com", "password": "password1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec, body = ev.do(t, http.MethodPost, "/v1/auth/register", "", echo.Map{"email": "nope", "password": "password1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email", body["field"])
	rec, _ = ev.do(t, http.MethodPost, "/v1/auth/register", "", echo.Map{"email": "dan@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ev.do(t, http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "carol@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = ev.do(t, http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "ghost@example.com", "password": "password1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body = ev.do(t, http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "carol@example.com", "password": "password1"})
	require.Equal(t, http.StatusOK, rec.Code)
	access := body["access"].(map[string]interface{})["token"].(string)
	refresh := body["refresh"].(map[string]interface{})["token"].(string)

	rec, me := ev.do(t, http.MethodGet, "/v1/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, user["id"], me["user_id"])

	rec, _ = ev.do(t, http.MethodPost, "/v1/auth/refresh-access", "", echo.Map{"refresh_token": refresh})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = ev.do(t, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := body["refresh"].(map[string]interface{})["token"].(string)
	assert.NotEqual(t, refresh, rotated)

	rec, _ = ev.do(t, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = ev.do(t, http.MethodPost, "/v1/auth/logout", "", echo.Map{"refresh_token": rotated})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = ev.do(t, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": rotated})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_RegisterPhone(t *testing.T) {
	ev := newEnv(t)

	rec, body := ev.do(t, http.MethodPost, "/v1/auth/register", "",
		echo.Map{"email": "fay@example.com", "phone": "+1 555-123-4567", "password": "password1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "+15551234567", user["phone"])
	assert.Equal(t, false, user["is_verified"])

	stored, err := ev.store.Users().GetByEmail(context.Background(), "fay@example.com")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", stored.Phone)

	rec, body = ev.do(t, http.MethodPost, "/v1/auth/register", "",
		echo.Map{"email": "gus@example.com", "phone": "+15551234567", "password": "password1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "phone already exists", body["error"])

	rec, body = ev.do(t, http.MethodPost, "/v1/auth/register", "",
		echo.Map{"email": "gus@example.com", "phone": "12ab", "password": "password1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Phone", body["field"])
	assert.Equal(t, "phone", body["rule"])

	rec, body = ev.do(t, http.MethodPost, "/v1/auth/register", "",
		echo.Map{"email": "gus@example.com", "password": "password1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	_, hasPhone := body["user"].(map[string]interface{})["phone"]
	assert.False(t, hasPhone)
}

func TestAuth_LogoutAllSessions(t *testing.T) {
	ev := newEnv(t)

	_, body := ev.do(t, http.MethodPost, "/v1/auth/register", "", echo.Map{"email": "erin@example.com", "password": "password1"})
	access := body["access"].(map[string]interface{})["token"].(string)
	refresh := body["refresh"].(map[string]interface{})["token"].(string)

	rec, _ := ev.do(t, http.MethodPost, "/v1/auth/logout", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ev.do(t, http.MethodPost, "/v1/auth/logout", access, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = ev.do(t, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetUserID(t *testing.T) {
	e := echo.New()
	cases := []struct {
		in   any
		want uint64
		ok   bool
	}{
		{float64(7), 7, true},
		{uint64(3), 3, true},
		{"12", 12, true},
		{float64(-1), 0, false},
		{float64(0), 0, false},
		{float64(2.5), 0, false},
		{int(-4), 0, false},
		{"0", 0, false},
		{nil, 0, false},
	}
	for _, tc := range cases {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.Set(middleware.ContextUserID, tc.in)
		got, err := getUserID(c)
		if tc.ok {
			require.NoError(t, err, "%v", tc.in)
			assert.Equal(t, tc.want, got)
		} else {
			assert.Error(t, err, "%v", tc.in)
		}
	}
}

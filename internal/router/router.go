// Package router registers the HTTP routes of the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-reservation/internal/handler"
	"github.com/iliyamo/movie-reservation/internal/middleware"
	"github.com/iliyamo/movie-reservation/internal/model"
)

// RegisterRoutes registers routes that need no handler dependencies.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers /v1/auth and the protected /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// logout works with either a refresh token in the body or a bearer token
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin))
}

// RegisterCatalog registers the public listings. cache wraps every
// catalog route; pass nil to disable caching.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if cache != nil {
		mw = append(mw, cache)
	}
	g := e.Group("/v1")
	g.GET("/movies", h.ListMovies, mw...)
	g.GET("/movies/:id", h.GetMovie, mw...)
	g.GET("/genres", h.ListGenres, mw...)
	g.GET("/showtimes", h.ListShowtimes, mw...)
	g.GET("/showtimes/day/:date", h.ListShowtimes, mw...)
}

// RegisterBooking registers the seat map and the booking endpoints. The
// seat map is public and never cached; everything else requires a valid
// access token. limiter guards the write routes; pass nil to disable it.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	e.GET("/v1/showtimes/:id/seats", h.SeatMap)

	auth := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	}
	writes := auth
	if limiter != nil {
		writes = append(append([]echo.MiddlewareFunc{}, auth...), limiter)
	}

	g := e.Group("/v1")
	g.POST("/showtimes/:id/bookings", h.Book, writes...)
	g.GET("/showtimes/:id/bookings/success", h.Success, auth...)
	g.GET("/my-bookings", h.MyBookings, auth...)
	g.DELETE("/bookings/:id", h.Cancel, writes...)
}

// Package handler exposes the HTTP handlers for the booking, catalog and
// auth endpoints.
package handler

import (
	"errors"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-reservation/internal/middleware"
)

// Clock returns the current time. Handlers take one so tests can pin it.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// Validator adapts validator/v10 to echo.Validator.
type Validator struct {
	v *validator.Validate
}

// phonePattern accepts 9 to 15 digits with an optional leading '+' and
// country code 1.
var phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

// NewValidator returns a validator with the custom "phone" tag registered.
func NewValidator() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Validate runs the struct's `validate` tags.
func (cv *Validator) Validate(i interface{}) error { return cv.v.Struct(i) }

// normalizer is implemented by request DTOs that clean their fields
// before validation.
type normalizer interface{ normalize() }

// bindAndValidate decodes the body into req and validates it. When it
// reports false the response has already been written and the returned
// error is the handler's result.
func bindAndValidate(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if n, ok := req.(normalizer); ok {
		n.normalize()
	}
	if err := c.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return false, c.JSON(http.StatusBadRequest, echo.Map{
				"error": "validation failed",
				"field": verrs[0].Field(),
				"rule":  verrs[0].Tag(),
			})
		}
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed"})
	}
	return true, nil
}

var errInvalidUserID = errors.New("invalid user_id in context")

// getUserID reads the authenticated user id set by middleware.JWTAuth.
// Only positive whole numbers are accepted.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get(middleware.ContextUserID).(type) {
	case uint64:
		if t > 0 {
			return t, nil
		}
	case int:
		if t > 0 {
			return uint64(t), nil
		}
	case int64:
		if t > 0 {
			return uint64(t), nil
		}
	case float64:
		if t >= 1 && t == math.Trunc(t) && t < math.MaxUint64 {
			return uint64(t), nil
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, errInvalidUserID
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

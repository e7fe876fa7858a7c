package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// currentUserID renders the authenticated user id for keys and logs, or
// "anon" when the request carries none. JSON numbers decode as float64,
// so numeric claims are printed without a fraction.
func currentUserID(c echo.Context) string {
	switch v := c.Get(ContextUserID).(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return fmt.Sprintf("%.0f", v)
	case uint64:
		return fmt.Sprint(v)
	case int:
		return fmt.Sprint(v)
	case int64:
		return fmt.Sprint(v)
	}
	return "anon"
}

package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// User types recognized by the API.
const (
	TypePatient = "patient"
	TypeDoctor  = "doctor"
	TypeAdmin   = "admin"
)

// RequireUserType returns middleware that checks the authenticated user's
// type against the allowed set. Admins pass every check.
func RequireUserType(types ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userType := UserTypeFromContext(c.Request().Context())
			if userType == TypeAdmin {
				return next(c)
			}
			for _, allowed := range types {
				if userType == allowed {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required user type: %s", strings.Join(types, " or ")))
		}
	}
}

package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireSelfOrAdmin restricts /users/:<param>/... routes to the user named in
// the path, or to an admin.
func RequireSelfOrAdmin(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if HasRole(ctx, RoleAdmin) {
				return next(c)
			}
			uid := UserIDFromContext(ctx)
			if uid == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			if uid != c.Param(param) {
				return echo.NewHTTPError(http.StatusForbidden, "access to another user's records is not allowed")
			}
			return next(c)
		}
	}
}

package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// IdentityHeader carries the caller's verified email, set by the
// authenticating gateway in front of this service. The service trusts
// it as-is; verification itself is not done here.
const IdentityHeader = "X-Auth-Email"

const identityContextKey = "bidder_identity"

// RequireIdentity rejects requests that arrive without a verified
// identity. Handlers read it back with IdentityFrom.
func RequireIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		email := c.Request().Header.Get(IdentityHeader)
		if email == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		}

		c.Set(identityContextKey, email)
		return next(c)
	}
}

func IdentityFrom(c echo.Context) string {
	email, _ := c.Get(identityContextKey).(string)
	return email
}

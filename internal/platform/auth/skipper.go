package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths are route templates reachable without a token.
var publicPaths = map[string]bool{
	"/health":            true,
	"/metrics":           true,
	"/api/auth/login":    true,
	"/api/auth/register": true,
}

// AuthSkipper reports whether the matched route is public.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

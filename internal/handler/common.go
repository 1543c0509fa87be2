package handler // HTTP handlers for the booking API

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID pulls the authenticated user id stored by the JWT
// middleware.  A missing or mistyped value means the route was mounted
// without auth; the caller responds 401 rather than guessing.
func currentUserID(c echo.Context) (uint64, bool) {
	v, ok := c.Get("user_id").(uint64)
	return v, ok && v != 0
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	return n, err == nil && n != 0
}

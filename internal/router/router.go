package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/showtime-booking/internal/config"
	"github.com/iliyamo/showtime-booking/internal/handler"
	appmw "github.com/iliyamo/showtime-booking/internal/middleware"
)

// Deps bundles everything route registration needs.
type Deps struct {
	Seats        *handler.SeatHandler
	Reservations *handler.ReservationHandler
	JWTSecret    string
	RateLimit    config.RateLimitConfig
	Redis        *redis.Client
	Registry     prometheus.Gatherer
}

// Register mounts all routes on the provided Echo instance.
//
// /healthz and /metrics are unauthenticated operational endpoints.  The
// seat map is public so guests can browse availability before logging
// in; every mutating endpoint lives under the authenticated /v1 group
// behind the JWT middleware and the Redis token bucket.
func Register(e *echo.Echo, d Deps) {
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/healthz", handler.Health)
	if d.Registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	// Guests may browse the seat map; held_by_me is simply absent.
	e.GET("/v1/showtimes/:id/seats", d.Seats.QuerySeats)

	auth := e.Group("/v1")
	auth.Use(appmw.JWTAuth(d.JWTSecret))
	auth.Use(appmw.NewTokenBucket(d.RateLimit, d.Redis))

	auth.POST("/showtimes/:id/seats/:seat_id/lock", d.Seats.LockSeat)
	auth.POST("/showtimes/:id/seats/:seat_id/unlock", d.Seats.UnlockSeat)

	auth.POST("/reservations", d.Reservations.CreateReservation)
	auth.GET("/reservations", d.Reservations.ListReservations)
	auth.GET("/reservations/:id", d.Reservations.GetReservation)
}

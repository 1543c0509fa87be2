package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-booking/internal/lock"
	"github.com/iliyamo/showtime-booking/internal/pricing"
	"github.com/iliyamo/showtime-booking/internal/registry"
)

// SeatHandler exposes the seat map and the lock/unlock operations.
type SeatHandler struct {
	mgr    *lock.Manager
	prices pricing.Resolver
}

// NewSeatHandler wires the handler to the lock manager and price table.
func NewSeatHandler(mgr *lock.Manager, prices pricing.Resolver) *SeatHandler {
	return &SeatHandler{mgr: mgr, prices: prices}
}

type seatView struct {
	SeatID        uint64  `json:"seat_id"`
	Label         string  `json:"label"`
	Class         string  `json:"class"`
	Row           uint32  `json:"row"`
	Col           uint32  `json:"col"`
	PriceCents    uint32  `json:"price_cents"`
	Status        string  `json:"status"`
	HeldByMe      bool    `json:"held_by_me,omitempty"`
	HoldExpiresAt *string `json:"hold_expires_at,omitempty"`
}

type lockRequest struct {
	TTLSeconds uint32 `json:"ttl_seconds"` // optional, 0 selects the server default
}

// QuerySeats returns the effective state of every seat for a showtime.
// Expired holds read as available regardless of sweeper timing, so two
// clients polling the map always converge on the same view.
//
// GET /v1/showtimes/:id/seats
func (h *SeatHandler) QuerySeats(c echo.Context) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	userID, _ := c.Get("user_id").(uint64) // optional on this route

	views, err := h.mgr.Query(c.Request().Context(), showtimeID)
	if err != nil {
		return h.fail(c, err)
	}

	out := make([]seatView, 0, len(views))
	for _, v := range views {
		price, perr := h.prices.PriceFor(v.Seat.Class)
		if perr != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unpriced seat class"})
		}
		sv := seatView{
			SeatID:     v.Seat.ID,
			Label:      v.Seat.Label,
			Class:      string(v.Seat.Class),
			Row:        v.Seat.Row,
			Col:        v.Seat.Col,
			PriceCents: price,
			Status:     string(v.Status),
		}
		if v.ExpiresAt != nil {
			exp := v.ExpiresAt.UTC().Format(time.RFC3339)
			sv.HoldExpiresAt = &exp
			sv.HeldByMe = userID != 0 && v.HeldBy == userID
		}
		out = append(out, sv)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"showtime_id": showtimeID,
		"seats":       out,
	})
}

// LockSeat places or refreshes a hold on one seat for the caller.
// Re-locking a seat you already hold extends the deadline and returns
// the same token, so impatient double-clicks are harmless.
//
// POST /v1/showtimes/:id/seats/:seat_id/lock
func (h *SeatHandler) LockSeat(c echo.Context) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	seatID, ok := pathID(c, "seat_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req lockRequest
	if err := c.Bind(&req); err != nil && c.Request().ContentLength > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second

	l, err := h.mgr.Acquire(c.Request().Context(), showtimeID, seatID, userID, ttl)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"showtime_id": l.ShowtimeID,
		"seat_id":     l.SeatID,
		"token":       l.Token,
		"locked_at":   l.LockedAt.UTC().Format(time.RFC3339),
		"expires_at":  l.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// UnlockSeat drops the caller's hold.  Unlocking a seat the caller does
// not hold is a successful no-op.
//
// POST /v1/showtimes/:id/seats/:seat_id/unlock
func (h *SeatHandler) UnlockSeat(c echo.Context) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	seatID, ok := pathID(c, "seat_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	if err := h.mgr.Release(c.Request().Context(), showtimeID, seatID, userID); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "released"})
}

func (h *SeatHandler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, lock.ErrSeatLocked):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat is locked by another user"})
	case errors.Is(err, lock.ErrSeatUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat is already sold"})
	case errors.Is(err, registry.ErrShowtimeNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
	case errors.Is(err, registry.ErrSeatNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
	default:
		c.Logger().Errorf("seat operation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

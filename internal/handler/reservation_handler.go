package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/showtime-booking/internal/booking"
	"github.com/iliyamo/showtime-booking/internal/logger"
	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/queue"
	"github.com/iliyamo/showtime-booking/internal/registry"
)

// ReservationHandler exposes the commit operation and reservation reads.
type ReservationHandler struct {
	committer *booking.Committer
	store     booking.Store
	reg       *registry.Registry
	publish   bool // emit reservation.confirmed events to the broker
}

// NewReservationHandler wires the handler.  publish controls whether
// confirmed commits also emit a broker event.
func NewReservationHandler(committer *booking.Committer, store booking.Store, reg *registry.Registry, publish bool) *ReservationHandler {
	return &ReservationHandler{committer: committer, store: store, reg: reg, publish: publish}
}

type createReservationRequest struct {
	ShowtimeID uint64   `json:"showtime_id"`
	SeatIDs    []uint64 `json:"seat_ids"`
}

type ticketView struct {
	TicketID   uint64 `json:"ticket_id"`
	SeatID     uint64 `json:"seat_id"`
	PriceCents uint32 `json:"price_cents"`
}

// CreateReservation converts the caller's held seats into a confirmed
// reservation with one ticket per seat.  The commit is all-or-nothing:
// if any requested seat is no longer held by the caller the response is
// a 409 naming the lost seats and nothing changes.
//
// POST /v1/reservations
func (h *ReservationHandler) CreateReservation(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req createReservationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.ShowtimeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "showtime_id is required"})
	}

	res, tickets, err := h.committer.Commit(c.Request().Context(), userID, req.ShowtimeID, req.SeatIDs)
	if err != nil {
		var loss *booking.PartialHoldLossError
		switch {
		case errors.As(err, &loss):
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "hold lost",
				"seats": loss.SeatIDs,
			})
		case errors.Is(err, booking.ErrEmptySelection):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no seats selected"})
		case errors.Is(err, registry.ErrShowtimeNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
		case errors.Is(err, registry.ErrSeatNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		default:
			c.Logger().Errorf("commit failed: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
	}

	if h.publish {
		go h.publishConfirmed(res, tickets)
	}

	return c.JSON(http.StatusCreated, reservationPayload(res, tickets))
}

// ListReservations returns the caller's reservations, newest first.
//
// GET /v1/reservations
func (h *ReservationHandler) ListReservations(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	reservations, byRes, err := h.store.ReservationsByUser(c.Request().Context(), userID)
	if err != nil {
		c.Logger().Errorf("list reservations failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	out := make([]echo.Map, 0, len(reservations))
	for i := range reservations {
		out = append(out, reservationPayload(&reservations[i], byRes[reservations[i].ID]))
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}

// GetReservation returns one reservation with its tickets.  Callers can
// only read their own records; anything else is a 404.
//
// GET /v1/reservations/:id
func (h *ReservationHandler) GetReservation(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	resID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	res, tickets, err := h.store.Reservation(c.Request().Context(), resID)
	if err != nil {
		c.Logger().Errorf("get reservation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if res == nil || res.UserID != userID {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	}
	return c.JSON(http.StatusOK, reservationPayload(res, tickets))
}

func reservationPayload(res *model.Reservation, tickets []model.Ticket) echo.Map {
	var total uint32
	tv := make([]ticketView, 0, len(tickets))
	for _, t := range tickets {
		total += t.PriceCents
		tv = append(tv, ticketView{TicketID: t.ID, SeatID: t.SeatID, PriceCents: t.PriceCents})
	}
	return echo.Map{
		"reservation_id":    res.ID,
		"showtime_id":       res.ShowtimeID,
		"status":            res.Status,
		"created_at":        res.CreatedAt.UTC().Format(time.RFC3339),
		"total_price_cents": total,
		"tickets":           tv,
	}
}

// publishConfirmed emits the broker event for a committed reservation.
// Best effort: the sale is already durable, so failures are only logged.
func (h *ReservationHandler) publishConfirmed(res *model.Reservation, tickets []model.Ticket) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := queue.ReservationConfirmedEvent{
		ReservationID: res.ID,
		UserID:        res.UserID,
		ShowtimeID:    res.ShowtimeID,
		ConfirmedAt:   res.CreatedAt.UTC().Format(time.RFC3339),
	}
	st, err := h.reg.Showtime(ctx, res.ShowtimeID)
	for _, t := range tickets {
		ev.SeatIDs = append(ev.SeatIDs, t.SeatID)
		ev.TotalPriceCents += t.PriceCents
		if err == nil {
			if seat, serr := h.reg.Seat(ctx, st.ScreenID, t.SeatID); serr == nil {
				ev.SeatLabels = append(ev.SeatLabels, seat.Label)
			}
		}
	}

	if perr := queue.PublishReservationConfirmed(ctx, ev); perr != nil {
		logger.Warn("reservation event publish failed",
			zap.Uint64("reservation_id", res.ID), zap.Error(perr))
	}
}

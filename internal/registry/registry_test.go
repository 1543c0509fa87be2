package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-booking/internal/model"
)

// countingSource wraps a fixed layout and counts loads so tests can
// assert the cache short-circuits repeat lookups.
type countingSource struct {
	showtimes     map[uint64]model.Showtime
	screens       map[uint64][]model.Seat
	showtimeLoads int
	screenLoads   int
}

func (s *countingSource) Showtime(_ context.Context, id uint64) (*model.Showtime, error) {
	s.showtimeLoads++
	st, ok := s.showtimes[id]
	if !ok {
		return nil, ErrShowtimeNotFound
	}
	return &st, nil
}

func (s *countingSource) SeatsByScreen(_ context.Context, screenID uint64) ([]model.Seat, error) {
	s.screenLoads++
	return s.screens[screenID], nil
}

func newSource() *countingSource {
	return &countingSource{
		showtimes: map[uint64]model.Showtime{
			226: {ID: 226, MovieID: 1, ScreenID: 1,
				StartsAt: time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC),
				EndsAt:   time.Date(2026, 3, 14, 22, 30, 0, 0, time.UTC)},
		},
		screens: map[uint64][]model.Seat{
			1: {
				{ID: 1, ScreenID: 1, Label: "A1", Class: model.SeatClassStandard, Row: 1, Col: 1},
				{ID: 2, ScreenID: 1, Label: "A2", Class: model.SeatClassPremium, Row: 1, Col: 2},
			},
		},
	}
}

func TestShowtimeLookupAndCache(t *testing.T) {
	src := newSource()
	r := New(src)
	ctx := context.Background()

	st, err := r.Showtime(ctx, 226)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.ScreenID)

	_, err = r.Showtime(ctx, 226)
	require.NoError(t, err)
	assert.Equal(t, 1, src.showtimeLoads, "second lookup must hit the cache")

	_, err = r.Showtime(ctx, 999)
	assert.ErrorIs(t, err, ErrShowtimeNotFound)
}

func TestSeatLookup(t *testing.T) {
	src := newSource()
	r := New(src)
	ctx := context.Background()

	seat, err := r.Seat(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "A2", seat.Label)
	assert.Equal(t, model.SeatClassPremium, seat.Class)

	_, err = r.Seat(ctx, 1, 42)
	assert.ErrorIs(t, err, ErrSeatNotFound)
}

func TestSeatsOrderedAndCached(t *testing.T) {
	src := newSource()
	r := New(src)
	ctx := context.Background()

	seats, err := r.Seats(ctx, 1)
	require.NoError(t, err)
	require.Len(t, seats, 2)
	assert.Equal(t, "A1", seats[0].Label)

	_, err = r.Seats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, src.screenLoads)

	// The cached layout is immutable: later source changes are invisible.
	src.screens[1] = append(src.screens[1], model.Seat{ID: 3, ScreenID: 1, Label: "A3"})
	seats, err = r.Seats(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, seats, 2)
}

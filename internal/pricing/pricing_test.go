package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-booking/internal/model"
)

func TestDefaultPrices(t *testing.T) {
	p := Default()

	std, err := p.PriceFor(model.SeatClassStandard)
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), std)

	prem, err := p.PriceFor(model.SeatClassPremium)
	require.NoError(t, err)
	assert.Equal(t, uint32(1500), prem)
}

func TestUnknownClass(t *testing.T) {
	p := Default()
	_, err := p.PriceFor(model.SeatClass("balcony"))
	assert.Error(t, err)
}

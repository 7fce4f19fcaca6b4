package pricing

import (
	"math"
	"testing"

	pkgerrors "github.com/honeynil/ParcelMatchService/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultCalculator(t *testing.T) *Calculator {
	t.Helper()
	c, err := NewCalculator(DefaultRates())
	require.NoError(t, err)
	return c
}

func TestCalculator_Calculate(t *testing.T) {
	c := newDefaultCalculator(t)

	t.Run("TwoAndAHalfKg", func(t *testing.T) {
		b, err := c.Calculate(2.5, false)
		require.NoError(t, err)
		assert.Equal(t, 20.0, b.BasePrice)
		assert.Equal(t, 12.5, b.TravelerPayout)
		assert.Equal(t, 7.5, b.PlatformFee)
		assert.Equal(t, 0.0, b.Insurance)
		assert.Equal(t, 20.0, b.Total)
	})

	t.Run("WithInsurance", func(t *testing.T) {
		b, err := c.Calculate(2.5, true)
		require.NoError(t, err)
		assert.Equal(t, 5.0, b.Insurance)
		assert.Equal(t, 25.0, b.Total)
		assert.Equal(t, 12.5, b.TravelerPayout, "insurance is not shared with the traveler")
	})

	t.Run("TotalIsWeightTimesRate", func(t *testing.T) {
		for _, w := range []float64{0.01, 0.1, 0.5, 1, 1.25, 3.3, 7, 12.75, 19.99, 20} {
			plain, err := c.Calculate(w, false)
			require.NoError(t, err)
			assert.Equal(t, w*DefaultSenderRatePerKg, plain.Total, "weight %v", w)

			insured, err := c.Calculate(w, true)
			require.NoError(t, err)
			assert.Equal(t, plain.Total+w*DefaultInsurancePerKg, insured.Total, "weight %v", w)
			assert.InDelta(t, plain.BasePrice, plain.TravelerPayout+plain.PlatformFee, 1e-9, "weight %v", w)
		}
	})

	t.Run("RejectsOutOfRangeWeight", func(t *testing.T) {
		for _, w := range []float64{0, -1, 20.0001, 100, math.NaN(), math.Inf(1)} {
			_, err := c.Calculate(w, false)
			assert.ErrorIs(t, err, pkgerrors.ErrValidation, "weight %v", w)
		}
	})
}

func TestCalculator_KeepsFullPrecision(t *testing.T) {
	c := newDefaultCalculator(t)
	b, err := c.Calculate(1.333, false)
	require.NoError(t, err)
	assert.Equal(t, 1.333*8, b.BasePrice)
	assert.Equal(t, 10.66, b.Rounded().BasePrice)
}

func TestNewCalculator_InvalidRates(t *testing.T) {
	_, err := NewCalculator(Rates{SenderRatePerKg: 5, TravelerPayoutPerKg: 6})
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)

	_, err = NewCalculator(Rates{SenderRatePerKg: 0})
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)

	_, err = NewCalculator(Rates{SenderRatePerKg: 8, TravelerPayoutPerKg: 5, InsurancePerKg: -1})
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)
}

func TestRates_PlatformFeePerKg(t *testing.T) {
	assert.Equal(t, 3.0, DefaultRates().PlatformFeePerKg())
}

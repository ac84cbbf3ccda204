package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpoly/clobclient/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestValidTickSize(t *testing.T) {
	for _, tick := range []string{"0.1", "0.01", "0.001", "0.0001"} {
		assert.True(t, ValidTickSize(d(tick)), tick)
	}
	for _, tick := range []string{"0.05", "0.2", "0.00001", "0", "-0.01", "1"} {
		assert.False(t, ValidTickSize(d(tick)), tick)
	}
}

func TestValidateOrderArgs(t *testing.T) {
	assert.NoError(t, ValidateOrderArgs(d("0.50"), d("10"), d("0.01")))
	assert.NoError(t, ValidateOrderArgs(d("0.0001"), d("100"), d("0.0001")))
	assert.NoError(t, ValidateOrderArgs(d("0.9999"), d("0.01"), d("0.0001")))
}

func TestValidateOrderArgs_UnsupportedTick(t *testing.T) {
	err := ValidateOrderArgs(d("0.50"), d("10"), d("0.05"))
	assert.ErrorIs(t, err, domain.ErrInvalidTickSize)
}

func TestValidateOrderArgs_Bounds(t *testing.T) {
	for _, tc := range []struct{ price, size string }{
		{"0.50", "0"},
		{"0.50", "-1"},
		{"0", "10"},
		{"-0.50", "10"},
		{"1", "10"},
		{"1.01", "10"},
	} {
		err := ValidateOrderArgs(d(tc.price), d(tc.size), d("0.01"))
		assert.ErrorIs(t, err, domain.ErrInvalidOrderArgs, "price=%s size=%s", tc.price, tc.size)
	}
}

func TestValidateOrderArgs_OffGridPrice(t *testing.T) {
	err := ValidateOrderArgs(d("0.333"), d("10"), d("0.01"))
	assert.ErrorIs(t, err, domain.ErrInvalidTickSize)

	// Same price is fine on a finer grid.
	assert.NoError(t, ValidateOrderArgs(d("0.333"), d("10"), d("0.001")))
}

func TestOrderAmounts_Buy(t *testing.T) {
	maker, taker, err := OrderAmounts(domain.SideBuy, d("0.50"), d("10"), d("0.01"))
	require.NoError(t, err)
	assert.Equal(t, "5000000", maker.String())
	assert.Equal(t, "10000000", taker.String())
}

func TestOrderAmounts_Sell(t *testing.T) {
	maker, taker, err := OrderAmounts(domain.SideSell, d("0.50"), d("10"), d("0.01"))
	require.NoError(t, err)
	assert.Equal(t, "10000000", maker.String())
	assert.Equal(t, "5000000", taker.String())
}

func TestOrderAmounts_FractionalSize(t *testing.T) {
	// 0.123 * 7 = 0.861 collateral, exact in base units.
	maker, taker, err := OrderAmounts(domain.SideBuy, d("0.123"), d("7"), d("0.001"))
	require.NoError(t, err)
	assert.Equal(t, "861000", maker.String())
	assert.Equal(t, "7000000", taker.String())

	// Sub-base-unit remainders round half up.
	maker, taker, err = OrderAmounts(domain.SideBuy, d("0.5"), d("1.2345678"), d("0.1"))
	require.NoError(t, err)
	assert.Equal(t, "617284", maker.String())
	assert.Equal(t, "1234568", taker.String())
}

func TestOrderAmounts_ZeroBaseUnits(t *testing.T) {
	// Collateral rounds to zero base units.
	_, _, err := OrderAmounts(domain.SideBuy, d("0.0001"), d("0.001"), d("0.0001"))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestOrderAmounts_EffectivePriceDrift(t *testing.T) {
	// tokens = 1000, collateral = 500.5 -> 501, effective 0.501: five ticks
	// away from the requested 0.5005.
	_, _, err := OrderAmounts(domain.SideBuy, d("0.5005"), d("0.001"), d("0.0001"))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestOrderAmounts_UnknownSide(t *testing.T) {
	_, _, err := OrderAmounts(domain.Side("HOLD"), d("0.50"), d("10"), d("0.01"))
	assert.ErrorIs(t, err, domain.ErrInvalidOrderArgs)
}

func TestOrderAmounts_EffectivePriceWithinTick(t *testing.T) {
	// Sweep a price ladder and check the implied price of the emitted
	// integers never drifts off the requested one by more than a tick.
	tick := d("0.01")
	size := d("3.33")
	for p := 1; p < 100; p++ {
		price := decimal.New(int64(p), -2)
		maker, taker, err := OrderAmounts(domain.SideBuy, price, size, tick)
		require.NoError(t, err, price.String())

		effective := decimal.NewFromBigInt(maker, 0).Div(decimal.NewFromBigInt(taker, 0))
		assert.True(t, effective.Sub(price).Abs().LessThanOrEqual(tick),
			"price %s effective %s", price, effective)
	}
}

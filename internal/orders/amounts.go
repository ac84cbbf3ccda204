// Package orders builds venue-accepted CLOB order payloads: it validates
// prices against the tick grid, converts decimal price/size into the integer
// base-unit amounts the exchange contracts verify, resolves maker/signer
// addresses per signature type, and signs the result.
package orders

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/openpoly/clobclient/internal/domain"
)

// baseUnitScale converts decimals to 6-decimal base units (USDC collateral
// and outcome tokens share the same precision on the venue).
var baseUnitScale = decimal.New(1, 6)

// one is the upper bound of a binary-outcome price.
var one = decimal.NewFromInt(1)

// tickSizes are the price grids the venue supports.
var tickSizes = []decimal.Decimal{
	decimal.RequireFromString("0.1"),
	decimal.RequireFromString("0.01"),
	decimal.RequireFromString("0.001"),
	decimal.RequireFromString("0.0001"),
}

// ValidTickSize reports whether tick is one of the venue-supported grids.
func ValidTickSize(tick decimal.Decimal) bool {
	for _, t := range tickSizes {
		if t.Equal(tick) {
			return true
		}
	}
	return false
}

// ValidateOrderArgs checks price/size bounds and tick alignment before any
// amount math or signing happens. Bounds failures return
// domain.ErrInvalidOrderArgs; off-grid prices return domain.ErrInvalidTickSize.
func ValidateOrderArgs(price, size, tick decimal.Decimal) error {
	if !ValidTickSize(tick) {
		return fmt.Errorf("orders: %w: unsupported tick size %s", domain.ErrInvalidTickSize, tick)
	}
	if size.Sign() <= 0 {
		return fmt.Errorf("orders: %w: size %s must be positive", domain.ErrInvalidOrderArgs, size)
	}
	if price.Sign() <= 0 || price.GreaterThanOrEqual(one) {
		return fmt.Errorf("orders: %w: price %s outside (0, 1)", domain.ErrInvalidOrderArgs, price)
	}
	if !price.Mod(tick).IsZero() {
		return fmt.Errorf("orders: %w: price %s is not a multiple of %s", domain.ErrInvalidTickSize, price, tick)
	}
	return nil
}

// OrderAmounts converts a validated (price, size) pair into the integer
// maker/taker amounts of the signed struct, scaled to 6-decimal base units
// with half-up rounding. For BUY the maker amount is the collateral offered
// and the taker amount the tokens requested; SELL mirrors that.
//
// After rounding, the effective price implied by the two integers must stay
// within one tick of the requested price; otherwise the order is rejected
// with domain.ErrInvalidAmount rather than silently drifting.
func OrderAmounts(side domain.Side, price, size, tick decimal.Decimal) (maker, taker *big.Int, err error) {
	// Round is half away from zero, which is half-up for the positive
	// values validation guarantees.
	tokens := size.Mul(baseUnitScale).Round(0)
	collateral := price.Mul(size).Mul(baseUnitScale).Round(0)

	if tokens.Sign() <= 0 || collateral.Sign() <= 0 {
		return nil, nil, fmt.Errorf("orders: %w: amounts round to zero base units", domain.ErrInvalidAmount)
	}

	effective := collateral.Div(tokens)
	if effective.Sub(price).Abs().GreaterThan(tick) {
		return nil, nil, fmt.Errorf("orders: %w: effective price %s deviates from %s by more than one tick",
			domain.ErrInvalidAmount, effective.Round(8), price)
	}

	switch side {
	case domain.SideBuy:
		return collateral.BigInt(), tokens.BigInt(), nil
	case domain.SideSell:
		return tokens.BigInt(), collateral.BigInt(), nil
	default:
		return nil, nil, fmt.Errorf("orders: %w: unknown side %q", domain.ErrInvalidOrderArgs, side)
	}
}

package orders

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/openpoly/clobclient/internal/domain"
)

// CalculateMarketPrice walks book liquidity until the requested share count
// is covered and returns the volume-weighted average fill price. A BUY walks
// the asks from cheapest up; a SELL walks the bids from richest down. When
// the book cannot cover the amount, it fails with
// domain.ErrInsufficientLiquidity and no order should be built.
func CalculateMarketPrice(levels []domain.PriceLevel, sharesToMatch decimal.Decimal, side domain.Side) (decimal.Decimal, error) {
	if sharesToMatch.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("orders: %w: non-positive amount", domain.ErrInvalidOrderArgs)
	}

	sorted := make([]domain.PriceLevel, len(levels))
	copy(sorted, levels)
	switch side {
	case domain.SideBuy:
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Price.LessThan(sorted[j].Price) })
	case domain.SideSell:
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Price.GreaterThan(sorted[j].Price) })
	default:
		return decimal.Zero, fmt.Errorf("orders: %w: unknown side %q", domain.ErrInvalidOrderArgs, side)
	}

	remaining := sharesToMatch
	totalCost := decimal.Zero
	for _, lvl := range sorted {
		filled := decimal.Min(remaining, lvl.Size)
		totalCost = totalCost.Add(filled.Mul(lvl.Price))
		remaining = remaining.Sub(filled)
		if remaining.IsZero() {
			return totalCost.DivRound(sharesToMatch, 8), nil
		}
	}

	return decimal.Zero, fmt.Errorf("orders: %w: book cannot fill %s shares",
		domain.ErrInsufficientLiquidity, sharesToMatch)
}

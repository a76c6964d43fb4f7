package testutil

import (
	"testing"
	"time"

	"github.com/stonefinance/stone-sub002/internal/lending"
	"github.com/stonefinance/stone-sub002/internal/txlog"
)

// AtomUSDCMarket is the standard fixture market: ATOM collateral, USDC
// debt, liquidation threshold 0.80.
func AtomUSDCMarket() lending.Market {
	return lending.Market{
		ID:                   "atom-usdc",
		CollateralDenom:      "uatom",
		DebtDenom:            "uusdc",
		LiquidationThreshold: 0.80,
		MaxLTV:               0.75,
		TotalSupplied:        "500000000000",
		TotalBorrowed:        "200000000000",
		Utilization:          0.4,
	}
}

// Position builds a fixture position in the standard market.
func Position(collateralMicro, supplyMicro, debtMicro string) lending.Position {
	return lending.Position{
		Address:    "stone1qqqsyqcyq5rqwzqf3953cgk",
		MarketID:   "atom-usdc",
		Collateral: collateralMicro,
		Supply:     supplyMicro,
		Debt:       debtMicro,
	}
}

// OpenStore opens a throwaway in-memory transaction log.
func OpenStore(t *testing.T) *txlog.Store {
	t.Helper()
	store, err := txlog.NewStore(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	return store
}

// Clock is a settable fake clock for freshness and reconcile-window tests.
type Clock struct {
	Current time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{Current: start}
}

// Now is the func handed to WithClock overrides.
func (c *Clock) Now() time.Time {
	return c.Current
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.Current = c.Current.Add(d)
}

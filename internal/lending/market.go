package lending

// Market identifies a lending pool: a collateral denom lent against a debt
// denom. Identity (the denom pair) is immutable; the threshold and LTV cap
// are market parameters the chain may retune over the market's lifetime —
// this client reads them, never writes them.
type Market struct {
	ID                   string  `json:"id"`
	CollateralDenom      string  `json:"collateral_denom"`
	DebtDenom            string  `json:"debt_denom"`
	LiquidationThreshold float64 `json:"liquidation_threshold"` // ratio, 0-1
	MaxLTV               float64 `json:"max_ltv"`               // ratio, 0-1

	// Aggregate state, micro-unit decimal strings.
	TotalSupplied string  `json:"total_supplied"`
	TotalBorrowed string  `json:"total_borrowed"`
	Utilization   float64 `json:"utilization"`
}

// Position is a user's per-market holdings. All three balances are
// non-negative micro-unit decimal strings; the position's type is derived
// from them, never stored. Read fresh on every risk computation.
type Position struct {
	Address    string `json:"address"`
	MarketID   string `json:"market_id"`
	Collateral string `json:"collateral"` // collateral denom
	Supply     string `json:"supply"`     // debt denom, supplied to the pool
	Debt       string `json:"debt"`       // debt denom, borrowed
}

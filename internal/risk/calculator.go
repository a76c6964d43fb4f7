package risk

import (
	"github.com/stonefinance/stone-sub002/internal/amount"
	"github.com/stonefinance/stone-sub002/internal/lending"
)

// PriceSet is the quote-unit price per denom available to a computation.
// A missing denom means the feed had no usable quote — derived figures go
// Unknown rather than defaulting to zero.
type PriceSet map[string]float64

func (ps PriceSet) Get(denom string) (float64, bool) {
	p, ok := ps[denom]
	return p, ok
}

// LTV returns the loan-to-value ratio as a percentage, or nil when the
// ratio is undefined: a missing price on either side, or zero collateral
// value. An undefined LTV must not render as 0% or Infinity.
func LTV(debtMicro, collateralMicro string, debtPrice, collateralPrice float64, pricesOK bool) *float64 {
	if !pricesOK {
		return nil
	}
	collateralValue := amount.ToFloat(collateralMicro, amount.ProtocolDecimals) * collateralPrice
	if collateralValue == 0 {
		return nil
	}
	debtValue := amount.ToFloat(debtMicro, amount.ProtocolDecimals) * debtPrice
	ltv := debtValue / collateralValue * 100
	return &ltv
}

// Health derives the health factor from an LTV percentage and the market's
// liquidation threshold. Zero LTV (debt-free) is Infinite, unknown LTV is
// Unknown, otherwise threshold / ltv.
func Health(ltv *float64, liquidationThreshold float64) HealthFactor {
	if ltv == nil {
		return UnknownHealth()
	}
	if *ltv <= 0 {
		return InfiniteHealth()
	}
	return FiniteHealth(liquidationThreshold / (*ltv / 100))
}

// LiquidationPrice returns the collateral price at which the position's
// LTV reaches the liquidation threshold, or nil when undefined (no debt,
// no collateral, missing debt price, or a zero threshold).
func LiquidationPrice(debtMicro, collateralMicro string, debtPrice float64, debtPriceOK bool, threshold float64) *float64 {
	if !debtPriceOK || threshold <= 0 {
		return nil
	}
	collateralAmount := amount.ToFloat(collateralMicro, amount.ProtocolDecimals)
	if collateralAmount == 0 {
		return nil
	}
	debtValue := amount.ToFloat(debtMicro, amount.ProtocolDecimals) * debtPrice
	if debtValue == 0 {
		return nil
	}
	price := debtValue / (threshold * collateralAmount)
	return &price
}

// PositionType is the derived classification of a position's balances.
type PositionType int32

const (
	PositionNone PositionType = iota
	PositionSupply
	PositionBorrow
	PositionBoth
)

func (pt PositionType) String() string {
	switch pt {
	case PositionSupply:
		return "supply"
	case PositionBorrow:
		return "borrow"
	case PositionBoth:
		return "both"
	default:
		return "none"
	}
}

// TypeOf classifies a position against the dust threshold. Collateral and
// debt are both borrower-side signals: swapping them never changes the
// classification.
func TypeOf(p lending.Position, dust int64) PositionType {
	hasSupply := amount.ExceedsDust(p.Supply, dust)
	hasBorrowSide := amount.ExceedsDust(p.Collateral, dust) || amount.ExceedsDust(p.Debt, dust)

	switch {
	case hasSupply && hasBorrowSide:
		return PositionBoth
	case hasSupply:
		return PositionSupply
	case hasBorrowSide:
		return PositionBorrow
	default:
		return PositionNone
	}
}

// Snapshot is the risk figure bundle handed to the display layer. LTV and
// LiquidationPrice stay optional end to end.
type Snapshot struct {
	LTV              *float64     `json:"ltv,omitempty"`
	HealthFactor     HealthFactor `json:"-"`
	Health           string       `json:"health_factor"`
	LiquidationPrice *float64     `json:"liquidation_price,omitempty"`
	Status           Status       `json:"-"`
	StatusName       string       `json:"status"`
	PositionType     string       `json:"position_type"`
}

// Compute builds the full risk snapshot for one position. A position whose
// debt is below dust has nothing to liquidate: health is Infinite and the
// status is NoPosition regardless of collateral.
func Compute(p lending.Position, m lending.Market, prices PriceSet) Snapshot {
	positionType := TypeOf(p, amount.DustThreshold)

	debtPrice, debtOK := prices.Get(m.DebtDenom)
	collateralPrice, collateralOK := prices.Get(m.CollateralDenom)

	if !amount.ExceedsDust(p.Debt, amount.DustThreshold) {
		hf := InfiniteHealth()
		return Snapshot{
			HealthFactor: hf,
			Health:       hf.String(),
			Status:       StatusNoPosition,
			StatusName:   StatusNoPosition.String(),
			PositionType: positionType.String(),
		}
	}

	ltv := LTV(p.Debt, p.Collateral, debtPrice, collateralPrice, debtOK && collateralOK)
	hf := Health(ltv, m.LiquidationThreshold)
	liqPrice := LiquidationPrice(p.Debt, p.Collateral, debtPrice, debtOK, m.LiquidationThreshold)

	status := hf.Classify()
	if positionType == PositionNone {
		status = StatusNoPosition
	}

	return Snapshot{
		LTV:              ltv,
		HealthFactor:     hf,
		Health:           hf.String(),
		LiquidationPrice: liqPrice,
		Status:           status,
		StatusName:       status.String(),
		PositionType:     positionType.String(),
	}
}

package risk

import "strconv"

// healthKind keeps the three-way distinction between "no quote, nothing is
// known", "debt-free, can never be liquidated", and a finite factor. The
// three must never collapse into each other: rendering Unknown as 0 shows a
// false liquidation warning, rendering it as a finite number shows false
// safety when a price feed is down.
type healthKind int32

const (
	healthUnknown healthKind = iota
	healthInfinite
	healthFinite
)

// HealthFactor is a tagged optional: Unknown, Infinite, or a finite value.
type HealthFactor struct {
	kind  healthKind
	value float64
}

// UnknownHealth is the health factor when LTV cannot be computed (missing
// price, zero collateral).
func UnknownHealth() HealthFactor {
	return HealthFactor{kind: healthUnknown}
}

// InfiniteHealth is the health factor of a debt-free position; no price
// move can make it liquidatable.
func InfiniteHealth() HealthFactor {
	return HealthFactor{kind: healthInfinite}
}

// FiniteHealth wraps a computed liquidation-threshold / LTV ratio.
func FiniteHealth(v float64) HealthFactor {
	return HealthFactor{kind: healthFinite, value: v}
}

func (hf HealthFactor) IsUnknown() bool  { return hf.kind == healthUnknown }
func (hf HealthFactor) IsInfinite() bool { return hf.kind == healthInfinite }

// Value returns the finite factor. The second return is false for Unknown
// and Infinite — callers must not treat those as numbers.
func (hf HealthFactor) Value() (float64, bool) {
	if hf.kind != healthFinite {
		return 0, false
	}
	return hf.value, true
}

// String renders for display: a literal infinity symbol for Infinite, a
// dash for Unknown.
func (hf HealthFactor) String() string {
	switch hf.kind {
	case healthInfinite:
		return "∞"
	case healthFinite:
		return strconv.FormatFloat(hf.value, 'f', 2, 64)
	default:
		return "—"
	}
}

// Status is the display band for a health factor.
type Status int32

const (
	StatusNoPosition Status = iota
	StatusSafe
	StatusModerate
	StatusAtRisk
	StatusDanger
	StatusLiquidatable
)

func (s Status) String() string {
	switch s {
	case StatusSafe:
		return "Safe"
	case StatusModerate:
		return "Moderate"
	case StatusAtRisk:
		return "AtRisk"
	case StatusDanger:
		return "Danger"
	case StatusLiquidatable:
		return "Liquidatable"
	default:
		return "NoPosition"
	}
}

// Classify bands a health factor at fixed thresholds. Below 1.0 the
// position is eligible for liquidation on chain.
func (hf HealthFactor) Classify() Status {
	switch hf.kind {
	case healthUnknown:
		return StatusNoPosition
	case healthInfinite:
		return StatusSafe
	}
	switch {
	case hf.value >= 2.0:
		return StatusSafe
	case hf.value >= 1.5:
		return StatusModerate
	case hf.value >= 1.2:
		return StatusAtRisk
	case hf.value >= 1.0:
		return StatusDanger
	default:
		return StatusLiquidatable
	}
}

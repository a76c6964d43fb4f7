package lending

import "fmt"

// Action is the kind of user operation against a market.
type Action int32

const (
	ActionUnknown Action = iota
	ActionSupply
	ActionWithdraw
	ActionSupplyCollateral
	ActionWithdrawCollateral
	ActionBorrow
	ActionRepay
	ActionLiquidate
)

func (a Action) String() string {
	switch a {
	case ActionSupply:
		return "supply"
	case ActionWithdraw:
		return "withdraw"
	case ActionSupplyCollateral:
		return "supply_collateral"
	case ActionWithdrawCollateral:
		return "withdraw_collateral"
	case ActionBorrow:
		return "borrow"
	case ActionRepay:
		return "repay"
	case ActionLiquidate:
		return "liquidate"
	default:
		return "unknown"
	}
}

// ParseAction maps the wire name back to an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "supply":
		return ActionSupply, nil
	case "withdraw":
		return ActionWithdraw, nil
	case "supply_collateral":
		return ActionSupplyCollateral, nil
	case "withdraw_collateral":
		return ActionWithdrawCollateral, nil
	case "borrow":
		return ActionBorrow, nil
	case "repay":
		return ActionRepay, nil
	case "liquidate":
		return ActionLiquidate, nil
	default:
		return ActionUnknown, fmt.Errorf("unknown action %q", s)
	}
}

// Denom returns the denom an action's amount is expressed in.
func (a Action) Denom(m Market) string {
	switch a {
	case ActionSupplyCollateral, ActionWithdrawCollateral:
		return m.CollateralDenom
	default:
		return m.DebtDenom
	}
}

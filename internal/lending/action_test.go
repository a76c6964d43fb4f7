package lending_test

import (
	"testing"

	"github.com/stonefinance/stone-sub002/internal/lending"
)

var allActions = []lending.Action{
	lending.ActionSupply,
	lending.ActionWithdraw,
	lending.ActionSupplyCollateral,
	lending.ActionWithdrawCollateral,
	lending.ActionBorrow,
	lending.ActionRepay,
	lending.ActionLiquidate,
}

func TestAction_ParseRoundTrip(t *testing.T) {
	for _, a := range allActions {
		parsed, err := lending.ParseAction(a.String())
		if err != nil {
			t.Fatalf("ParseAction(%q): %v", a.String(), err)
		}
		if parsed != a {
			t.Errorf("round trip %v: got %v", a, parsed)
		}
	}
}

func TestParseAction_Unknown(t *testing.T) {
	if _, err := lending.ParseAction("stake"); err == nil {
		t.Error("unknown action should be rejected")
	}
}

func TestAction_Denom(t *testing.T) {
	m := lending.Market{CollateralDenom: "uatom", DebtDenom: "uusdc"}

	collateralSide := map[lending.Action]bool{
		lending.ActionSupplyCollateral:   true,
		lending.ActionWithdrawCollateral: true,
	}
	for _, a := range allActions {
		want := "uusdc"
		if collateralSide[a] {
			want = "uatom"
		}
		if got := a.Denom(m); got != want {
			t.Errorf("%v.Denom: got %q, want %q", a, got, want)
		}
	}
}

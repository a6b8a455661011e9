package engine

import "fmt"

// ValidateStrategyPreconditions checks balances and leverage before a
// position may be opened. Each leg needs half the capital. Fail-fast: the
// first failing reason is returned so the operator sees one actionable
// message, never a crash.
func ValidateStrategyPreconditions(req PreconditionRequest, p Params) (bool, string) {
	p = p.WithDefaults()
	perLeg := req.CapitalUSD / 2
	if req.SpotUSDTFree < perLeg {
		return false, fmt.Sprintf("insufficient spot balance: have $%.2f, need $%.2f", req.SpotUSDTFree, perLeg)
	}
	if req.PerpUSDTFree < perLeg {
		return false, fmt.Sprintf("insufficient perp balance: have $%.2f, need $%.2f", req.PerpUSDTFree, perLeg)
	}
	if req.CurrentLeverage != p.RequiredLeverage {
		return false, fmt.Sprintf("invalid leverage setting: %dx (delta-neutral requires %dx)", req.CurrentLeverage, p.RequiredLeverage)
	}
	return true, ""
}

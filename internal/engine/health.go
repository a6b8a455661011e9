package engine

import "math"

// CheckPositionHealth computes imbalance and liquidation-proximity metrics
// for one open position. The imbalance percentage is measured against the
// perp (hedge) leg: net delta of 1 over a short of 10 reads as 10%, however
// large the spot side has drifted. A spot holding with no hedge at all
// reports 100%.
func CheckPositionHealth(perp PerpPosition, spot SpotHolding, p Params) HealthReport {
	p = p.WithDefaults()
	report := HealthReport{Symbol: perp.Symbol}

	report.NetDelta = perp.SignedQty + spot.FreeQty
	hedgeQty := math.Abs(perp.SignedQty)
	switch {
	case hedgeQty > 0:
		report.ImbalancePct = math.Abs(report.NetDelta) / hedgeQty * 100
	case report.NetDelta == 0:
		report.ImbalancePct = 0
	default:
		report.ImbalancePct = 100
	}

	report.LiquidationRisk = RiskLow
	if perp.MarkPrice > 0 && perp.LiquidationPrice > 0 && hedgeQty > 0 {
		report.LiquidationRiskPct = math.Abs(perp.MarkPrice-perp.LiquidationPrice) / perp.MarkPrice * 100
		if report.LiquidationRiskPct <= p.HighRiskLiquidationPct {
			report.LiquidationRisk = RiskHigh
		}
	}

	report.LeverageOK = perp.Leverage == p.RequiredLeverage

	if hedgeQty > 0 && perp.EntryPrice > 0 {
		report.UnrealizedPnlUSD = (perp.MarkPrice - perp.EntryPrice) * perp.SignedQty
		report.UnrealizedPnlPct = report.UnrealizedPnlUSD / math.Abs(perp.EntryPrice*perp.SignedQty) * 100
	}
	return report
}

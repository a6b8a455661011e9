package engine

import "math"

// DetermineRebalanceAction maps a health report to a single corrective
// action. First match wins, in descending urgency: liquidation proximity
// dominates everything, then hedge drift, then hold.
func DetermineRebalanceAction(report HealthReport, p Params) Action {
	p = p.WithDefaults()
	if report.LiquidationRisk == RiskHigh {
		return ActionClosePosition
	}
	if report.ImbalancePct >= p.ImbalanceThresholdPct {
		return ActionRebalance
	}
	return ActionHold
}

// CalculateRebalanceQuantities returns the trade that brings net delta back
// to zero. The smaller-magnitude leg is grown toward the larger one, which
// keeps the correction to one order and cannot overshoot. Returns false when
// the position is already flat.
func CalculateRebalanceQuantities(report HealthReport, spot SpotHolding, perp PerpPosition) (RebalanceQuantities, bool) {
	delta := math.Abs(report.NetDelta)
	if delta == 0 {
		return RebalanceQuantities{}, false
	}
	q := RebalanceQuantities{Symbol: perp.Symbol, DeltaQty: delta}
	if spot.FreeQty < math.Abs(perp.SignedQty) {
		q.Leg = LegSpot
	} else {
		q.Leg = LegPerp
	}
	return q, true
}

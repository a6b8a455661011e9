package engine

import "fmt"

// CalculatePositionSize turns a USD capital allowance into the incremental
// spot-buy and perp-short quantities needed to reach delta-neutral exposure.
//
// The spot price is the sizing reference for both legs so that base
// quantities, not notionals per leg price, match exactly: equal quantities
// are what keep the hedge flat as prices move. Existing holdings are
// subtracted from the target before flooring, so the plan is the order still
// needed, not an absolute position.
func CalculatePositionSize(req SizingRequest, p Params) (SizingPlan, error) {
	p = p.WithDefaults()
	if !isFinite(req.CapitalUSD, req.SpotPrice, req.PerpPrice, req.StepSizeSpot, req.StepSizePerp, req.ExistingSpotQty, req.ExistingPerpQty) {
		return SizingPlan{}, fmt.Errorf("sizing %s: non-finite input: %w", req.Symbol, ErrInvalidInput)
	}
	if req.SpotPrice <= 0 || req.PerpPrice <= 0 {
		return SizingPlan{}, fmt.Errorf("sizing %s: non-positive price: %w", req.Symbol, ErrInvalidInput)
	}
	if req.CapitalUSD < 0 || req.ExistingSpotQty < 0 {
		return SizingPlan{}, fmt.Errorf("sizing %s: negative capital or spot holding: %w", req.Symbol, ErrInvalidInput)
	}

	targetQty := req.CapitalUSD / req.SpotPrice

	spotQty := targetQty - req.ExistingSpotQty
	if spotQty < 0 {
		spotQty = 0
	}
	// Existing perp exposure is short, so its magnitude offsets the target.
	perpQty := targetQty + req.ExistingPerpQty
	if req.ExistingPerpQty > 0 {
		// A long perp leg never hedges; ignore it rather than size against it.
		perpQty = targetQty
	}
	if perpQty < 0 {
		perpQty = 0
	}

	spotQty = FloorToStep(spotQty, req.StepSizeSpot)
	perpQty = FloorToStep(perpQty, req.StepSizePerp)

	plan := SizingPlan{
		Symbol:          req.Symbol,
		SpotQty:         spotQty,
		PerpQty:         perpQty,
		SpotNotionalUSD: spotQty * req.SpotPrice,
		PerpNotionalUSD: perpQty * req.PerpPrice,
		CapitalUSD:      req.CapitalUSD,
	}
	if plan.SpotNotionalUSD < p.MinNotionalUSD || plan.PerpNotionalUSD < p.MinNotionalUSD {
		return SizingPlan{}, fmt.Errorf("sizing %s: spot $%.2f perp $%.2f vs floor $%.2f: %w",
			req.Symbol, plan.SpotNotionalUSD, plan.PerpNotionalUSD, p.MinNotionalUSD, ErrInsufficientNotional)
	}
	return plan, nil
}

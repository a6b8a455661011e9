package engine

import (
	"math"
	"testing"
)

func TestCheckPositionHealthBalanced(t *testing.T) {
	perp := PerpPosition{
		Symbol:           "ETHUSDT",
		SignedQty:        -10,
		EntryPrice:       1990,
		MarkPrice:        2000,
		LiquidationPrice: 4000,
		Leverage:         1,
	}
	spot := SpotHolding{Asset: "ETH", FreeQty: 10}

	report := CheckPositionHealth(perp, spot, DefaultParams())
	if report.NetDelta != 0 {
		t.Fatalf("expected net delta 0, got %f", report.NetDelta)
	}
	if report.ImbalancePct != 0 {
		t.Fatalf("expected imbalance 0, got %f", report.ImbalancePct)
	}
	if report.LiquidationRisk != RiskLow {
		t.Fatalf("expected LOW risk, got %s", report.LiquidationRisk)
	}
	if !report.LeverageOK {
		t.Fatalf("expected 1x leverage to pass")
	}
}

func TestCheckPositionHealthImbalanceAgainstHedgeLeg(t *testing.T) {
	perp := PerpPosition{Symbol: "ETHUSDT", SignedQty: -10, EntryPrice: 2000, MarkPrice: 2000, LiquidationPrice: 4000, Leverage: 1}
	spot := SpotHolding{Asset: "ETH", FreeQty: 11}

	report := CheckPositionHealth(perp, spot, DefaultParams())
	if math.Abs(report.NetDelta-1.0) > 1e-9 {
		t.Fatalf("expected net delta 1, got %f", report.NetDelta)
	}
	// Relative to the hedge size of 10, not the larger spot leg.
	if math.Abs(report.ImbalancePct-10.0) > 1e-9 {
		t.Fatalf("expected imbalance 10%%, got %f", report.ImbalancePct)
	}
}

func TestCheckPositionHealthLiquidationBands(t *testing.T) {
	base := PerpPosition{Symbol: "ETHUSDT", SignedQty: -10, EntryPrice: 2000, MarkPrice: 2000, Leverage: 1}
	spot := SpotHolding{Asset: "ETH", FreeQty: 10}

	risky := base
	risky.LiquidationPrice = 1960
	report := CheckPositionHealth(risky, spot, DefaultParams())
	if math.Abs(report.LiquidationRiskPct-2.0) > 1e-9 {
		t.Fatalf("expected liquidation risk 2%%, got %f", report.LiquidationRiskPct)
	}
	if report.LiquidationRisk != RiskHigh {
		t.Fatalf("expected HIGH at the 2%% boundary, got %s", report.LiquidationRisk)
	}

	safe := base
	safe.LiquidationPrice = 1900
	report = CheckPositionHealth(safe, spot, DefaultParams())
	if report.LiquidationRisk != RiskLow {
		t.Fatalf("expected LOW at 5%% distance, got %s", report.LiquidationRisk)
	}
}

func TestCheckPositionHealthLeverageFlag(t *testing.T) {
	perp := PerpPosition{Symbol: "ETHUSDT", SignedQty: -10, EntryPrice: 2000, MarkPrice: 2000, LiquidationPrice: 4000, Leverage: 5}
	report := CheckPositionHealth(perp, SpotHolding{Asset: "ETH", FreeQty: 10}, DefaultParams())
	if report.LeverageOK {
		t.Fatalf("expected 5x leverage to be flagged")
	}
}

func TestCheckPositionHealthPnl(t *testing.T) {
	// Short from 2000, mark 1900: short gains.
	perp := PerpPosition{Symbol: "ETHUSDT", SignedQty: -10, EntryPrice: 2000, MarkPrice: 1900, LiquidationPrice: 4000, Leverage: 1}
	report := CheckPositionHealth(perp, SpotHolding{Asset: "ETH", FreeQty: 10}, DefaultParams())
	if math.Abs(report.UnrealizedPnlUSD-1000) > 1e-9 {
		t.Fatalf("expected +$1000 pnl, got %f", report.UnrealizedPnlUSD)
	}
	if math.Abs(report.UnrealizedPnlPct-5.0) > 1e-9 {
		t.Fatalf("expected +5%% pnl, got %f", report.UnrealizedPnlPct)
	}

	// Long from 100, mark 90: long loses.
	long := PerpPosition{Symbol: "XRPUSDT", SignedQty: 10, EntryPrice: 100, MarkPrice: 90, LiquidationPrice: 10, Leverage: 1}
	report = CheckPositionHealth(long, SpotHolding{}, DefaultParams())
	if math.Abs(report.UnrealizedPnlUSD+100) > 1e-9 {
		t.Fatalf("expected -$100 pnl, got %f", report.UnrealizedPnlUSD)
	}
}

func TestCheckPositionHealthSpotOnly(t *testing.T) {
	report := CheckPositionHealth(PerpPosition{Symbol: "ADAUSDT"}, SpotHolding{Asset: "ADA", FreeQty: 3}, DefaultParams())
	if report.ImbalancePct != 100 {
		t.Fatalf("expected unhedged spot to read as maximal imbalance, got %f", report.ImbalancePct)
	}
	if report.LiquidationRisk != RiskLow {
		t.Fatalf("no perp leg means no liquidation exposure, got %s", report.LiquidationRisk)
	}
}

func TestCheckPositionHealthEmpty(t *testing.T) {
	report := CheckPositionHealth(PerpPosition{Symbol: "ADAUSDT"}, SpotHolding{Asset: "ADA"}, DefaultParams())
	if report.ImbalancePct != 0 || report.NetDelta != 0 {
		t.Fatalf("expected flat empty position, got delta %f imbalance %f", report.NetDelta, report.ImbalancePct)
	}
	if report.UnrealizedPnlUSD != 0 {
		t.Fatalf("expected zero pnl, got %f", report.UnrealizedPnlUSD)
	}
}

func TestSizeThenHealthRoundTrip(t *testing.T) {
	plan, err := CalculatePositionSize(SizingRequest{
		Symbol:       "ETHUSDT",
		CapitalUSD:   5000,
		SpotPrice:    2000,
		PerpPrice:    2000,
		StepSizeSpot: 0.001,
		StepSizePerp: 0.001,
	}, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected sizing error: %v", err)
	}

	// Assume fills at the planned prices with ample margin.
	perp := PerpPosition{
		Symbol:           "ETHUSDT",
		SignedQty:        -plan.PerpQty,
		EntryPrice:       2000,
		MarkPrice:        2000,
		LiquidationPrice: 100000,
		Leverage:         1,
	}
	spot := SpotHolding{Asset: "ETH", FreeQty: plan.SpotQty}

	report := CheckPositionHealth(perp, spot, DefaultParams())
	if report.ImbalancePct > 0.5 {
		t.Fatalf("freshly opened position should be near-balanced, imbalance %f", report.ImbalancePct)
	}
	if report.LiquidationRisk != RiskLow {
		t.Fatalf("fresh 1x position should be LOW risk, got %s", report.LiquidationRisk)
	}
	if got := DetermineRebalanceAction(report, DefaultParams()); got != ActionHold {
		t.Fatalf("expected HOLD for fresh position, got %s", got)
	}
}

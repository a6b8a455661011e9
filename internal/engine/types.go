package engine

import "time"

type Market string

const (
	MarketSpot Market = "spot"
	MarketPerp Market = "perp"
)

// FundingSample is one historical funding-rate observation. Rate is the
// fractional rate for a single 8h settlement, most-recent-last in a series.
type FundingSample struct {
	Symbol string
	Time   time.Time
	Rate   float64
}

type FundingOpportunity struct {
	Symbol                 string
	MeanRate               float64
	StdevRate              float64
	CoefficientOfVariation float64
	AnnualizedAPR          float64
	SampleCount            int
}

type MarketQuote struct {
	Symbol string
	Market Market
	Bid    float64
	Ask    float64
}

func (q MarketQuote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// SpotHolding is one spot asset balance. Spot exposure is always long.
type SpotHolding struct {
	Asset     string
	FreeQty   float64
	LockedQty float64
}

// PerpPosition is one perpetual leg. SignedQty is positive for long,
// negative for short.
type PerpPosition struct {
	Symbol           string
	SignedQty        float64
	EntryPrice       float64
	MarkPrice        float64
	LiquidationPrice float64
	Leverage         int
}

// PairLiquidity holds trailing 24h quote volume per market for one symbol.
type PairLiquidity struct {
	SpotVolumeUSD float64
	PerpVolumeUSD float64
	SpotListed    bool
	PerpListed    bool
}

type SizingRequest struct {
	Symbol          string
	CapitalUSD      float64
	SpotPrice       float64
	PerpPrice       float64
	StepSizeSpot    float64
	StepSizePerp    float64
	ExistingSpotQty float64
	ExistingPerpQty float64
}

// SizingPlan is the incremental order pair needed to reach a delta-neutral
// target. SpotQty is bought long, PerpQty is sold short.
type SizingPlan struct {
	Symbol          string
	SpotQty         float64
	PerpQty         float64
	SpotNotionalUSD float64
	PerpNotionalUSD float64
	CapitalUSD      float64
}

type RiskLevel string

const (
	RiskLow  RiskLevel = "LOW"
	RiskHigh RiskLevel = "HIGH"
)

type HealthReport struct {
	Symbol             string
	NetDelta           float64
	ImbalancePct       float64
	LiquidationRiskPct float64
	LiquidationRisk    RiskLevel
	LeverageOK         bool
	UnrealizedPnlUSD   float64
	UnrealizedPnlPct   float64
}

type Action string

const (
	ActionHold          Action = "HOLD"
	ActionRebalance     Action = "REBALANCE"
	ActionClosePosition Action = "CLOSE_POSITION"
)

type Leg string

const (
	LegSpot Leg = "SPOT"
	LegPerp Leg = "PERP"
)

// RebalanceQuantities describes the single corrective trade that brings
// net delta back to zero: DeltaQty base units applied to Leg.
// DeltaQty is positive to grow the leg's magnitude, negative to shrink it.
type RebalanceQuantities struct {
	Symbol   string
	Leg      Leg
	DeltaQty float64
}

type PreconditionRequest struct {
	CapitalUSD      float64
	SpotUSDTFree    float64
	PerpUSDTFree    float64
	CurrentLeverage int
}

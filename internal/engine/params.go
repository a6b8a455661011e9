package engine

// Funding settles every 8 hours on Aster perps, so three intervals per day.
const fundingIntervalsPerYear = 3 * 365

type Params struct {
	MinAPRPercent             float64
	MaxCoefficientOfVariation float64
	MinSampleCount            int
	ImbalanceThresholdPct     float64
	HighRiskLiquidationPct    float64
	MinNotionalUSD            float64
	RequiredLeverage          int
	FundingIntervalsPerYear   float64
}

func DefaultParams() Params {
	return Params{
		MinAPRPercent:             15.0,
		MaxCoefficientOfVariation: 0.05,
		MinSampleCount:            10,
		ImbalanceThresholdPct:     5.0,
		HighRiskLiquidationPct:    2.0,
		MinNotionalUSD:            5.0,
		RequiredLeverage:          1,
		FundingIntervalsPerYear:   fundingIntervalsPerYear,
	}
}

// WithDefaults backfills zero fields so partially populated Params behave
// like DefaultParams for the fields the caller did not set.
func (p Params) WithDefaults() Params {
	def := DefaultParams()
	if p.MinAPRPercent == 0 {
		p.MinAPRPercent = def.MinAPRPercent
	}
	if p.MaxCoefficientOfVariation == 0 {
		p.MaxCoefficientOfVariation = def.MaxCoefficientOfVariation
	}
	if p.MinSampleCount == 0 {
		p.MinSampleCount = def.MinSampleCount
	}
	if p.ImbalanceThresholdPct == 0 {
		p.ImbalanceThresholdPct = def.ImbalanceThresholdPct
	}
	if p.HighRiskLiquidationPct == 0 {
		p.HighRiskLiquidationPct = def.HighRiskLiquidationPct
	}
	if p.MinNotionalUSD == 0 {
		p.MinNotionalUSD = def.MinNotionalUSD
	}
	if p.RequiredLeverage == 0 {
		p.RequiredLeverage = def.RequiredLeverage
	}
	if p.FundingIntervalsPerYear == 0 {
		p.FundingIntervalsPerYear = def.FundingIntervalsPerYear
	}
	return p
}

package engine

// effectivelyZero guards the coefficient-of-variation division; a mean this
// small would annualize to nothing anyway.
const effectivelyZero = 1e-12

// AnalyzeFundingOpportunities screens funding-rate histories and returns one
// opportunity per symbol that survives every filter, in the order given by
// symbols. Symbols with too little history, non-positive mean rate, unstable
// rates, or insufficient annualized yield are silently skipped: across a
// whole universe those are routine, not errors.
func AnalyzeFundingOpportunities(histories map[string][]FundingSample, symbols []string, p Params) []FundingOpportunity {
	p = p.WithDefaults()
	out := make([]FundingOpportunity, 0, len(symbols))
	for _, symbol := range symbols {
		opp, ok := analyzeSymbol(symbol, histories[symbol], p)
		if !ok {
			continue
		}
		out = append(out, opp)
	}
	return out
}

func analyzeSymbol(symbol string, samples []FundingSample, p Params) (FundingOpportunity, bool) {
	if len(samples) < p.MinSampleCount {
		return FundingOpportunity{}, false
	}
	rates := make([]float64, len(samples))
	for i, s := range samples {
		if !isFinite(s.Rate) {
			return FundingOpportunity{}, false
		}
		rates[i] = s.Rate
	}
	mean, stdev := meanAndStdev(rates)
	if mean <= 0 {
		return FundingOpportunity{}, false
	}
	if mean < effectivelyZero {
		// CV would be unbounded; treat as maximally volatile.
		return FundingOpportunity{}, false
	}
	cv := stdev / mean
	if cv >= p.MaxCoefficientOfVariation {
		return FundingOpportunity{}, false
	}
	apr := mean * p.FundingIntervalsPerYear * 100
	if apr < p.MinAPRPercent {
		return FundingOpportunity{}, false
	}
	return FundingOpportunity{
		Symbol:                 symbol,
		MeanRate:               mean,
		StdevRate:              stdev,
		CoefficientOfVariation: cv,
		AnnualizedAPR:          apr,
		SampleCount:            len(samples),
	}, true
}

// AnnualizedAPRPercent converts a single 8h funding rate to its annualized
// percentage equivalent, used by the dashboard for live-rate display.
func AnnualizedAPRPercent(rate float64, p Params) float64 {
	p = p.WithDefaults()
	return rate * p.FundingIntervalsPerYear * 100
}

package config

import "aster-dn-bot/internal/engine"

// EngineParams converts the yaml thresholds into engine.Params. Unset
// fields stay zero; callers that read fields directly should apply
// WithDefaults.
func (c EngineConfig) EngineParams() engine.Params {
	return engine.Params{
		MinAPRPercent:             c.MinAPRPercent,
		MaxCoefficientOfVariation: c.MaxCoefficientOfVariation,
		MinSampleCount:            c.MinSampleCount,
		ImbalanceThresholdPct:     c.ImbalanceThresholdPct,
		HighRiskLiquidationPct:    c.HighRiskLiquidationPct,
		MinNotionalUSD:            c.MinNotionalUSD,
		RequiredLeverage:          c.RequiredLeverage,
	}
}

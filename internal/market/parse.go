package market

import (
	"strconv"
	"strings"
)

// parseFloat handles the string-encoded numbers the exchange returns.
// Empty and malformed values read as zero; callers treat zero as absent.
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func rulesFromSymbol(info exchangeInfoSymbol) SymbolRules {
	rules := SymbolRules{
		Symbol:         info.Symbol,
		BaseAsset:      info.BaseAsset,
		QuoteAsset:     info.QuoteAsset,
		QuotePrecision: info.QuotePrecision,
	}
	for _, f := range info.Filters {
		switch f.FilterType {
		case "LOT_SIZE":
			rules.StepSize = parseFloat(f.StepSize)
			rules.MinQty = parseFloat(f.MinQty)
		case "PRICE_FILTER":
			rules.TickSize = parseFloat(f.TickSize)
		case "MIN_NOTIONAL":
			// Spot uses minNotional, perp uses notional.
			if v := parseFloat(f.Notional); v > 0 {
				rules.MinNotionalUSD = v
			} else {
				rules.MinNotionalUSD = parseFloat(f.MinNotional)
			}
		}
	}
	return rules
}

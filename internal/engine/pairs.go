package engine

// FindDeltaNeutralPairs returns the symbols tradable in both markets,
// order-stable by first appearance in the spot list, de-duplicated.
func FindDeltaNeutralPairs(spotSymbols, perpSymbols []string) []string {
	perp := make(map[string]struct{}, len(perpSymbols))
	for _, s := range perpSymbols {
		perp[s] = struct{}{}
	}
	seen := make(map[string]struct{}, len(spotSymbols))
	out := make([]string, 0, len(spotSymbols))
	for _, s := range spotSymbols {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if _, ok := perp[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// FilterViablePairs keeps candidates listed in both markets whose trailing
// 24h volume meets minVolumeUSD on each leg independently. Pairs failing
// either test are dropped without comment; thin listings are expected.
func FilterViablePairs(candidates []string, liquidity map[string]PairLiquidity, minVolumeUSD float64) []string {
	out := make([]string, 0, len(candidates))
	for _, symbol := range candidates {
		liq, ok := liquidity[symbol]
		if !ok || !liq.SpotListed || !liq.PerpListed {
			continue
		}
		if liq.SpotVolumeUSD < minVolumeUSD || liq.PerpVolumeUSD < minVolumeUSD {
			continue
		}
		out = append(out, symbol)
	}
	return out
}

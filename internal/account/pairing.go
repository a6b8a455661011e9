package account

import (
	"strconv"
	"strings"

	"aster-dn-bot/internal/engine"
)

// PositionPair is one symbol's two legs, ready for the health evaluator.
// Spot-only exposure appears with a zero perp leg so the monitor still
// sees unhedged holdings.
type PositionPair struct {
	Symbol string
	Perp   engine.PerpPosition
	Spot   engine.SpotHolding
}

// PairPositions joins perp positions with spot holdings by base asset.
// baseAssets maps perp symbol to its base asset; symbols missing from the
// map fall back to stripping the USDT suffix.
func PairPositions(positions []engine.PerpPosition, holdings []engine.SpotHolding, baseAssets map[string]string) []PositionPair {
	bySymbol := make(map[string]struct{}, len(positions))
	pairs := make([]PositionPair, 0, len(positions))
	for _, pos := range positions {
		base := baseAssets[pos.Symbol]
		if base == "" {
			base = strings.TrimSuffix(pos.Symbol, "USDT")
		}
		spot := engine.SpotHolding{Asset: base}
		for _, h := range holdings {
			if h.Asset == base {
				spot = h
				break
			}
		}
		bySymbol[pos.Symbol] = struct{}{}
		pairs = append(pairs, PositionPair{Symbol: pos.Symbol, Perp: pos, Spot: spot})
	}
	for _, h := range holdings {
		if IsStablecoin(h.Asset) || h.FreeQty+h.LockedQty == 0 {
			continue
		}
		symbol := h.Asset + "USDT"
		if _, hedged := bySymbol[symbol]; hedged {
			continue
		}
		pairs = append(pairs, PositionPair{
			Symbol: symbol,
			Perp:   engine.PerpPosition{Symbol: symbol},
			Spot:   h,
		})
	}
	return pairs
}

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

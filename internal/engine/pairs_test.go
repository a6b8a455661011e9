package engine

import (
	"reflect"
	"testing"
)

func TestFindDeltaNeutralPairs(t *testing.T) {
	spot := []string{"BTCUSDT", "ETHUSDT", "ASTERUSDT", "DOGEUSDT"}
	perp := []string{"BTCUSDT", "ETHUSDT", "XRPUSDT"}
	got := FindDeltaNeutralPairs(spot, perp)
	want := []string{"BTCUSDT", "ETHUSDT"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestFindDeltaNeutralPairsNoOverlap(t *testing.T) {
	got := FindDeltaNeutralPairs([]string{"ADAUSDT", "DOGEUSDT"}, []string{"XRPUSDT", "MATICUSDT"})
	if len(got) != 0 {
		t.Fatalf("expected empty intersection, got %v", got)
	}
}

func TestFindDeltaNeutralPairsDeduplicates(t *testing.T) {
	got := FindDeltaNeutralPairs([]string{"BTCUSDT", "BTCUSDT"}, []string{"BTCUSDT"})
	if !reflect.DeepEqual(got, []string{"BTCUSDT"}) {
		t.Fatalf("expected single BTCUSDT, got %v", got)
	}
}

func TestFilterViablePairsVolume(t *testing.T) {
	candidates := []string{"BTCUSDT", "ETHUSDT", "ASTERUSDT"}
	liquidity := map[string]PairLiquidity{
		"BTCUSDT":   {SpotVolumeUSD: 100000, PerpVolumeUSD: 80000, SpotListed: true, PerpListed: true},
		"ETHUSDT":   {SpotVolumeUSD: 50000, PerpVolumeUSD: 60000, SpotListed: true, PerpListed: true},
		"ASTERUSDT": {SpotVolumeUSD: 5000, PerpVolumeUSD: 15000, SpotListed: true, PerpListed: true},
	}
	got := FilterViablePairs(candidates, liquidity, 10000)
	want := []string{"BTCUSDT", "ETHUSDT"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestFilterViablePairsRequiresBothListings(t *testing.T) {
	liquidity := map[string]PairLiquidity{
		"SPOTONLY": {SpotVolumeUSD: 1e6, PerpVolumeUSD: 1e6, SpotListed: true},
		"PERPONLY": {SpotVolumeUSD: 1e6, PerpVolumeUSD: 1e6, PerpListed: true},
	}
	got := FilterViablePairs([]string{"SPOTONLY", "PERPONLY", "UNKNOWN"}, liquidity, 0)
	if len(got) != 0 {
		t.Fatalf("expected silent exclusion of one-sided listings, got %v", got)
	}
}

package market

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aster-dn-bot/internal/aster/rest"
	"aster-dn-bot/internal/engine"

	"go.uber.org/zap"
)

func newTestService(t *testing.T, spotHandler, perpHandler http.HandlerFunc) (*Service, func()) {
	t.Helper()
	spotSrv := httptest.NewServer(spotHandler)
	perpSrv := httptest.NewServer(perpHandler)
	spot := rest.New(spotSrv.URL, 2*time.Second, zap.NewNop())
	perp := rest.New(perpSrv.URL, 2*time.Second, zap.NewNop())
	return New(spot, perp, zap.NewNop()), func() {
		spotSrv.Close()
		perpSrv.Close()
	}
}

func TestFundingHistory(t *testing.T) {
	perpHandler := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/fundingRate" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("symbol") != "BTCUSDT" {
			t.Fatalf("expected symbol param")
		}
		w.Write([]byte(`[
			{"symbol":"BTCUSDT","fundingRate":"0.00020000","fundingTime":1700000000000},
			{"symbol":"BTCUSDT","fundingRate":"0.00030000","fundingTime":1700028800000}
		]`))
	}
	svc, done := newTestService(t, nil, perpHandler)
	defer done()

	samples, err := svc.FundingHistory(context.Background(), "BTCUSDT", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].Rate != 0.0002 {
		t.Fatalf("expected first rate 0.0002, got %f", samples[0].Rate)
	}
	if !samples[1].Time.After(samples[0].Time) {
		t.Fatalf("expected most-recent-last ordering")
	}
}

func TestBookTickerRejectsEmptyBook(t *testing.T) {
	perpHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","bidPrice":"0","askPrice":"0"}`))
	}
	svc, done := newTestService(t, nil, perpHandler)
	defer done()

	if _, err := svc.PerpBookTicker(context.Background(), "BTCUSDT"); err == nil {
		t.Fatalf("expected error for empty book")
	}
}

func TestSymbolsAndRules(t *testing.T) {
	info := `{"symbols":[
		{"symbol":"BTCUSDT","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT","quotePrecision":8,
		 "filters":[
			{"filterType":"LOT_SIZE","stepSize":"0.00100000","minQty":"0.00100000"},
			{"filterType":"PRICE_FILTER","tickSize":"0.10000000"},
			{"filterType":"MIN_NOTIONAL","minNotional":"5.00000000"}
		 ]},
		{"symbol":"OLDUSDT","status":"BREAK","baseAsset":"OLD","quoteAsset":"USDT","filters":[]}
	]}`
	spotHandler := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/exchangeInfo" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(info))
	}
	svc, done := newTestService(t, spotHandler, nil)
	defer done()

	symbols, err := svc.SpotSymbols(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(symbols) != 1 || symbols[0] != "BTCUSDT" {
		t.Fatalf("expected only trading symbols, got %v", symbols)
	}

	rules, err := svc.SpotRules(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rules.StepSize != 0.001 {
		t.Fatalf("expected step size 0.001, got %f", rules.StepSize)
	}
	if rules.TickSize != 0.1 {
		t.Fatalf("expected tick size 0.1, got %f", rules.TickSize)
	}
	if rules.MinNotionalUSD != 5 {
		t.Fatalf("expected min notional 5, got %f", rules.MinNotionalUSD)
	}
	if rules.BaseAsset != "BTC" {
		t.Fatalf("expected base asset BTC, got %s", rules.BaseAsset)
	}

	if _, err := svc.SpotRules(context.Background(), "NOPEUSDT"); err == nil {
		t.Fatalf("expected error for unknown symbol")
	}
}

func TestPerpRulesNotionalVariant(t *testing.T) {
	perpHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols":[
			{"symbol":"ETHUSDT","status":"TRADING","baseAsset":"ETH","quoteAsset":"USDT",
			 "filters":[{"filterType":"MIN_NOTIONAL","notional":"5"}]}
		]}`))
	}
	svc, done := newTestService(t, nil, perpHandler)
	defer done()

	rules, err := svc.PerpRules(context.Background(), "ETHUSDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rules.MinNotionalUSD != 5 {
		t.Fatalf("expected perp notional filter parsed, got %f", rules.MinNotionalUSD)
	}
}

func TestPairLiquidity(t *testing.T) {
	spotHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"symbol":"BTCUSDT","quoteVolume":"100000"},{"symbol":"ADAUSDT","quoteVolume":"500"}]`))
	}
	perpHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"symbol":"BTCUSDT","quoteVolume":"80000"}]`))
	}
	svc, done := newTestService(t, spotHandler, perpHandler)
	defer done()

	liq, err := svc.PairLiquidity(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	btc := liq["BTCUSDT"]
	if !btc.SpotListed || !btc.PerpListed {
		t.Fatalf("expected BTCUSDT listed both sides: %+v", btc)
	}
	if btc.SpotVolumeUSD != 100000 || btc.PerpVolumeUSD != 80000 {
		t.Fatalf("unexpected volumes: %+v", btc)
	}
	ada := liq["ADAUSDT"]
	if ada.PerpListed {
		t.Fatalf("ADAUSDT should be spot-only")
	}
}

func TestTickerCache(t *testing.T) {
	cache := NewTickerCache()
	cache.HandleMessage([]byte(`{"e":"bookTicker","s":"btcusdt","b":"50000.1","a":"50000.3"}`))

	quote, age, ok := cache.Quote("BTCUSDT")
	if !ok {
		t.Fatalf("expected cached quote")
	}
	if quote.Market != engine.MarketPerp {
		t.Fatalf("expected perp quote, got %s", quote.Market)
	}
	if math.Abs(quote.Mid()-50000.2) > 1e-6 {
		t.Fatalf("expected mid 50000.2, got %f", quote.Mid())
	}
	if age < 0 {
		t.Fatalf("expected non-negative age")
	}

	cache.HandleMessage([]byte(`{"e":"bookTicker","s":"ethusdt","b":"0","a":"0"}`))
	if _, _, ok := cache.Quote("ETHUSDT"); ok {
		t.Fatalf("zero-book events must be ignored")
	}
}

func TestParseFloat(t *testing.T) {
	if parseFloat(" 1.25 ") != 1.25 {
		t.Fatalf("expected trimmed parse")
	}
	if parseFloat("") != 0 || parseFloat("junk") != 0 {
		t.Fatalf("expected zero for empty/malformed")
	}
}

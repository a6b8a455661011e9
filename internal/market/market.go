package market

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"aster-dn-bot/internal/aster/rest"
	"aster-dn-bot/internal/engine"

	"go.uber.org/zap"
)

// Service fetches market data from both Aster markets and converts it to
// the engine's value records. Exchange info is cached in-process for the
// configured window since trading rules change rarely.
type Service struct {
	spot *rest.Client
	perp *rest.Client
	log  *zap.Logger

	mu           sync.RWMutex
	spotInfo     *exchangeInfoResponse
	perpInfo     *exchangeInfoResponse
	spotInfoAt   time.Time
	perpInfoAt   time.Time
	infoCacheTTL time.Duration
}

func New(spot, perp *rest.Client, log *zap.Logger) *Service {
	return &Service{
		spot:         spot,
		perp:         perp,
		log:          log,
		infoCacheTTL: 5 * time.Minute,
	}
}

// FundingHistory returns up to limit funding-rate samples for a symbol,
// time-ordered most-recent-last as the exchange delivers them.
func (s *Service) FundingHistory(ctx context.Context, symbol string, limit int) ([]engine.FundingSample, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var entries []fundingRateEntry
	if err := s.perp.Get(ctx, "/fapi/v1/fundingRate", params, &entries); err != nil {
		return nil, fmt.Errorf("funding history %s: %w", symbol, err)
	}
	samples := make([]engine.FundingSample, 0, len(entries))
	for _, e := range entries {
		samples = append(samples, engine.FundingSample{
			Symbol: e.Symbol,
			Time:   time.UnixMilli(e.FundingTime).UTC(),
			Rate:   parseFloat(e.FundingRate),
		})
	}
	return samples, nil
}

func (s *Service) SpotBookTicker(ctx context.Context, symbol string) (engine.MarketQuote, error) {
	return s.bookTicker(ctx, s.spot, "/api/v1/ticker/bookTicker", symbol, engine.MarketSpot)
}

func (s *Service) PerpBookTicker(ctx context.Context, symbol string) (engine.MarketQuote, error) {
	return s.bookTicker(ctx, s.perp, "/fapi/v1/ticker/bookTicker", symbol, engine.MarketPerp)
}

func (s *Service) bookTicker(ctx context.Context, client *rest.Client, path, symbol string, market engine.Market) (engine.MarketQuote, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	var resp bookTickerResponse
	if err := client.Get(ctx, path, params, &resp); err != nil {
		return engine.MarketQuote{}, fmt.Errorf("book ticker %s %s: %w", market, symbol, err)
	}
	quote := engine.MarketQuote{
		Symbol: symbol,
		Market: market,
		Bid:    parseFloat(resp.BidPrice),
		Ask:    parseFloat(resp.AskPrice),
	}
	if quote.Bid <= 0 || quote.Ask <= 0 {
		return engine.MarketQuote{}, fmt.Errorf("book ticker %s %s: empty book", market, symbol)
	}
	return quote, nil
}

// SpotSymbols lists actively trading spot symbols.
func (s *Service) SpotSymbols(ctx context.Context) ([]string, error) {
	info, err := s.spotExchangeInfo(ctx)
	if err != nil {
		return nil, err
	}
	return tradingSymbols(info), nil
}

// PerpSymbols lists actively trading perpetual symbols.
func (s *Service) PerpSymbols(ctx context.Context) ([]string, error) {
	info, err := s.perpExchangeInfo(ctx)
	if err != nil {
		return nil, err
	}
	return tradingSymbols(info), nil
}

func tradingSymbols(info *exchangeInfoResponse) []string {
	out := make([]string, 0, len(info.Symbols))
	for _, sym := range info.Symbols {
		if sym.Status != "TRADING" {
			continue
		}
		out = append(out, sym.Symbol)
	}
	return out
}

// SpotRules returns the trading constraints for one spot symbol.
func (s *Service) SpotRules(ctx context.Context, symbol string) (SymbolRules, error) {
	info, err := s.spotExchangeInfo(ctx)
	if err != nil {
		return SymbolRules{}, err
	}
	return findRules(info, symbol)
}

// PerpRules returns the trading constraints for one perp symbol.
func (s *Service) PerpRules(ctx context.Context, symbol string) (SymbolRules, error) {
	info, err := s.perpExchangeInfo(ctx)
	if err != nil {
		return SymbolRules{}, err
	}
	return findRules(info, symbol)
}

func findRules(info *exchangeInfoResponse, symbol string) (SymbolRules, error) {
	for _, sym := range info.Symbols {
		if sym.Symbol == symbol {
			return rulesFromSymbol(sym), nil
		}
	}
	return SymbolRules{}, fmt.Errorf("symbol %s not in exchange info", symbol)
}

// PairLiquidity assembles the 24h-volume map FilterViablePairs consumes.
func (s *Service) PairLiquidity(ctx context.Context) (map[string]engine.PairLiquidity, error) {
	var spotTickers, perpTickers []ticker24hEntry
	if err := s.spot.Get(ctx, "/api/v1/ticker/24hr", nil, &spotTickers); err != nil {
		return nil, fmt.Errorf("spot 24h tickers: %w", err)
	}
	if err := s.perp.Get(ctx, "/fapi/v1/ticker/24hr", nil, &perpTickers); err != nil {
		return nil, fmt.Errorf("perp 24h tickers: %w", err)
	}
	out := make(map[string]engine.PairLiquidity, len(spotTickers))
	for _, t := range spotTickers {
		liq := out[t.Symbol]
		liq.SpotListed = true
		liq.SpotVolumeUSD = parseFloat(t.QuoteVolume)
		out[t.Symbol] = liq
	}
	for _, t := range perpTickers {
		liq := out[t.Symbol]
		liq.PerpListed = true
		liq.PerpVolumeUSD = parseFloat(t.QuoteVolume)
		out[t.Symbol] = liq
	}
	return out, nil
}

func (s *Service) spotExchangeInfo(ctx context.Context) (*exchangeInfoResponse, error) {
	s.mu.RLock()
	cached, at := s.spotInfo, s.spotInfoAt
	s.mu.RUnlock()
	if cached != nil && time.Since(at) < s.infoCacheTTL {
		return cached, nil
	}
	var info exchangeInfoResponse
	if err := s.spot.Get(ctx, "/api/v1/exchangeInfo", nil, &info); err != nil {
		return nil, fmt.Errorf("spot exchange info: %w", err)
	}
	s.mu.Lock()
	s.spotInfo = &info
	s.spotInfoAt = time.Now()
	s.mu.Unlock()
	return &info, nil
}

func (s *Service) perpExchangeInfo(ctx context.Context) (*exchangeInfoResponse, error) {
	s.mu.RLock()
	cached, at := s.perpInfo, s.perpInfoAt
	s.mu.RUnlock()
	if cached != nil && time.Since(at) < s.infoCacheTTL {
		return cached, nil
	}
	var info exchangeInfoResponse
	if err := s.perp.Get(ctx, "/fapi/v1/exchangeInfo", nil, &info); err != nil {
		return nil, fmt.Errorf("perp exchange info: %w", err)
	}
	s.mu.Lock()
	s.perpInfo = &info
	s.perpInfoAt = time.Now()
	s.mu.Unlock()
	return &info, nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"aster-dn-bot/internal/aster/rest"
	"aster-dn-bot/internal/config"
	"aster-dn-bot/internal/engine"
	"aster-dn-bot/internal/logging"
	"aster-dn-bot/internal/market"

	"go.uber.org/zap"
)

const (
	defaultSpotBaseURL = "https://sapi.asterdex.com"
	defaultPerpBaseURL = "https://fapi.asterdex.com"
	defaultRESTTimeout = 10 * time.Second
)

// scan is a one-shot funding report: every delta-neutral candidate pair,
// its liquidity, and the opportunities that pass the engine filters. It
// needs no API keys, only the public endpoints.
func main() {
	configPath := flag.String("config", "", "optional config path for API and filter settings")
	symbol := flag.String("symbol", "", "analyze a single symbol instead of the full universe")
	limit := flag.Int("limit", 50, "funding history samples per symbol")
	minVolume := flag.Float64("min-volume", 0, "minimum 24h quote volume per market in USD")
	flag.Parse()

	logCfg := config.LoggingConfig{Level: "warn"}
	spotBaseURL := defaultSpotBaseURL
	perpBaseURL := defaultPerpBaseURL
	timeout := defaultRESTTimeout
	params := engine.DefaultParams()
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fatal(err)
		}
		logCfg = cfg.Log
		spotBaseURL = cfg.SpotAPI.BaseURL
		perpBaseURL = cfg.PerpAPI.BaseURL
		timeout = cfg.PerpAPI.Timeout
		params = cfg.Engine.EngineParams().WithDefaults()
		if *limit == 50 && cfg.Scan.FundingHistoryLimit > 0 {
			*limit = cfg.Scan.FundingHistoryLimit
		}
		if *minVolume == 0 {
			*minVolume = cfg.Scan.MinVolume24hUSD
		}
	}

	log := logging.New(logCfg)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	spotClient := rest.New(spotBaseURL, timeout, log)
	perpClient := rest.New(perpBaseURL, timeout, log)
	markets := market.New(spotClient, perpClient, log)

	if *symbol != "" {
		runSingle(ctx, markets, strings.ToUpper(*symbol), *limit, params)
		return
	}
	runUniverse(ctx, markets, *limit, *minVolume, params, log)
}

func runSingle(ctx context.Context, markets *market.Service, symbol string, limit int, params engine.Params) {
	samples, err := markets.FundingHistory(ctx, symbol, limit)
	if err != nil {
		fatal(err)
	}
	histories := map[string][]engine.FundingSample{symbol: samples}
	opportunities := engine.AnalyzeFundingOpportunities(histories, []string{symbol}, params)
	fmt.Printf("%s: %d funding samples\n", symbol, len(samples))
	if len(samples) > 0 {
		latest := samples[len(samples)-1]
		fmt.Printf("latest rate: %.8f (%.2f%% APR)\n", latest.Rate, engine.AnnualizedAPRPercent(latest.Rate, params))
	}
	if len(opportunities) == 0 {
		fmt.Println("verdict: rejected by the filters")
		return
	}
	opp := opportunities[0]
	fmt.Printf("verdict: viable, mean rate %.8f, APR %.2f%%, CV %.4f\n",
		opp.MeanRate, opp.AnnualizedAPR, opp.CoefficientOfVariation)
}

func runUniverse(ctx context.Context, markets *market.Service, limit int, minVolume float64, params engine.Params, log *zap.Logger) {
	spotSymbols, err := markets.SpotSymbols(ctx)
	if err != nil {
		fatal(err)
	}
	perpSymbols, err := markets.PerpSymbols(ctx)
	if err != nil {
		fatal(err)
	}
	candidates := engine.FindDeltaNeutralPairs(spotSymbols, perpSymbols)
	liquidity, err := markets.PairLiquidity(ctx)
	if err != nil {
		fatal(err)
	}
	viable := engine.FilterViablePairs(candidates, liquidity, minVolume)
	fmt.Printf("delta-neutral candidates: %d, viable after liquidity filter: %d\n", len(candidates), len(viable))

	histories := make(map[string][]engine.FundingSample, len(viable))
	for _, sym := range viable {
		samples, err := markets.FundingHistory(ctx, sym, limit)
		if err != nil {
			log.Warn("funding history fetch failed", zap.String("symbol", sym), zap.Error(err))
			continue
		}
		histories[sym] = samples
	}
	opportunities := engine.AnalyzeFundingOpportunities(histories, viable, params)
	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].AnnualizedAPR > opportunities[j].AnnualizedAPR
	})

	if len(opportunities) == 0 {
		fmt.Println("no opportunities pass the filters")
		return
	}
	header := fmt.Sprintf("%-12s %15s %12s %10s %8s", "Symbol", "Mean Rate", "APR (%)", "CV", "Samples")
	fmt.Println(header)
	fmt.Println(strings.Repeat("-", len(header)))
	for _, opp := range opportunities {
		fmt.Printf("%-12s %15.8f %12.2f %10.4f %8d\n",
			opp.Symbol, opp.MeanRate, opp.AnnualizedAPR, opp.CoefficientOfVariation, opp.SampleCount)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
	os.Exit(1)
}

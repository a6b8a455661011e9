package app

import (
	"context"
	"fmt"
	"time"

	"aster-dn-bot/internal/account"
	"aster-dn-bot/internal/alerts"
	"aster-dn-bot/internal/engine"
	"aster-dn-bot/internal/exec"

	"go.uber.org/zap"
)

// scan refreshes the funding opportunity list: intersect the spot and perp
// listings, drop illiquid pairs, then rank what remains by funding APR.
func (a *App) scan(ctx context.Context) error {
	spotSymbols, err := a.market.SpotSymbols(ctx)
	if err != nil {
		return fmt.Errorf("spot symbols: %w", err)
	}
	perpSymbols, err := a.market.PerpSymbols(ctx)
	if err != nil {
		return fmt.Errorf("perp symbols: %w", err)
	}
	candidates := engine.FindDeltaNeutralPairs(spotSymbols, perpSymbols)

	liquidity, err := a.market.PairLiquidity(ctx)
	if err != nil {
		return fmt.Errorf("pair liquidity: %w", err)
	}
	viable := engine.FilterViablePairs(candidates, liquidity, a.cfg.Scan.MinVolume24hUSD)
	for i := 0; i < len(candidates)-len(viable); i++ {
		a.metrics.PairsRejected.Inc()
	}

	histories := make(map[string][]engine.FundingSample, len(viable))
	for _, symbol := range viable {
		samples, err := a.market.FundingHistory(ctx, symbol, a.cfg.Scan.FundingHistoryLimit)
		if err != nil {
			a.log.Warn("funding history fetch failed", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		histories[symbol] = samples
	}

	opportunities := engine.AnalyzeFundingOpportunities(histories, viable, a.params)
	a.metrics.ScansRun.Inc()
	now := time.Now().UTC()
	for _, opp := range opportunities {
		a.metrics.OpportunitiesFound.Inc()
		a.recorder.EnqueueOpportunity(now, opp)
	}

	a.mu.Lock()
	a.opportunities = opportunities
	a.mu.Unlock()

	a.log.Info("funding scan complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("viable", len(viable)),
		zap.Int("opportunities", len(opportunities)))
	return nil
}

// maybeOpenBest opens the top-ranked opportunity when no pair is live.
// One pair at a time keeps the capital accounting trivial.
func (a *App) maybeOpenBest(ctx context.Context) error {
	a.mu.RLock()
	busy := len(a.pairs) > 0
	var best engine.FundingOpportunity
	for _, opp := range a.opportunities {
		if opp.AnnualizedAPR > best.AnnualizedAPR {
			best = opp
		}
	}
	a.mu.RUnlock()
	if busy || best.Symbol == "" {
		return nil
	}
	return a.openPosition(ctx, best.Symbol)
}

func (a *App) openPosition(ctx context.Context, symbol string) error {
	capital := a.cfg.Scan.CapitalUSD

	holdings, err := a.account.SpotBalances(ctx)
	if err != nil {
		return fmt.Errorf("spot balances: %w", err)
	}
	perp, err := a.account.PerpAccount(ctx)
	if err != nil {
		return fmt.Errorf("perp account: %w", err)
	}
	// The exchange remembers a leverage setting for flat symbols too, so
	// a fresh open must check the configured value before hedging.
	leverage := a.params.RequiredLeverage
	if configured, ok := perp.Leverage[symbol]; ok {
		leverage = configured
	}
	spotUSDT := account.SpotFree(holdings, "USDT")
	ok, reason := engine.ValidateStrategyPreconditions(engine.PreconditionRequest{
		CapitalUSD:      capital,
		SpotUSDTFree:    spotUSDT,
		PerpUSDTFree:    perp.Margin.USDT,
		CurrentLeverage: leverage,
	}, a.params)
	if !ok {
		a.metrics.PreconditionFailed.Inc()
		a.log.Warn("entry preconditions failed", zap.String("symbol", symbol), zap.String("reason", reason))
		if transfer, needed := exec.PlanMarginRebalance(spotUSDT, perp.Margin.USDT); needed {
			a.log.Info("margin rebalance would even the wallets",
				zap.Float64("amount_usd", transfer.Amount),
				zap.String("direction", string(transfer.Direction)))
		}
		return nil
	}

	spotRules, err := a.rulesFor(ctx, "spot", symbol)
	if err != nil {
		return fmt.Errorf("spot rules: %w", err)
	}
	perpRules, err := a.rulesFor(ctx, "perp", symbol)
	if err != nil {
		return fmt.Errorf("perp rules: %w", err)
	}
	spotQuote, err := a.market.SpotBookTicker(ctx, symbol)
	if err != nil {
		return fmt.Errorf("spot quote: %w", err)
	}
	perpQuote, err := a.perpQuote(ctx, symbol)
	if err != nil {
		return fmt.Errorf("perp quote: %w", err)
	}

	existingSpot := account.SpotFree(holdings, spotRules.BaseAsset)
	var existingPerp float64
	for _, pos := range perp.Positions {
		if pos.Symbol == symbol {
			existingPerp = pos.SignedQty
			break
		}
	}
	plan, err := engine.CalculatePositionSize(engine.SizingRequest{
		Symbol:          symbol,
		CapitalUSD:      capital,
		SpotPrice:       spotQuote.Mid(),
		PerpPrice:       perpQuote.Mid(),
		StepSizeSpot:    spotRules.StepSize,
		StepSizePerp:    perpRules.StepSize,
		ExistingSpotQty: existingSpot,
		ExistingPerpQty: existingPerp,
	}, a.params)
	if err != nil {
		a.log.Warn("position sizing rejected", zap.String("symbol", symbol), zap.Error(err))
		return nil
	}

	tag := fmt.Sprintf("open-%s-%s", symbol, time.Now().UTC().Format("20060102T150405Z"))
	if err := a.executor.OpenPair(ctx, plan, tag); err != nil {
		a.metrics.OrdersFailed.Inc()
		return err
	}
	a.metrics.OrdersPlaced.Inc()
	a.log.Info("opened delta-neutral pair",
		zap.String("symbol", symbol),
		zap.Float64("spot_qty", plan.SpotQty),
		zap.Float64("perp_qty", plan.PerpQty))
	if err := a.alerts.Send(ctx, alerts.FormatPositionOpened(plan)); err != nil {
		a.log.Warn("alert send failed", zap.Error(err))
	}
	return nil
}

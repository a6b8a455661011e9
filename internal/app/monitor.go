package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"aster-dn-bot/internal/account"
	"aster-dn-bot/internal/alerts"
	"aster-dn-bot/internal/engine"
	"aster-dn-bot/internal/state"
	"aster-dn-bot/internal/timescale"

	"go.uber.org/zap"
)

// monitor evaluates every live pair and acts on the verdict: close on
// liquidation risk, rebalance on drift, otherwise hold.
func (a *App) monitor(ctx context.Context) error {
	holdings, err := a.account.SpotBalances(ctx)
	if err != nil {
		return fmt.Errorf("spot balances: %w", err)
	}
	perp, err := a.account.PerpAccount(ctx)
	if err != nil {
		return fmt.Errorf("perp account: %w", err)
	}
	pairs := account.PairPositions(perp.Positions, holdings, nil)

	symbols := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		symbols = append(symbols, pair.Symbol)
	}
	a.subscribeQuotes(ctx, symbols)

	a.mu.RLock()
	aprBySymbol := make(map[string]float64, len(a.opportunities))
	for _, opp := range a.opportunities {
		aprBySymbol[opp.Symbol] = opp.AnnualizedAPR
	}
	a.mu.RUnlock()

	reports := make(map[string]engine.HealthReport, len(pairs))
	now := time.Now().UTC()
	for _, pair := range pairs {
		report := engine.CheckPositionHealth(pair.Perp, pair.Spot, a.params)
		action := engine.DetermineRebalanceAction(report, a.params)
		reports[pair.Symbol] = report

		switch action {
		case engine.ActionClosePosition:
			a.metrics.PositionsClosed.Inc()
			if err := a.closePosition(ctx, pair); err != nil {
				a.log.Error("close failed", zap.String("symbol", pair.Symbol), zap.Error(err))
			}
		case engine.ActionRebalance:
			a.metrics.RebalancesDecided.Inc()
			if err := a.rebalancePosition(ctx, pair, report); err != nil {
				a.log.Error("rebalance failed", zap.String("symbol", pair.Symbol), zap.Error(err))
			}
		}

		if err := a.alerts.SendHealthAlert(ctx, report, action); err != nil {
			a.log.Warn("alert send failed", zap.Error(err))
		}
		snapshot := state.PositionSnapshot{
			Symbol:         pair.Symbol,
			Action:         string(action),
			SpotQty:        pair.Spot.FreeQty,
			PerpQty:        pair.Perp.SignedQty,
			NetDelta:       report.NetDelta,
			ImbalancePct:   report.ImbalancePct,
			RiskLevel:      string(report.LiquidationRisk),
			MarkPrice:      pair.Perp.MarkPrice,
			UpdatedAtMS:    now.UnixMilli(),
			UnrealizedUSD:  report.UnrealizedPnlUSD,
			AnnualizedAPR:  aprBySymbol[pair.Symbol],
			CapitalUSDUsed: (pair.Spot.FreeQty + math.Abs(pair.Perp.SignedQty)) * pair.Perp.MarkPrice,
		}
		if err := state.SavePositionSnapshot(ctx, a.store, snapshot); err != nil {
			a.log.Warn("snapshot save failed", zap.String("symbol", pair.Symbol), zap.Error(err))
		}
		a.recorder.EnqueueHealth(timescale.HealthSnapshot{
			Time:               now,
			Symbol:             pair.Symbol,
			Action:             string(action),
			SpotQty:            pair.Spot.FreeQty,
			PerpQty:            pair.Perp.SignedQty,
			NetDelta:           report.NetDelta,
			ImbalancePct:       report.ImbalancePct,
			LiquidationRiskPct: report.LiquidationRiskPct,
			RiskLevel:          string(report.LiquidationRisk),
			MarkPrice:          pair.Perp.MarkPrice,
			UnrealizedPnlUSD:   report.UnrealizedPnlUSD,
		})
	}

	a.mu.Lock()
	a.pairs = pairs
	a.reports = reports
	a.margin = perp.Margin
	a.mu.Unlock()
	return nil
}

func (a *App) closePosition(ctx context.Context, pair account.PositionPair) error {
	spotRules, err := a.rulesFor(ctx, "spot", pair.Symbol)
	if err != nil {
		return fmt.Errorf("spot rules: %w", err)
	}
	perpRules, err := a.rulesFor(ctx, "perp", pair.Symbol)
	if err != nil {
		return fmt.Errorf("perp rules: %w", err)
	}
	spotQty := engine.FloorToStep(pair.Spot.FreeQty, spotRules.StepSize)
	perpQty := engine.FloorToStep(math.Abs(pair.Perp.SignedQty), perpRules.StepSize)

	tag := fmt.Sprintf("close-%s-%s", pair.Symbol, time.Now().UTC().Format("20060102T150405Z"))
	if err := a.executor.ClosePair(ctx, pair.Symbol, spotQty, perpQty, tag); err != nil {
		a.metrics.OrdersFailed.Inc()
		return err
	}
	a.metrics.OrdersPlaced.Inc()
	a.log.Info("closed pair on liquidation risk",
		zap.String("symbol", pair.Symbol),
		zap.Float64("spot_qty", spotQty),
		zap.Float64("perp_qty", perpQty))
	report := engine.CheckPositionHealth(pair.Perp, pair.Spot, a.params)
	if err := a.alerts.Send(ctx, alerts.FormatPositionClosed(pair.Symbol, report.UnrealizedPnlUSD)); err != nil {
		a.log.Warn("alert send failed", zap.Error(err))
	}
	return nil
}

func (a *App) rebalancePosition(ctx context.Context, pair account.PositionPair, report engine.HealthReport) error {
	quantities, ok := engine.CalculateRebalanceQuantities(report, pair.Spot, pair.Perp)
	if !ok {
		return nil
	}
	marketName := "spot"
	if quantities.Leg == engine.LegPerp {
		marketName = "perp"
	}
	stepRules, err := a.rulesFor(ctx, marketName, pair.Symbol)
	if err != nil {
		return fmt.Errorf("%s rules: %w", marketName, err)
	}
	quantities.DeltaQty = engine.FloorToStep(quantities.DeltaQty, stepRules.StepSize)
	if quantities.DeltaQty <= 0 {
		a.log.Info("rebalance delta below step size", zap.String("symbol", pair.Symbol))
		return nil
	}

	tag := fmt.Sprintf("rebalance-%s-%d", pair.Symbol, time.Now().UTC().UnixMilli())
	if err := a.executor.Rebalance(ctx, pair.Symbol, quantities, tag); err != nil {
		a.metrics.OrdersFailed.Inc()
		return err
	}
	a.metrics.OrdersPlaced.Inc()
	a.log.Info("rebalanced pair",
		zap.String("symbol", pair.Symbol),
		zap.String("leg", string(quantities.Leg)),
		zap.Float64("delta_qty", quantities.DeltaQty))
	return nil
}

package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"aster-dn-bot/internal/account"
	"aster-dn-bot/internal/engine"
)

// renderDashboard builds the plain-text status page printed after every
// tick: funding opportunities, live pairs, and margin balances.
func (a *App) renderDashboard(now time.Time) string {
	a.mu.RLock()
	opportunities := a.opportunities
	pairs := a.pairs
	reports := a.reports
	margin := a.margin
	a.mu.RUnlock()

	var b strings.Builder
	fmt.Fprintf(&b, "\n=== aster-dn-bot %s ===\n", now.Format(time.RFC3339))
	renderOpportunities(&b, opportunities)
	renderPairs(&b, pairs, reports)
	renderMargin(&b, margin)
	return b.String()
}

func renderOpportunities(b *strings.Builder, opportunities []engine.FundingOpportunity) {
	fmt.Fprintf(b, "\nFunding Opportunities (sorted by APR, highest first):\n")
	if len(opportunities) == 0 {
		fmt.Fprintf(b, "  none pass the filters\n")
		return
	}
	sorted := make([]engine.FundingOpportunity, len(opportunities))
	copy(sorted, opportunities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AnnualizedAPR > sorted[j].AnnualizedAPR
	})
	header := fmt.Sprintf("  %-12s %15s %12s %10s %8s", "Symbol", "Mean Rate", "APR (%)", "CV", "Samples")
	fmt.Fprintln(b, header)
	fmt.Fprintln(b, "  "+strings.Repeat("-", len(header)-2))
	for _, opp := range sorted {
		fmt.Fprintf(b, "  %-12s %15.8f %12.2f %10.4f %8d\n",
			opp.Symbol, opp.MeanRate, opp.AnnualizedAPR, opp.CoefficientOfVariation, opp.SampleCount)
	}
}

func renderPairs(b *strings.Builder, pairs []account.PositionPair, reports map[string]engine.HealthReport) {
	fmt.Fprintf(b, "\nDelta-Neutral Positions:\n")
	if len(pairs) == 0 {
		fmt.Fprintf(b, "  no open positions\n")
		return
	}
	header := fmt.Sprintf("  %-12s %14s %14s %12s %11s %10s %12s", "Symbol", "Spot Qty", "Perp Qty", "Net Delta", "Imbalance", "Risk", "PnL USD")
	fmt.Fprintln(b, header)
	fmt.Fprintln(b, "  "+strings.Repeat("-", len(header)-2))
	for _, pair := range pairs {
		report := reports[pair.Symbol]
		fmt.Fprintf(b, "  %-12s %14.6f %14.6f %12.6f %10.2f%% %10s %12.2f\n",
			pair.Symbol,
			pair.Spot.FreeQty,
			pair.Perp.SignedQty,
			report.NetDelta,
			report.ImbalancePct,
			report.LiquidationRisk,
			report.UnrealizedPnlUSD)
	}
}

func renderMargin(b *strings.Builder, margin account.MarginBalances) {
	fmt.Fprintf(b, "\nPerp Margin: $%.2f (USDT %.2f, USDC %.2f, USDF %.2f)\n",
		margin.Total, margin.USDT, margin.USDC, margin.USDF)
}

package state

import (
	"context"
	"encoding/json"
	"strings"
)

const positionSnapshotPrefix = "position:last:"

// PositionSnapshot records the last evaluation of one symbol so a restart
// can show what the monitor last decided before fresh data arrives.
type PositionSnapshot struct {
	Symbol         string  `json:"symbol"`
	Action         string  `json:"action"`
	SpotQty        float64 `json:"spot_qty"`
	PerpQty        float64 `json:"perp_qty"`
	NetDelta       float64 `json:"net_delta"`
	ImbalancePct   float64 `json:"imbalance_pct"`
	RiskLevel      string  `json:"risk_level"`
	MarkPrice      float64 `json:"mark_price"`
	UpdatedAtMS    int64   `json:"updated_at_ms"`
	UnrealizedUSD  float64 `json:"unrealized_usd"`
	AnnualizedAPR  float64 `json:"annualized_apr"`
	CapitalUSDUsed float64 `json:"capital_usd_used"`
}

func LoadPositionSnapshot(ctx context.Context, store Store, symbol string) (PositionSnapshot, bool, error) {
	if store == nil {
		return PositionSnapshot{}, false, nil
	}
	raw, ok, err := store.Get(ctx, positionSnapshotPrefix+symbol)
	if err != nil {
		return PositionSnapshot{}, false, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return PositionSnapshot{}, false, nil
	}
	var snapshot PositionSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return PositionSnapshot{}, false, err
	}
	return snapshot, true, nil
}

func SavePositionSnapshot(ctx context.Context, store Store, snapshot PositionSnapshot) error {
	if store == nil || snapshot.Symbol == "" {
		return nil
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return store.Set(ctx, positionSnapshotPrefix+snapshot.Symbol, string(payload))
}

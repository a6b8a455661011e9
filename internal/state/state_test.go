package state

import (
	"context"
	"sync"
	"testing"

	"aster-dn-bot/internal/market"
)

type memoryStore struct {
	mu    sync.Mutex
	items map[string]string
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.items[key]
	return val, ok, nil
}

func (m *memoryStore) Set(ctx context.Context, key, value string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]string)
	}
	m.items[key] = value
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *memoryStore) Close() error {
	return nil
}

func TestPositionSnapshotRoundTrip(t *testing.T) {
	store := &memoryStore{}
	ctx := context.Background()
	snapshot := PositionSnapshot{
		Symbol:       "ETHUSDT",
		Action:       "REBALANCE",
		SpotQty:      10.5,
		PerpQty:      -10,
		NetDelta:     0.5,
		ImbalancePct: 5,
		RiskLevel:    "LOW",
		MarkPrice:    2000,
		UpdatedAtMS:  12345,
	}
	if err := SavePositionSnapshot(ctx, store, snapshot); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	got, ok, err := LoadPositionSnapshot(ctx, store, "ETHUSDT")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if !ok {
		t.Fatalf("expected snapshot to be present")
	}
	if got != snapshot {
		t.Fatalf("unexpected snapshot: %#v", got)
	}
}

func TestPositionSnapshotMissing(t *testing.T) {
	store := &memoryStore{}
	if _, ok, err := LoadPositionSnapshot(context.Background(), store, "BTCUSDT"); err != nil || ok {
		t.Fatalf("expected no snapshot, ok=%v err=%v", ok, err)
	}
}

func TestPositionSnapshotInvalid(t *testing.T) {
	store := &memoryStore{items: map[string]string{positionSnapshotPrefix + "BTCUSDT": "{"}}
	if _, _, err := LoadPositionSnapshot(context.Background(), store, "BTCUSDT"); err == nil {
		t.Fatalf("expected error for invalid snapshot JSON")
	}
}

func TestSymbolRulesRoundTrip(t *testing.T) {
	store := &memoryStore{}
	ctx := context.Background()
	rules := market.SymbolRules{
		Symbol:         "BTCUSDT",
		BaseAsset:      "BTC",
		QuoteAsset:     "USDT",
		StepSize:       0.001,
		TickSize:       0.1,
		MinNotionalUSD: 5,
	}
	if err := SaveSymbolRules(ctx, store, "spot", rules); err != nil {
		t.Fatalf("save rules: %v", err)
	}
	got, ok, err := LoadSymbolRules(ctx, store, "spot", "BTCUSDT")
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	if !ok {
		t.Fatalf("expected cached rules")
	}
	if got != rules {
		t.Fatalf("unexpected rules: %#v", got)
	}

	if _, ok, _ := LoadSymbolRules(ctx, store, "perp", "BTCUSDT"); ok {
		t.Fatalf("expected market-scoped keys")
	}
}

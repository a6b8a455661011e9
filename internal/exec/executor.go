package exec

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"aster-dn-bot/internal/engine"
	"aster-dn-bot/internal/state"

	"go.uber.org/zap"
)

// Market selects which venue an order is routed to.
type Market string

const (
	MarketSpot Market = "spot"
	MarketPerp Market = "perp"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Order is a market order on one leg of a pair. Quantity is in base units,
// already floored to the venue's step size.
type Order struct {
	Market        Market
	Symbol        string
	Side          Side
	Qty           float64
	ReduceOnly    bool
	ClientOrderID string
}

// TransferDirection names which wallet a margin transfer drains.
type TransferDirection string

const (
	TransferSpotToPerp TransferDirection = "SPOT_TO_PERP"
	TransferPerpToSpot TransferDirection = "PERP_TO_SPOT"
)

// MarginTransfer moves stablecoin collateral between the spot and perp
// wallets. Amount is in asset units, always positive.
type MarginTransfer struct {
	Asset     string
	Amount    float64
	Direction TransferDirection
}

// Splits within a dollar of even are left alone.
const marginTransferToleranceUSD = 1.0

// PlanMarginRebalance returns the transfer that evens USDT 50/50 across
// the spot and perp wallets. ok is false when the split is already close
// enough to even.
func PlanMarginRebalance(spotUSDT, perpUSDT float64) (MarginTransfer, bool) {
	excess := spotUSDT - (spotUSDT+perpUSDT)/2
	if math.Abs(excess) <= marginTransferToleranceUSD {
		return MarginTransfer{}, false
	}
	transfer := MarginTransfer{Asset: "USDT", Amount: math.Abs(excess), Direction: TransferSpotToPerp}
	if excess < 0 {
		transfer.Direction = TransferPerpToSpot
	}
	return transfer, true
}

// Gateway places orders and moves funds against the exchange.
// Implementations handle the venue-specific signing.
type Gateway interface {
	PlaceOrder(ctx context.Context, order Order) (string, error)
	CancelOrder(ctx context.Context, market Market, symbol, orderID string) error
	TransferMargin(ctx context.Context, transfer MarginTransfer, clientTranID string) (string, error)
}

// Executor wraps a Gateway with retry and client-order-id dedup so a crashed
// run cannot double-place the same leg after restart.
type Executor struct {
	gateway Gateway
	store   state.Store
	log     *zap.Logger

	mu    sync.Mutex
	cache map[string]string
}

func New(gateway Gateway, store state.Store, log *zap.Logger) *Executor {
	return &Executor{
		gateway: gateway,
		store:   store,
		log:     log,
		cache:   make(map[string]string),
	}
}

func (e *Executor) PlaceOrder(ctx context.Context, order Order) (string, error) {
	if order.Qty <= 0 {
		return "", fmt.Errorf("order %s %s: non-positive qty %v", order.Symbol, order.Side, order.Qty)
	}
	if order.ClientOrderID == "" {
		return e.placeWithRetry(ctx, order)
	}
	cacheKey := "cloid:" + string(order.Market) + ":" + order.ClientOrderID
	return e.once(ctx, cacheKey, func() (string, error) {
		return e.placeWithRetry(ctx, order)
	})
}

// TransferMargin executes a wallet transfer with the same dedup the
// orders get, keyed on the client transaction id.
func (e *Executor) TransferMargin(ctx context.Context, transfer MarginTransfer, tag string) (string, error) {
	if transfer.Amount <= 0 {
		return "", fmt.Errorf("transfer %s: non-positive amount %v", transfer.Asset, transfer.Amount)
	}
	switch transfer.Direction {
	case TransferSpotToPerp, TransferPerpToSpot:
	default:
		return "", fmt.Errorf("transfer %s: unknown direction %q", transfer.Asset, transfer.Direction)
	}
	return e.once(ctx, "tran:"+tag, func() (string, error) {
		var tranID string
		err := e.retry(ctx, func() error {
			var err error
			tranID, err = e.gateway.TransferMargin(ctx, transfer, tag)
			return err
		})
		if err != nil {
			return "", err
		}
		if tranID == "" {
			return "", errors.New("empty transfer id")
		}
		return tranID, nil
	})
}

// once runs fn at most one time per key: the result is memoized in the
// store so a restart replays the recorded id instead of re-executing.
func (e *Executor) once(ctx context.Context, cacheKey string, fn func() (string, error)) (string, error) {
	e.mu.Lock()
	if id, ok := e.cache[cacheKey]; ok {
		e.mu.Unlock()
		return id, nil
	}
	e.mu.Unlock()
	if e.store != nil {
		if id, ok, err := e.store.Get(ctx, cacheKey); err != nil {
			return "", err
		} else if ok {
			e.mu.Lock()
			e.cache[cacheKey] = id
			e.mu.Unlock()
			return id, nil
		}
	}
	id, err := fn()
	if err != nil {
		return "", err
	}
	if e.store != nil {
		if err := e.store.Set(ctx, cacheKey, id); err != nil {
			e.log.Warn("failed to persist execution id", zap.Error(err))
		}
	}
	e.mu.Lock()
	e.cache[cacheKey] = id
	e.mu.Unlock()
	return id, nil
}

func (e *Executor) CancelOrder(ctx context.Context, market Market, symbol, orderID string) error {
	return e.retry(ctx, func() error {
		return e.gateway.CancelOrder(ctx, market, symbol, orderID)
	})
}

// OpenPair buys the spot leg and shorts the perp leg of a sizing plan.
// Spot fills first so the hedge never exceeds the inventory it covers.
func (e *Executor) OpenPair(ctx context.Context, plan engine.SizingPlan, tag string) error {
	if plan.SpotQty > 0 {
		order := Order{
			Market:        MarketSpot,
			Symbol:        plan.Symbol,
			Side:          SideBuy,
			Qty:           plan.SpotQty,
			ClientOrderID: tag + ":spot",
		}
		if _, err := e.PlaceOrder(ctx, order); err != nil {
			return fmt.Errorf("open spot leg %s: %w", plan.Symbol, err)
		}
	}
	if plan.PerpQty > 0 {
		order := Order{
			Market:        MarketPerp,
			Symbol:        plan.Symbol,
			Side:          SideSell,
			Qty:           plan.PerpQty,
			ClientOrderID: tag + ":perp",
		}
		if _, err := e.PlaceOrder(ctx, order); err != nil {
			return fmt.Errorf("open perp leg %s: %w", plan.Symbol, err)
		}
	}
	return nil
}

// Rebalance grows the lagging leg by the computed delta.
func (e *Executor) Rebalance(ctx context.Context, symbol string, quantities engine.RebalanceQuantities, tag string) error {
	if quantities.DeltaQty <= 0 {
		return nil
	}
	order := Order{
		Symbol:        symbol,
		Qty:           quantities.DeltaQty,
		ClientOrderID: tag + ":rebalance",
	}
	switch quantities.Leg {
	case engine.LegSpot:
		order.Market = MarketSpot
		order.Side = SideBuy
	case engine.LegPerp:
		order.Market = MarketPerp
		order.Side = SideSell
	default:
		return fmt.Errorf("rebalance %s: unknown leg %q", symbol, quantities.Leg)
	}
	if _, err := e.PlaceOrder(ctx, order); err != nil {
		return fmt.Errorf("rebalance %s leg %s: %w", symbol, quantities.Leg, err)
	}
	return nil
}

// ClosePair unwinds both legs: buy back the perp short, then sell the spot.
func (e *Executor) ClosePair(ctx context.Context, symbol string, spotQty, perpQty float64, tag string) error {
	if perpQty > 0 {
		order := Order{
			Market:        MarketPerp,
			Symbol:        symbol,
			Side:          SideBuy,
			Qty:           perpQty,
			ReduceOnly:    true,
			ClientOrderID: tag + ":close-perp",
		}
		if _, err := e.PlaceOrder(ctx, order); err != nil {
			return fmt.Errorf("close perp leg %s: %w", symbol, err)
		}
	}
	if spotQty > 0 {
		order := Order{
			Market:        MarketSpot,
			Symbol:        symbol,
			Side:          SideSell,
			Qty:           spotQty,
			ClientOrderID: tag + ":close-spot",
		}
		if _, err := e.PlaceOrder(ctx, order); err != nil {
			return fmt.Errorf("close spot leg %s: %w", symbol, err)
		}
	}
	return nil
}

func (e *Executor) placeWithRetry(ctx context.Context, order Order) (string, error) {
	var orderID string
	err := e.retry(ctx, func() error {
		var err error
		orderID, err = e.gateway.PlaceOrder(ctx, order)
		return err
	})
	if err != nil {
		return "", err
	}
	if orderID == "" {
		return "", errors.New("empty order id")
	}
	return orderID, nil
}

func (e *Executor) retry(ctx context.Context, fn func() error) error {
	backoff := 200 * time.Millisecond
	for attempt := 0; attempt < 5; attempt++ {
		if err := fn(); err != nil {
			if attempt == 4 {
				return fmt.Errorf("retry failed: %w", err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
			continue
		}
		return nil
	}
	return nil
}

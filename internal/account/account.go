package account

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"aster-dn-bot/internal/aster/rest"
	"aster-dn-bot/internal/aster/sign"
	"aster-dn-bot/internal/engine"

	"go.uber.org/zap"
)

// flatEpsilon hides dust positions the exchange reports after closes.
const flatEpsilon = 1e-9

var stablecoins = map[string]struct{}{
	"USDT": {},
	"USDC": {},
	"USDF": {},
}

// Service reads balances and positions from both markets. Spot requests
// use the HMAC credentials configured on the spot client; perp requests
// carry EVM-signed parameters from the pro-API signer.
type Service struct {
	spot   *rest.Client
	perp   *rest.Client
	signer *sign.Signer
	log    *zap.Logger
}

func New(spot, perp *rest.Client, signer *sign.Signer, log *zap.Logger) *Service {
	return &Service{spot: spot, perp: perp, signer: signer, log: log}
}

type spotAccountResponse struct {
	Balances []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

type perpAccountResponse struct {
	Assets []struct {
		Asset            string `json:"asset"`
		WalletBalance    string `json:"walletBalance"`
		AvailableBalance string `json:"availableBalance"`
	} `json:"assets"`
	Positions []struct {
		Symbol           string `json:"symbol"`
		PositionAmt      string `json:"positionAmt"`
		EntryPrice       string `json:"entryPrice"`
		MarkPrice        string `json:"markPrice"`
		LiquidationPrice string `json:"liquidationPrice"`
		Leverage         string `json:"leverage"`
	} `json:"positions"`
}

// MarginBalances is the perp wallet broken out by stablecoin. Total is
// what backs the short legs.
type MarginBalances struct {
	USDT  float64
	USDC  float64
	USDF  float64
	Total float64
}

// SpotBalances returns non-zero spot holdings, stablecoins included.
func (s *Service) SpotBalances(ctx context.Context) ([]engine.SpotHolding, error) {
	var resp spotAccountResponse
	if err := s.spot.GetSigned(ctx, "/api/v1/account", nil, &resp); err != nil {
		return nil, fmt.Errorf("spot balances: %w", err)
	}
	out := make([]engine.SpotHolding, 0, len(resp.Balances))
	for _, b := range resp.Balances {
		holding := engine.SpotHolding{
			Asset:     b.Asset,
			FreeQty:   parseFloat(b.Free),
			LockedQty: parseFloat(b.Locked),
		}
		if holding.FreeQty == 0 && holding.LockedQty == 0 {
			continue
		}
		out = append(out, holding)
	}
	return out, nil
}

// PerpSnapshot is one read of the perp account: open positions, the
// configured leverage per listed symbol, and the margin balances. The
// exchange keeps a leverage setting even when a symbol is flat, so
// Leverage covers symbols that Positions drops.
type PerpSnapshot struct {
	Positions []engine.PerpPosition
	Leverage  map[string]int
	Margin    MarginBalances
}

// PerpAccount returns open perp positions, per-symbol leverage settings
// and the margin balances.
func (s *Service) PerpAccount(ctx context.Context) (PerpSnapshot, error) {
	params, err := s.signer.SignParams(url.Values{}, time.Now().UnixMicro())
	if err != nil {
		return PerpSnapshot{}, fmt.Errorf("perp account: %w", err)
	}
	var resp perpAccountResponse
	if err := s.perp.Get(ctx, "/fapi/v3/account", params, &resp); err != nil {
		return PerpSnapshot{}, fmt.Errorf("perp account: %w", err)
	}

	var margin MarginBalances
	for _, a := range resp.Assets {
		bal := parseFloat(a.WalletBalance)
		switch a.Asset {
		case "USDT":
			margin.USDT = bal
		case "USDC":
			margin.USDC = bal
		case "USDF":
			margin.USDF = bal
		}
	}
	margin.Total = margin.USDT + margin.USDC + margin.USDF

	positions := make([]engine.PerpPosition, 0, len(resp.Positions))
	leverage := make(map[string]int, len(resp.Positions))
	for _, p := range resp.Positions {
		leverage[p.Symbol] = int(parseFloat(p.Leverage))
		qty := parseFloat(p.PositionAmt)
		if math.Abs(qty) < flatEpsilon {
			continue
		}
		positions = append(positions, engine.PerpPosition{
			Symbol:           p.Symbol,
			SignedQty:        qty,
			EntryPrice:       parseFloat(p.EntryPrice),
			MarkPrice:        parseFloat(p.MarkPrice),
			LiquidationPrice: parseFloat(p.LiquidationPrice),
			Leverage:         int(parseFloat(p.Leverage)),
		})
	}
	return PerpSnapshot{Positions: positions, Leverage: leverage, Margin: margin}, nil
}

// SpotFree returns the free quantity of one asset from a holdings list.
func SpotFree(holdings []engine.SpotHolding, asset string) float64 {
	for _, h := range holdings {
		if h.Asset == asset {
			return h.FreeQty
		}
	}
	return 0
}

func IsStablecoin(asset string) bool {
	_, ok := stablecoins[asset]
	return ok
}

package exec

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"aster-dn-bot/internal/aster/rest"
	"aster-dn-bot/internal/aster/sign"

	"go.uber.org/zap"
)

// RestGateway routes spot orders through the HMAC-signed API and perp orders
// through the EVM-signed pro API.
type RestGateway struct {
	spot   *rest.Client
	perp   *rest.Client
	signer *sign.Signer
	log    *zap.Logger

	nowMicros func() int64
}

func NewRestGateway(spot, perp *rest.Client, signer *sign.Signer, log *zap.Logger) *RestGateway {
	return &RestGateway{
		spot:   spot,
		perp:   perp,
		signer: signer,
		log:    log,
		nowMicros: func() int64 {
			return time.Now().UnixMicro()
		},
	}
}

type orderResponse struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Status        string `json:"status"`
}

func (g *RestGateway) PlaceOrder(ctx context.Context, order Order) (string, error) {
	params := url.Values{}
	params.Set("symbol", order.Symbol)
	params.Set("side", string(order.Side))
	params.Set("type", "MARKET")
	params.Set("quantity", strconv.FormatFloat(order.Qty, 'f', -1, 64))
	if order.ClientOrderID != "" {
		params.Set("newClientOrderId", order.ClientOrderID)
	}

	var resp orderResponse
	switch order.Market {
	case MarketSpot:
		if err := g.spot.PostSigned(ctx, "/api/v1/order", params, &resp); err != nil {
			return "", err
		}
	case MarketPerp:
		if order.ReduceOnly {
			params.Set("reduceOnly", "true")
		}
		signed, err := g.signer.SignParams(params, g.nowMicros())
		if err != nil {
			return "", fmt.Errorf("sign perp order %s: %w", order.Symbol, err)
		}
		if err := g.perp.Post(ctx, "/fapi/v3/order", signed, &resp); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("place order %s: unknown market %q", order.Symbol, order.Market)
	}

	g.log.Info("order placed",
		zap.String("market", string(order.Market)),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Float64("qty", order.Qty),
		zap.Int64("order_id", resp.OrderID),
		zap.String("status", resp.Status))
	return strconv.FormatInt(resp.OrderID, 10), nil
}

type transferResponse struct {
	TranID int64  `json:"tranId"`
	Status string `json:"status"`
}

// TransferMargin moves collateral between the spot and perp wallets via
// the HMAC-signed finance endpoint. kindType encodes the direction the
// way the exchange expects it.
func (g *RestGateway) TransferMargin(ctx context.Context, transfer MarginTransfer, clientTranID string) (string, error) {
	kind := "SPOT_FUTURE"
	if transfer.Direction == TransferPerpToSpot {
		kind = "FUTURE_SPOT"
	}
	params := url.Values{}
	params.Set("asset", transfer.Asset)
	params.Set("amount", strconv.FormatFloat(transfer.Amount, 'f', -1, 64))
	params.Set("kindType", kind)
	if clientTranID != "" {
		params.Set("clientTranId", clientTranID)
	}

	var resp transferResponse
	if err := g.spot.PostSigned(ctx, "/api/v1/asset/wallet/transfer", params, &resp); err != nil {
		return "", err
	}
	g.log.Info("margin transferred",
		zap.String("asset", transfer.Asset),
		zap.Float64("amount", transfer.Amount),
		zap.String("direction", string(transfer.Direction)),
		zap.Int64("tran_id", resp.TranID),
		zap.String("status", resp.Status))
	return strconv.FormatInt(resp.TranID, 10), nil
}

func (g *RestGateway) CancelOrder(ctx context.Context, market Market, symbol, orderID string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)

	switch market {
	case MarketSpot:
		return g.spot.DeleteSigned(ctx, "/api/v1/order", params, nil)
	case MarketPerp:
		signed, err := g.signer.SignParams(params, g.nowMicros())
		if err != nil {
			return fmt.Errorf("sign perp cancel %s: %w", symbol, err)
		}
		return g.perp.Delete(ctx, "/fapi/v3/order", signed, nil)
	default:
		return fmt.Errorf("cancel order %s: unknown market %q", symbol, market)
	}
}

package exec

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aster-dn-bot/internal/aster/rest"
	"aster-dn-bot/internal/aster/sign"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

func testSigner(t *testing.T) *sign.Signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()
	signer, err := sign.New(addr, addr, hex.EncodeToString(crypto.FromECDSA(key)))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return signer
}

func TestRestGatewaySpotOrder(t *testing.T) {
	var gotPath string
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = map[string]string{}
		for key := range r.Form {
			gotForm[key] = r.Form.Get(key)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"orderId":42,"status":"FILLED"}`))
	}))
	defer server.Close()

	spot := rest.New(server.URL, time.Second, zap.NewNop())
	spot.SetHMACCredentials("key", "secret")
	gateway := NewRestGateway(spot, nil, nil, zap.NewNop())

	order := Order{Market: MarketSpot, Symbol: "ETHUSDT", Side: SideBuy, Qty: 0.5, ClientOrderID: "abc"}
	orderID, err := gateway.PlaceOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if orderID != "42" {
		t.Fatalf("expected order id 42, got %s", orderID)
	}
	if gotPath != "/api/v1/order" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotForm["symbol"] != "ETHUSDT" || gotForm["side"] != "BUY" || gotForm["type"] != "MARKET" {
		t.Fatalf("unexpected form %v", gotForm)
	}
	if gotForm["quantity"] != "0.5" {
		t.Fatalf("unexpected quantity %q", gotForm["quantity"])
	}
	if gotForm["signature"] == "" || gotForm["timestamp"] == "" {
		t.Fatalf("expected hmac-signed params, got %v", gotForm)
	}
}

func TestRestGatewayMarginTransfer(t *testing.T) {
	var gotPath string
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = map[string]string{}
		for key := range r.Form {
			gotForm[key] = r.Form.Get(key)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"tranId":12345,"status":"SUCCESS"}`))
	}))
	defer server.Close()

	spot := rest.New(server.URL, time.Second, zap.NewNop())
	spot.SetHMACCredentials("key", "secret")
	gateway := NewRestGateway(spot, nil, nil, zap.NewNop())

	transfer := MarginTransfer{Asset: "USDT", Amount: 50, Direction: TransferPerpToSpot}
	tranID, err := gateway.TransferMargin(context.Background(), transfer, "rebalance-1")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if tranID != "12345" {
		t.Fatalf("expected tran id 12345, got %s", tranID)
	}
	if gotPath != "/api/v1/asset/wallet/transfer" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotForm["asset"] != "USDT" || gotForm["amount"] != "50" {
		t.Fatalf("unexpected form %v", gotForm)
	}
	if gotForm["kindType"] != "FUTURE_SPOT" {
		t.Fatalf("expected perp-to-spot kind, got %q", gotForm["kindType"])
	}
	if gotForm["clientTranId"] != "rebalance-1" {
		t.Fatalf("expected client tran id, got %v", gotForm)
	}
	if gotForm["signature"] == "" || gotForm["timestamp"] == "" {
		t.Fatalf("expected hmac-signed params, got %v", gotForm)
	}
}

func TestRestGatewayPerpOrder(t *testing.T) {
	var gotPath string
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = map[string]string{}
		for key := range r.Form {
			gotForm[key] = r.Form.Get(key)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"orderId":7,"status":"NEW"}`))
	}))
	defer server.Close()

	perp := rest.New(server.URL, time.Second, zap.NewNop())
	gateway := NewRestGateway(nil, perp, testSigner(t), zap.NewNop())

	order := Order{Market: MarketPerp, Symbol: "ETHUSDT", Side: SideSell, Qty: 1.5, ReduceOnly: true}
	orderID, err := gateway.PlaceOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if orderID != "7" {
		t.Fatalf("expected order id 7, got %s", orderID)
	}
	if gotPath != "/fapi/v3/order" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotForm["reduceOnly"] != "true" {
		t.Fatalf("expected reduceOnly, got %v", gotForm)
	}
	for _, key := range []string{"user", "signer", "nonce", "signature"} {
		if gotForm[key] == "" {
			t.Fatalf("expected signed param %s, got %v", key, gotForm)
		}
	}
}

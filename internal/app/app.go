package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"aster-dn-bot/internal/account"
	"aster-dn-bot/internal/alerts"
	"aster-dn-bot/internal/aster/rest"
	"aster-dn-bot/internal/aster/sign"
	"aster-dn-bot/internal/aster/ws"
	"aster-dn-bot/internal/config"
	"aster-dn-bot/internal/engine"
	"aster-dn-bot/internal/exec"
	"aster-dn-bot/internal/market"
	"aster-dn-bot/internal/metrics"
	"aster-dn-bot/internal/state"
	"aster-dn-bot/internal/state/sqlite"
	"aster-dn-bot/internal/timescale"

	"go.uber.org/zap"
)

// quoteMaxAge bounds how stale a websocket quote may be before the
// REST book ticker is consulted instead.
const quoteMaxAge = 5 * time.Second

type App struct {
	cfg      *config.Config
	log      *zap.Logger
	store    state.Store
	market   *market.Service
	account  *account.Service
	executor *exec.Executor
	metrics  *metrics.Metrics
	promHTTP http.Handler
	alerts   *alerts.Telegram
	recorder *timescale.Writer
	ws       *ws.Client
	tickers  *market.TickerCache
	params   engine.Params

	mu            sync.RWMutex
	opportunities []engine.FundingOpportunity
	pairs         []account.PositionPair
	reports       map[string]engine.HealthReport
	margin        account.MarginBalances
	subscribed    map[string]bool
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}

	spotClient := rest.New(cfg.SpotAPI.BaseURL, cfg.SpotAPI.Timeout, log)
	perpClient := rest.New(cfg.PerpAPI.BaseURL, cfg.PerpAPI.Timeout, log)

	apiKey := strings.TrimSpace(os.Getenv("ASTER_SPOT_API_KEY"))
	apiSecret := strings.TrimSpace(os.Getenv("ASTER_SPOT_API_SECRET"))
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New("ASTER_SPOT_API_KEY and ASTER_SPOT_API_SECRET are required")
	}
	spotClient.SetHMACCredentials(apiKey, apiSecret)

	user := strings.TrimSpace(os.Getenv("ASTER_API_USER"))
	signerAddr := strings.TrimSpace(os.Getenv("ASTER_API_SIGNER"))
	privKey := strings.TrimSpace(os.Getenv("ASTER_API_PRIVATE_KEY"))
	if user == "" || signerAddr == "" || privKey == "" {
		return nil, errors.New("ASTER_API_USER, ASTER_API_SIGNER and ASTER_API_PRIVATE_KEY are required")
	}
	signer, err := sign.New(user, signerAddr, privKey)
	if err != nil {
		return nil, err
	}

	marketSvc := market.New(spotClient, perpClient, log)
	accountSvc := account.New(spotClient, perpClient, signer, log)
	gateway := exec.NewRestGateway(spotClient, perpClient, signer, log)
	executor := exec.New(gateway, store, log)
	wsClient := ws.New(cfg.WS.URL, cfg.WS.ReconnectDelay, cfg.WS.PingInterval, log)

	m := metrics.NewNoop()
	var promHTTP http.Handler
	if cfg.Metrics.Enabled {
		prom := metrics.NewPrometheus()
		m = prom.Metrics
		promHTTP = prom.Handler()
	}

	recorder, err := timescale.New(cfg.Timescale, log)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:        cfg,
		log:        log,
		store:      store,
		market:     marketSvc,
		account:    accountSvc,
		executor:   executor,
		metrics:    m,
		promHTTP:   promHTTP,
		alerts:     alerts.NewTelegram(cfg.Telegram, log),
		recorder:   recorder,
		ws:         wsClient,
		tickers:    market.NewTickerCache(),
		params:     cfg.Engine.EngineParams().WithDefaults(),
		reports:    make(map[string]engine.HealthReport),
		subscribed: make(map[string]bool),
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()
	defer a.recorder.Close()
	a.recorder.Start(ctx)
	a.startMetricsServer(ctx)
	go a.runTickerStream(ctx)

	if err := a.tick(ctx); err != nil {
		a.log.Warn("initial tick failed", zap.Error(err))
	}

	ticker := time.NewTicker(a.cfg.Scan.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.tick(ctx); err != nil {
				a.log.Warn("tick failed", zap.Error(err))
			}
		}
	}
}

func (a *App) tick(ctx context.Context) error {
	var errs []error
	if err := a.scan(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scan: %w", err))
	}
	if err := a.monitor(ctx); err != nil {
		errs = append(errs, fmt.Errorf("monitor: %w", err))
	}
	if a.cfg.Scan.AutoOpen {
		if err := a.maybeOpenBest(ctx); err != nil {
			errs = append(errs, fmt.Errorf("open: %w", err))
		}
	}
	fmt.Print(a.renderDashboard(time.Now().UTC()))
	return errors.Join(errs...)
}

func (a *App) startMetricsServer(ctx context.Context) {
	if a.promHTTP == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.promHTTP)
	server := &http.Server{Addr: a.cfg.Metrics.Listen, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server failed", zap.Error(err))
		}
	}()
}

func (a *App) runTickerStream(ctx context.Context) {
	if err := a.ws.Run(ctx, a.tickers.HandleMessage); err != nil && ctx.Err() == nil {
		a.log.Warn("ticker stream stopped", zap.Error(err))
	}
}

// subscribeQuotes registers book ticker streams for symbols the monitor
// now cares about. Already-subscribed symbols are skipped.
func (a *App) subscribeQuotes(ctx context.Context, symbols []string) {
	var streams []string
	a.mu.Lock()
	for _, symbol := range symbols {
		if a.subscribed[symbol] {
			continue
		}
		a.subscribed[symbol] = true
		streams = append(streams, strings.ToLower(symbol)+"@bookTicker")
	}
	a.mu.Unlock()
	if len(streams) == 0 {
		return
	}
	if err := a.ws.Subscribe(ctx, streams...); err != nil {
		a.log.Warn("book ticker subscribe failed", zap.Error(err))
	}
}

// perpQuote prefers the websocket cache and falls back to REST when the
// cached quote is stale or absent.
func (a *App) perpQuote(ctx context.Context, symbol string) (engine.MarketQuote, error) {
	if quote, age, ok := a.tickers.Quote(symbol); ok && age <= quoteMaxAge {
		return quote, nil
	}
	return a.market.PerpBookTicker(ctx, symbol)
}

// rulesFor serves trading rules from the local cache, hitting exchangeInfo
// only on a miss.
func (a *App) rulesFor(ctx context.Context, marketName, symbol string) (market.SymbolRules, error) {
	if rules, ok, err := state.LoadSymbolRules(ctx, a.store, marketName, symbol); err == nil && ok {
		return rules, nil
	}
	var (
		rules market.SymbolRules
		err   error
	)
	switch marketName {
	case "spot":
		rules, err = a.market.SpotRules(ctx, symbol)
	case "perp":
		rules, err = a.market.PerpRules(ctx, symbol)
	default:
		return market.SymbolRules{}, fmt.Errorf("unknown market %q", marketName)
	}
	if err != nil {
		return market.SymbolRules{}, err
	}
	if err := state.SaveSymbolRules(ctx, a.store, marketName, rules); err != nil {
		a.log.Warn("rules cache save failed", zap.String("symbol", symbol), zap.Error(err))
	}
	return rules, nil
}

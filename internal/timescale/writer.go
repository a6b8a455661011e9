package timescale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"aster-dn-bot/internal/config"
	"aster-dn-bot/internal/engine"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// FundingSnapshot is one scanner observation of a symbol's funding stats.
type FundingSnapshot struct {
	Time        time.Time
	Symbol      string
	MeanRate    float64
	APRPercent  float64
	Volatility  float64
	SampleCount int
	Viable      bool
}

// HealthSnapshot is one monitor observation of a live pair.
type HealthSnapshot struct {
	Time               time.Time
	Symbol             string
	Action             string
	SpotQty            float64
	PerpQty            float64
	NetDelta           float64
	ImbalancePct       float64
	LiquidationRiskPct float64
	RiskLevel          string
	MarkPrice          float64
	UnrealizedPnlUSD   float64
}

// Writer persists scanner and monitor observations to TimescaleDB without
// blocking the loops that produce them.
type Writer struct {
	db          *sql.DB
	log         *zap.Logger
	schema      string
	funding     chan FundingSnapshot
	health      chan HealthSnapshot
	started     atomic.Bool
	dropFunding atomic.Uint64
	dropHealth  atomic.Uint64
}

func New(cfg config.TimescaleConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("timescale dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	writer := &Writer{
		db:      db,
		log:     log,
		schema:  schema,
		funding: make(chan FundingSnapshot, queueSize),
		health:  make(chan HealthSnapshot, queueSize),
	}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Writer) EnqueueFunding(snapshot FundingSnapshot) {
	if w == nil {
		return
	}
	select {
	case w.funding <- snapshot:
		return
	default:
		if w.dropFunding.Add(1) == 1 && w.log != nil {
			w.log.Warn("timescale funding queue full")
		}
	}
}

func (w *Writer) EnqueueHealth(snapshot HealthSnapshot) {
	if w == nil {
		return
	}
	select {
	case w.health <- snapshot:
		return
	default:
		if w.dropHealth.Add(1) == 1 && w.log != nil {
			w.log.Warn("timescale health queue full")
		}
	}
}

// EnqueueOpportunity is a convenience wrapper over EnqueueFunding for
// opportunities that passed every scanner filter.
func (w *Writer) EnqueueOpportunity(at time.Time, opp engine.FundingOpportunity) {
	w.EnqueueFunding(FundingSnapshot{
		Time:        at,
		Symbol:      opp.Symbol,
		MeanRate:    opp.MeanRate,
		APRPercent:  opp.AnnualizedAPR,
		Volatility:  opp.CoefficientOfVariation,
		SampleCount: opp.SampleCount,
		Viable:      true,
	})
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-w.funding:
			w.writeFunding(ctx, snap)
		case snap := <-w.health:
			w.writeHealth(ctx, snap)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("timescale db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		mean_rate DOUBLE PRECISION NOT NULL,
		apr_percent DOUBLE PRECISION NOT NULL,
		volatility DOUBLE PRECISION NOT NULL,
		sample_count INTEGER NOT NULL,
		viable BOOLEAN NOT NULL,
		PRIMARY KEY (ts, symbol)
	)`, w.table("funding_snapshots"))); err != nil {
		return err
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		action TEXT NOT NULL,
		spot_qty DOUBLE PRECISION NOT NULL,
		perp_qty DOUBLE PRECISION NOT NULL,
		net_delta DOUBLE PRECISION NOT NULL,
		imbalance_pct DOUBLE PRECISION NOT NULL,
		liquidation_risk_pct DOUBLE PRECISION NOT NULL,
		risk_level TEXT NOT NULL,
		mark_price DOUBLE PRECISION NOT NULL,
		unrealized_pnl_usd DOUBLE PRECISION NOT NULL
	)`, w.table("health_snapshots"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		if w.log != nil {
			w.log.Warn("timescale extension ensure failed", zap.Error(err))
		}
		return nil
	}
	if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table("funding_snapshots"))); err != nil && w.log != nil {
		w.log.Warn("timescale funding_snapshots hypertable create failed", zap.Error(err))
	}
	if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table("health_snapshots"))); err != nil && w.log != nil {
		w.log.Warn("timescale health_snapshots hypertable create failed", zap.Error(err))
	}
	return nil
}

func (w *Writer) writeFunding(ctx context.Context, snap FundingSnapshot) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, mean_rate, apr_percent, volatility, sample_count, viable
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7
	)
	ON CONFLICT (ts, symbol) DO UPDATE SET
		mean_rate = EXCLUDED.mean_rate,
		apr_percent = EXCLUDED.apr_percent,
		volatility = EXCLUDED.volatility,
		sample_count = EXCLUDED.sample_count,
		viable = EXCLUDED.viable`, w.table("funding_snapshots"))
	if _, err := w.db.ExecContext(ctx, query,
		snap.Time,
		snap.Symbol,
		snap.MeanRate,
		snap.APRPercent,
		snap.Volatility,
		snap.SampleCount,
		snap.Viable,
	); err != nil && w.log != nil {
		w.log.Warn("timescale funding upsert failed", zap.Error(err))
	}
}

func (w *Writer) writeHealth(ctx context.Context, snap HealthSnapshot) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, action, spot_qty, perp_qty, net_delta, imbalance_pct,
		liquidation_risk_pct, risk_level, mark_price, unrealized_pnl_usd
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
	)`, w.table("health_snapshots"))
	if _, err := w.db.ExecContext(ctx, query,
		snap.Time,
		snap.Symbol,
		snap.Action,
		snap.SpotQty,
		snap.PerpQty,
		snap.NetDelta,
		snap.ImbalancePct,
		snap.LiquidationRiskPct,
		snap.RiskLevel,
		snap.MarkPrice,
		snap.UnrealizedPnlUSD,
	); err != nil && w.log != nil {
		w.log.Warn("timescale health insert failed", zap.Error(err))
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}

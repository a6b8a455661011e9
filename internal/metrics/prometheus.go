package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "aster_dn_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry           *prometheus.Registry
	scansRun           prometheus.Counter
	opportunitiesFound prometheus.Counter
	pairsRejected      prometheus.Counter
	ordersPlaced       prometheus.Counter
	ordersFailed       prometheus.Counter
	rebalancesDecided  prometheus.Counter
	positionsClosed    prometheus.Counter
	preconditionFailed prometheus.Counter
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	scansRun := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "funding_scans_total",
		Help:      "Total number of funding rate scans completed.",
	})
	opportunitiesFound := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "opportunities_found_total",
		Help:      "Total number of funding opportunities that passed the filters.",
	})
	pairsRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "pairs_rejected_total",
		Help:      "Total number of pairs rejected by liquidity filters.",
	})
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_placed_total",
		Help:      "Total number of orders placed.",
	})
	ordersFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_failed_total",
		Help:      "Total number of order placement failures.",
	})
	rebalancesDecided := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "rebalances_decided_total",
		Help:      "Total number of monitor cycles that decided to rebalance.",
	})
	positionsClosed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "positions_closed_total",
		Help:      "Total number of pairs closed on liquidation risk.",
	})
	preconditionFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "precondition_failed_total",
		Help:      "Total number of entry attempts rejected by preconditions.",
	})

	registry.MustRegister(scansRun, opportunitiesFound, pairsRejected, ordersPlaced, ordersFailed, rebalancesDecided, positionsClosed, preconditionFailed)

	m := &Metrics{
		ScansRun:           promCounter{scansRun},
		OpportunitiesFound: promCounter{opportunitiesFound},
		PairsRejected:      promCounter{pairsRejected},
		OrdersPlaced:       promCounter{ordersPlaced},
		OrdersFailed:       promCounter{ordersFailed},
		RebalancesDecided:  promCounter{rebalancesDecided},
		PositionsClosed:    promCounter{positionsClosed},
		PreconditionFailed: promCounter{preconditionFailed},
	}

	return &Prometheus{
		Metrics:            m,
		registry:           registry,
		scansRun:           scansRun,
		opportunitiesFound: opportunitiesFound,
		pairsRejected:      pairsRejected,
		ordersPlaced:       ordersPlaced,
		ordersFailed:       ordersFailed,
		rebalancesDecided:  rebalancesDecided,
		positionsClosed:    positionsClosed,
		preconditionFailed: preconditionFailed,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

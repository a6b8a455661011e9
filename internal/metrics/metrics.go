package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	ScansRun           Counter
	OpportunitiesFound Counter
	PairsRejected      Counter
	OrdersPlaced       Counter
	OrdersFailed       Counter
	RebalancesDecided  Counter
	PositionsClosed    Counter
	PreconditionFailed Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		ScansRun:           n,
		OpportunitiesFound: n,
		PairsRejected:      n,
		OrdersPlaced:       n,
		OrdersFailed:       n,
		RebalancesDecided:  n,
		PositionsClosed:    n,
		PreconditionFailed: n,
	}
}

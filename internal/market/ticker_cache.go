package market

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"aster-dn-bot/internal/engine"
)

// bookTickerEvent is the stream shape of a bookTicker update.
type bookTickerEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	BidPrice  string `json:"b"`
	AskPrice  string `json:"a"`
}

// TickerCache holds the latest best bid/ask per symbol from the perp
// stream. HandleMessage is the ws.Client handler; readers get the quote
// plus its age so stale data can be discarded.
type TickerCache struct {
	mu     sync.RWMutex
	quotes map[string]engine.MarketQuote
	seen   map[string]time.Time
}

func NewTickerCache() *TickerCache {
	return &TickerCache{
		quotes: make(map[string]engine.MarketQuote),
		seen:   make(map[string]time.Time),
	}
}

func (t *TickerCache) HandleMessage(msg json.RawMessage) {
	var event bookTickerEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return
	}
	if event.Symbol == "" || (event.EventType != "" && event.EventType != "bookTicker") {
		return
	}
	bid := parseFloat(event.BidPrice)
	ask := parseFloat(event.AskPrice)
	if bid <= 0 || ask <= 0 {
		return
	}
	symbol := strings.ToUpper(event.Symbol)
	t.mu.Lock()
	t.quotes[symbol] = engine.MarketQuote{Symbol: symbol, Market: engine.MarketPerp, Bid: bid, Ask: ask}
	t.seen[symbol] = time.Now()
	t.mu.Unlock()
}

func (t *TickerCache) Quote(symbol string) (engine.MarketQuote, time.Duration, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	quote, ok := t.quotes[symbol]
	if !ok {
		return engine.MarketQuote{}, 0, false
	}
	return quote, time.Since(t.seen[symbol]), true
}

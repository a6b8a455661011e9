package market

// SymbolRules carries the exchange trading constraints for one symbol in
// one market, parsed from exchangeInfo filters.
type SymbolRules struct {
	Symbol         string
	BaseAsset      string
	QuoteAsset     string
	StepSize       float64
	TickSize       float64
	MinQty         float64
	MinNotionalUSD float64
	QuotePrecision int
}

// fundingRateEntry mirrors one element of the /fapi/v1/fundingRate
// response; numeric fields arrive as strings.
type fundingRateEntry struct {
	Symbol      string `json:"symbol"`
	FundingRate string `json:"fundingRate"`
	FundingTime int64  `json:"fundingTime"`
}

type bookTickerResponse struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	AskPrice string `json:"askPrice"`
}

type ticker24hEntry struct {
	Symbol      string `json:"symbol"`
	QuoteVolume string `json:"quoteVolume"`
}

type exchangeInfoResponse struct {
	Symbols []exchangeInfoSymbol `json:"symbols"`
}

type exchangeInfoSymbol struct {
	Symbol         string               `json:"symbol"`
	Status         string               `json:"status"`
	BaseAsset      string               `json:"baseAsset"`
	QuoteAsset     string               `json:"quoteAsset"`
	QuotePrecision int                  `json:"quotePrecision"`
	Filters        []exchangeInfoFilter `json:"filters"`
}

type exchangeInfoFilter struct {
	FilterType  string `json:"filterType"`
	StepSize    string `json:"stepSize"`
	TickSize    string `json:"tickSize"`
	MinQty      string `json:"minQty"`
	Notional    string `json:"notional"`
	MinNotional string `json:"minNotional"`
}

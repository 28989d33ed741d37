package mocks

// ChatReply is one scripted assistant turn. A reply with ToolCalls asks the
// agent to run tools; a reply with only Content ends the episode.
type ChatReply struct {
	Content   string
	ToolCalls []ToolCall
}

// ToolCall is a function call requested by the mock model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// APIError is an injected upstream failure.
type APIError struct {
	Status  int
	Message string
}

// AlpacaBar represents OHLCV bar data from Alpaca.
type AlpacaBar struct {
	Timestamp  string  `json:"t"`
	Open       float64 `json:"o"`
	High       float64 `json:"h"`
	Low        float64 `json:"l"`
	Close      float64 `json:"c"`
	Volume     uint64  `json:"v"`
	TradeCount uint64  `json:"n"`
	VWAP       float64 `json:"vw"`
}

// AlphaVantageOverview is the OVERVIEW payload.
type AlphaVantageOverview struct {
	Symbol        string `json:"Symbol"`
	Name          string `json:"Name"`
	Currency      string `json:"Currency"`
	MarketCap     string `json:"MarketCapitalization"`
	PERatio       string `json:"PERatio"`
	DividendYield string `json:"DividendYield"`
	Week52High    string `json:"52WeekHigh"`
	Week52Low     string `json:"52WeekLow"`
}

// AlphaVantageQuote is the body of the GLOBAL_QUOTE payload.
type AlphaVantageQuote struct {
	Symbol    string `json:"01. symbol"`
	Price     string `json:"05. price"`
	Volume    string `json:"06. volume"`
	PrevClose string `json:"08. previous close"`
}

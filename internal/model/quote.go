package model

// QuoteSnapshot is a point-in-time quote for a single ticker.
// Fetched fresh per request and never cached beyond the reply that uses it.
type QuoteSnapshot struct {
	Symbol           string
	Name             string
	Price            float64
	ChangePercent    float64
	DayHigh          float64
	DayLow           float64
	FiftyTwoWeekHigh float64
	FiftyTwoWeekLow  float64
	Volume           int64
	MarketCap        float64
}

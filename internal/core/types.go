// internal/core/types.go
package core

// TradeRequest is the inbound analysis request. Question is required; Context
// is optional user-supplied background; Symbol overrides ticker extraction.
type TradeRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
	Symbol   string `json:"symbol,omitempty"`
}

// Quote is a snapshot of a stock quote. On lookup failure Error is set and
// the price fields are zero; callers always receive the same shape.
type Quote struct {
	Symbol        string  `json:"symbol"`
	CurrentPrice  float64 `json:"current_price"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	PreviousClose float64 `json:"previous_close"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Error         string  `json:"error,omitempty"`
}

// Failed reports whether the quote lookup failed.
func (q Quote) Failed() bool { return q.Error != "" }

// NewsItem is a single company news article.
type NewsItem struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Datetime int64  `json:"datetime"`
	Error    string `json:"error,omitempty"`
}

// Failed reports whether the news lookup failed.
func (n NewsItem) Failed() bool { return n.Error != "" }

// Market is one prediction market matched against a question. Outcome prices
// are nullable strings as returned by the provider.
type Market struct {
	Question    string  `json:"question"`
	Description string  `json:"description"`
	OutcomeYes  *string `json:"outcome_yes"`
	OutcomeNo   *string `json:"outcome_no"`
	Volume      string  `json:"volume"`
	Liquidity   string  `json:"liquidity"`
	EndDate     string  `json:"end_date"`
	Slug        string  `json:"slug"`
	Error       string  `json:"error,omitempty"`
}

// Failed reports whether the market lookup failed.
func (m Market) Failed() bool { return m.Error != "" }

// InferenceResult is the model's structured answer. Exactly one of the two
// shapes is populated: the three score fields, or Error.
type InferenceResult struct {
	ConfidenceScore *int   `json:"confidence_score,omitempty"`
	Sentiment       string `json:"sentiment,omitempty"`
	Reasoning       string `json:"reasoning,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Failed reports whether inference produced an error instead of a score.
func (r InferenceResult) Failed() bool { return r.Error != "" }

// Sources carries a short preview of each raw context block, or null when
// that source was not queried or did not complete in time.
type Sources struct {
	Wikipedia  *string `json:"wikipedia"`
	Polymarket *string `json:"polymarket"`
	Finnhub    *string `json:"finnhub"`
}

// AnalyzeResponse is the full analysis answer: the inference result merged
// with source previews, the original question and the resolved symbol.
type AnalyzeResponse struct {
	InferenceResult
	Sources  Sources `json:"sources"`
	Question string  `json:"question"`
	Symbol   *string `json:"symbol"`
}

// FinnhubScrape groups the raw financial results for the scrape endpoint.
type FinnhubScrape struct {
	Quote Quote      `json:"quote"`
	News  []NewsItem `json:"news"`
}

// ScrapeResponse holds raw per-source results without inference. Finnhub is
// null when no symbol was resolved; Symbol is omitted entirely in that case.
type ScrapeResponse struct {
	Wikipedia  string         `json:"wikipedia"`
	Polymarket []Market       `json:"polymarket"`
	Finnhub    *FinnhubScrape `json:"finnhub"`
	Symbol     string         `json:"symbol,omitempty"`
}

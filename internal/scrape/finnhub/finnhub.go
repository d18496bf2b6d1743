// internal/scrape/finnhub/finnhub.go
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/planetquant/quant-engine/internal/core"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://finnhub.io/api/v1"

	// newsLimit caps articles per lookup; provider order is trusted.
	newsLimit = 5

	// summaryLimit bounds each article summary after mapping.
	summaryLimit = 300
)

// Client fetches quotes and company news from Finnhub. Every operation
// returns an error-shaped value of its normal container type instead of a Go
// error; transport failures never escape this boundary.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
	logger  *zap.Logger
}

// New creates a Finnhub client. An empty baseURL selects the public API. A
// missing API key is not an error here; lookups will fail recoverably.
func New(baseURL, apiKey string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  logger,
	}
}

type quoteResponse struct {
	Current       float64 `json:"c"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
}

type newsArticle struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Datetime int64  `json:"datetime"`
}

// Quote returns the real-time quote for a symbol.
func (c *Client) Quote(ctx context.Context, symbol string) core.Quote {
	symbol = strings.ToUpper(symbol)

	params := url.Values{"symbol": {symbol}, "token": {c.apiKey}}
	var data quoteResponse
	if err := c.get(ctx, "/quote", params, &data); err != nil {
		c.logger.Debug("finnhub quote failed", zap.String("symbol", symbol), zap.Error(err))
		return core.Quote{Error: fmt.Sprintf("Finnhub quote failed: %v", err)}
	}

	return core.Quote{
		Symbol:        symbol,
		CurrentPrice:  data.Current,
		High:          data.High,
		Low:           data.Low,
		Open:          data.Open,
		PreviousClose: data.PreviousClose,
		Change:        data.Change,
		ChangePercent: data.ChangePercent,
	}
}

// News returns recent company news inside a [now-daysBack, now] window,
// capped to the first five articles in provider order.
func (c *Client) News(ctx context.Context, symbol string, daysBack int) []core.NewsItem {
	if daysBack <= 0 {
		daysBack = 7
	}
	symbol = strings.ToUpper(symbol)

	now := time.Now()
	params := url.Values{
		"symbol": {symbol},
		"from":   {now.AddDate(0, 0, -daysBack).Format("2006-01-02")},
		"to":     {now.Format("2006-01-02")},
		"token":  {c.apiKey},
	}

	var articles []newsArticle
	if err := c.get(ctx, "/company-news", params, &articles); err != nil {
		c.logger.Debug("finnhub news failed", zap.String("symbol", symbol), zap.Error(err))
		return []core.NewsItem{{Error: fmt.Sprintf("Finnhub news failed: %v", err)}}
	}

	if len(articles) > newsLimit {
		articles = articles[:newsLimit]
	}

	items := make([]core.NewsItem, 0, len(articles))
	for _, a := range articles {
		summary := a.Summary
		if len(summary) > summaryLimit {
			summary = summary[:summaryLimit]
		}
		items = append(items, core.NewsItem{
			Headline: a.Headline,
			Summary:  summary,
			Source:   a.Source,
			URL:      a.URL,
			Datetime: a.Datetime,
		})
	}
	return items
}

// SentimentText composes quote and news into a deterministic text report.
// The two lookups run sequentially; both complete quickly.
func (c *Client) SentimentText(ctx context.Context, symbol string) string {
	symbol = strings.ToUpper(symbol)
	quote := c.Quote(ctx, symbol)
	news := c.News(ctx, symbol, 7)

	parts := []string{fmt.Sprintf("Stock Quote for %s:", symbol)}
	if quote.Failed() {
		parts = append(parts, "  "+quote.Error)
	} else {
		parts = append(parts, fmt.Sprintf("  Price: $%v, Change: %v%%", quote.CurrentPrice, quote.ChangePercent))
	}

	parts = append(parts, fmt.Sprintf("\nRecent News for %s:", symbol))
	for _, n := range news {
		if n.Failed() {
			parts = append(parts, "  "+n.Error)
			continue
		}
		parts = append(parts, "  - "+n.Headline)
		if n.Summary != "" {
			summary := n.Summary
			if len(summary) > 200 {
				summary = summary[:200]
			}
			parts = append(parts, "    "+summary)
		}
	}

	return strings.Join(parts, "\n")
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

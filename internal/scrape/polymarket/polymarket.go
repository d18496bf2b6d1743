// internal/scrape/polymarket/polymarket.go
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/planetquant/quant-engine/internal/core"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://gamma-api.polymarket.com"

	// resultLimit caps the markets returned after re-scoring.
	resultLimit = 5

	// descriptionLimit bounds the mapped market description.
	descriptionLimit = 200

	// maxSearchKeywords bounds the server-side search string.
	maxSearchKeywords = 5
)

var stopWords = map[string]struct{}{
	"will": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"would": {}, "could": {}, "should": {}, "does": {}, "have": {},
	"been": {}, "that": {}, "this": {}, "with": {}, "from": {},
	"about": {}, "the": {}, "and": {}, "for": {}, "not": {},
	"but": {}, "are": {}, "was": {}, "were": {},
}

// Client searches the Gamma markets API. Failures are absorbed into
// error-shaped entries; neither operation returns a Go error.
type Client struct {
	client       *http.Client
	baseURL      string
	defaultLimit int
	logger       *zap.Logger
}

// New creates a Polymarket client. An empty baseURL selects the public Gamma
// API; defaultLimit <= 0 selects a 20-candidate pool.
func New(baseURL string, defaultLimit int, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		client:       &http.Client{Timeout: 10 * time.Second},
		baseURL:      baseURL,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// gammaMarket mirrors the subset of the Gamma payload we consume.
// outcomePrices is kept raw: the API serves it both as a JSON array and as a
// JSON-encoded string depending on the endpoint version.
type gammaMarket struct {
	Question      string          `json:"question"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	OutcomePrices json.RawMessage `json:"outcomePrices"`
	BestBid       *string         `json:"bestBid"`
	BestAsk       *string         `json:"bestAsk"`
	Volume        string          `json:"volume"`
	Liquidity     string          `json:"liquidity"`
	EndDate       string          `json:"endDate"`
	Slug          string          `json:"slug"`
}

func (g gammaMarket) prices() []string {
	if len(g.OutcomePrices) == 0 {
		return nil
	}
	var prices []string
	if err := json.Unmarshal(g.OutcomePrices, &prices); err == nil {
		return prices
	}
	var encoded string
	if err := json.Unmarshal(g.OutcomePrices, &encoded); err == nil {
		if json.Unmarshal([]byte(encoded), &prices) == nil {
			return prices
		}
	}
	return nil
}

func (g gammaMarket) title() string {
	if g.Question != "" {
		return g.Question
	}
	if g.Title != "" {
		return g.Title
	}
	return "Unknown"
}

// keywords filters stop words and short tokens out of a query.
func keywords(query string) []string {
	var out []string
	for _, field := range strings.Fields(query) {
		word := strings.ToLower(strings.Trim(field, ".,!?"))
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		out = append(out, word)
	}
	return out
}

// Search queries the market listing with a keyword-derived search string,
// re-scores candidates by keyword overlap and returns the top matches.
func (c *Client) Search(ctx context.Context, query string, limit int) []core.Market {
	if limit <= 0 {
		limit = c.defaultLimit
	}

	kws := keywords(query)
	searchKws := kws
	if len(searchKws) > maxSearchKeywords {
		searchKws = searchKws[:maxSearchKeywords]
	}

	params := url.Values{
		"closed": {"false"},
		"limit":  {strconv.Itoa(limit)},
		"query":  {strings.Join(searchKws, " ")},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/markets?"+params.Encode(), nil)
	if err != nil {
		return errorList(err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("polymarket search failed", zap.String("query", query), zap.Error(err))
		return errorList(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorList(fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var candidates []gammaMarket
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return errorList(err)
	}

	// Re-score by keyword overlap; a stable sort preserves provider order
	// among equal counts.
	type scored struct {
		count  int
		market gammaMarket
	}
	var relevant []scored
	for _, m := range candidates {
		text := strings.ToLower(m.title() + " " + m.Description)
		count := 0
		for _, kw := range kws {
			if strings.Contains(text, kw) {
				count++
			}
		}
		if count >= 1 {
			relevant = append(relevant, scored{count: count, market: m})
		}
	}
	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].count > relevant[j].count
	})
	if len(relevant) > resultLimit {
		relevant = relevant[:resultLimit]
	}

	markets := make([]core.Market, 0, len(relevant))
	for _, s := range relevant {
		markets = append(markets, mapMarket(s.market))
	}
	return markets
}

func mapMarket(g gammaMarket) core.Market {
	description := g.Description
	if len(description) > descriptionLimit {
		description = description[:descriptionLimit]
	}

	outcomeYes, outcomeNo := g.BestBid, g.BestAsk
	if prices := g.prices(); len(prices) > 0 {
		outcomeYes = &prices[0]
		if len(prices) > 1 {
			outcomeNo = &prices[1]
		}
	}

	return core.Market{
		Question:    g.title(),
		Description: description,
		OutcomeYes:  outcomeYes,
		OutcomeNo:   outcomeNo,
		Volume:      g.Volume,
		Liquidity:   g.Liquidity,
		EndDate:     g.EndDate,
		Slug:        g.Slug,
	}
}

func errorList(err error) []core.Market {
	return []core.Market{{Error: fmt.Sprintf("Polymarket search failed: %v", err)}}
}

// ContextText composes the search results into a text block for the prompt.
func (c *Client) ContextText(ctx context.Context, query string) string {
	markets := c.Search(ctx, query, 0)
	if len(markets) == 0 {
		return "No relevant Polymarket data found."
	}

	parts := []string{"Polymarket Prediction Markets:"}
	for _, m := range markets {
		if m.Failed() {
			parts = append(parts, "  Error: "+m.Error)
			continue
		}
		parts = append(parts, "  Market: "+m.Question)
		if m.OutcomeYes != nil && *m.OutcomeYes != "" {
			parts = append(parts, "    YES price: "+*m.OutcomeYes)
		}
		if m.OutcomeNo != nil && *m.OutcomeNo != "" {
			parts = append(parts, "    NO price: "+*m.OutcomeNo)
		}
		if m.Volume != "" {
			parts = append(parts, "    Volume: $"+m.Volume)
		}
	}

	return strings.Join(parts, "\n")
}

// internal/scrape/wikipedia/wikipedia.go
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/planetquant/quant-engine/internal/extract"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://en.wikipedia.org/w/api.php"

	// extractLimit bounds a single page summary in the composed block.
	extractLimit = 1500
)

// Client queries the MediaWiki search and extract APIs. Lookup failures are
// absorbed into the returned text block; Search never fails.
type Client struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
}

// New creates a Wikipedia client. An empty baseURL selects the public API.
func New(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		logger:  logger,
	}
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type extractResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

// Search derives an entity query from the question, runs a full-text search
// and composes the top page summaries into one bounded text block.
func (c *Client) Search(ctx context.Context, question string, maxResults int) string {
	if maxResults <= 0 {
		maxResults = 3
	}
	query := extract.WikiQuery(question)

	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {strconv.Itoa(maxResults)},
		"format":   {"json"},
	}

	var result searchResponse
	if err := c.get(ctx, params, &result); err != nil {
		c.logger.Debug("wikipedia search failed", zap.String("query", query), zap.Error(err))
		return fmt.Sprintf("Wikipedia scrape failed: %v", err)
	}

	if len(result.Query.Search) == 0 {
		return "No Wikipedia results found for: " + query
	}

	var blocks []string
	for _, hit := range result.Query.Search {
		summary := c.pageSummary(ctx, hit.Title)
		if summary == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("## %s\n%s", hit.Title, summary))
	}

	if len(blocks) == 0 {
		return "No summaries found."
	}

	out := blocks[0]
	for _, b := range blocks[1:] {
		out += "\n\n" + b
	}
	return out
}

// pageSummary fetches the introductory plain-text extract for a page title.
// Failures collapse to an empty string so a single bad page never breaks the
// composed block.
func (c *Client) pageSummary(ctx context.Context, title string) string {
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"titles":      {title},
		"format":      {"json"},
	}

	var result extractResponse
	if err := c.get(ctx, params, &result); err != nil {
		c.logger.Debug("wikipedia extract failed", zap.String("title", title), zap.Error(err))
		return ""
	}

	for _, page := range result.Query.Pages {
		if page.Extract == "" {
			continue
		}
		if len(page.Extract) > extractLimit {
			return page.Extract[:extractLimit] + "..."
		}
		return page.Extract
	}
	return ""
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
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

// internal/analyzer/analyzer.go
package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/planetquant/quant-engine/internal/core"
	"github.com/planetquant/quant-engine/internal/extract"
	"github.com/planetquant/quant-engine/internal/metrics"
	"go.uber.org/zap"
)

const previewLimit = 500

// WikipediaSource provides encyclopedia context for a question.
type WikipediaSource interface {
	Search(ctx context.Context, question string, maxResults int) string
}

// MarketSource provides prediction-market context for a question.
type MarketSource interface {
	Search(ctx context.Context, query string, limit int) []core.Market
	ContextText(ctx context.Context, query string) string
}

// FinanceSource provides stock quote and news context for a symbol.
type FinanceSource interface {
	Quote(ctx context.Context, symbol string) core.Quote
	News(ctx context.Context, symbol string, daysBack int) []core.NewsItem
	SentimentText(ctx context.Context, symbol string) string
}

// Scorer turns a question plus aggregated context into an inference result.
type Scorer interface {
	Score(ctx context.Context, question, contextText string) core.InferenceResult
}

// Config holds per-request lookup settings.
type Config struct {
	LookupTimeout  time.Duration
	WikiMaxResults int
	NewsDaysBack   int
	MarketLimit    int
}

// Analyzer fans a question out to the data sources, aggregates whatever
// context comes back in time, and asks the scorer for a confidence estimate.
type Analyzer struct {
	wiki    WikipediaSource
	markets MarketSource
	finance FinanceSource
	scorer  Scorer
	cfg     Config
	metrics *metrics.Registry
	logger  *zap.Logger
}

// New creates an analyzer. The metrics registry may be nil.
func New(wiki WikipediaSource, markets MarketSource, finance FinanceSource, scorer Scorer, cfg Config, reg *metrics.Registry, logger *zap.Logger) *Analyzer {
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 15 * time.Second
	}
	if cfg.WikiMaxResults <= 0 {
		cfg.WikiMaxResults = 3
	}
	if cfg.NewsDaysBack <= 0 {
		cfg.NewsDaysBack = 7
	}
	if cfg.MarketLimit <= 0 {
		cfg.MarketLimit = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		wiki:    wiki,
		markets: markets,
		finance: finance,
		scorer:  scorer,
		cfg:     cfg,
		metrics: reg,
		logger:  logger,
	}
}

// outcome is a single lookup's result or the panic it was cut short by.
type outcome[T any] struct {
	value T
	err   error
}

// launch runs a lookup in its own goroutine. The channel is buffered so a
// lookup that finishes after the join deadline can still complete its send
// and exit.
func launch[T any](reg *metrics.Registry, source string, fn func() T) <-chan outcome[T] {
	ch := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if reg != nil {
					reg.RecordSourceFailure(source, "panic")
				}
				ch <- outcome[T]{err: fmt.Errorf("%s lookup panicked: %v", source, r)}
			}
		}()
		start := time.Now()
		v := fn()
		if reg != nil {
			reg.RecordSourceLookup(source, time.Since(start).Seconds())
		}
		ch <- outcome[T]{value: v}
	}()
	return ch
}

// await collects a lookup result, giving up when the join context expires.
// A result that arrived just as the deadline fired is still taken.
func await[T any](ctx context.Context, ch <-chan outcome[T]) (outcome[T], bool) {
	select {
	case res := <-ch:
		return res, true
	case <-ctx.Done():
		select {
		case res := <-ch:
			return res, true
		default:
			var zero outcome[T]
			return zero, false
		}
	}
}

// resolveSymbol prefers an explicit symbol over extraction from the question.
func resolveSymbol(req core.TradeRequest) (string, bool) {
	if s := strings.TrimSpace(req.Symbol); s != "" {
		return strings.ToUpper(s), true
	}
	return extract.Symbol(req.Question)
}

// Analyze answers a trading question. Source lookups run concurrently against
// the parent context; the join waits at most LookupTimeout, and sources that
// miss the deadline are simply absent from the aggregated context. The only
// error path is a panicking lookup.
func (a *Analyzer) Analyze(ctx context.Context, req core.TradeRequest) (core.AnalyzeResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return core.AnalyzeResponse{}, core.WrapError(core.ErrRequestInvalid, fmt.Errorf("question is required"))
	}

	start := time.Now()
	symbol, hasSymbol := resolveSymbol(req)

	// Lookups get the parent context, not the join context: a slow source is
	// abandoned at the join but allowed to run to completion in the background.
	wikiCh := launch(a.metrics, "wikipedia", func() string {
		return a.wiki.Search(ctx, question, a.cfg.WikiMaxResults)
	})
	marketCh := launch(a.metrics, "polymarket", func() string {
		return a.markets.ContextText(ctx, question)
	})
	var financeCh <-chan outcome[string]
	if hasSymbol {
		financeCh = launch(a.metrics, "finnhub", func() string {
			return a.finance.SentimentText(ctx, symbol)
		})
	}

	joinCtx, cancel := context.WithTimeout(ctx, a.cfg.LookupTimeout)
	defer cancel()

	var sources core.Sources
	var wikiText, marketText, financeText string

	if res, ok := await(joinCtx, wikiCh); ok {
		if res.err != nil {
			return core.AnalyzeResponse{}, core.WrapError(core.ErrInternal, res.err)
		}
		wikiText = res.value
		sources.Wikipedia = preview(res.value)
	} else {
		a.recordTimeout("wikipedia")
	}

	if res, ok := await(joinCtx, marketCh); ok {
		if res.err != nil {
			return core.AnalyzeResponse{}, core.WrapError(core.ErrInternal, res.err)
		}
		marketText = res.value
		sources.Polymarket = preview(res.value)
	} else {
		a.recordTimeout("polymarket")
	}

	if financeCh != nil {
		if res, ok := await(joinCtx, financeCh); ok {
			if res.err != nil {
				return core.AnalyzeResponse{}, core.WrapError(core.ErrInternal, res.err)
			}
			financeText = res.value
			sources.Finnhub = preview(res.value)
		} else {
			a.recordTimeout("finnhub")
		}
	}

	contextText := aggregate(req.Context, financeText, wikiText, marketText)

	result := a.scorer.Score(ctx, question, contextText)
	if a.metrics != nil {
		if result.Failed() {
			a.metrics.RecordInference("error")
		} else {
			a.metrics.RecordInference("success")
		}
		status := "success"
		if result.Failed() {
			status = "error"
		}
		a.metrics.RecordAnalysis(status, time.Since(start).Seconds())
	}

	a.logger.Info("analysis complete",
		zap.String("question", question),
		zap.Bool("has_symbol", hasSymbol),
		zap.Bool("inference_failed", result.Failed()),
		zap.Duration("elapsed", time.Since(start)))

	resp := core.AnalyzeResponse{
		InferenceResult: result,
		Sources:         sources,
		Question:        question,
	}
	if hasSymbol {
		resp.Symbol = &symbol
	}
	return resp, nil
}

// Scrape returns the raw per-source results without inference. Finnhub is
// only queried when a symbol is available.
func (a *Analyzer) Scrape(ctx context.Context, question string) (core.ScrapeResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return core.ScrapeResponse{}, core.WrapError(core.ErrRequestInvalid, fmt.Errorf("question is required"))
	}

	symbol, hasSymbol := resolveSymbol(core.TradeRequest{Question: question})

	wikiCh := launch(a.metrics, "wikipedia", func() string {
		return a.wiki.Search(ctx, question, a.cfg.WikiMaxResults)
	})
	marketCh := launch(a.metrics, "polymarket", func() []core.Market {
		return a.markets.Search(ctx, question, a.cfg.MarketLimit)
	})
	var financeCh <-chan outcome[*core.FinnhubScrape]
	if hasSymbol {
		financeCh = launch(a.metrics, "finnhub", func() *core.FinnhubScrape {
			return &core.FinnhubScrape{
				Quote: a.finance.Quote(ctx, symbol),
				News:  a.finance.News(ctx, symbol, a.cfg.NewsDaysBack),
			}
		})
	}

	joinCtx, cancel := context.WithTimeout(ctx, a.cfg.LookupTimeout)
	defer cancel()

	var resp core.ScrapeResponse
	if hasSymbol {
		resp.Symbol = symbol
	}

	if res, ok := await(joinCtx, wikiCh); ok {
		if res.err != nil {
			return core.ScrapeResponse{}, core.WrapError(core.ErrInternal, res.err)
		}
		resp.Wikipedia = res.value
	} else {
		a.recordTimeout("wikipedia")
	}

	if res, ok := await(joinCtx, marketCh); ok {
		if res.err != nil {
			return core.ScrapeResponse{}, core.WrapError(core.ErrInternal, res.err)
		}
		resp.Polymarket = res.value
	} else {
		a.recordTimeout("polymarket")
	}

	if financeCh != nil {
		if res, ok := await(joinCtx, financeCh); ok {
			if res.err != nil {
				return core.ScrapeResponse{}, core.WrapError(core.ErrInternal, res.err)
			}
			resp.Finnhub = res.value
		} else {
			a.recordTimeout("finnhub")
		}
	}

	return resp, nil
}

func (a *Analyzer) recordTimeout(source string) {
	if a.metrics != nil {
		a.metrics.RecordSourceFailure(source, "timeout")
	}
	a.logger.Warn("source lookup timed out", zap.String("source", source))
}

// aggregate joins the non-empty context blocks in a fixed order: user
// context, then financial, encyclopedia and market context.
func aggregate(blocks ...string) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if strings.TrimSpace(b) != "" {
			parts = append(parts, b)
		}
	}
	return strings.Join(parts, "\n\n")
}

// preview truncates a context block for the response's sources section.
func preview(s string) *string {
	if s == "" {
		return nil
	}
	if len(s) > previewLimit {
		s = s[:previewLimit]
	}
	return &s
}

package analyzer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/planetquant/quant-engine/internal/core"
	"github.com/planetquant/quant-engine/internal/metrics"
	"go.uber.org/zap"
)

type fakeWiki struct {
	text  string
	delay time.Duration
	panic bool
	calls int
}

func (f *fakeWiki) Search(ctx context.Context, question string, maxResults int) string {
	f.calls++
	if f.panic {
		panic("wiki exploded")
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.text
}

type fakeMarkets struct {
	text    string
	markets []core.Market
	calls   int
}

func (f *fakeMarkets) Search(ctx context.Context, query string, limit int) []core.Market {
	f.calls++
	return f.markets
}

func (f *fakeMarkets) ContextText(ctx context.Context, query string) string {
	f.calls++
	return f.text
}

type fakeFinance struct {
	sentiment string
	quote     core.Quote
	news      []core.NewsItem
	calls     int
	lastSym   string
}

func (f *fakeFinance) Quote(ctx context.Context, symbol string) core.Quote {
	f.calls++
	f.lastSym = symbol
	return f.quote
}

func (f *fakeFinance) News(ctx context.Context, symbol string, daysBack int) []core.NewsItem {
	f.calls++
	f.lastSym = symbol
	return f.news
}

func (f *fakeFinance) SentimentText(ctx context.Context, symbol string) string {
	f.calls++
	f.lastSym = symbol
	return f.sentiment
}

type fakeScorer struct {
	result      core.InferenceResult
	lastContext string
	lastQ       string
}

func (f *fakeScorer) Score(ctx context.Context, question, contextText string) core.InferenceResult {
	f.lastQ = question
	f.lastContext = contextText
	return f.result
}

func newTestAnalyzer(wiki *fakeWiki, markets *fakeMarkets, finance *fakeFinance, scorer *fakeScorer, cfg Config) *Analyzer {
	return New(wiki, markets, finance, scorer, cfg, nil, zap.NewNop())
}

func scoreOf(n int) core.InferenceResult {
	return core.InferenceResult{ConfidenceScore: &n, Sentiment: "bullish", Reasoning: "test"}
}

func TestAnalyzeWithSymbol(t *testing.T) {
	wiki := &fakeWiki{text: "wiki context"}
	markets := &fakeMarkets{text: "market context"}
	finance := &fakeFinance{sentiment: "finance context"}
	scorer := &fakeScorer{result: scoreOf(80)}
	a := newTestAnalyzer(wiki, markets, finance, scorer, Config{})

	resp, err := a.Analyze(context.Background(), core.TradeRequest{Question: "Will Tesla stock go up?"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if resp.Symbol == nil || *resp.Symbol != "TSLA" {
		t.Errorf("expected symbol TSLA, got %v", resp.Symbol)
	}
	if finance.lastSym != "TSLA" {
		t.Errorf("finance queried with %q, want TSLA", finance.lastSym)
	}
	if resp.ConfidenceScore == nil || *resp.ConfidenceScore != 80 {
		t.Errorf("expected confidence 80, got %v", resp.ConfidenceScore)
	}
	if resp.Sources.Wikipedia == nil || *resp.Sources.Wikipedia != "wiki context" {
		t.Errorf("unexpected wikipedia source %v", resp.Sources.Wikipedia)
	}
	if resp.Sources.Polymarket == nil || *resp.Sources.Polymarket != "market context" {
		t.Errorf("unexpected polymarket source %v", resp.Sources.Polymarket)
	}
	if resp.Sources.Finnhub == nil || *resp.Sources.Finnhub != "finance context" {
		t.Errorf("unexpected finnhub source %v", resp.Sources.Finnhub)
	}
	if resp.Question != "Will Tesla stock go up?" {
		t.Errorf("unexpected question %q", resp.Question)
	}
}

func TestAnalyzeExplicitSymbolOverridesExtraction(t *testing.T) {
	finance := &fakeFinance{sentiment: "f"}
	a := newTestAnalyzer(&fakeWiki{}, &fakeMarkets{}, finance, &fakeScorer{result: scoreOf(50)}, Config{})

	resp, err := a.Analyze(context.Background(), core.TradeRequest{
		Question: "Will Tesla stock go up?",
		Symbol:   "nvda",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Symbol == nil || *resp.Symbol != "NVDA" {
		t.Errorf("expected NVDA, got %v", resp.Symbol)
	}
	if finance.lastSym != "NVDA" {
		t.Errorf("finance queried with %q, want NVDA", finance.lastSym)
	}
}

func TestAnalyzeNoSymbol(t *testing.T) {
	finance := &fakeFinance{sentiment: "should not appear"}
	a := newTestAnalyzer(&fakeWiki{text: "w"}, &fakeMarkets{text: "m"}, finance, &fakeScorer{result: scoreOf(50)}, Config{})

	resp, err := a.Analyze(context.Background(), core.TradeRequest{Question: "Will it rain in London tomorrow?"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Symbol != nil {
		t.Errorf("expected nil symbol, got %v", *resp.Symbol)
	}
	if finance.calls != 0 {
		t.Errorf("finance should not be queried without a symbol, got %d calls", finance.calls)
	}
	if resp.Sources.Finnhub != nil {
		t.Error("expected nil finnhub source")
	}
}

func TestAnalyzeAggregationOrder(t *testing.T) {
	wiki := &fakeWiki{text: "WIKI"}
	markets := &fakeMarkets{text: "MARKETS"}
	finance := &fakeFinance{sentiment: "FINANCE"}
	scorer := &fakeScorer{result: scoreOf(50)}
	a := newTestAnalyzer(wiki, markets, finance, scorer, Config{})

	_, err := a.Analyze(context.Background(), core.TradeRequest{
		Question: "Will $TSLA close higher?",
		Context:  "USER",
	})
	if err != nil {
		t.Fatal(err)
	}

	want := "USER\n\nFINANCE\n\nWIKI\n\nMARKETS"
	if scorer.lastContext != want {
		t.Errorf("aggregated context = %q, want %q", scorer.lastContext, want)
	}
	if scorer.lastQ != "Will $TSLA close higher?" {
		t.Errorf("unexpected question passed to scorer: %q", scorer.lastQ)
	}
}

func TestAnalyzeSkipsEmptyBlocks(t *testing.T) {
	wiki := &fakeWiki{text: "WIKI"}
	markets := &fakeMarkets{text: ""}
	scorer := &fakeScorer{result: scoreOf(50)}
	a := newTestAnalyzer(wiki, markets, &fakeFinance{}, scorer, Config{})

	_, err := a.Analyze(context.Background(), core.TradeRequest{Question: "Will it happen?"})
	if err != nil {
		t.Fatal(err)
	}
	if scorer.lastContext != "WIKI" {
		t.Errorf("aggregated context = %q, want %q", scorer.lastContext, "WIKI")
	}
}

func TestAnalyzePreviewTruncation(t *testing.T) {
	long := strings.Repeat("x", 1200)
	wiki := &fakeWiki{text: long}
	scorer := &fakeScorer{result: scoreOf(50)}
	a := newTestAnalyzer(wiki, &fakeMarkets{}, &fakeFinance{}, scorer, Config{})

	resp, err := a.Analyze(context.Background(), core.TradeRequest{Question: "Will it happen?"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Sources.Wikipedia == nil {
		t.Fatal("expected wikipedia source")
	}
	if len(*resp.Sources.Wikipedia) != 500 {
		t.Errorf("expected 500-char preview, got %d", len(*resp.Sources.Wikipedia))
	}
	// Full text still reaches the scorer
	if !strings.Contains(scorer.lastContext, long) {
		t.Error("scorer should receive the untruncated context")
	}
}

func TestAnalyzeTimedOutSourceIsAbsent(t *testing.T) {
	wiki := &fakeWiki{text: "late", delay: 200 * time.Millisecond}
	markets := &fakeMarkets{text: "on time"}
	scorer := &fakeScorer{result: scoreOf(50)}
	a := newTestAnalyzer(wiki, markets, &fakeFinance{}, scorer, Config{LookupTimeout: 20 * time.Millisecond})

	resp, err := a.Analyze(context.Background(), core.TradeRequest{Question: "Will it happen?"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Sources.Wikipedia != nil {
		t.Errorf("expected nil wikipedia source after timeout, got %q", *resp.Sources.Wikipedia)
	}
	if resp.Sources.Polymarket == nil || *resp.Sources.Polymarket != "on time" {
		t.Errorf("fast source should survive, got %v", resp.Sources.Polymarket)
	}
	if strings.Contains(scorer.lastContext, "late") {
		t.Error("timed-out source must not reach the scorer")
	}
}

func TestAnalyzePanickingSourceReturnsError(t *testing.T) {
	wiki := &fakeWiki{panic: true}
	a := newTestAnalyzer(wiki, &fakeMarkets{}, &fakeFinance{}, &fakeScorer{result: scoreOf(50)}, Config{})

	_, err := a.Analyze(context.Background(), core.TradeRequest{Question: "Will it happen?"})
	if err == nil {
		t.Fatal("expected error from panicking source")
	}
	if !strings.Contains(err.Error(), "panicked") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestAnalyzeEmptyQuestion(t *testing.T) {
	a := newTestAnalyzer(&fakeWiki{}, &fakeMarkets{}, &fakeFinance{}, &fakeScorer{}, Config{})

	_, err := a.Analyze(context.Background(), core.TradeRequest{Question: "   "})
	if err == nil {
		t.Fatal("expected error for blank question")
	}
}

func TestAnalyzeInferenceErrorStillReturned(t *testing.T) {
	scorer := &fakeScorer{result: core.InferenceResult{Error: "Missing GROQ_API_KEY"}}
	a := newTestAnalyzer(&fakeWiki{text: "w"}, &fakeMarkets{}, &fakeFinance{}, scorer, Config{})

	resp, err := a.Analyze(context.Background(), core.TradeRequest{Question: "Will it happen?"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Error != "Missing GROQ_API_KEY" {
		t.Errorf("expected inference error carried through, got %q", resp.Error)
	}
	if resp.ConfidenceScore != nil {
		t.Error("expected no confidence score on inference error")
	}
}

func TestAnalyzeWithMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	a := New(&fakeWiki{text: "w"}, &fakeMarkets{text: "m"}, &fakeFinance{sentiment: "f"},
		&fakeScorer{result: scoreOf(70)}, Config{}, reg, zap.NewNop())

	_, err := a.Analyze(context.Background(), core.TradeRequest{Question: "Will $AAPL rise?"})
	if err != nil {
		t.Fatal(err)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var sawAnalyses, sawLookups bool
	for _, mf := range mfs {
		switch mf.GetName() {
		case "quantengine_analyses_total":
			sawAnalyses = true
		case "quantengine_source_lookup_duration_seconds":
			sawLookups = true
		}
	}
	if !sawAnalyses {
		t.Error("expected analyses metric to be recorded")
	}
	if !sawLookups {
		t.Error("expected source lookup metric to be recorded")
	}
}

func TestScrapeWithSymbol(t *testing.T) {
	yes := "0.6"
	no := "0.4"
	markets := &fakeMarkets{markets: []core.Market{{Question: "m1", OutcomeYes: &yes, OutcomeNo: &no}}}
	finance := &fakeFinance{
		quote: core.Quote{Symbol: "TSLA", CurrentPrice: 250},
		news:  []core.NewsItem{{Headline: "h"}},
	}
	a := newTestAnalyzer(&fakeWiki{text: "wiki"}, markets, finance, &fakeScorer{}, Config{})

	resp, err := a.Scrape(context.Background(), "Will Tesla stock go up?")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Symbol != "TSLA" {
		t.Errorf("expected symbol TSLA, got %q", resp.Symbol)
	}
	if resp.Wikipedia != "wiki" {
		t.Errorf("unexpected wikipedia %q", resp.Wikipedia)
	}
	if len(resp.Polymarket) != 1 || resp.Polymarket[0].Question != "m1" {
		t.Errorf("unexpected polymarket %+v", resp.Polymarket)
	}
	if resp.Finnhub == nil {
		t.Fatal("expected finnhub results")
	}
	if resp.Finnhub.Quote.CurrentPrice != 250 {
		t.Errorf("unexpected quote %+v", resp.Finnhub.Quote)
	}
	if len(resp.Finnhub.News) != 1 {
		t.Errorf("unexpected news %+v", resp.Finnhub.News)
	}
}

func TestScrapeNoSymbol(t *testing.T) {
	finance := &fakeFinance{}
	a := newTestAnalyzer(&fakeWiki{text: "wiki"}, &fakeMarkets{}, finance, &fakeScorer{}, Config{})

	resp, err := a.Scrape(context.Background(), "Will it rain tomorrow?")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Symbol != "" {
		t.Errorf("expected empty symbol, got %q", resp.Symbol)
	}
	if resp.Finnhub != nil {
		t.Error("expected nil finnhub without a symbol")
	}
	if finance.calls != 0 {
		t.Errorf("finance should not be queried without a symbol, got %d calls", finance.calls)
	}
}

func TestScrapeEmptyQuestion(t *testing.T) {
	a := newTestAnalyzer(&fakeWiki{}, &fakeMarkets{}, &fakeFinance{}, &fakeScorer{}, Config{})

	_, err := a.Scrape(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty question")
	}
}

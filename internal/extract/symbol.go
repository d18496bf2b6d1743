// internal/extract/symbol.go
package extract

import (
	"regexp"
	"strings"
)

// tickerPattern matches an explicit $-prefixed ticker like $TSLA or $aapl.
var tickerPattern = regexp.MustCompile(`\$([A-Za-z]{1,5})\b`)

// cryptoNames are matched by plain substring containment.
var cryptoNames = []string{
	"bitcoin",
	"ethereum",
	"solana",
	"dogecoin",
	"cardano",
	"ripple",
	"litecoin",
	"polygon",
	"crypto", // also covers "cryptocurrency"
	"altcoin",
	"stablecoin",
}

// cryptoCodes are short tickers that need word-boundary matching so that
// "eth" does not fire inside "whether".
var cryptoCodes = regexp.MustCompile(`(?i)\b(btc|eth|sol|doge|xrp|ada|bnb|ltc)\b`)

// companyTickers maps company and person keywords to equity tickers. Order is
// significant: the first containment match wins.
var companyTickers = []struct {
	keyword string
	ticker  string
}{
	{"tesla", "TSLA"},
	{"elon", "TSLA"},
	{"musk", "TSLA"},
	{"spacex", "TSLA"},
	{"apple", "AAPL"},
	{"iphone", "AAPL"},
	{"microsoft", "MSFT"},
	{"google", "GOOGL"},
	{"alphabet", "GOOGL"},
	{"amazon", "AMZN"},
	{"nvidia", "NVDA"},
	{"meta", "META"},
	{"facebook", "META"},
	{"netflix", "NFLX"},
	{"disney", "DIS"},
	{"coinbase", "COIN"},
	{"gamestop", "GME"},
}

// Symbol maps a free-text question to an equity ticker. Precedence: an
// explicit $TICKER always wins; crypto questions are excluded from equity
// mapping even when they also mention a mapped company; otherwise the first
// matching company keyword decides. Returns false when no symbol applies.
func Symbol(question string) (string, bool) {
	if m := tickerPattern.FindStringSubmatch(question); m != nil {
		return strings.ToUpper(m[1]), true
	}

	lower := strings.ToLower(question)
	for _, name := range cryptoNames {
		if strings.Contains(lower, name) {
			return "", false
		}
	}
	if cryptoCodes.MatchString(question) {
		return "", false
	}

	for _, entry := range companyTickers {
		if strings.Contains(lower, entry.keyword) {
			return entry.ticker, true
		}
	}

	return "", false
}

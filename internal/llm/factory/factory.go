// internal/llm/factory/factory.go
package factory

import (
	"fmt"

	"github.com/planetquant/quant-engine/internal/config"
	"github.com/planetquant/quant-engine/internal/llm"
	"github.com/planetquant/quant-engine/internal/llm/claude"
	"github.com/planetquant/quant-engine/internal/llm/groq"
	"github.com/planetquant/quant-engine/internal/llm/openai"
)

// New creates an LLM provider based on configuration. Groq is the default
// provider when none is named.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "", "groq":
		return groq.New(cfg.Groq.APIKey, cfg.Groq.Model)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}

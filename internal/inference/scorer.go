// internal/inference/scorer.go
package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/planetquant/quant-engine/internal/core"
	"github.com/planetquant/quant-engine/internal/llm"
	"go.uber.org/zap"
)

const systemPrompt = `You are a quantitative analyst evaluating trading and prediction-market questions.
Given a question and supporting context, respond with ONLY a JSON object in this exact format:
{"confidence_score": <integer 0-100>, "sentiment": "<bullish|bearish|neutral>", "reasoning": "<one or two sentences>"}
confidence_score is your confidence that the answer to the question is YES.
Do not include any text outside the JSON object.`

const (
	maxTokens   = 512
	temperature = 0.2
)

// Scorer turns a question plus aggregated context into a structured
// confidence estimate by asking an LLM provider.
type Scorer struct {
	provider llm.Provider
	logger   *zap.Logger
}

// NewScorer creates a scorer backed by the given provider. A nil provider is
// allowed: scoring then reports the missing-key condition as an error-shaped
// result instead of failing at startup.
func NewScorer(provider llm.Provider, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{provider: provider, logger: logger}
}

// modelResponse is the JSON shape the model is instructed to produce.
type modelResponse struct {
	ConfidenceScore *int   `json:"confidence_score"`
	Sentiment       string `json:"sentiment"`
	Reasoning       string `json:"reasoning"`
}

// Score asks the provider for a confidence estimate. Failures are returned as
// error-shaped results, never as Go errors, so a broken inference layer still
// yields a well-formed response body.
func (s *Scorer) Score(ctx context.Context, question, contextText string) core.InferenceResult {
	if s.provider == nil {
		return core.InferenceResult{Error: "Missing GROQ_API_KEY"}
	}

	req := llm.ChatRequest{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf("Question: %s\n\nContext:\n%s", question, contextText)},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	resp, err := s.provider.Chat(ctx, req)
	if err != nil {
		s.logger.Warn("inference request failed",
			zap.String("provider", s.provider.Name()),
			zap.Error(err))
		return core.InferenceResult{
			Error: fmt.Sprintf("%s inference failed: %v", providerTitle(s.provider.Name()), err),
		}
	}

	content := strings.TrimSpace(resp.Content)

	var parsed modelResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		s.logger.Warn("model returned unparseable response",
			zap.String("provider", s.provider.Name()),
			zap.String("content", content))
		return core.InferenceResult{Error: fmt.Sprintf("Invalid JSON from model: %v", err)}
	}
	if parsed.ConfidenceScore == nil {
		return core.InferenceResult{Error: "Invalid JSON from model: missing confidence_score"}
	}

	return core.InferenceResult{
		ConfidenceScore: parsed.ConfidenceScore,
		Sentiment:       parsed.Sentiment,
		Reasoning:       parsed.Reasoning,
	}
}

func providerTitle(name string) string {
	if name == "" {
		return "LLM"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

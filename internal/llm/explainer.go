// Package llm renders match results as plain-language explanations.
// Explanations are advisory: they never change a verdict, and a failing
// provider degrades to warnings instead of failing the match.
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ppiankov/yojana/internal/logger"
	"github.com/ppiankov/yojana/internal/model"
)

// Explainer wraps a provider with source checks and graceful degradation
type Explainer struct {
	provider Provider
	config   Config
	logger   *zap.Logger

	availableOnce sync.Once
	available     bool
}

// NewExplainer creates a new explainer. With no provider configured the
// explainer is disabled and Explain returns nil.
func NewExplainer(ctx context.Context, config Config, log *zap.Logger) (*Explainer, error) {
	provider, err := NewProvider(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Explainer{
		provider: provider,
		config:   config,
		logger:   logger.OrNop(log),
	}, nil
}

// IsEnabled reports whether a provider is configured
func (e *Explainer) IsEnabled() bool {
	return e != nil && e.provider != nil
}

// ProviderName returns the configured provider, or "" when disabled
func (e *Explainer) ProviderName() string {
	if !e.IsEnabled() {
		return ""
	}
	return e.provider.Name()
}

// Explain produces an explanation for result. Provider problems are
// reported as warnings on the returned explanation, not as errors.
func (e *Explainer) Explain(ctx context.Context, rule *model.RuleDocument, result model.MatchResult) (*model.Explanation, error) {
	if !e.IsEnabled() {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	explanation := &model.Explanation{
		Provider: e.provider.Name(),
		Model:    e.config.Model,
	}

	e.availableOnce.Do(func() {
		e.available = e.provider.IsAvailable(ctx)
	})
	if !e.available {
		explanation.Warnings = append(explanation.Warnings,
			fmt.Sprintf("LLM provider %s is not available, explanation skipped", e.provider.Name()))
		return explanation, nil
	}

	log := logger.OrNop(e.logger)

	var allowed []string
	if rule != nil && rule.SourceURL != "" {
		allowed = []string{rule.SourceURL}
	}

	req := ExplainRequest{
		Rule:        rule,
		Result:      result,
		AllowedURLs: allowed,
		Model:       e.config.Model,
		MaxTokens:   e.config.MaxTokens,
	}

	log.Debug("requesting explanation",
		zap.String("provider", e.provider.Name()),
		zap.String("scheme", result.SchemeID),
		zap.String("verdict", string(result.Verdict)),
	)

	resp, err := e.provider.Explain(ctx, req)
	if err != nil {
		log.Warn("explanation failed", zap.String("scheme", result.SchemeID), zap.Error(err))
		explanation.Warnings = append(explanation.Warnings, fmt.Sprintf("Explanation failed: %v", err))
		return explanation, nil
	}

	explanation.Text = resp.Text
	if resp.Model != "" {
		explanation.Model = resp.Model
	}
	if resp.TokensUsed > 0 {
		explanation.Warnings = append(explanation.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	}
	if e.config.StrictSources && len(resp.CitedURLs) > 0 {
		explanation.Warnings = append(explanation.Warnings,
			fmt.Sprintf("Verified %d citations against the scheme source", len(resp.CitedURLs)))
	}
	if contradictsVerdict(resp.Text, result.Verdict) {
		explanation.Warnings = append(explanation.Warnings,
			fmt.Sprintf("Explanation may contradict the %s verdict; rely on the clause results", result.Verdict))
	}

	return explanation, nil
}

var (
	negativePhrases = []string{"not eligible", "ineligible", "do not qualify", "don't qualify", "does not qualify"}
	positivePhrases = []string{"you are eligible", "you qualify", "you are likely eligible"}
)

// contradictsVerdict catches explanations that state the opposite outcome
func contradictsVerdict(text string, verdict model.Verdict) bool {
	lower := strings.ToLower(text)
	switch verdict {
	case model.VerdictEligible:
		return containsAny(lower, negativePhrases)
	case model.VerdictIneligible:
		return containsAny(lower, positivePhrases)
	}
	return false
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

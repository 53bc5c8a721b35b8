package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/yojana/internal/model"
)

// systemPrompt is shared by every provider
const systemPrompt = "You explain government scheme eligibility results in plain language. You never change or second-guess the verdict you are given."

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Explain renders a match result as short plain-language text
	Explain(ctx context.Context, req ExplainRequest) (*ExplainResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// ExplainRequest contains the input for one explanation
type ExplainRequest struct {
	Rule   *model.RuleDocument
	Result model.MatchResult

	// AllowedURLs is the only set of URLs the model may cite
	AllowedURLs []string

	// Prompt overrides BuildPrompt when set
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// ExplainResponse contains the provider output
type ExplainResponse struct {
	Text       string
	CitedURLs  []string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "gemini", "ollama", ""
	Provider string

	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// StrictSources rejects text citing any URL outside AllowedURLs
	StrictSources bool

	MaxTokens int

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns the defaults with the explainer disabled
func DefaultConfig() Config {
	return Config{
		Timeout:       30 * time.Second,
		StrictSources: true,
		MaxTokens:     400,
	}
}

func (c Config) timeout(fallback time.Duration) time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return fallback
}

func (c Config) maxTokens(requested int) int {
	if requested > 0 {
		return requested
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 400
}

// BuildPrompt constructs the default explanation prompt for a match result
func BuildPrompt(rule *model.RuleDocument, result model.MatchResult, allowedURLs []string) string {
	var b strings.Builder

	title := result.Title
	if title == "" && rule != nil {
		title = rule.Title
	}
	if title == "" {
		title = result.SchemeID
	}

	fmt.Fprintf(&b, `Explain to an applicant why they received this eligibility result for the scheme %q.

RULES:
1. The verdict is final: %s. Do not contradict it.
2. Only mention the clauses listed below. Do not invent other requirements.
3. If a clause could not be decided, tell the applicant which detail to provide or verify.
4. You may only cite these URLs:%s

Clauses:
`, title, result.Verdict, joinURLs(allowedURLs))

	for _, clause := range result.Clauses {
		state := "undecided"
		if clause.Satisfied != nil {
			state = "not met"
			if *clause.Satisfied {
				state = "met"
			}
		}
		fmt.Fprintf(&b, "- %s (%s): %s\n", clause.Kind, state, clause.Reason)
	}

	if rule != nil && rule.Passage != "" {
		fmt.Fprintf(&b, "\nOriginal eligibility text:\n%s\n", truncate(rule.Passage, 1500))
	}

	b.WriteString("\nAnswer in 2-4 short sentences.")
	return b.String()
}

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return " (none, do not cite any URL)"
	}
	var b strings.Builder
	for _, u := range urls {
		b.WriteString("\n   - ")
		b.WriteString(u)
	}
	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// checkCitations returns the URLs cited in text, or an error when strict
// and one of them is not allowed
func checkCitations(text string, allowed []string, strict bool) ([]string, error) {
	cited := extractURLs(text)
	if !strict {
		return cited, nil
	}
	for _, u := range cited {
		if !contains(allowed, u) {
			return nil, fmt.Errorf("citation leak: model cited disallowed URL: %s", u)
		}
	}
	return cited, nil
}

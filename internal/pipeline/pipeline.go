package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/yojana/internal/cache"
	"github.com/ppiankov/yojana/internal/extract"
	"github.com/ppiankov/yojana/internal/extract/adapters"
	"github.com/ppiankov/yojana/internal/jurisdiction"
	"github.com/ppiankov/yojana/internal/llm"
	"github.com/ppiankov/yojana/internal/logger"
	"github.com/ppiankov/yojana/internal/match"
	"github.com/ppiankov/yojana/internal/model"
	"github.com/ppiankov/yojana/internal/normalize"
	"github.com/ppiankov/yojana/internal/worker"
)

var _ worker.Processor = (*Pipeline)(nil)

// Pipeline sequences fetching, extraction and normalization, and exposes
// matching. It holds no per-document state and is safe for concurrent use.
type Pipeline struct {
	fetcher    *Fetcher
	registry   *adapters.Registry
	extractor  *extract.Extractor
	normalizer *normalize.Normalizer
	detector   *jurisdiction.Detector
	matcher    *match.Matcher
	explainer  *llm.Explainer // nil unless explanations were requested
	logger     *zap.Logger
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, log *zap.Logger) *Pipeline {
	log = logger.OrNop(log)

	var strategies []extract.Strategy
	if len(cfg.Extraction.HeadingKeywords) > 0 && len(cfg.Extraction.PassageKeywords) > 0 {
		strategies = []extract.Strategy{
			extract.NewHeadingStrategy(cfg.Extraction.HeadingKeywords),
			extract.NewKeywordStrategy(cfg.Extraction.PassageKeywords),
		}
	}

	return &Pipeline{
		fetcher:    NewFetcherFromConfig(cfg.HTTP, cfg.Cache, log),
		registry:   adapters.NewRegistry(),
		extractor:  extract.NewExtractor(strategies, cfg.Extraction.MaxPassageChars, log),
		normalizer: normalize.NewNormalizer(log),
		detector:   jurisdiction.NewDetector(&cfg.Jurisdiction),
		matcher:    match.NewMatcher(),
		logger:     log,
	}
}

// WithExplainer enables LLM explanations of match results
func (p *Pipeline) WithExplainer(e *llm.Explainer) *Pipeline {
	p.explainer = e
	return p
}

// Process extracts and normalizes one document into a RuleDocument.
// A document without an eligibility passage yields *extract.ExtractionFailure.
func (p *Pipeline) Process(doc model.RawDocument) (*model.RuleDocument, error) {
	if doc.SchemeID == "" {
		doc.SchemeID = SchemeIDFromURL(doc.SourceURL)
	}
	if doc.SchemeID == "" {
		return nil, fmt.Errorf("document has no scheme id or source URL")
	}
	if doc.JurisdictionHint == "" && doc.SourceURL != "" {
		doc.JurisdictionHint = p.detector.Detect(doc.SourceURL)
	}

	adapter := p.registry.FindAdapter(doc.SourceURL)
	p.logger.Debug("processing document",
		zap.String("scheme_id", doc.SchemeID),
		zap.String("adapter", adapter.Name()),
		zap.String("jurisdiction", doc.JurisdictionHint),
	)

	extraction, err := p.extractor.ExtractWith(doc, adapter.Strategies())
	if err != nil {
		return nil, err
	}

	rule, errs := p.normalizer.Normalize(doc.SchemeID, extraction.Criteria, extraction.Confidence)
	if rule == nil {
		return nil, errors.Join(errs...)
	}
	if len(errs) > 0 {
		p.logger.Info("criteria dropped during normalization",
			zap.String("scheme_id", doc.SchemeID),
			zap.Int("dropped", len(errs)),
			zap.Int("kept", len(rule.Criteria)),
		)
	}

	rule.Title = extraction.Title
	rule.SourceURL = doc.SourceURL
	rule.Passage = extraction.Passage.Text
	return rule, nil
}

// ProcessURL fetches a scheme page and processes it
func (p *Pipeline) ProcessURL(ctx context.Context, rawURL string) (*model.RuleDocument, error) {
	result, err := p.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	hint := p.detector.Detect(rawURL)
	if hint == "" && result.FinalURL != rawURL {
		hint = p.detector.Detect(result.FinalURL)
	}

	rule, err := p.Process(model.RawDocument{
		SchemeID:         SchemeIDFromURL(rawURL),
		SourceURL:        rawURL,
		Content:          result.Content,
		Format:           result.Format,
		JurisdictionHint: hint,
	})
	if err != nil {
		return nil, err
	}
	rule.ContentHash = result.Fingerprint
	p.logger.Debug("rule extracted",
		zap.String("scheme_id", rule.SchemeID),
		zap.String("content_hash", result.Fingerprint),
		zap.Bool("from_cache", result.FromCache),
	)
	return rule, nil
}

// Match evaluates profile against one rule
func (p *Pipeline) Match(profile model.UserProfile, rule *model.RuleDocument) model.MatchResult {
	return p.matcher.Match(profile, rule)
}

// MatchAll evaluates profile against every rule, ranked
func (p *Pipeline) MatchAll(profile model.UserProfile, rules []*model.RuleDocument) []model.MatchResult {
	return p.matcher.MatchAll(profile, rules)
}

// ExplainEnabled reports whether Explain will call a provider
func (p *Pipeline) ExplainEnabled() bool {
	return p.explainer.IsEnabled()
}

// Explain attaches an explanation to result. The verdict is left untouched.
func (p *Pipeline) Explain(ctx context.Context, rule *model.RuleDocument, result *model.MatchResult) error {
	if !p.explainer.IsEnabled() {
		return nil
	}
	explanation, err := p.explainer.Explain(ctx, rule, *result)
	if err != nil {
		return err
	}
	result.Explanation = explanation
	return nil
}

// SchemeIDFromURL derives a scheme id from the last path segment of a URL
// (or the host when the path is empty) plus a short hash of the whole URL,
// so pages that share a final segment or differ only in the query get
// distinct ids
func SchemeIDFromURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	short := cache.ShortHash(rawURL)

	u, err := url.Parse(rawURL)
	if err != nil {
		return joinID(model.Slug(rawURL), short)
	}

	last := path.Base(strings.TrimRight(u.Path, "/"))
	if last != "." && last != "/" && last != "" {
		last = strings.TrimSuffix(last, path.Ext(last))
		if slug := model.Slug(last); slug != "" {
			return joinID(slug, short)
		}
	}
	return joinID(model.Slug(u.Hostname()), short)
}

func joinID(slug, short string) string {
	if slug == "" {
		return short
	}
	return slug + "-" + short
}

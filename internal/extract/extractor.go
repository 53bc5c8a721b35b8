package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/yojana/internal/logger"
	"github.com/ppiankov/yojana/internal/model"
)

// ErrNoPassage means no strategy located eligibility text
var ErrNoPassage = errors.New("no eligibility passage found")

// eligibilityTerm marks keyword-path text that talks about eligibility even
// when no criterion could be read from it
var eligibilityTerm = regexp.MustCompile(`(?i)\beligib(?:le|ility)\b|\bwho can apply\b`)

// ExtractionFailure reports a document that yielded no eligibility passage
type ExtractionFailure struct {
	SchemeID string
	Source   string
	Tried    []string // Strategy names attempted, in order
	Err      error
}

func (e *ExtractionFailure) Error() string {
	src := e.SchemeID
	if e.Source != "" {
		src = e.Source
	}
	return fmt.Sprintf("extract %s: %v (tried: %s)", src, e.Err, strings.Join(e.Tried, ", "))
}

func (e *ExtractionFailure) Unwrap() error {
	return e.Err
}

// Extraction is the located passage and the candidate criteria found in it
type Extraction struct {
	Title      string
	Passage    Passage
	Criteria   []model.Criterion
	Confidence model.Confidence
}

// Extractor turns raw page content into candidate criteria
type Extractor struct {
	strategies      []Strategy
	maxPassageChars int
	logger          *zap.Logger
}

// NewExtractor creates an extractor using the given default strategies.
// A nil or empty list means DefaultStrategies.
func NewExtractor(strategies []Strategy, maxPassageChars int, log *zap.Logger) *Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Extractor{
		strategies:      strategies,
		maxPassageChars: maxPassageChars,
		logger:          logger.OrNop(log),
	}
}

// Extract runs the default strategies over doc
func (e *Extractor) Extract(doc model.RawDocument) (*Extraction, error) {
	return e.ExtractWith(doc, nil)
}

// ExtractWith tries prefix strategies first, then the extractor's defaults
func (e *Extractor) ExtractWith(doc model.RawDocument, prefix []Strategy) (*Extraction, error) {
	page, err := Flatten(doc)
	if err != nil {
		return nil, fmt.Errorf("flatten %s: %w", doc.SchemeID, err)
	}

	strategies := make([]Strategy, 0, len(prefix)+len(e.strategies))
	strategies = append(strategies, prefix...)
	strategies = append(strategies, e.strategies...)

	var tried []string
	for _, s := range strategies {
		tried = append(tried, s.Name())
		passage, ok := s.Attempt(page.Blocks)
		if !ok || strings.TrimSpace(passage.Text) == "" {
			e.logger.Debug("strategy found nothing",
				zap.String("scheme_id", doc.SchemeID),
				zap.String("strategy", s.Name()),
			)
			continue
		}

		passage.Text = e.clip(passage.Text)
		if passage.Path == model.PathKeyword && !aboutEligibility(passage.Text) {
			e.logger.Debug("keyword passage rejected",
				zap.String("scheme_id", doc.SchemeID),
				zap.String("passage_preview", logger.TruncateForLog(passage.Text, 120)),
			)
			continue
		}
		candidates := MatchCriteria(passage.Text, doc.JurisdictionHint)

		confidence := passage.Path.Confidence()
		if candidates.Heuristic {
			confidence = model.ConfidenceHeuristic
		}

		e.logger.Debug("passage located",
			zap.String("scheme_id", doc.SchemeID),
			zap.String("strategy", s.Name()),
			zap.Int("criteria", len(candidates.Criteria)),
			zap.String("passage_preview", logger.TruncateForLog(passage.Text, 120)),
		)

		title := doc.Title
		if title == "" {
			title = page.Title
		}
		return &Extraction{
			Title:      title,
			Passage:    passage,
			Criteria:   candidates.Criteria,
			Confidence: confidence,
		}, nil
	}

	return nil, &ExtractionFailure{
		SchemeID: doc.SchemeID,
		Source:   doc.SourceURL,
		Tried:    tried,
		Err:      ErrNoPassage,
	}
}

// aboutEligibility reports whether a keyword-path passage yields a
// structured criterion on its own or names eligibility outright. The
// jurisdiction hint is left out so a page's host cannot carry it.
func aboutEligibility(text string) bool {
	if eligibilityTerm.MatchString(text) {
		return true
	}
	for _, c := range MatchCriteria(text, "").Criteria {
		if c.Kind != model.KindOtherFreeText {
			return true
		}
	}
	return false
}

// clip limits passage length on a rune boundary
func (e *Extractor) clip(text string) string {
	if e.maxPassageChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= e.maxPassageChars {
		return text
	}
	return string(runes[:e.maxPassageChars])
}

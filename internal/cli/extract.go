package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/yojana/internal/extract"
	"github.com/ppiankov/yojana/internal/model"
	"github.com/ppiankov/yojana/internal/pipeline"
	"github.com/ppiankov/yojana/internal/store"
)

var (
	extractOutDir  string
	extractStore   string
	extractTimeout time.Duration
	noCache        bool
	insecureTLS    bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <file|url>...",
	Short: "Extract eligibility rules from scheme pages",
	Long: `Extract reads scheme descriptions and turns each into a RuleDocument:
- Locate the eligibility passage (page adapter, heading, keyword fallback)
- Extract criteria phrases (income, age, residency, category, gender, occupation)
- Normalize them into typed clauses, one per kind

Arguments starting with http:// or https:// are fetched; anything else is
read as a local file (.html, .md, .txt). The scheme id is taken from the
file name or the last URL path segment.

Example:
  yojana extract pm-kisan.html
  yojana extract https://www.myscheme.gov.in/schemes/pm-kisan --store .yojana/rules
  yojana extract pages/*.md --out-dir ./rules`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractOutDir, "out-dir", "", "write <schemeId>.json files to this directory")
	extractCmd.Flags().StringVar(&extractStore, "store", "", "persist rules to this store directory")
	extractCmd.Flags().DurationVar(&extractTimeout, "timeout", 2*time.Minute, "overall timeout")
	extractCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
	extractCmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if noCache {
		cfg.Cache.Enabled = false
	}
	if insecureTLS {
		cfg.HTTP.InsecureTLS = true
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), extractTimeout)
	defer cancel()

	var fs *store.FileStore
	if extractStore != "" {
		storeCfg := cfg.Store
		storeCfg.Directory = extractStore
		if fs, err = store.Open(storeCfg); err != nil {
			return err
		}
	}
	if extractOutDir != "" {
		if err := os.MkdirAll(extractOutDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	p := pipeline.NewPipeline(cfg, log)

	failed := 0
	for _, arg := range args {
		rule, err := extractOne(ctx, p, arg)
		if err != nil {
			failed++
			var failure *extract.ExtractionFailure
			if errors.As(err, &failure) {
				fmt.Fprintf(os.Stderr, "- %s: skipped, %v\n", arg, err)
			} else {
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", arg, err)
			}
			continue
		}

		if err := emitRule(rule, fs); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", arg, err)
			continue
		}

		log.Info("extracted", zap.String("scheme", rule.SchemeID), zap.Int("criteria", len(rule.Criteria)),
			zap.String("confidence", string(rule.Confidence)))
		if fs != nil || extractOutDir != "" {
			fmt.Fprintf(os.Stderr, "✓ %s: %d criteria (%s confidence)\n", rule.SchemeID, len(rule.Criteria), rule.Confidence)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents produced no rule", failed, len(args))
	}
	return nil
}

func extractOne(ctx context.Context, p *pipeline.Pipeline, arg string) (*model.RuleDocument, error) {
	if isURL(arg) {
		return p.ProcessURL(ctx, arg)
	}

	doc, err := readDocument(arg)
	if err != nil {
		return nil, err
	}
	return p.Process(doc)
}

// emitRule writes rule to the out dir and the store, or to stdout when
// neither is configured
func emitRule(rule *model.RuleDocument, fs *store.FileStore) error {
	data, err := json.MarshalIndent(rule, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal rule: %w", err)
	}

	if extractOutDir == "" && fs == nil {
		fmt.Println(string(data))
		return nil
	}
	if extractOutDir != "" {
		path := filepath.Join(extractOutDir, rule.SchemeID+".json")
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if fs != nil {
		if err := fs.Put(rule); err != nil {
			return fmt.Errorf("store %s: %w", rule.SchemeID, err)
		}
	}
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// readDocument loads a local scheme page, taking the scheme id from the
// file name and the format from its extension
func readDocument(path string) (model.RawDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.RawDocument{}, fmt.Errorf("read %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	doc := model.RawDocument{
		SchemeID: model.Slug(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))),
		Content:  string(data),
	}
	switch ext {
	case ".html", ".htm":
		doc.Format = model.FormatHTML
	case ".md", ".markdown":
		doc.Format = model.FormatMarkdown
	case ".txt":
		doc.Format = model.FormatText
	}
	return doc, nil
}

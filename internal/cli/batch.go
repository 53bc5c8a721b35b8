package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/yojana/internal/model"
	"github.com/ppiankov/yojana/internal/pipeline"
	"github.com/ppiankov/yojana/internal/store"
	"github.com/ppiankov/yojana/internal/worker"
)

var (
	concurrency  int
	batchStore   string
	runsDir      string
	batchTimeout time.Duration
	rateLimit    float64
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <seed-file>",
	Short: "Fetch and extract many scheme pages in parallel",
	Long: `Batch processes a list of scheme page URLs concurrently:
- Read URLs from the seed file (one per line, or CSV with a "url" column)
- Fetch each page with per-domain rate limiting and robots.txt checks
- Extract and normalize eligibility rules
- Persist every rule to the store and write a run-<id>.json summary

Pages without an eligibility section are skipped, not failed.

Example:
  yojana batch seeds.txt
  yojana batch schemes.csv --concurrency 8 --store ./rules
  yojana batch seeds.txt --rate 0.5 --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVar(&batchStore, "store", "", "rule store directory (default from config)")
	batchCmd.Flags().StringVar(&runsDir, "runs-dir", ".yojana/runs", "directory for run-<id>.json records")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().Float64Var(&rateLimit, "rate", 0, "requests per second per domain (default from config)")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
}

// storingProcessor persists every rule it produces; a store error fails
// the document
type storingProcessor struct {
	worker.Processor
	store *store.FileStore
}

func (s *storingProcessor) ProcessURL(ctx context.Context, url string) (*model.RuleDocument, error) {
	rule, err := s.Processor.ProcessURL(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(rule); err != nil {
		return nil, fmt.Errorf("store %s: %w", rule.SchemeID, err)
	}
	return rule, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}
	if rateLimit > 0 {
		cfg.RateLimiting.RequestsPerSecond = rateLimit
	}
	if batchStore != "" {
		cfg.Store.Directory = batchStore
	}
	if noCache {
		cfg.Cache.Enabled = false
	}

	urls, err := worker.ReadURLsFromFile(file)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	fs, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		return fmt.Errorf("create runs directory: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Yojana Batch Extraction\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Seed file:    %s (%d URLs)\n", file, len(urls))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Rate:         %.2f req/s per domain\n", cfg.RateLimiting.RequestsPerSecond)
	fmt.Fprintf(os.Stderr, "  Store:        %s\n", fs.Dir())
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	p := pipeline.NewPipeline(cfg, log)
	processor := worker.NewBatchProcessorFromConfig(&storingProcessor{Processor: p, store: fs}, cfg, log)

	run := model.NewBatchRun(len(urls))
	results := processor.Run(ctx, urls, run)
	run.Finish()

	for _, result := range results {
		switch {
		case result.Error == nil:
			fmt.Fprintf(os.Stderr, "✓ %s (%d criteria, %s)\n", result.Document.SchemeID, len(result.Document.Criteria), result.Document.Confidence)
		case result.Skipped():
			fmt.Fprintf(os.Stderr, "- %s: no eligibility section\n", result.URL)
		default:
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.URL, result.Error)
		}
	}

	runPath := filepath.Join(runsDir, "run-"+run.ID+".json")
	if err := writeRun(run, runPath); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d URLs\n", run.Total)
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", run.Succeeded)
	fmt.Fprintf(os.Stderr, "  Skipped:   %d\n", run.Skipped)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", run.Failed)
	fmt.Fprintf(os.Stderr, "  Duration:  %v\n", run.Duration().Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  Run:       %s\n", runPath)
	fmt.Fprintf(os.Stderr, "\n")

	if ctx.Err() != nil {
		return fmt.Errorf("batch interrupted: %w", ctx.Err())
	}
	return nil
}

func writeRun(run *model.BatchRun, path string) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write run record: %w", err)
	}
	return nil
}

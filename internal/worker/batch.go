package worker

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/yojana/internal/extract"
	"github.com/ppiankov/yojana/internal/logger"
	"github.com/ppiankov/yojana/internal/model"
)

// Processor turns a scheme page URL into a RuleDocument
type Processor interface {
	ProcessURL(ctx context.Context, url string) (*model.RuleDocument, error)
}

// URLJob processes one URL after waiting for its domain's rate limit
type URLJob struct {
	URL       string
	Processor Processor
	Limiter   *Limiter
}

// Execute executes the job
func (j *URLJob) Execute(ctx context.Context) Result {
	start := time.Now()
	result := &URLResult{URL: j.URL}

	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.URL); err != nil {
			result.Error = fmt.Errorf("rate limit: %w", err)
			return result
		}
	}

	result.Document, result.Error = j.Processor.ProcessURL(ctx, j.URL)
	result.Duration = time.Since(start)
	return result
}

// URLResult is the outcome of one URLJob
type URLResult struct {
	URL      string
	Document *model.RuleDocument
	Error    error
	Duration time.Duration
}

// GetError returns the error from the result
func (r *URLResult) GetError() error {
	return r.Error
}

// Skipped reports whether the page simply had no eligibility section
func (r *URLResult) Skipped() bool {
	var failure *extract.ExtractionFailure
	return errors.As(r.Error, &failure)
}

// BatchProcessor processes multiple URLs concurrently
type BatchProcessor struct {
	processor   Processor
	concurrency int
	queueSize   int
	limiter     *Limiter
	logger      *zap.Logger
}

// NewBatchProcessor creates a new batch processor. A requestsPerSecond of
// zero or less disables rate limiting.
func NewBatchProcessor(processor Processor, concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	var limiter *Limiter
	if requestsPerSecond > 0 {
		limiter = NewLimiter(requestsPerSecond, burst)
	}
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
		limiter:     limiter,
		logger:      zap.NewNop(),
	}
}

// NewBatchProcessorFromConfig builds a processor from the concurrency and
// rate limiting settings, including per-domain overrides
func NewBatchProcessorFromConfig(processor Processor, cfg *model.Config, log *zap.Logger) *BatchProcessor {
	b := NewBatchProcessor(processor, cfg.Concurrency.Workers, cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.Burst)
	b.queueSize = cfg.Concurrency.QueueSize
	b.logger = logger.OrNop(log)
	if b.limiter != nil {
		for domain, rps := range cfg.RateLimiting.PerDomain {
			b.limiter.SetDomainRate(domain, rps, cfg.RateLimiting.Burst)
		}
	}
	return b
}

// ProcessURLs processes multiple URLs concurrently. Results are in
// completion order.
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string) []*URLResult {
	return b.Run(ctx, urls, nil)
}

// Run processes urls and records every outcome in run, when given
func (b *BatchProcessor) Run(ctx context.Context, urls []string, run *model.BatchRun) []*URLResult {
	if len(urls) == 0 {
		return []*URLResult{}
	}

	pool := NewPool(b.concurrency, b.queueSize)
	pool.Start(ctx)

	submitted := 0
	for _, url := range urls {
		if !pool.Submit(&URLJob{URL: url, Processor: b.processor, Limiter: b.limiter}) {
			break
		}
		submitted++
	}

	results := pool.Wait()

	urlResults := make([]*URLResult, 0, len(urls))
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		res := r.(*URLResult)
		seen[res.URL] = true
		urlResults = append(urlResults, res)
	}
	// Jobs never submitted or dropped on cancellation still get a result
	for _, url := range urls {
		if !seen[url] {
			err := ctx.Err()
			if err == nil {
				err = errors.New("not processed")
			}
			urlResults = append(urlResults, &URLResult{URL: url, Error: err})
		}
	}

	for _, res := range urlResults {
		b.record(run, res)
	}
	if submitted < len(urls) {
		b.logger.Warn("batch interrupted", zap.Int("submitted", submitted), zap.Int("total", len(urls)))
	}

	return urlResults
}

func (b *BatchProcessor) record(run *model.BatchRun, res *URLResult) {
	switch {
	case res.Error == nil:
		fields := []zap.Field{zap.String("url", res.URL), zap.Duration("took", res.Duration)}
		if res.Document != nil {
			fields = append(fields, zap.Int("criteria", len(res.Document.Criteria)))
		}
		b.logger.Info("processed", fields...)
		if run != nil {
			run.RecordSuccess()
		}
	case res.Skipped():
		b.logger.Info("skipped", zap.String("url", res.URL), zap.Error(res.Error))
		if run != nil {
			run.RecordSkip(res.URL, res.Error)
		}
	default:
		b.logger.Warn("failed", zap.String("url", res.URL), zap.Error(res.Error))
		if run != nil {
			run.RecordFailure(res.URL, res.Error)
		}
	}
}

// ProcessFile reads URLs from a seed file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*URLResult, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read URLs: %w", err)
	}

	return b.ProcessURLs(ctx, urls), nil
}

// ReadURLsFromFile reads URLs from a seed file: one per line, or CSV
// whose header has a "url" column
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := bufio.NewReader(file)
	header, err := firstContentLine(reader)
	if err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	if header == "" {
		return nil, nil
	}

	if column := urlColumn(header); column >= 0 {
		return readCSV(reader, column)
	}
	return readLines(header, reader)
}

// firstContentLine skips blank and comment lines
func firstContentLine(r *bufio.Reader) (string, error) {
	for {
		line, err := r.ReadString('\n')
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			return trimmed, nil
		}
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", err
		}
	}
}

func urlColumn(header string) int {
	if !strings.Contains(header, ",") && !strings.EqualFold(header, "url") {
		return -1
	}
	fields, err := csv.NewReader(strings.NewReader(header)).Read()
	if err != nil {
		return -1
	}
	for i, f := range fields {
		if strings.EqualFold(strings.TrimSpace(f), "url") {
			return i
		}
	}
	return -1
}

func readCSV(r io.Reader, column int) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	var urls []string
	seen := make(map[string]bool)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if column >= len(record) {
			continue
		}
		url := strings.TrimSpace(record[column])
		if url != "" && !seen[url] {
			seen[url] = true
			urls = append(urls, url)
		}
	}
	return urls, nil
}

func readLines(first string, r io.Reader) ([]string, error) {
	urls := []string{first}
	seen := map[string]bool{first: true}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}

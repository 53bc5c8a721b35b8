package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/yojana/internal/extract"
	"github.com/ppiankov/yojana/internal/model"
)

// MockProcessor implements Processor
type MockProcessor struct {
	ShouldError bool
	NoPassage   map[string]bool
}

func (m *MockProcessor) ProcessURL(ctx context.Context, url string) (*model.RuleDocument, error) {
	time.Sleep(10 * time.Millisecond) // Simulate work
	if m.ShouldError {
		return nil, errors.New("fetch error")
	}
	if m.NoPassage[url] {
		return nil, &extract.ExtractionFailure{Source: url, Tried: []string{"heading", "keyword"}, Err: extract.ErrNoPassage}
	}
	return &model.RuleDocument{
		SchemaVersion: model.SchemaVersion,
		SchemeID:      model.Slug(url),
		SourceURL:     url,
		Criteria:      []model.Criterion{model.NewCriterion(model.KindAgeMin, model.Number(18), "")},
		Combination:   model.CombinationAll,
		Confidence:    model.ConfidenceHigh,
	}, nil
}

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessURLs(t *testing.T) {
	processor := NewBatchProcessor(&MockProcessor{}, 2, 0, 0)

	urls := []string{"http://a.gov.in/scheme", "http://b.gov.in/scheme", "http://c.gov.in/scheme"}
	results := processor.ProcessURLs(context.Background(), urls)

	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}

	for _, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.URL, res.Error)
			continue
		}
		if res.Document == nil || res.Document.SourceURL != res.URL {
			t.Errorf("expected document for %s", res.URL)
		}
	}
}

func TestBatchProcessor_ProcessURLs_Error(t *testing.T) {
	processor := NewBatchProcessor(&MockProcessor{ShouldError: true}, 2, 0, 0)

	results := processor.ProcessURLs(context.Background(), []string{"http://example.gov.in"})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Error == nil {
		t.Error("expected error, got nil")
	}
	if results[0].Document != nil {
		t.Error("expected nil document on error")
	}
	if results[0].Skipped() {
		t.Error("fetch errors are failures, not skips")
	}
}

func TestBatchProcessor_ProcessURLs_Empty(t *testing.T) {
	processor := NewBatchProcessor(&MockProcessor{}, 2, 0, 0)

	results := processor.ProcessURLs(context.Background(), []string{})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_RunRecordsOutcomes(t *testing.T) {
	processor := NewBatchProcessor(&MockProcessor{
		NoPassage: map[string]bool{"http://b.gov.in/news": true},
	}, 3, 100, 5)

	urls := []string{"http://a.gov.in/scheme", "http://b.gov.in/news", "http://c.gov.in/scheme"}
	run := model.NewBatchRun(len(urls))
	processor.Run(context.Background(), urls, run)
	run.Finish()

	if run.Succeeded != 2 || run.Skipped != 1 || run.Failed != 0 {
		t.Errorf("expected 2 succeeded, 1 skipped, 0 failed, got %d/%d/%d", run.Succeeded, run.Skipped, run.Failed)
	}
	if len(run.Failures) != 1 || !run.Failures[0].Skipped || run.Failures[0].Source != "http://b.gov.in/news" {
		t.Errorf("unexpected failures: %+v", run.Failures)
	}
}

func TestBatchProcessor_RunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := NewBatchProcessor(&MockProcessor{}, 1, 0, 0)
	urls := []string{"http://a.gov.in", "http://b.gov.in", "http://c.gov.in"}
	run := model.NewBatchRun(len(urls))
	results := processor.Run(ctx, urls, run)

	if len(results) != len(urls) {
		t.Fatalf("expected a result per URL, got %d", len(results))
	}
	if run.Succeeded+run.Failed+run.Skipped != len(urls) {
		t.Errorf("expected every URL recorded, got %+v", run)
	}
}

func TestBatchProcessor_FromConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.RateLimiting.PerDomain = map[string]float64{"slow.gov.in": 0.1}

	processor := NewBatchProcessorFromConfig(&MockProcessor{}, &cfg, nil)
	if processor.limiter == nil {
		t.Fatal("expected limiter from config")
	}
	if processor.queueSize != cfg.Concurrency.QueueSize {
		t.Errorf("expected queue size %d, got %d", cfg.Concurrency.QueueSize, processor.queueSize)
	}

	if !processor.limiter.Allow("http://slow.gov.in/a") {
		t.Error("first request to slow domain should pass")
	}
	// Burst from config is 2
	if !processor.limiter.Allow("http://slow.gov.in/b") {
		t.Error("second request within burst should pass")
	}
	if processor.limiter.Allow("http://slow.gov.in/c") {
		t.Error("third request to slow domain should be limited")
	}
}

func TestReadURLsFromFile(t *testing.T) {
	content := `http://example.gov.in
# comment
https://kerala.gov.in/scheme
   
http://tn.gov.in   `

	urls, err := ReadURLsFromFile(writeSeed(t, content))
	if err != nil {
		t.Fatalf("ReadURLsFromFile failed: %v", err)
	}

	expected := []string{"http://example.gov.in", "https://kerala.gov.in/scheme", "http://tn.gov.in"}
	if strings.Join(urls, " ") != strings.Join(expected, " ") {
		t.Errorf("expected %v, got %v", expected, urls)
	}
}

func TestReadURLsFromFile_CSV(t *testing.T) {
	content := `# seed list
scheme,url,state
Widow Pension,https://sjd.kerala.gov.in/scheme/widow,Kerala
"Old Age, Pension",https://tn.gov.in/scheme/oap,Tamil Nadu
Broken row
Duplicate,https://tn.gov.in/scheme/oap,Tamil Nadu
Empty,,Goa
`

	urls, err := ReadURLsFromFile(writeSeed(t, content))
	if err != nil {
		t.Fatalf("ReadURLsFromFile failed: %v", err)
	}

	expected := []string{"https://sjd.kerala.gov.in/scheme/widow", "https://tn.gov.in/scheme/oap"}
	if strings.Join(urls, " ") != strings.Join(expected, " ") {
		t.Errorf("expected %v, got %v", expected, urls)
	}
}

func TestReadURLsFromFile_SingleColumnCSV(t *testing.T) {
	urls, err := ReadURLsFromFile(writeSeed(t, "URL\nhttps://a.gov.in\nhttps://b.gov.in\n"))
	if err != nil {
		t.Fatalf("ReadURLsFromFile failed: %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://a.gov.in" {
		t.Errorf("unexpected URLs %v", urls)
	}
}

func TestReadURLsFromFile_NonExistent(t *testing.T) {
	_, err := ReadURLsFromFile("non_existent_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestURLResult_GetError(t *testing.T) {
	r1 := &URLResult{URL: "http://example.gov.in", Error: nil}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("fetch failed")
	r2 := &URLResult{URL: "http://example.gov.in", Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	content := "http://a.gov.in\nhttps://b.gov.in\n# comment\n\nhttp://c.gov.in\n"

	processor := NewBatchProcessor(&MockProcessor{}, 2, 0, 0)
	results, err := processor.ProcessFile(context.Background(), writeSeed(t, content))
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	processor := NewBatchProcessor(&MockProcessor{}, 2, 0, 0)

	_, err := processor.ProcessFile(context.Background(), "no_such_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ProcessFile_Empty(t *testing.T) {
	processor := NewBatchProcessor(&MockProcessor{}, 2, 0, 0)

	results, err := processor.ProcessFile(context.Background(), writeSeed(t, ""))
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results for empty file, got %d", len(results))
	}
}

func TestReadURLsFromFile_Deduplication(t *testing.T) {
	urls, err := ReadURLsFromFile(writeSeed(t, "http://example.gov.in\nhttp://example.gov.in"))
	if err != nil {
		t.Fatalf("ReadURLsFromFile failed: %v", err)
	}

	if len(urls) != 1 {
		t.Errorf("expected 1 URL after deduplication, got %d", len(urls))
	}
}

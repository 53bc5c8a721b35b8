package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ppiankov/yojana/internal/model"
	"github.com/ppiankov/yojana/internal/store"
)

func TestLoadConfig_FileAndEnv(t *testing.T) {
	conf = newViper()
	t.Cleanup(func() {
		conf = newViper()
		bindFlags()
		cfgFile = ""
	})

	cfgFile = filepath.Join(t.TempDir(), "config.yaml")
	content := `concurrency:
  workers: 9
rate_limiting:
  per_domain:
    www.myscheme.gov.in: 0.5
jurisdiction:
  domains:
    tnsocialwelfare.org: Tamil Nadu
`
	if err := os.WriteFile(cfgFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("YOJANA_HTTP_TIMEOUT", "45s")
	t.Setenv("YOJANA_EXTRACTION_PASSAGE_KEYWORDS", "income,age")

	initConfig()
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Concurrency.Workers != 9 {
		t.Errorf("Expected workers from file, got %d", cfg.Concurrency.Workers)
	}
	if cfg.HTTP.Timeout != 45*time.Second {
		t.Errorf("Expected timeout from env, got %v", cfg.HTTP.Timeout)
	}
	if want := []string{"income", "age"}; !reflect.DeepEqual(cfg.Extraction.PassageKeywords, want) {
		t.Errorf("Expected passage keywords %v, got %v", want, cfg.Extraction.PassageKeywords)
	}
	if cfg.RateLimiting.PerDomain["www.myscheme.gov.in"] != 0.5 {
		t.Errorf("Expected per-domain rate, got %v", cfg.RateLimiting.PerDomain)
	}
	if cfg.Jurisdiction.Domains["tnsocialwelfare.org"] != "Tamil Nadu" {
		t.Errorf("Expected jurisdiction domain, got %v", cfg.Jurisdiction.Domains)
	}

	defaults := model.DefaultConfig()
	if cfg.Store.Directory != defaults.Store.Directory {
		t.Errorf("Expected default store directory, got %q", cfg.Store.Directory)
	}
	if cfg.Concurrency.QueueSize != defaults.Concurrency.QueueSize {
		t.Errorf("Expected default queue size, got %d", cfg.Concurrency.QueueSize)
	}
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "g-test")

	tests := map[string]string{
		"openai": "sk-test",
		"OpenAI": "sk-test",
		"gemini": "g-test",
		"ollama": "",
	}
	for provider, want := range tests {
		if got := apiKeyFromEnv(provider); got != want {
			t.Errorf("apiKeyFromEnv(%q) = %q, want %q", provider, got, want)
		}
	}
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		id     string
		format model.Format
	}{
		{"PM Kisan.md", "pm-kisan", model.FormatMarkdown},
		{"widow_pension.HTML", "widow-pension", model.FormatHTML},
		{"notes.txt", "notes", model.FormatText},
		{"page", "page", model.FormatAuto},
	}

	for _, tt := range tests {
		path := filepath.Join(dir, tt.name)
		if err := os.WriteFile(path, []byte("Applicants aged 18 to 40 years."), 0o600); err != nil {
			t.Fatal(err)
		}

		doc, err := readDocument(path)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tt.name, err)
		}
		if doc.SchemeID != tt.id {
			t.Errorf("%s: expected id %q, got %q", tt.name, tt.id, doc.SchemeID)
		}
		if doc.Format != tt.format {
			t.Errorf("%s: expected format %q, got %q", tt.name, tt.format, doc.Format)
		}
	}

	if _, err := readDocument(filepath.Join(dir, "missing.md")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestIsURL(t *testing.T) {
	if !isURL("https://www.myscheme.gov.in/schemes/pm-kisan") || !isURL("http://localhost/x") {
		t.Error("Expected http(s) arguments to be URLs")
	}
	if isURL("pages/https.md") || isURL("ftp://example.com/a") {
		t.Error("Expected local paths not to be URLs")
	}
}

type stubProcessor struct {
	rule *model.RuleDocument
	err  error
}

func (s *stubProcessor) ProcessURL(ctx context.Context, url string) (*model.RuleDocument, error) {
	return s.rule, s.err
}

func TestStoringProcessor(t *testing.T) {
	fs := store.NewFileStore(t.TempDir(), nil)
	rule := &model.RuleDocument{
		SchemaVersion: model.SchemaVersion,
		SchemeID:      "youth",
		Criteria:      []model.Criterion{model.NewCriterion(model.KindAgeMax, model.Number(35), "up to 35 years")},
		Combination:   model.CombinationAll,
		Confidence:    model.ConfidenceHigh,
	}

	p := &storingProcessor{Processor: &stubProcessor{rule: rule}, store: fs}
	if _, err := p.ProcessURL(context.Background(), "https://example.gov.in/youth"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := fs.Get("youth"); err != nil {
		t.Errorf("Expected rule to be stored, got %v", err)
	}

	failing := &storingProcessor{Processor: &stubProcessor{err: errors.New("boom")}, store: fs}
	if _, err := failing.ProcessURL(context.Background(), "https://example.gov.in/x"); err == nil {
		t.Error("Expected processor error to pass through")
	}

	bad := &storingProcessor{Processor: &stubProcessor{rule: &model.RuleDocument{SchemeID: "../escape"}}, store: fs}
	if _, err := bad.ProcessURL(context.Background(), "https://example.gov.in/x"); !errors.Is(err, store.ErrInvalidID) {
		t.Errorf("Expected store error, got %v", err)
	}
}

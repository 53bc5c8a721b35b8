package extract

import (
	"testing"

	"github.com/ppiankov/yojana/internal/model"
)

func heading(level int, text string) Block {
	return Block{Kind: BlockHeading, Level: level, Text: text}
}

func text(s string, anchors ...string) Block {
	return Block{Kind: BlockText, Text: s, Anchors: anchors}
}

func TestHeadingStrategy_Section(t *testing.T) {
	blocks := []Block{
		heading(2, "Overview"),
		text("A"),
		heading(2, "Eligibility Criteria"),
		text("B"),
		heading(3, "Documents"),
		text("C"),
		heading(2, "Benefits"),
		text("D"),
	}

	s := NewHeadingStrategy(DefaultHeadingKeywords)
	passage, ok := s.Attempt(blocks)
	if !ok {
		t.Fatal("Expected passage, got none")
	}

	if passage.Text != "B\nDocuments\nC" {
		t.Errorf("Expected 'B\\nDocuments\\nC', got %q", passage.Text)
	}
	if passage.Path != model.PathHeading {
		t.Errorf("Expected path heading, got %s", passage.Path)
	}
}

func TestHeadingStrategy_EmptySectionFallsThrough(t *testing.T) {
	blocks := []Block{
		heading(2, "Eligibility"),
		heading(2, "Who can apply?"),
		text("Farmers only"),
	}

	passage, ok := NewHeadingStrategy(DefaultHeadingKeywords).Attempt(blocks)
	if !ok {
		t.Fatal("Expected passage from second heading")
	}
	if passage.Text != "Farmers only" {
		t.Errorf("Expected 'Farmers only', got %q", passage.Text)
	}
}

func TestHeadingStrategy_NoMatch(t *testing.T) {
	blocks := []Block{
		heading(2, "Eligibility"),
		heading(2, "Benefits"),
		text("Rs. 1000 per month"),
	}

	if _, ok := NewHeadingStrategy(DefaultHeadingKeywords).Attempt(blocks); ok {
		t.Error("Expected no passage when the only matching heading is empty")
	}
}

func TestHeadingStrategy_PseudoHeadingScope(t *testing.T) {
	blocks := []Block{
		heading(PseudoHeadingLevel, "Eligibility"),
		text("Women only"),
		heading(PseudoHeadingLevel, "Benefits"),
		text("Rs. 500"),
	}

	passage, ok := NewHeadingStrategy(DefaultHeadingKeywords).Attempt(blocks)
	if !ok {
		t.Fatal("Expected passage")
	}
	if passage.Text != "Women only" {
		t.Errorf("Expected 'Women only', got %q", passage.Text)
	}
}

func TestKeywordStrategy(t *testing.T) {
	blocks := []Block{
		heading(1, "Scheme"),
		text("Welcome to the portal. Annual income must be below Rs. 1 lakh."),
		text("Contact the district office."),
		text("Annual income must be below Rs. 1 lakh."),
	}

	passage, ok := NewKeywordStrategy(DefaultPassageKeywords).Attempt(blocks)
	if !ok {
		t.Fatal("Expected passage")
	}

	if passage.Text != "Annual income must be below Rs. 1 lakh." {
		t.Errorf("Unexpected passage %q", passage.Text)
	}
	if passage.Path.Confidence() != model.ConfidenceHeuristic {
		t.Errorf("Expected heuristic confidence for keyword path")
	}
}

func TestKeywordStrategy_WordBoundary(t *testing.T) {
	blocks := []Block{text("The agency manages storage.")}

	if _, ok := NewKeywordStrategy([]string{"age"}).Attempt(blocks); ok {
		t.Error("Expected 'age' not to match inside 'agency' or 'storage'")
	}
}

func TestAnchorStrategy(t *testing.T) {
	s := NewAnchorStrategy(`(?i)eligibility`)

	blocks := []Block{
		text("Benefit amount.", "details"),
		text("Must be a farmer.", "eligibility"),
		text("Land below 2 hectares.", "eligibility"),
	}
	passage, ok := s.Attempt(blocks)
	if !ok {
		t.Fatal("Expected passage")
	}
	if passage.Text != "Must be a farmer.\nLand below 2 hectares." {
		t.Errorf("Unexpected passage %q", passage.Text)
	}
	if passage.Path != model.PathAnchor {
		t.Errorf("Expected anchor path, got %s", passage.Path)
	}

	// Heading carrying the id itself
	blocks = []Block{
		{Kind: BlockHeading, Level: 2, Text: "Who may apply", ID: "eligibility-section"},
		text("Students of class 10."),
		heading(2, "Benefits"),
	}
	passage, ok = s.Attempt(blocks)
	if !ok || passage.Text != "Students of class 10." {
		t.Errorf("Expected heading id section, got %q (ok=%v)", passage.Text, ok)
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("Income below Rs. 2.5 lakh p.a. Age 18 years. Women only! Ok")

	want := []string{"Income below Rs. 2.5 lakh p.a.", "Age 18 years.", "Women only!"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d sentences, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sentence %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

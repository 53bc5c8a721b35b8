package extract

import (
	"testing"

	"github.com/ppiankov/yojana/internal/model"
)

func TestFlatten_HTML(t *testing.T) {
	doc := model.RawDocument{
		SchemeID: "test",
		Content: `
	<html>
	<head><title>PM Widow Pension</title><script>var x = 1;</script></head>
	<body>
		<nav>Home About</nav>
		<h1>Scheme</h1>
		<p>Intro text.</p>
		<h2 id="elig">Eligibility</h2>
		<ul>
			<li>Age 18-40 years</li>
			<li>Resident of Kerala</li>
		</ul>
		<p><strong>Benefits</strong></p>
		<p>Monthly pension.</p>
		<footer>Contact</footer>
	</body>
	</html>
	`,
	}

	page, err := Flatten(doc)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if page.Title != "PM Widow Pension" {
		t.Errorf("Expected title 'PM Widow Pension', got '%s'", page.Title)
	}

	expected := []Block{
		{Kind: BlockHeading, Level: 1, Text: "Scheme"},
		{Kind: BlockText, Text: "Intro text."},
		{Kind: BlockHeading, Level: 2, Text: "Eligibility", ID: "elig"},
		{Kind: BlockText, Text: "Age 18-40 years"},
		{Kind: BlockText, Text: "Resident of Kerala"},
		{Kind: BlockHeading, Level: PseudoHeadingLevel, Text: "Benefits"},
		{Kind: BlockText, Text: "Monthly pension."},
	}

	if len(page.Blocks) != len(expected) {
		t.Fatalf("Expected %d blocks, got %d: %+v", len(expected), len(page.Blocks), page.Blocks)
	}
	for i, want := range expected {
		got := page.Blocks[i]
		if got.Kind != want.Kind || got.Level != want.Level || got.Text != want.Text || got.ID != want.ID {
			t.Errorf("Block %d: expected %+v, got %+v", i, want, got)
		}
	}
}

func TestFlatten_Anchors(t *testing.T) {
	doc := model.RawDocument{
		Content: `<div id="details"><p>Benefit amount.</p></div>
<div id="eligibility"><p>Must be a farmer.</p><p>Land below 2 hectares.</p></div>`,
	}

	page, err := Flatten(doc)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var anchored []string
	for _, b := range page.Blocks {
		for _, a := range b.Anchors {
			if a == "eligibility" {
				anchored = append(anchored, b.Text)
			}
		}
	}

	if len(anchored) != 2 {
		t.Fatalf("Expected 2 blocks under #eligibility, got %d: %v", len(anchored), anchored)
	}
	if anchored[0] != "Must be a farmer." {
		t.Errorf("Expected first anchored block 'Must be a farmer.', got '%s'", anchored[0])
	}
}

func TestFlatten_Markdown(t *testing.T) {
	doc := model.RawDocument{
		Content: "# Scheme\n\n## Eligibility\n\n- Women aged 18 to 35\n- Income below Rs. 2 lakh\n",
	}

	page, err := Flatten(doc)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(page.Blocks) != 4 {
		t.Fatalf("Expected 4 blocks, got %d: %+v", len(page.Blocks), page.Blocks)
	}
	if !page.Blocks[1].IsHeading() || page.Blocks[1].Level != 2 || page.Blocks[1].Text != "Eligibility" {
		t.Errorf("Expected h2 'Eligibility', got %+v", page.Blocks[1])
	}
	if page.Blocks[2].Text != "Women aged 18 to 35" {
		t.Errorf("Expected list item text, got '%s'", page.Blocks[2].Text)
	}
}

func TestFlatten_ColonPseudoHeading(t *testing.T) {
	doc := model.RawDocument{
		Content: `<p>Eligibility Criteria:</p><p>Applicants must be residents of Goa.</p>`,
	}

	page, err := Flatten(doc)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(page.Blocks) != 2 {
		t.Fatalf("Expected 2 blocks, got %d", len(page.Blocks))
	}
	if !page.Blocks[0].IsHeading() || page.Blocks[0].Text != "Eligibility Criteria" {
		t.Errorf("Expected pseudo-heading 'Eligibility Criteria', got %+v", page.Blocks[0])
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		doc  model.RawDocument
		want model.Format
	}{
		{model.RawDocument{Content: "<p>hello</p>"}, model.FormatHTML},
		{model.RawDocument{Content: "<HTML><BODY>x</BODY></HTML>"}, model.FormatHTML},
		{model.RawDocument{Content: "## Eligibility\n\n- farmers"}, model.FormatMarkdown},
		{model.RawDocument{Content: "income < 5 lakh"}, model.FormatMarkdown},
		{model.RawDocument{Content: "<p>x</p>", Format: model.FormatText}, model.FormatText},
	}

	for _, tt := range tests {
		if got := tt.doc.DetectFormat(); got != tt.want {
			t.Errorf("DetectFormat(%q) = %s, expected %s", tt.doc.Content, got, tt.want)
		}
	}
}

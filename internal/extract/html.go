package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"

	"github.com/ppiankov/yojana/internal/model"
)

// BlockKind distinguishes headings from body text
type BlockKind int

const (
	BlockText BlockKind = iota
	BlockHeading
)

// PseudoHeadingLevel is the level given to bold-only paragraphs.
// It ranks below every real heading.
const PseudoHeadingLevel = 7

// Block is one unit of flattened page content
type Block struct {
	Kind    BlockKind
	Level   int      // 1-6 for h1-h6, PseudoHeadingLevel for bold paragraphs
	Text    string   // Whitespace-collapsed text
	ID      string   // id attribute of the heading element itself
	Anchors []string // id attributes of enclosing elements, outermost first
}

// IsHeading reports whether the block is a heading or pseudo-heading
func (b Block) IsHeading() bool {
	return b.Kind == BlockHeading
}

// Page is a flattened document
type Page struct {
	Title  string
	Blocks []Block
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Flatten converts a raw document into an ordered list of blocks.
// Markdown and plain text are rendered to HTML first.
func Flatten(doc model.RawDocument) (*Page, error) {
	content := doc.Content
	if doc.DetectFormat() != model.FormatHTML {
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(content), &buf); err != nil {
			return nil, fmt.Errorf("render markdown: %w", err)
		}
		content = buf.String()
	}

	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	f := &flattener{}
	f.walk(root)
	f.flush()

	return &Page{Title: f.title, Blocks: f.blocks}, nil
}

type flattener struct {
	title   string
	blocks  []Block
	buf     strings.Builder
	anchors []string
}

func (f *flattener) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		f.buf.WriteString(n.Data)
		f.buf.WriteByte(' ')
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "nav", "footer", "template", "svg":
			return
		case "title":
			if f.title == "" {
				f.title = collapse(nodeText(n))
			}
			return
		case "br", "hr":
			f.flush()
			return
		case "h1", "h2", "h3", "h4", "h5", "h6":
			f.flush()
			if text := collapse(nodeText(n)); text != "" {
				f.blocks = append(f.blocks, Block{
					Kind:    BlockHeading,
					Level:   int(n.Data[1] - '0'),
					Text:    text,
					ID:      attr(n, "id"),
					Anchors: f.snapshot(),
				})
			}
			return
		}

		block := isBlockElement(n.Data)
		if block {
			f.flush()
			if text, ok := pseudoHeading(n); ok {
				f.blocks = append(f.blocks, Block{
					Kind:    BlockHeading,
					Level:   PseudoHeadingLevel,
					Text:    text,
					ID:      attr(n, "id"),
					Anchors: f.snapshot(),
				})
				return
			}
		}

		id := attr(n, "id")
		if id != "" {
			f.flush()
			f.anchors = append(f.anchors, id)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f.walk(c)
		}
		if id != "" || block {
			f.flush()
		}
		if id != "" {
			f.anchors = f.anchors[:len(f.anchors)-1]
		}
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		f.walk(c)
	}
}

// flush emits buffered inline text as a text block
func (f *flattener) flush() {
	text := collapse(f.buf.String())
	f.buf.Reset()
	if text == "" {
		return
	}
	f.blocks = append(f.blocks, Block{Kind: BlockText, Text: text, Anchors: f.snapshot()})
}

func (f *flattener) snapshot() []string {
	if len(f.anchors) == 0 {
		return nil
	}
	out := make([]string, len(f.anchors))
	copy(out, f.anchors)
	return out
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "li", "ul", "ol", "dl", "dt", "dd", "td", "th", "tr", "table",
		"section", "article", "main", "aside", "header", "blockquote", "pre", "body":
		return true
	}
	return false
}

// pseudoHeading reports whether a paragraph-like element holds only bold text,
// or is a short line ending in a colon.
func pseudoHeading(n *html.Node) (string, bool) {
	switch n.Data {
	case "p", "div", "li", "dt":
	default:
		return "", false
	}

	var boldText string
	boldOnly := true
	hasBold := false
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) == "":
			continue
		case c.Type == html.ElementNode && (c.Data == "strong" || c.Data == "b"):
			hasBold = true
			boldText += " " + nodeText(c)
		default:
			boldOnly = false
		}
	}
	if hasBold && boldOnly {
		if text := collapse(boldText); text != "" {
			return text, true
		}
	}

	if n.Data == "p" {
		text := collapse(nodeText(n))
		if strings.HasSuffix(text, ":") && len(text) <= 60 && !hasElementChild(n, "ul", "ol") {
			return strings.TrimSuffix(text, ":"), true
		}
	}
	return "", false
}

func hasElementChild(n *html.Node, tags ...string) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		for _, t := range tags {
			if c.Data == t {
				return true
			}
		}
	}
	return false
}

// nodeText returns all text beneath n
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "script" || c.Data == "style") {
			continue
		}
		buf.WriteString(nodeText(c))
		buf.WriteByte(' ')
	}
	return buf.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// collapse normalizes whitespace and bullet glyphs
func collapse(s string) string {
	s = bulletReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

var bulletReplacer = strings.NewReplacer("•", " ", "‣", " ", "◦", " ", "⁃", " ", "∙", " ")

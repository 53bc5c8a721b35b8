// Test program to demonstrate extraction and matching end to end.
// Runs the built-in sample schemes through the pipeline and matches a
// sample applicant against the resulting rules.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/yojana/internal/logger"
	"github.com/ppiankov/yojana/internal/model"
	"github.com/ppiankov/yojana/internal/pipeline"
)

func main() {
	fmt.Println("=== Sample Scheme Extraction ===")
	fmt.Println()

	log, err := logger.New(false, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	p := pipeline.NewPipeline(&cfg, log)

	var rules []*model.RuleDocument
	for _, doc := range pipeline.SampleSchemes() {
		fmt.Printf("Scheme: %s\n", doc.SchemeID)
		fmt.Println(strings.Repeat("-", 60))

		rule, err := p.Process(doc)
		if err != nil {
			fmt.Printf("  ✗ %v\n\n", err)
			continue
		}
		rules = append(rules, rule)

		data, err := json.MarshalIndent(rule.Criteria, "  ", "  ")
		if err != nil {
			fmt.Printf("  ✗ marshal: %v\n\n", err)
			continue
		}
		fmt.Printf("  confidence: %s\n", rule.Confidence)
		fmt.Printf("  criteria: %s\n\n", data)
	}

	profile := pipeline.SampleProfile()
	fmt.Println("=== Matching Sample Profile ===")
	fmt.Println()
	for _, field := range model.ProfileFields {
		if v, ok := profile[field]; ok {
			fmt.Printf("  %-10s %v\n", field, v)
		}
	}
	fmt.Println()

	for _, result := range p.MatchAll(profile, rules) {
		fmt.Printf("%-28s %-13s score %.2f coverage %.2f\n",
			result.SchemeID, result.Verdict, result.Score, result.Coverage)
		for _, c := range result.Clauses {
			state := "?"
			if c.Satisfied != nil {
				state = map[bool]string{true: "✓", false: "✗"}[*c.Satisfied]
			}
			fmt.Printf("    %s %s\n", state, c.Reason)
		}
	}

	fmt.Println("\n=== Test Complete ===")
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/yojana/internal/llm"
	"github.com/ppiankov/yojana/internal/model"
	"github.com/ppiankov/yojana/internal/pipeline"
	"github.com/ppiankov/yojana/internal/profile"
	"github.com/ppiankov/yojana/internal/store"
)

var (
	profilePath  string
	profilePairs []string
	matchScheme  string
	matchStore   string
	matchJSON    bool
	explain      bool
	llmProvider  string
	llmModel     string
	matchTimeout time.Duration
)

// matchCmd represents the match command
var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match a citizen profile against stored rules",
	Long: `Match evaluates a profile against every stored RuleDocument (or one,
with --scheme) and prints a verdict per scheme:
- eligible: every clause holds
- ineligible: at least one clause fails
- indeterminate: nothing fails but the profile lacks information

Profiles are JSON (comments allowed) or YAML files with the fields income,
age, state, category, gender and occupation. --set overrides single fields.

Example:
  yojana match --profile me.yaml
  yojana match --set income=2,40,000 --set age=34 --set state=Maharashtra
  yojana match --profile me.json --scheme pm-kisan --explain`,
	Args: cobra.NoArgs,
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringVar(&profilePath, "profile", "", "profile file (.json, .jsonc, .yaml)")
	matchCmd.Flags().StringArrayVar(&profilePairs, "set", nil, "profile field as key=value (repeatable)")
	matchCmd.Flags().StringVar(&matchScheme, "scheme", "", "match only this scheme id")
	matchCmd.Flags().StringVar(&matchStore, "store", "", "rule store directory (default from config)")
	matchCmd.Flags().BoolVar(&matchJSON, "json", false, "print results as JSON")
	matchCmd.Flags().DurationVar(&matchTimeout, "timeout", 2*time.Minute, "overall timeout")

	// LLM flags
	matchCmd.Flags().BoolVar(&explain, "explain", false, "add plain-language explanations (needs an LLM provider)")
	matchCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, gemini, ollama)")
	matchCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

func runMatch(cmd *cobra.Command, args []string) error {
	if profilePath == "" && len(profilePairs) == 0 {
		return fmt.Errorf("a profile is required: use --profile FILE or --set key=value")
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if matchStore != "" {
		cfg.Store.Directory = matchStore
	}
	applyLLMFlags(cfg)

	p, err := loadProfile()
	if err != nil {
		return err
	}
	for _, field := range profile.UnknownFields(p) {
		fmt.Fprintf(os.Stderr, "⚠ profile field %q is not used by any criterion\n", field)
	}

	fs, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}

	var rules []*model.RuleDocument
	if matchScheme != "" {
		rule, err := fs.Get(matchScheme)
		if err != nil {
			return err
		}
		rules = []*model.RuleDocument{rule}
	} else {
		var errs []error
		rules, errs = fs.List()
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "⚠ skipping unreadable rule: %v\n", err)
		}
		if len(rules) == 0 {
			return fmt.Errorf("no rules in %s: run 'yojana extract' or 'yojana batch' first", fs.Dir())
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), matchTimeout)
	defer cancel()

	pl := pipeline.NewPipeline(cfg, log)
	if explain {
		explainer, err := llm.NewExplainer(ctx, llm.ConfigFromModel(cfg.LLM, cfg.HTTP), log)
		if err != nil {
			return fmt.Errorf("explainer: %w", err)
		}
		pl.WithExplainer(explainer)
	}

	results := pl.MatchAll(p, rules)

	if pl.ExplainEnabled() {
		byID := make(map[string]*model.RuleDocument, len(rules))
		for _, rule := range rules {
			byID[rule.SchemeID] = rule
		}
		for i := range results {
			if err := pl.Explain(ctx, byID[results[i].SchemeID], &results[i]); err != nil {
				fmt.Fprintf(os.Stderr, "⚠ explanations stopped: %v\n", err)
				break
			}
		}
	}

	if matchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	printResults(results)
	return nil
}

func loadProfile() (model.UserProfile, error) {
	p := model.UserProfile{}
	if profilePath != "" {
		fromFile, err := profile.ReadFile(profilePath)
		if err != nil {
			return nil, err
		}
		p = fromFile
	}

	if len(profilePairs) > 0 {
		overrides, err := profile.ParsePairs(profilePairs)
		if err != nil {
			return nil, err
		}
		p = profile.Merge(p, overrides)
	}
	return p, nil
}

func applyLLMFlags(cfg *model.Config) {
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.APIKey = apiKeyFromEnv(llmProvider)
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
}

func printResults(results []model.MatchResult) {
	counts := make(map[model.Verdict]int)
	for _, r := range results {
		counts[r.Verdict]++

		name := r.SchemeID
		if r.Title != "" {
			name = fmt.Sprintf("%s (%s)", r.Title, r.SchemeID)
		}
		fmt.Printf("%s %s\n", verdictMark(r.Verdict), name)
		fmt.Printf("    verdict: %s  score: %.2f  coverage: %.2f\n", r.Verdict, r.Score, r.Coverage)

		for _, c := range r.Clauses {
			fmt.Printf("    %s %-20s %s\n", clauseMark(c), c.Kind, c.Reason)
		}

		if r.Explanation != nil {
			fmt.Println()
			for _, line := range strings.Split(strings.TrimSpace(r.Explanation.Text), "\n") {
				fmt.Printf("    %s\n", line)
			}
			if verbose {
				for _, w := range r.Explanation.Warnings {
					fmt.Printf("    ⚠ %s\n", w)
				}
			}
		}
		fmt.Println()
	}

	fmt.Printf("%d schemes: %d eligible, %d indeterminate, %d ineligible\n",
		len(results), counts[model.VerdictEligible], counts[model.VerdictIndeterminate], counts[model.VerdictIneligible])
}

func verdictMark(v model.Verdict) string {
	switch v {
	case model.VerdictEligible:
		return "✓"
	case model.VerdictIneligible:
		return "✗"
	default:
		return "?"
	}
}

func clauseMark(c model.ClauseResult) string {
	switch {
	case c.Satisfied == nil:
		return "?"
	case *c.Satisfied:
		return "✓"
	default:
		return "✗"
	}
}

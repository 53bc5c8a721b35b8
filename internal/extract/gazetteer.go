package extract

import (
	"regexp"
	"sort"
	"strings"
)

// States lists Indian states and union territories by canonical name
var States = []string{
	"Andhra Pradesh", "Arunachal Pradesh", "Assam", "Bihar", "Chhattisgarh",
	"Goa", "Gujarat", "Haryana", "Himachal Pradesh", "Jharkhand", "Karnataka",
	"Kerala", "Madhya Pradesh", "Maharashtra", "Manipur", "Meghalaya", "Mizoram",
	"Nagaland", "Odisha", "Punjab", "Rajasthan", "Sikkim", "Tamil Nadu",
	"Telangana", "Tripura", "Uttar Pradesh", "Uttarakhand", "West Bengal",
	"Andaman and Nicobar Islands", "Chandigarh",
	"Dadra and Nagar Haveli and Daman and Diu", "Delhi", "Jammu and Kashmir",
	"Ladakh", "Lakshadweep", "Puducherry",
}

// stateAliases maps alternative spellings to canonical names
var stateAliases = map[string]string{
	"orissa":                 "Odisha",
	"pondicherry":            "Puducherry",
	"uttaranchal":            "Uttarakhand",
	"tamilnadu":              "Tamil Nadu",
	"chattisgarh":            "Chhattisgarh",
	"new delhi":              "Delhi",
	"nct of delhi":           "Delhi",
	"j&k":                    "Jammu and Kashmir",
	"jammu & kashmir":        "Jammu and Kashmir",
	"andaman and nicobar":    "Andaman and Nicobar Islands",
	"andaman & nicobar":      "Andaman and Nicobar Islands",
	"dadra and nagar haveli": "Dadra and Nagar Haveli and Daman and Diu",
	"daman and diu":          "Dadra and Nagar Haveli and Daman and Diu",
	"west bengal state":      "West Bengal",
}

var (
	stateLookup  map[string]string
	statePattern *regexp.Regexp
)

func init() {
	stateLookup = make(map[string]string, len(States)+len(stateAliases))
	for _, s := range States {
		stateLookup[strings.ToLower(s)] = s
	}
	for alias, canonical := range stateAliases {
		stateLookup[alias] = canonical
	}

	names := make([]string, 0, len(stateLookup))
	for name := range stateLookup {
		names = append(names, name)
	}
	// Longest first so "New Delhi" wins over "Delhi"
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(n), " ", `\s+`)
	}
	statePattern = regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}

// CanonicalState returns the canonical name for a state or alias
func CanonicalState(name string) (string, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	s, ok := stateLookup[key]
	return s, ok
}

// stateMention is one gazetteer hit in text
type stateMention struct {
	State string
	Span  string
	Start int
}

// findStates returns distinct states named in text, in order of first mention
func findStates(text string) []stateMention {
	var out []stateMention
	seen := make(map[string]bool)
	for _, m := range statePattern.FindAllStringSubmatchIndex(text, -1) {
		span := text[m[2]:m[3]]
		state, ok := CanonicalState(span)
		if !ok || seen[state] {
			continue
		}
		seen[state] = true
		out = append(out, stateMention{State: state, Span: span, Start: m[2]})
	}
	return out
}

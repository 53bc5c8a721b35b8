package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/yojana/internal/model"
)

const maxAge = 120

var (
	ageUnit = `(years?|yrs?\.?)`

	ageBetweenPattern = regexp.MustCompile(`(?i)\b(aged?\s+(?:of\s+|group\s+of\s+|limit\s+)?)?(?:between|from)\s+(\d{1,3})\s*(?:years?\s+)?(?:-|–|—|to|and)\s*(\d{1,3})\b\s*` + ageUnit + `?`)
	ageRangePattern   = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:-|–|—|to)\s*(\d{1,3})\s*` + ageUnit)
	ageRangeAfterAge  = regexp.MustCompile(`(?i)\baged?\s*(?:limit|group|of)?\s*:?\s*(\d{1,3})\s*(?:-|–|—|to)\s*(\d{1,3})\b`)

	ageBoundPattern    = regexp.MustCompile(`(?i)\b(not\s+(?:be\s+)?)?(above|over|at\s+least|minimum(?:\s+age)?(?:\s+of)?|more\s+than|completed|exceeding|below|under|less\s+than|up\s*to|maximum(?:\s+age)?(?:\s+of)?)\s+(?:the\s+age\s+of\s+)?(\d{1,3})\b\s*` + ageUnit + `?`)
	ageMinAfterPattern = regexp.MustCompile(`(?i)\b(\d{1,3})\s*` + ageUnit + `(?:\s+of\s+age)?\s+(?:and|or)\s+(?:above|more|over|older)`)
	ageMaxAfterPattern = regexp.MustCompile(`(?i)\b(\d{1,3})\s*` + ageUnit + `(?:\s+of\s+age)?\s+(?:and|or)\s+(?:below|less|under|younger)`)
	ageWord            = regexp.MustCompile(`(?i)\bage[ds]?\b`)

	amount = `((?:₹|rs\.?|inr|rupees)\s*)?(\d[\d,]*(?:\.\d+)?)\s*(lakhs?|lacs?|lakh|crores?|cr|thousand|k)?\b`
	income = `(?:income|earnings?|earning|salary)`

	incomeBoundPattern = regexp.MustCompile(`(?i)\b` + income + `\b[^.;\n]{0,60}?\b(not\s+(?:be\s+)?)?(below|less\s+than|under|up\s*to|within|maximum\s+of|ceiling\s+of|limit\s+of|above|more\s+than|over|at\s+least|exceeding|exceeds?|minimum\s+of)\s*(?:of\s+)?` + amount)
	incomeLimitPattern = regexp.MustCompile(`(?i)\b` + income + `\s+(?:limit|ceiling|cap)\s*(?:is|of|:)?\s*` + amount)

	seniorCitizenPattern = regexp.MustCompile(`(?i)\bsenior\s+citizens?\b`)

	femalePattern = regexp.MustCompile(`(?i)\b(?:women|woman|female|females|girls?|widows?|mothers?|daughters?)\b`)
	malePattern   = regexp.MustCompile(`(?i)\b(?:men|man|male|males|boys?)\b`)

	notEligiblePattern = regexp.MustCompile(`(?i)([^.;\n]+?)\s+(?:(?:are|is)\s+not|(?:shall|will)\s+not\s+be)\s+(?:eligible|entitled)|\b(?:excluding|except(?:\s+for)?)\s+([^.;\n]+)`)
)

// categoryPatterns map reservation categories to canonical names.
// Acronyms are matched case-sensitively.
var categoryPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"SC", regexp.MustCompile(`\bSCs?\b|(?i:\bscheduled\s+castes?\b)`)},
	{"ST", regexp.MustCompile(`\bSTs?\b|(?i:\bscheduled\s+tribes?\b)`)},
	{"OBC", regexp.MustCompile(`\bOBCs?\b|(?i:\b(?:other\s+)?backward\s+class(?:es)?\b)`)},
	{"General", regexp.MustCompile(`\bUR\b|(?i:\bgeneral\s+(?:category|caste|class)\b|\bunreserved\b)`)},
	{"EWS", regexp.MustCompile(`\bEWS\b|(?i:\beconomically\s+weaker\s+sections?\b)`)},
	{"BPL", regexp.MustCompile(`\bBPL\b|(?i:\bbelow\s+(?:the\s+)?poverty\s+line\b)`)},
	{"Minority", regexp.MustCompile(`(?i)\bminorit(?:y|ies)\b`)},
	{"PwD", regexp.MustCompile(`\bPwDs?\b|(?i:\bpersons?\s+with\s+disabilit(?:y|ies)\b|\bdifferently[\s-]abled\b|\bdivyang(?:jan)?\b|\bdisabled\b)`)},
}

// Occupations is the fixed list of recognised occupations
var Occupations = []string{
	"farmer", "engineer", "software developer", "doctor", "nurse",
	"teacher", "professor", "student", "labourer", "laborer", "shopkeeper",
	"manager", "police", "soldier", "army", "government employee",
	"civil servant", "artisan", "fisherman", "driver", "chef",
	"electrician", "plumber", "carpenter", "accountant", "banker",
	"business owner", "entrepreneur", "cleaner", "security guard",
	"architect", "journalist", "photographer", "lawyer", "advocate",
	"researcher", "scientist", "delivery agent", "rickshaw puller",
	"tailor", "mechanic", "welder", "data entry operator", "clerk",
	"home maker", "homemaker", "housewife", "unemployed", "retired",
	"weaver", "street vendor", "construction worker", "income tax payer",
}

var occupationPattern = func() *regexp.Regexp {
	quoted := make([]string, len(Occupations))
	for i, o := range Occupations {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(o), " ", `\s+`)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)(?:s|es)?\b`)
}()

// occupationAliases fold spelling variants onto one name
var occupationAliases = map[string]string{
	"laborer":   "labourer",
	"homemaker": "home maker",
	"fishermen": "fisherman",
}

// Candidates is the raw output of pattern matching over a passage
type Candidates struct {
	Criteria  []model.Criterion
	Heuristic bool // An ambiguous phrase was mapped to a canonical value
}

// span is a half-open byte range already claimed by a match
type span struct{ start, end int }

type collector struct {
	text     string
	criteria []model.Criterion
	claimed  []span
	heur     bool
}

func (c *collector) add(kind model.Kind, v model.Value, start, end int) {
	c.criteria = append(c.criteria, model.NewCriterion(kind, v, c.text[start:end]))
}

func (c *collector) claim(start, end int) {
	c.claimed = append(c.claimed, span{start, end})
}

func (c *collector) overlaps(start, end int) bool {
	for _, s := range c.claimed {
		if start < s.end && s.start < end {
			return true
		}
	}
	return false
}

// MatchCriteria runs every pattern over passage and returns candidate criteria.
// hint is used for residency only when the passage names no state.
func MatchCriteria(passage, hint string) Candidates {
	c := &collector{text: passage}

	matchIncome(c)
	matchAges(c)
	matchResidency(c, hint)
	matchCategories(c)
	matchGender(c)
	matchOccupations(c)

	if len(c.criteria) == 0 || onlyHint(c.criteria, hint) {
		if text := strings.TrimSpace(passage); text != "" {
			c.criteria = append(c.criteria, model.NewCriterion(model.KindOtherFreeText, model.Text(text), text))
		}
	}

	return Candidates{Criteria: c.criteria, Heuristic: c.heur}
}

// onlyHint reports whether the sole criterion came from the jurisdiction hint
func onlyHint(criteria []model.Criterion, hint string) bool {
	return hint != "" && len(criteria) == 1 &&
		criteria[0].Kind == model.KindResidencyState && criteria[0].SourceSpan == hintSpan
}

func matchAges(c *collector) {
	text := c.text

	addRange := func(m []int, lo, hi int) {
		a, errA := strconv.Atoi(text[m[lo]:m[lo+1]])
		b, errB := strconv.Atoi(text[m[hi]:m[hi+1]])
		if errA != nil || errB != nil || a > b || b > maxAge {
			return
		}
		c.add(model.KindAgeMin, model.Number(float64(a)), m[0], m[1])
		c.add(model.KindAgeMax, model.Number(float64(b)), m[0], m[1])
		c.claim(m[0], m[1])
	}

	for _, m := range ageBetweenPattern.FindAllStringSubmatchIndex(text, -1) {
		hasPrefix := m[2] >= 0
		hasUnit := m[8] >= 0
		if !c.overlaps(m[0], m[1]) && (hasPrefix || hasUnit || ageContext(text, m[0])) {
			addRange(m, 4, 6)
		}
	}
	for _, m := range ageRangeAfterAge.FindAllStringSubmatchIndex(text, -1) {
		if !c.overlaps(m[0], m[1]) {
			addRange(m, 2, 4)
		}
	}
	for _, m := range ageRangePattern.FindAllStringSubmatchIndex(text, -1) {
		if !c.overlaps(m[0], m[1]) {
			addRange(m, 2, 4)
		}
	}

	trailing := func(p *regexp.Regexp, kind model.Kind) {
		for _, m := range p.FindAllStringSubmatchIndex(text, -1) {
			if c.overlaps(m[0], m[1]) {
				continue
			}
			if n, err := strconv.Atoi(text[m[2]:m[3]]); err == nil && n <= maxAge {
				c.add(kind, model.Number(float64(n)), m[0], m[1])
				c.claim(m[0], m[1])
			}
		}
	}
	trailing(ageMinAfterPattern, model.KindAgeMin)
	trailing(ageMaxAfterPattern, model.KindAgeMax)

	// groups: negation, comparator, digits, unit
	for _, m := range ageBoundPattern.FindAllStringSubmatchIndex(text, -1) {
		if c.overlaps(m[0], m[1]) {
			continue
		}
		hasUnit := m[8] >= 0
		if !hasUnit && !ageWord.MatchString(text[m[0]:m[1]]) && !ageContext(text, m[0]) {
			continue
		}
		n, err := strconv.Atoi(text[m[6]:m[7]])
		if err != nil || n > maxAge {
			continue
		}
		kind := model.KindAgeMin
		if isUpperBound(group(text, m, 2)) != (m[2] >= 0) {
			kind = model.KindAgeMax
		}
		c.add(kind, model.Number(float64(n)), m[0], m[1])
		c.claim(m[0], m[1])
	}

	for _, m := range seniorCitizenPattern.FindAllStringIndex(text, -1) {
		c.add(model.KindAgeMin, model.Number(60), m[0], m[1])
		c.heur = true
	}
}

// isUpperBound reports whether a comparator phrase caps a value
func isUpperBound(comparator string) bool {
	fields := strings.Fields(strings.ToLower(comparator))
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "below", "under", "less", "up", "upto", "within", "maximum", "ceiling", "limit":
		return true
	}
	return false
}

// ageContext reports whether "age" appears shortly before pos in the same clause
func ageContext(text string, pos int) bool {
	start := pos - 40
	if start < 0 {
		start = 0
	}
	window := text[start:pos]
	if i := strings.LastIndexAny(window, ".;\n"); i >= 0 {
		window = window[i+1:]
	}
	return ageWord.MatchString(window)
}

func matchIncome(c *collector) {
	text := c.text

	add := func(kind model.Kind, m []int, currencyGroup int) {
		currency := group(text, m, currencyGroup)
		digits := group(text, m, currencyGroup+1)
		unit := group(text, m, currencyGroup+2)
		n, ok := parseAmount(digits, unit)
		if !ok || (currency == "" && unit == "" && n < 1000) {
			return
		}
		c.add(kind, model.Number(n), m[0], m[1])
		c.claim(m[0], m[1])
	}

	// groups: negation, comparator, currency, digits, unit
	for _, m := range incomeBoundPattern.FindAllStringSubmatchIndex(text, -1) {
		kind := model.KindIncomeMin
		if isUpperBound(group(text, m, 2)) != (m[2] >= 0) {
			kind = model.KindIncomeMax
		}
		add(kind, m, 3)
	}
	for _, m := range incomeLimitPattern.FindAllStringSubmatchIndex(text, -1) {
		if !c.overlaps(m[0], m[1]) {
			add(model.KindIncomeMax, m, 1)
		}
	}
}

// group returns submatch i (1-based) or ""
func group(text string, m []int, i int) string {
	if 2*i+1 >= len(m) || m[2*i] < 0 {
		return ""
	}
	return text[m[2*i]:m[2*i+1]]
}

// parseAmount converts digits with Indian grouping and a unit into rupees
func parseAmount(digits, unit string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.ReplaceAll(digits, ",", ""), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	switch strings.ToLower(unit) {
	case "lakh", "lakhs", "lac", "lacs":
		n *= 1e5
	case "crore", "crores", "cr":
		n *= 1e7
	case "thousand", "k":
		n *= 1e3
	}
	return math.Round(n), true
}

// hintSpan marks a residency clause derived from the document's jurisdiction
const hintSpan = "jurisdiction hint"

func matchResidency(c *collector, hint string) {
	mentions := findStates(c.text)
	if len(mentions) == 0 {
		if state, ok := CanonicalState(hint); ok {
			c.criteria = append(c.criteria, model.NewCriterion(model.KindResidencyState, model.Set(state), hintSpan))
		} else if strings.TrimSpace(hint) != "" {
			c.criteria = append(c.criteria, model.NewCriterion(model.KindResidencyState, model.Set(hint), hintSpan))
		}
		return
	}

	states := make([]string, 0, len(mentions))
	spans := make([]string, 0, len(mentions))
	for _, m := range mentions {
		states = append(states, m.State)
		spans = append(spans, m.Span)
	}
	c.criteria = append(c.criteria, model.NewCriterion(model.KindResidencyState, model.Set(states...), strings.Join(spans, ", ")))
}

func matchCategories(c *collector) {
	var names, spans []string
	for _, cp := range categoryPatterns {
		if loc := cp.pattern.FindStringIndex(c.text); loc != nil {
			names = append(names, cp.name)
			spans = append(spans, c.text[loc[0]:loc[1]])
		}
	}
	if len(names) > 0 {
		c.criteria = append(c.criteria, model.NewCriterion(model.KindCategory, model.Set(names...), strings.Join(spans, ", ")))
	}
}

func matchGender(c *collector) {
	female := femalePattern.FindStringIndex(c.text)
	male := malePattern.FindStringIndex(c.text)
	switch {
	case female != nil && male != nil:
		// mixed mention carries no gender constraint
	case female != nil:
		c.add(model.KindGender, model.Text("female"), female[0], female[1])
	case male != nil:
		c.add(model.KindGender, model.Text("male"), male[0], male[1])
	}
}

func matchOccupations(c *collector) {
	excluded := make(map[string]string)
	var excludedOrder []string
	for _, m := range notEligiblePattern.FindAllStringSubmatchIndex(c.text, -1) {
		phrase := group(c.text, m, 1)
		if phrase == "" {
			phrase = group(c.text, m, 2)
		}
		for _, o := range occupationPattern.FindAllStringSubmatch(phrase, -1) {
			name := canonicalOccupation(o[1])
			if _, ok := excluded[name]; !ok {
				excluded[name] = c.text[m[0]:m[1]]
				excludedOrder = append(excludedOrder, name)
			}
		}
	}

	var included, spans []string
	seen := make(map[string]bool)
	for _, o := range occupationPattern.FindAllStringSubmatch(c.text, -1) {
		name := canonicalOccupation(o[1])
		if _, ex := excluded[name]; ex || seen[name] {
			continue
		}
		seen[name] = true
		included = append(included, name)
		spans = append(spans, o[0])
	}

	if len(included) > 0 {
		c.criteria = append(c.criteria, model.NewCriterion(model.KindOccupation, model.Set(included...), strings.Join(spans, ", ")))
	}
	if len(excludedOrder) > 0 {
		exSpans := make([]string, 0, len(excludedOrder))
		for _, name := range excludedOrder {
			exSpans = append(exSpans, strings.TrimSpace(excluded[name]))
		}
		c.criteria = append(c.criteria, model.NewCriterion(model.KindOccupationExcluded, model.Set(excludedOrder...), strings.Join(dedupeStrings(exSpans), "; ")))
	}
}

func canonicalOccupation(s string) string {
	name := strings.ToLower(strings.Join(strings.Fields(s), " "))
	if alias, ok := occupationAliases[name]; ok {
		return alias
	}
	return name
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Package section maps raw paper headings onto a fixed canonical taxonomy.
// Classification is pure and total: every chunk lands in exactly one
// canonical section, falling back to position-based inference and finally to
// the "Additional Content" bucket.
package section

import (
	"regexp"
	"sort"
	"strings"
)

// Name is a canonical section name.
type Name = string

const Fallback Name = "Additional Content"

// keywordEntry pairs a canonical name with its trigger keywords. Order
// matters: earlier entries win on ambiguous headings ("summary" hits
// Abstract before Conclusion, "analysis" hits Results before Discussion).
type keywordEntry struct {
	Canonical Name
	Keywords  []string
}

var keywordTable = []keywordEntry{
	{"Abstract", []string{"abstract", "summary"}},
	{"Introduction", []string{"introduction", "intro", "overview", "motivation"}},
	{"Background / Related Work", []string{"background", "related work", "literature review", "prior work"}},
	{"Methodology", []string{"methodology", "methods", "approach", "problem formulation"}},
	{"Architecture", []string{"architecture", "model", "framework", "design"}},
	{"Experiments", []string{"experiments", "experimental setup", "experiment design"}},
	{"Results / Evaluation", []string{"results", "evaluation", "performance", "analysis"}},
	{"Discussion", []string{"discussion", "analysis", "insights"}},
	{"Conclusion", []string{"conclusion", "concluding remarks", "summary and conclusions"}},
	{"Limitations", []string{"limitation", "limitations"}},
	{"Future Work", []string{"future work", "future directions", "outlook"}},
}

// Order is the fixed display order: keyword-table order with the fallback
// bucket always last.
var Order = buildOrder()

func buildOrder() []Name {
	names := make([]Name, 0, len(keywordTable)+1)
	for _, entry := range keywordTable {
		names = append(names, entry.Canonical)
	}
	return append(names, Fallback)
}

var orderIndex = buildOrderIndex()

func buildOrderIndex() map[Name]int {
	idx := make(map[Name]int, len(Order))
	for i, name := range Order {
		idx[name] = i
	}
	return idx
}

var outlinePrefix = regexp.MustCompile(`^\d+(\.\d+)*\s*`)

// Classify maps a heading path (coarse → fine) to a canonical section name.
// When the heading gives no signal, the chunk's relative position in the
// document decides.
func Classify(headingPath []string, chunkIndex, totalChunks int) Name {
	cleaned := make([]string, 0, len(headingPath))
	for _, part := range headingPath {
		part = strings.TrimSpace(outlinePrefix.ReplaceAllString(strings.TrimSpace(part), ""))
		if part != "" {
			cleaned = append(cleaned, strings.ToLower(part))
		}
	}
	if len(cleaned) == 0 {
		return inferFromPosition(chunkIndex, totalChunks)
	}

	// Most specific component first.
	for i := len(cleaned) - 1; i >= 0; i-- {
		if name, ok := matchKeywords(cleaned[i]); ok {
			return name
		}
	}
	if name, ok := matchKeywords(strings.Join(cleaned, " ")); ok {
		return name
	}
	return inferFromPosition(chunkIndex, totalChunks)
}

func matchKeywords(candidate string) (Name, bool) {
	for _, entry := range keywordTable {
		for _, keyword := range entry.Keywords {
			if strings.Contains(candidate, keyword) {
				return entry.Canonical, true
			}
		}
	}
	return "", false
}

// KeywordMatch reports the canonical section whose keyword appears in the
// given text, if any. Used for caption-based image placement.
func KeywordMatch(text string) (Name, bool) {
	return matchKeywords(strings.ToLower(text))
}

func inferFromPosition(chunkIndex, totalChunks int) Name {
	if totalChunks <= 0 {
		return Fallback
	}
	ratio := float64(chunkIndex) / float64(totalChunks)
	switch {
	case ratio <= 0.15:
		return "Introduction"
	case ratio <= 0.35:
		return "Methodology"
	case ratio <= 0.55:
		return "Architecture"
	case ratio <= 0.70:
		return "Experiments"
	case ratio <= 0.85:
		return "Results / Evaluation"
	case ratio <= 0.95:
		return "Discussion"
	default:
		return Fallback
	}
}

// Sort orders names canonically: known sections in enumeration order with
// Additional Content last, unknown names alphabetically after known ones.
func Sort(names []Name) {
	sort.SliceStable(names, func(i, j int) bool {
		return Less(names[i], names[j])
	})
}

// Less is the canonical ordering predicate.
func Less(a, b Name) bool {
	ai, aok := orderIndex[a]
	bi, bok := orderIndex[b]
	switch {
	case aok && bok:
		return ai < bi
	case aok:
		return true
	case bok:
		return false
	default:
		return strings.ToLower(a) < strings.ToLower(b)
	}
}

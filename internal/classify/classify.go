package classify

import (
	"strings"
)

// Tier is the complexity class of a question
type Tier string

const (
	TierSimple  Tier = "simple"
	TierComplex Tier = "complex"
)

// complexMarkers force the complex tier regardless of length
var complexMarkers = []string{
	"join", "subquery", "nested", "cte", "with clause", "union",
	"window", "over", "partition", "case when", "having", "rank",
	"multiple", "several", "each", "per ", "compare", "comparison",
	"trend", "ratio", "percentage", "correlation", "breakdown",
	"year over year", "month over month",
}

// simpleStarters mark short lookup or aggregate questions
var simpleStarters = []string{
	"total", "count", "how many", "sum", "list", "show", "average", "avg",
	"what is the", "max", "min",
}

const (
	simpleStarterMaxWords = 12
	shortQuestionMaxWords = 10
)

// Selector maps a question's complexity tier to a configured model name.
// Pure keyword and length heuristics; no model calls, fully
// deterministic.
type Selector struct {
	SimpleModel  string
	ComplexModel string
}

// New creates a selector for the given model names
func New(simpleModel, complexModel string) *Selector {
	return &Selector{SimpleModel: simpleModel, ComplexModel: complexModel}
}

// Classify assigns a complexity tier to a question
func Classify(question string) Tier {
	q := strings.ToLower(strings.TrimSpace(question))
	words := len(strings.Fields(q))

	for _, marker := range complexMarkers {
		if strings.Contains(q, marker) {
			return TierComplex
		}
	}

	for _, starter := range simpleStarters {
		if strings.HasPrefix(q, starter) && words <= simpleStarterMaxWords {
			return TierSimple
		}
	}

	if words <= shortQuestionMaxWords {
		return TierSimple
	}

	return TierComplex
}

// ModelFor returns the model name for a question along with its tier
func (s *Selector) ModelFor(question string) (string, Tier) {
	tier := Classify(question)
	if tier == TierSimple {
		return s.SimpleModel, tier
	}

	return s.ComplexModel, tier
}

package policy

// Risk levels discretised from a session's total flag score.
const (
	LevelNone   = "none"
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// LevelFor maps a total score to a risk level. Thresholds are fixed:
// >=6 high, >=3 medium, >0 low, otherwise none.
func LevelFor(total int) string {
	switch {
	case total >= 6:
		return LevelHigh
	case total >= 3:
		return LevelMedium
	case total > 0:
		return LevelLow
	default:
		return LevelNone
	}
}

// Scorer evaluates text against the weighted flag rules.
type Scorer struct {
	rules *RuleSet
}

func NewScorer(rules *RuleSet) *Scorer {
	if rules == nil {
		rules = Default()
	}
	return &Scorer{rules: rules}
}

// Score tests text against every flag rule. Each rule contributes its weight
// and code at most once, however many times its pattern could match. Hits
// come back in rule-table order.
func (s *Scorer) Score(text string) (score int, hits []string) {
	for _, r := range s.rules.Flags {
		if r.Pattern.MatchString(text) {
			score += r.Weight
			hits = append(hits, r.Code)
		}
	}
	return score, hits
}

// Summary is the aggregated risk for one session's event contents.
// Counts records how many texts matched each code (one per text, not per
// pattern occurrence), independent of the weights folded into TotalScore.
type Summary struct {
	TotalScore int            `json:"totalScore"`
	Counts     map[string]int `json:"counts"`
	Level      string         `json:"level"`
}

// Summarise folds Score over the given texts. Empty texts are skipped.
// Sum and count are commutative, so the result does not depend on input
// order.
func (s *Scorer) Summarise(texts []string) Summary {
	total := 0
	counts := map[string]int{}
	for _, t := range texts {
		if t == "" {
			continue
		}
		score, hits := s.Score(t)
		total += score
		for _, h := range hits {
			counts[h]++
		}
	}
	return Summary{TotalScore: total, Counts: counts, Level: LevelFor(total)}
}

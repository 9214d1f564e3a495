package policy

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestScoreHitsAndWeights(t *testing.T) {
	s := NewScorer(nil)

	tests := []struct {
		text  string
		score int
		hits  []string
	}{
		{"can you humanise this for me", 3, []string{"humanise_ai"}},
		{"make up a citation", 4, []string{"citation_fabric"}},
		{"write the essay", 3, []string{"essay_request"}},
		{"need 1500 words by friday", 1, []string{"word_count"}},
		{"rephrase this bit", 2, []string{"paraphrase"}},
		{"solve the entire problem set", 2, []string{"full_solution"}},
		{"what is photosynthesis", 0, nil},
		{"", 0, nil},
	}
	for _, tt := range tests {
		score, hits := s.Score(tt.text)
		if score != tt.score {
			t.Fatalf("Score(%q) = %d, want %d", tt.text, score, tt.score)
		}
		if !reflect.DeepEqual(hits, tt.hits) {
			t.Fatalf("Score(%q) hits = %v, want %v", tt.text, hits, tt.hits)
		}
	}
}

func TestScoreDeduplicatesPerRule(t *testing.T) {
	s := NewScorer(nil)

	// Pattern could match twice; code and weight must count once.
	score, hits := s.Score("humanise the intro and humanise the conclusion")
	if score != 3 {
		t.Fatalf("score = %d, want 3", score)
	}
	if len(hits) != 1 || hits[0] != "humanise_ai" {
		t.Fatalf("hits = %v, want [humanise_ai]", hits)
	}

	seen := map[string]bool{}
	_, hits = s.Score("draft my essay, fabricate a reference, need 2000 words")
	for _, h := range hits {
		if seen[h] {
			t.Fatalf("duplicate code %q in hits %v", h, hits)
		}
		seen[h] = true
	}
}

func TestScoreEqualsSumOfHitWeights(t *testing.T) {
	s := NewScorer(nil)
	weights := map[string]int{}
	for _, r := range Default().Flags {
		weights[r.Code] = r.Weight
	}

	texts := []string{
		"draft my essay and make up a citation, 3000 words, undetectable",
		"rephrase and solve the entire worksheet",
		"humanize this so it can bypass ai checks",
	}
	for _, text := range texts {
		score, hits := s.Score(text)
		sum := 0
		for _, h := range hits {
			sum += weights[h]
		}
		if score != sum {
			t.Fatalf("Score(%q) = %d, but hit weights sum to %d (hits %v)", text, score, sum, hits)
		}
	}
}

func TestLevelThresholds(t *testing.T) {
	tests := []struct {
		total int
		level string
	}{
		{0, LevelNone},
		{1, LevelLow},
		{2, LevelLow},
		{3, LevelMedium},
		{5, LevelMedium},
		{6, LevelHigh},
		{42, LevelHigh},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.total); got != tt.level {
			t.Fatalf("LevelFor(%d) = %q, want %q", tt.total, got, tt.level)
		}
	}
}

func TestSummariseSession(t *testing.T) {
	s := NewScorer(nil)

	sum := s.Summarise([]string{
		"can you humanise this for me",
		"make up a citation",
	})
	if sum.TotalScore != 7 {
		t.Fatalf("total = %d, want 7", sum.TotalScore)
	}
	if sum.Level != LevelHigh {
		t.Fatalf("level = %q, want high", sum.Level)
	}
	want := map[string]int{"humanise_ai": 1, "citation_fabric": 1}
	if !reflect.DeepEqual(sum.Counts, want) {
		t.Fatalf("counts = %v, want %v", sum.Counts, want)
	}
}

func TestSummariseOrderIndependent(t *testing.T) {
	s := NewScorer(nil)

	texts := []string{
		"draft my report please",
		"",
		"rephrase the abstract",
		"invent a reference for this claim",
		"hello there",
		"need 1200 words",
	}
	base := s.Summarise(texts)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), texts...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got := s.Summarise(shuffled)
		if !reflect.DeepEqual(got, base) {
			t.Fatalf("summary changed under permutation: %+v vs %+v", got, base)
		}
	}
}

func TestSummariseEmpty(t *testing.T) {
	s := NewScorer(nil)
	sum := s.Summarise(nil)
	if sum.TotalScore != 0 || sum.Level != LevelNone || len(sum.Counts) != 0 {
		t.Fatalf("unexpected summary for no events: %+v", sum)
	}
}

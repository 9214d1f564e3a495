package policy

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule is one weighted detection pattern. Code is stable and unique within
// a set; Weight is added to the risk score once per scored text.
type Rule struct {
	Code    string
	Pattern *regexp.Regexp
	Weight  int
}

// RuleSet carries both halves of the amber policy: the hard block-list
// evaluated by the guard and the soft flag rules evaluated by the scorer.
type RuleSet struct {
	Block []*regexp.Regexp
	Flags []Rule
}

// Default returns the built-in rule set. Patterns are ported verbatim from
// the production rule table; all are case-insensitive.
func Default() *RuleSet {
	return defaultRules
}

var defaultRules = &RuleSet{
	Block: []*regexp.Regexp{
		regexp.MustCompile(`(?i)write (?:my|the) (?:essay|assignment|report)\b`),
		regexp.MustCompile(`(?i)\bghost[-\s]?write\b`),
		regexp.MustCompile(`(?i)\bhumanis(e|ing|ed)\b`),
		regexp.MustCompile(`(?i)\bparaphras(e|ing|ed) to avoid detection\b`),
		regexp.MustCompile(`(?i)\bmake it undetectable\b`),
		regexp.MustCompile(`(?i)\bspin (?:this|the) text\b`),
		regexp.MustCompile(`(?i)\bdo my homework\b`),
	},
	Flags: []Rule{
		{Code: "essay_request", Pattern: regexp.MustCompile(`(?i)(write|do|draft).{0,15}\b(essay|assignment|report)\b`), Weight: 3},
		{Code: "humanise_ai", Pattern: regexp.MustCompile(`(?i)(humanis|humaniz|make it sound human|bypass ai|undetectable)`), Weight: 3},
		{Code: "paraphrase", Pattern: regexp.MustCompile(`(?i)\b(paraphras|rephrase|spin)\b`), Weight: 2},
		{Code: "word_count", Pattern: regexp.MustCompile(`(?i)\b(\d{3,5})\s*(words|word essay)\b`), Weight: 1},
		{Code: "citation_fabric", Pattern: regexp.MustCompile(`(?i)\b(make up|fabricat|invent).{0,15}\b(citation|reference)`), Weight: 4},
		{Code: "full_solution", Pattern: regexp.MustCompile(`(?i)(give.*full answer|solve.*entire|complete.*assignment)`), Weight: 2},
	},
}

type ruleFile struct {
	Block []struct {
		Pattern string `yaml:"pattern"`
	} `yaml:"block"`
	Flags []struct {
		Code    string `yaml:"code"`
		Pattern string `yaml:"pattern"`
		Weight  int    `yaml:"weight"`
	} `yaml:"flags"`
}

// LoadFile reads a YAML rule table and compiles it, replacing the built-in
// set. Patterns are compiled case-insensitively unless they already carry an
// inline flag.
func LoadFile(path string) (*RuleSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse compiles a YAML rule table.
func Parse(b []byte) (*RuleSet, error) {
	var f ruleFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	if len(f.Flags) == 0 && len(f.Block) == 0 {
		return nil, fmt.Errorf("rules: empty rule table")
	}

	rs := &RuleSet{}
	for i, r := range f.Block {
		re, err := compileInsensitive(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rules: block[%d]: %w", i, err)
		}
		rs.Block = append(rs.Block, re)
	}

	seen := make(map[string]bool, len(f.Flags))
	for i, r := range f.Flags {
		code := strings.TrimSpace(r.Code)
		if code == "" {
			return nil, fmt.Errorf("rules: flags[%d]: code required", i)
		}
		if seen[code] {
			return nil, fmt.Errorf("rules: duplicate code %q", code)
		}
		seen[code] = true
		if r.Weight <= 0 {
			return nil, fmt.Errorf("rules: flags[%d] (%s): weight must be positive", i, code)
		}
		re, err := compileInsensitive(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rules: flags[%d] (%s): %w", i, code, err)
		}
		rs.Flags = append(rs.Flags, Rule{Code: code, Pattern: re, Weight: r.Weight})
	}
	return rs, nil
}

func compileInsensitive(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern required")
	}
	if !strings.HasPrefix(pattern, "(?i)") {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

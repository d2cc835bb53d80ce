// Package rules provides a YAML-based rules engine for transaction
// classification. Rules map description keywords to a merchant and a
// category; a separate transfer keyword list takes precedence and maps
// straight to the Transfers category with no merchant.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var embeddedRules []byte

// TransferCategory is the category all transfer keyword matches resolve
// to. Person-to-person payments are not spending and must never land in
// a spending category.
const TransferCategory = "Transfers"

// MatchType defines how patterns are matched against transaction descriptions
type MatchType string

const (
	// MatchTypeExact requires the pattern to match the entire description exactly
	MatchTypeExact MatchType = "exact"
	// MatchTypeContains requires the pattern to be a substring of the description
	MatchTypeContains MatchType = "contains"
)

// Rule represents a single classification rule.
//
// Rules should be created via YAML loading (NewEngine, LoadEmbedded,
// LoadFromFile), which validates all invariants:
//   - Pattern must not be empty after trimming
//   - MatchType must be "exact" or "contains" (empty defaults to "contains")
//   - Priority in range [0, 999]
//   - Category must not be empty
//
// Fields are exported for YAML unmarshaling; direct construction
// bypasses validation.
type Rule struct {
	Name      string    `yaml:"name"`
	Pattern   string    `yaml:"pattern"`
	MatchType MatchType `yaml:"match_type"`
	Priority  int       `yaml:"priority"`
	Merchant  string    `yaml:"merchant"`
	Category  string    `yaml:"category"`
}

// RuleSet represents the top-level YAML structure
type RuleSet struct {
	TransferKeywords []string `yaml:"transfer_keywords"`
	Rules            []Rule   `yaml:"rules"`
}

// MatchResult contains the result of classifying a description.
// Merchant is empty for transfer matches.
type MatchResult struct {
	Merchant string
	Category string
	Transfer bool
	RuleName string // For debugging
}

// Engine performs rule matching on transaction descriptions
type Engine struct {
	transferKeywords []string
	rules            []Rule // Sorted by priority (highest first)
}

// NewEngine creates a rules engine from YAML data
func NewEngine(rulesData []byte) (*Engine, error) {
	var ruleSet RuleSet
	if err := yaml.Unmarshal(rulesData, &ruleSet); err != nil {
		return nil, fmt.Errorf("failed to parse YAML rules (check syntax, indentation, and field names): %w", err)
	}

	keywords := make([]string, 0, len(ruleSet.TransferKeywords))
	for i, kw := range ruleSet.TransferKeywords {
		normalized := strings.ToLower(strings.TrimSpace(kw))
		if normalized == "" {
			return nil, fmt.Errorf("transfer keyword %d: cannot be empty", i)
		}
		keywords = append(keywords, normalized)
	}

	for i, rule := range ruleSet.Rules {
		if strings.TrimSpace(rule.Pattern) == "" {
			return nil, fmt.Errorf("rule %d (%s): pattern cannot be empty", i, rule.Name)
		}
		if rule.MatchType == "" {
			ruleSet.Rules[i].MatchType = MatchTypeContains
		} else if rule.MatchType != MatchTypeExact && rule.MatchType != MatchTypeContains {
			return nil, fmt.Errorf("rule %d (%s): invalid match_type %q (must be 'exact' or 'contains')", i, rule.Name, rule.MatchType)
		}
		if rule.Priority < 0 || rule.Priority > 999 {
			return nil, fmt.Errorf("rule %d (%s): priority must be in [0,999], got %d", i, rule.Name, rule.Priority)
		}
		if strings.TrimSpace(rule.Category) == "" {
			return nil, fmt.Errorf("rule %d (%s): category cannot be empty", i, rule.Name)
		}
	}

	// Sort rules by priority (highest first). Use SliceStable to preserve
	// YAML file order for rules with equal priority, so matching stays
	// deterministic.
	sortedRules := make([]Rule, len(ruleSet.Rules))
	copy(sortedRules, ruleSet.Rules)
	sort.SliceStable(sortedRules, func(i, j int) bool {
		return sortedRules[i].Priority > sortedRules[j].Priority
	})

	return &Engine{
		transferKeywords: keywords,
		rules:            sortedRules,
	}, nil
}

// LoadEmbedded loads the embedded rules.yaml file
func LoadEmbedded() (*Engine, error) {
	engine, err := NewEngine(embeddedRules)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded rules (possible binary corruption): %w", err)
	}
	return engine, nil
}

// LoadFromFile loads rules from a filesystem path
func LoadFromFile(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	engine, err := NewEngine(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from %q: %w", path, err)
	}
	return engine, nil
}

// Match classifies a transaction description. Transfer keywords are
// checked first: any hit resolves to the Transfers category regardless
// of merchant rules, so a payment to a known person never counts as
// spending at a merchant. Otherwise rules are evaluated in priority
// order (highest first, YAML order for ties) and the first match wins.
// Returns (nil, false) when nothing matches; the caller decides the
// fallback category.
func (e *Engine) Match(description string) (*MatchResult, bool) {
	normalizedDesc := strings.ToLower(strings.TrimSpace(description))

	for _, kw := range e.transferKeywords {
		if strings.Contains(normalizedDesc, kw) {
			return &MatchResult{
				Category: TransferCategory,
				Transfer: true,
				RuleName: "transfer-keyword:" + kw,
			}, true
		}
	}

	for _, rule := range e.rules {
		normalizedPattern := strings.ToLower(strings.TrimSpace(rule.Pattern))

		matched := false
		switch rule.MatchType {
		case MatchTypeExact:
			matched = normalizedDesc == normalizedPattern
		case MatchTypeContains:
			matched = strings.Contains(normalizedDesc, normalizedPattern)
		}

		if matched {
			return &MatchResult{
				Merchant: rule.Merchant,
				Category: rule.Category,
				RuleName: rule.Name,
			}, true
		}
	}

	return nil, false
}

// GetRules returns a copy of the rules for inspection/debugging.
// Rules are returned in priority order (highest first). For equal
// priorities, rules appear in YAML file order (stable sort).
func (e *Engine) GetRules() []Rule {
	result := make([]Rule, len(e.rules))
	copy(result, e.rules)
	return result
}

// TransferKeywords returns a copy of the normalized transfer keywords.
func (e *Engine) TransferKeywords() []string {
	result := make([]string, len(e.transferKeywords))
	copy(result, e.transferKeywords)
	return result
}

// Package rules applies user-defined categorization rules to committed
// records. Rule definitions live in the user's rules.yaml; the import
// pipeline consumes the engine only through the Engine interface.
package rules

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/escapebudget/escape/internal/model"
)

// Engine matches a committed record and applies category/tag changes.
// originalPayee is the pre-normalization payee the record was imported
// with; rules match against it, not the cleaned display payee.
type Engine interface {
	Apply(rec *model.LedgerRecord, originalPayee string) int
}

// Rule is one user-defined categorization rule.
type Rule struct {
	Name string `yaml:"name"`
	// Match is a case-insensitive substring tested against the original
	// payee (and the memo when MatchMemo is set).
	Match     string   `yaml:"match"`
	MatchMemo bool     `yaml:"match_memo,omitempty"`
	Category  int      `yaml:"category,omitempty"`
	AddTags   []string `yaml:"add_tags,omitempty"`
	Disabled  bool     `yaml:"disabled,omitempty"`
}

// KeywordEngine applies rules in file order; every matching rule applies.
type KeywordEngine struct {
	rules []Rule
}

// NewKeywordEngine creates an engine over the given rules.
func NewKeywordEngine(rules []Rule) *KeywordEngine {
	return &KeywordEngine{rules: rules}
}

// Load reads rules.yaml from disk. A missing file yields an empty engine.
func Load(path string) (*KeywordEngine, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewKeywordEngine(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	var doc struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	return NewKeywordEngine(doc.Rules), nil
}

// Apply runs every enabled rule against rec and returns the number of
// rules that applied a change.
func (e *KeywordEngine) Apply(rec *model.LedgerRecord, originalPayee string) int {
	applied := 0
	for _, r := range e.rules {
		if r.Disabled || r.Match == "" {
			continue
		}
		if !r.matches(rec, originalPayee) {
			continue
		}
		changed := false
		if r.Category != 0 && rec.CategoryID != r.Category && rec.Kind != model.KindTransfer {
			rec.CategoryID = r.Category
			changed = true
		}
		for _, tag := range r.AddTags {
			if addTag(rec, tag) {
				changed = true
			}
		}
		if changed {
			applied++
		}
	}
	return applied
}

// Len returns the number of loaded rules.
func (e *KeywordEngine) Len() int { return len(e.rules) }

func (r Rule) matches(rec *model.LedgerRecord, originalPayee string) bool {
	needle := strings.ToLower(r.Match)
	if strings.Contains(strings.ToLower(originalPayee), needle) {
		return true
	}
	return r.MatchMemo && strings.Contains(strings.ToLower(rec.Memo), needle)
}

func addTag(rec *model.LedgerRecord, tag string) bool {
	for _, t := range rec.Tags {
		if strings.EqualFold(t, tag) {
			return false
		}
	}
	rec.Tags = append(rec.Tags, tag)
	return true
}

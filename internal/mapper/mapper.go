// Package mapper assigns semantic fields to the columns of an import file.
//
// A bank template is a recognizer plus a mapping ruleset for one known
// export dialect. Detection walks a fixed priority list of header-keyword
// signatures; the first match wins and its rules produce the column
// mapping. Unrecognized files fall back to the generic template.
package mapper

import (
	"strings"

	"github.com/escapebudget/escape/internal/model"
)

// Template is a named recognizer and column-mapping ruleset for one bank
// export dialect.
type Template struct {
	Name      string
	signature []string // every term must appear in some header
	rules     []rule
}

// rule maps the first unmapped column whose header matches to field.
// Exact terms compare the whole header; part terms match substrings.
type rule struct {
	field model.ColumnField
	exact []string
	part  []string
}

// Detect returns the first template whose signature matches the header
// row, else the generic template. Ordering in the template table breaks
// ties between dialects sharing header vocabulary.
func Detect(headers []string) *Template {
	normalized := normalizeHeaders(headers)
	for _, tpl := range templates {
		if tpl.matches(normalized) {
			return tpl
		}
	}
	return Generic()
}

// Apply produces a fresh mapping from the template's rules. Rules run in
// order and never overwrite an already-mapped column; after the named
// rules, generic fallback rules fill a still-unmapped Payee or Account
// column. Re-applying to the same headers yields the same mapping.
func (t *Template) Apply(headers []string) model.ColumnMapping {
	normalized := normalizeHeaders(headers)
	m := make(model.ColumnMapping)
	applyRules(m, t.rules, normalized)
	applyRules(m, fallbackRules, normalized)
	return m
}

// All returns the template priority list, generic last.
func All() []*Template {
	out := make([]*Template, 0, len(templates)+1)
	out = append(out, templates...)
	return append(out, Generic())
}

// ByName returns the named template, or nil.
func ByName(name string) *Template {
	for _, tpl := range All() {
		if strings.EqualFold(tpl.Name, name) {
			return tpl
		}
	}
	return nil
}

// matches reports whether every signature term can claim its own header
// column. Distinct columns are required so that a combined indicator
// header like "Debit/Credit" cannot satisfy both a "debit" and a "credit"
// term by itself.
func (t *Template) matches(normalized []string) bool {
	if len(t.signature) == 0 {
		return false
	}
	used := make([]bool, len(normalized))
	return assignTerms(t.signature, normalized, used)
}

func assignTerms(terms []string, normalized []string, used []bool) bool {
	if len(terms) == 0 {
		return true
	}
	for col, h := range normalized {
		if used[col] || !strings.Contains(h, terms[0]) {
			continue
		}
		used[col] = true
		if assignTerms(terms[1:], normalized, used) {
			return true
		}
		used[col] = false
	}
	return false
}

func applyRules(m model.ColumnMapping, rules []rule, normalized []string) {
	for _, r := range rules {
		// One column per field, except Skip which may claim many.
		if r.field != model.FieldSkip && m.Has(r.field) {
			continue
		}
		for col, h := range normalized {
			if !r.headerMatches(h) {
				continue
			}
			if !m.Set(col, r.field) {
				continue
			}
			if r.field != model.FieldSkip {
				break
			}
		}
	}
}

func (r rule) headerMatches(h string) bool {
	for _, term := range r.exact {
		if h == term {
			return true
		}
	}
	for _, term := range r.part {
		if strings.Contains(h, term) {
			return true
		}
	}
	return false
}

func normalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

package wizard

import (
	"fmt"
	"sort"

	"github.com/escapebudget/escape/internal/model"
)

// UnresolvedAccounts lists raw account values in the batch that neither
// the account service nor the run's mapping table can resolve, sorted for
// stable presentation.
func (w *Wizard) UnresolvedAccounts() []string {
	seen := make(map[string]bool)
	var out []string
	for i := range w.staged {
		raw := w.staged[i].RawAccount
		if raw == "" || seen[raw] {
			continue
		}
		seen[raw] = true
		if _, ok := w.accountMap[raw]; ok {
			continue
		}
		if _, ok := w.accounts.ResolveAccount(raw); ok {
			continue
		}
		out = append(out, raw)
	}
	sort.Strings(out)
	return out
}

// UnresolvedCategories lists raw category values with no resolution.
// Transfers are excluded, they never carry a category.
func (w *Wizard) UnresolvedCategories() []string {
	seen := make(map[string]bool)
	var out []string
	for i := range w.staged {
		tx := &w.staged[i]
		raw := tx.RawCategory
		if raw == "" || tx.Kind == model.KindTransfer || seen[raw] {
			continue
		}
		seen[raw] = true
		if _, ok := w.categoryMap[raw]; ok {
			continue
		}
		if _, ok := w.accounts.ResolveCategory(raw); ok {
			continue
		}
		out = append(out, raw)
	}
	sort.Strings(out)
	return out
}

// UnresolvedTags lists raw tags the run has not mapped yet.
func (w *Wizard) UnresolvedTags() []string {
	seen := make(map[string]bool)
	var out []string
	for i := range w.staged {
		for _, tag := range w.staged[i].RawTags {
			if seen[tag] {
				continue
			}
			seen[tag] = true
			if _, ok := w.tagMap[tag]; ok {
				continue
			}
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}

// MapAccount binds a raw account value to an existing ledger account for
// the rest of the run.
func (w *Wizard) MapAccount(raw string, accountID int) error {
	if !w.accounts.AccountExists(accountID) {
		return fmt.Errorf("no account with id %d", accountID)
	}
	w.accountMap[raw] = accountID
	return nil
}

// CreateAccountFor creates a new account named after the raw value and
// binds the raw value to it.
func (w *Wizard) CreateAccountFor(raw string, typ model.AccountType) model.Account {
	acct := w.accounts.CreateAccount(raw, typ)
	w.accountMap[raw] = acct.ID
	return acct
}

// MapCategory binds a raw category value to an existing category.
func (w *Wizard) MapCategory(raw string, categoryID int) error {
	if _, ok := w.accounts.Category(categoryID); !ok {
		return fmt.Errorf("no category with id %d", categoryID)
	}
	w.categoryMap[raw] = categoryID
	return nil
}

// CreateCategoryFor creates a category named after the raw value and
// binds the raw value to it.
func (w *Wizard) CreateCategoryFor(raw, group string) model.Category {
	cat := w.accounts.CreateCategory(raw, group)
	w.categoryMap[raw] = cat.ID
	return cat
}

// MapTag renames a raw tag for the rest of the run. Mapping to the empty
// string drops the tag.
func (w *Wizard) MapTag(raw, name string) {
	w.tagMap[raw] = name
}

// ConfirmAccounts advances past account mapping. Raw values still
// unresolved fall back to the run's default account at commit time.
func (w *Wizard) ConfirmAccounts() error {
	if err := w.requireStep(StepMapAccounts); err != nil {
		return err
	}
	w.advanceMapping(StepMapAccounts)
	return nil
}

// ConfirmCategories advances past category mapping. Unresolved values
// commit as uncategorized.
func (w *Wizard) ConfirmCategories() error {
	if err := w.requireStep(StepMapCategories); err != nil {
		return err
	}
	w.advanceMapping(StepMapCategories)
	return nil
}

// ConfirmTags advances past tag mapping, keeping any unmapped tags as-is.
func (w *Wizard) ConfirmTags() error {
	if err := w.requireStep(StepMapTags); err != nil {
		return err
	}
	for _, tag := range w.UnresolvedTags() {
		w.tagMap[tag] = tag
	}
	w.advanceMapping(StepMapTags)
	return nil
}

func (w *Wizard) advanceMapping(from Step) {
	order := []Step{StepMapAccounts, StepMapCategories, StepMapTags}
	past := false
	for _, s := range order {
		if s == from {
			past = true
			continue
		}
		if past && w.mappingStepNeeded(s) {
			w.step = s
			return
		}
	}
	w.step = StepReview
}

package wizard

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/escapebudget/escape/internal/transfer"
)

// SetSelected toggles whether a staged transaction will be committed.
// Transfer legs cannot be deselected while linked; unlink first.
func (w *Wizard) SetSelected(id uuid.UUID, selected bool) error {
	for i := range w.staged {
		tx := &w.staged[i]
		if tx.ID != id {
			continue
		}
		if !selected && tx.TransferID != nil {
			return fmt.Errorf("unlink the transfer before deselecting")
		}
		tx.IsSelected = selected
		if !selected && w.suggestions != nil {
			// The leg is no longer eligible; its suggestions went stale.
			w.RefreshSuggestions()
		}
		return nil
	}
	return fmt.Errorf("no staged transaction %s", id)
}

// RefreshSuggestions recomputes transfer suggestions for the current
// batch. Previously surfaced suggestions that are no longer valid vanish,
// and accepted ones are kept only while they survive the refresh.
func (w *Wizard) RefreshSuggestions() []transfer.Suggestion {
	if !w.cfg.Import.SuggestTransfers {
		w.suggestions = nil
		w.accepted = nil
		return nil
	}
	fresh := transfer.Suggest(w.staged, w.transferConfig(), w.resolveAccountID, w.accounts.IsTransferCategory)
	w.suggestions = fresh
	w.accepted = transfer.Retain(w.accepted, fresh)
	return w.suggestions
}

// Suggestions returns the last computed suggestion set.
func (w *Wizard) Suggestions() []transfer.Suggestion { return w.suggestions }

// Accepted returns the suggestions marked for linking at commit time.
func (w *Wizard) Accepted() []transfer.Suggestion { return w.accepted }

// AcceptSuggestion marks a current suggestion for linking when the batch
// commits. A suggestion no longer in the current set is refused. Accepting
// overlapping pairs is allowed; the later one goes stale at link time and
// is skipped.
func (w *Wizard) AcceptSuggestion(s transfer.Suggestion) bool {
	current := false
	for _, cur := range w.suggestions {
		if cur == s {
			current = true
			break
		}
	}
	if !current {
		return false
	}
	for _, a := range w.accepted {
		if a == s {
			return true
		}
	}
	w.accepted = append(w.accepted, s)
	return true
}

// RejectSuggestion removes a suggestion from the accepted set.
func (w *Wizard) RejectSuggestion(s transfer.Suggestion) {
	for i, a := range w.accepted {
		if a == s {
			w.accepted = append(w.accepted[:i], w.accepted[i+1:]...)
			return
		}
	}
}

// UnlinkTransfer resets both legs of a linked pair back to standard rows
// and recomputes suggestions.
func (w *Wizard) UnlinkTransfer(transferID uuid.UUID) int {
	reset := transfer.Unlink(w.staged, transferID)
	if reset > 0 {
		w.RefreshSuggestions()
	}
	return reset
}

func (w *Wizard) transferConfig() transfer.Config {
	cfg := transfer.DefaultConfig()
	tc := w.cfg.Transfers
	if tc.MaxDaysApart > 0 {
		cfg.MaxDaysApart = tc.MaxDaysApart
	}
	if tc.MinScore > 0 {
		cfg.MinScore = tc.MinScore
	}
	if tc.MaxSuggestions > 0 {
		cfg.MaxSuggestions = tc.MaxSuggestions
	}
	if tc.AmountEpsilon != "" {
		if eps, err := decimal.NewFromString(tc.AmountEpsilon); err == nil {
			cfg.AmountEpsilon = eps
		}
	}
	return cfg
}

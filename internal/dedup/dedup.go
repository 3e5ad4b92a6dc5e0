// Package dedup flags staged transactions that likely already exist in the
// ledger. Matches are advisory: flagged rows are deselected for the user to
// review, never dropped.
package dedup

import (
	"fmt"
	"time"

	"github.com/escapebudget/escape/internal/model"
	"github.com/escapebudget/escape/internal/payee"
)

// Config tunes duplicate matching.
type Config struct {
	// UseNormalizedPayee enables the fuzzy pass on top of exact matching.
	UseNormalizedPayee bool
	// SimilarityThreshold is the inclusive minimum normalized payee
	// similarity for a fuzzy match.
	SimilarityThreshold float64
	// DateToleranceDays is the fuzzy pass date window (exact matching
	// always requires the same day).
	DateToleranceDays int
}

// DefaultConfig matches the app's shipped settings.
func DefaultConfig() Config {
	return Config{
		UseNormalizedPayee:  true,
		SimilarityThreshold: 0.85,
		DateToleranceDays:   2,
	}
}

// AccountResolver maps a staged transaction to its resolved account ID,
// or 0 when unresolvable.
type AccountResolver func(*model.StagedTransaction) int

// Annotate marks likely duplicates in staged against the existing window.
// For each staged transaction the exact pass runs first, then the fuzzy
// pass; the first matching existing record is cited in the reason. Both
// slices are walked in input order, so output is deterministic for a fixed
// existing set and config. Returns the number of flagged rows.
func Annotate(staged []model.StagedTransaction, existing []model.LedgerRecord, resolve AccountResolver, cfg Config) int {
	flagged := 0
	for i := range staged {
		txn := &staged[i]
		txn.IsDuplicate = false
		txn.DuplicateReason = ""
		txn.IsSelected = true

		account := resolve(txn)
		if rec, ok := exactMatch(txn, existing, account); ok {
			txn.IsDuplicate = true
			txn.IsSelected = false
			txn.DuplicateReason = fmt.Sprintf("same date, amount, and account as existing entry %s", rec.ID)
			flagged++
			continue
		}
		if !cfg.UseNormalizedPayee {
			continue
		}
		if rec, ok := fuzzyMatch(txn, existing, account, cfg); ok {
			txn.IsDuplicate = true
			txn.IsSelected = false
			txn.DuplicateReason = fmt.Sprintf("similar payee and same amount and account as entry %s within %d days", rec.ID, cfg.DateToleranceDays)
			flagged++
		}
	}
	return flagged
}

// DateRange returns the inclusive date window covered by the staged batch,
// used to bound the existing-record fetch.
func DateRange(staged []model.StagedTransaction) (from, to time.Time, ok bool) {
	for i := range staged {
		d := staged[i].Date
		if !ok {
			from, to, ok = d, d, true
			continue
		}
		if d.Before(from) {
			from = d
		}
		if d.After(to) {
			to = d
		}
	}
	return from, to, ok
}

func exactMatch(txn *model.StagedTransaction, existing []model.LedgerRecord, account int) (*model.LedgerRecord, bool) {
	for i := range existing {
		rec := &existing[i]
		if sameDay(txn.Date, rec.Date) && txn.Amount.Equal(rec.Amount) && account == rec.AccountID {
			return rec, true
		}
	}
	return nil, false
}

func fuzzyMatch(txn *model.StagedTransaction, existing []model.LedgerRecord, account int, cfg Config) (*model.LedgerRecord, bool) {
	for i := range existing {
		rec := &existing[i]
		if account != rec.AccountID || !txn.Amount.Equal(rec.Amount) {
			continue
		}
		if daysApart(txn.Date, rec.Date) > cfg.DateToleranceDays {
			continue
		}
		if payee.Similarity(txn.Payee, rec.Payee) >= cfg.SimilarityThreshold {
			return rec, true
		}
	}
	return nil, false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func daysApart(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(ad.Sub(bd).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

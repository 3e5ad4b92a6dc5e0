// Package transfer proposes and maintains transfer pairings between staged
// transactions: one outflow leg and one inflow leg on two distinct
// accounts, linked by a shared transfer ID.
package transfer

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/escapebudget/escape/internal/model"
)

// Suggestion proposes linking an outflow leg to an inflow leg. Score is in
// [0,1]; higher means more likely the two legs are one transfer.
type Suggestion struct {
	OutflowID uuid.UUID
	InflowID  uuid.UUID
	Score     float64
}

// References reports whether s touches the given staged transaction.
func (s Suggestion) References(id uuid.UUID) bool {
	return s.OutflowID == id || s.InflowID == id
}

// Config tunes suggestion generation.
type Config struct {
	MaxDaysApart   int
	MinScore       float64
	MaxSuggestions int
	// AmountEpsilon is the near-match tolerance on absolute amounts.
	AmountEpsilon decimal.Decimal
}

// DefaultConfig matches the app's shipped settings.
func DefaultConfig() Config {
	return Config{
		MaxDaysApart:   3,
		MinScore:       0.5,
		MaxSuggestions: 50,
		AmountEpsilon:  decimal.NewFromFloat(1.00),
	}
}

// Scoring weights. Date proximity and amount agreement dominate; the
// category hint only nudges.
const (
	dateWeight   = 0.45
	amountWeight = 0.45
	hintWeight   = 0.10

	nearMatchScore = 0.6
)

// AccountResolver maps a staged transaction to its resolved account ID,
// or 0 when unresolvable.
type AccountResolver func(*model.StagedTransaction) int

// TransferHint reports whether a raw category label maps to a
// transfer-type category group. The empty label always hints.
type TransferHint func(rawCategory string) bool

// Suggest scores candidate outflow/inflow pairings among the staged batch.
// Only eligible transactions participate: selected, not duplicates, kind
// standard, unlinked, non-zero amount, resolvable account. Results are
// sorted by descending score, ties broken by earlier pair date then input
// order, truncated to cfg.MaxSuggestions.
func Suggest(staged []model.StagedTransaction, cfg Config, resolve AccountResolver, hint TransferHint) []Suggestion {
	type candidate struct {
		Suggestion
		date  time.Time
		order int
	}

	var outflows, inflows []int
	for i := range staged {
		if !eligible(&staged[i], resolve) {
			continue
		}
		if staged[i].IsOutflow() {
			outflows = append(outflows, i)
		} else {
			inflows = append(inflows, i)
		}
	}

	var candidates []candidate
	for _, oi := range outflows {
		out := &staged[oi]
		for _, ii := range inflows {
			in := &staged[ii]
			if resolve(out) == resolve(in) {
				continue
			}
			days := daysApart(out.Date, in.Date)
			if days > cfg.MaxDaysApart {
				continue
			}
			score := scorePair(out, in, days, cfg, hint)
			if score < cfg.MinScore {
				continue
			}
			candidates = append(candidates, candidate{
				Suggestion: Suggestion{OutflowID: out.ID, InflowID: in.ID, Score: score},
				date:       earlier(out.Date, in.Date),
				order:      len(candidates),
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if !candidates[i].date.Equal(candidates[j].date) {
			return candidates[i].date.Before(candidates[j].date)
		}
		return candidates[i].order < candidates[j].order
	})

	if cfg.MaxSuggestions > 0 && len(candidates) > cfg.MaxSuggestions {
		candidates = candidates[:cfg.MaxSuggestions]
	}

	out := make([]Suggestion, len(candidates))
	for i, c := range candidates {
		out[i] = c.Suggestion
	}
	return out
}

// Link applies an accepted suggestion: re-validates both legs are still
// unlinked standard rows, then assigns a fresh shared transfer ID, marks
// both legs as transfers, forces selection, and clears their categories.
// Stale suggestions are skipped, not errored.
func Link(staged []model.StagedTransaction, s Suggestion) bool {
	out := find(staged, s.OutflowID)
	in := find(staged, s.InflowID)
	if out == nil || in == nil {
		return false
	}
	if out.Kind != model.KindStandard || out.TransferID != nil {
		return false
	}
	if in.Kind != model.KindStandard || in.TransferID != nil {
		return false
	}

	id := uuid.New()
	for _, leg := range []*model.StagedTransaction{out, in} {
		leg.TransferID = &id
		leg.Kind = model.KindTransfer
		leg.IsSelected = true
		leg.RawCategory = ""
	}
	return true
}

// Unlink breaks a pair: every staged transaction carrying transferID is
// atomically reset to an unlinked standard row. Suggestions must be
// recomputed afterward since eligibility changed.
func Unlink(staged []model.StagedTransaction, transferID uuid.UUID) int {
	reset := 0
	for i := range staged {
		txn := &staged[i]
		if txn.TransferID == nil || *txn.TransferID != transferID {
			continue
		}
		txn.TransferID = nil
		txn.Kind = model.KindStandard
		reset++
	}
	return reset
}

// Retain filters previously accepted suggestions down to those still
// present in the fresh set; vanished ones are dropped silently.
func Retain(accepted, fresh []Suggestion) []Suggestion {
	var kept []Suggestion
	for _, a := range accepted {
		for _, f := range fresh {
			if a.OutflowID == f.OutflowID && a.InflowID == f.InflowID {
				kept = append(kept, f)
				break
			}
		}
	}
	return kept
}

func eligible(txn *model.StagedTransaction, resolve AccountResolver) bool {
	return txn.IsSelected &&
		!txn.IsDuplicate &&
		txn.Kind == model.KindStandard &&
		txn.TransferID == nil &&
		!txn.Amount.IsZero() &&
		resolve(txn) != 0
}

func scorePair(out, in *model.StagedTransaction, days int, cfg Config, hint TransferHint) float64 {
	dateScore := 1.0
	if cfg.MaxDaysApart > 0 {
		dateScore = 1.0 - float64(days)/float64(cfg.MaxDaysApart+1)
	}

	diff := out.Amount.Abs().Sub(in.Amount.Abs()).Abs()
	var amountScore float64
	switch {
	case diff.IsZero():
		amountScore = 1.0
	case diff.LessThanOrEqual(cfg.AmountEpsilon):
		amountScore = nearMatchScore
	}

	var hintScore float64
	if hint != nil && (hint(out.RawCategory) || hint(in.RawCategory)) {
		hintScore = 1.0
	}

	score := dateWeight*dateScore + amountWeight*amountScore + hintWeight*hintScore
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

func find(staged []model.StagedTransaction, id uuid.UUID) *model.StagedTransaction {
	for i := range staged {
		if staged[i].ID == id {
			return &staged[i]
		}
	}
	return nil
}

func earlier(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
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

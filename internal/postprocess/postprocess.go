// Package postprocess runs the cleanup pass over a just-committed batch:
// payee normalization, rule-based categorization, transfer bookkeeping,
// and the bounded processing history.
package postprocess

import (
	"fmt"
	"time"

	"github.com/escapebudget/escape/internal/history"
	"github.com/escapebudget/escape/internal/model"
	"github.com/escapebudget/escape/internal/payee"
	"github.com/escapebudget/escape/internal/rules"
	"github.com/escapebudget/escape/internal/store"
)

// Config controls the individual post-commit behaviors.
type Config struct {
	NormalizePayee        bool
	ApplyAutoRules        bool
	SuggestTransfers      bool
	SaveProcessingHistory bool

	// History caps; zero means unbounded.
	MaxDetailedTransactions int
	MaxEventsPerTransaction int

	// MaxTransferDaysApart bounds the ledger window scanned per record
	// when re-evaluating transfer candidacy.
	MaxTransferDaysApart int
}

// DefaultConfig matches the app's shipped settings.
func DefaultConfig() Config {
	return Config{
		NormalizePayee:          true,
		ApplyAutoRules:          true,
		SuggestTransfers:        true,
		SaveProcessingHistory:   true,
		MaxDetailedTransactions: 200,
		MaxEventsPerTransaction: 10,
		MaxTransferDaysApart:    3,
	}
}

// Result summarizes one processing run. All counts are exact.
type Result struct {
	// ChangedCount is the number of records modified by any behavior.
	ChangedCount                          int
	PayeesNormalizedCount                 int
	TransactionsWithRulesApplied          int
	TransferSuggestionsInvolvingProcessed int

	// ChangedIDs lists modified records so the caller can persist them.
	ChangedIDs []string
}

// Processor applies post-commit processing to committed batches.
type Processor struct {
	rules rules.Engine
	store store.Store
}

// New creates a Processor over the given collaborators.
func New(engine rules.Engine, st store.Store) *Processor {
	return &Processor{rules: engine, store: st}
}

// Process runs the enabled behaviors over records, mutating them in place.
// originalPayee maps record ID to the pre-normalization payee text the
// record was imported with; rules match against it so cleanup never hides
// a match. The returned history log holds the audit trail when enabled
// (flushing it is the caller's responsibility).
func (p *Processor) Process(records []model.LedgerRecord, originalPayee map[string]string, cfg Config) (Result, *history.Log, error) {
	var res Result
	log := history.NewLog(cfg.MaxDetailedTransactions, cfg.MaxEventsPerTransaction)
	changed := make(map[string]bool)

	for i := range records {
		rec := &records[i]

		if cfg.NormalizePayee {
			cleaned := payee.Display(rec.Payee)
			if cleaned != rec.Payee && cleaned != "" {
				if cfg.SaveProcessingHistory {
					log.Record(rec.ID, history.ActionPayeeNormalized, fmt.Sprintf("%s -> %s", rec.Payee, cleaned))
				}
				rec.Payee = cleaned
				res.PayeesNormalizedCount++
				changed[rec.ID] = true
			}
		}

		if cfg.ApplyAutoRules && p.rules != nil {
			original := originalPayee[rec.ID]
			if original == "" {
				original = rec.Payee
			}
			if n := p.rules.Apply(rec, original); n > 0 {
				if cfg.SaveProcessingHistory {
					log.Record(rec.ID, history.ActionRuleApplied, fmt.Sprintf("%d rule(s)", n))
				}
				res.TransactionsWithRulesApplied++
				changed[rec.ID] = true
			}
		}
	}

	if cfg.SuggestTransfers {
		n, err := p.countTransferCandidates(records, cfg, log, cfg.SaveProcessingHistory)
		if err != nil {
			return Result{}, nil, err
		}
		res.TransferSuggestionsInvolvingProcessed = n
	}

	for i := range records {
		if changed[records[i].ID] {
			res.ChangedIDs = append(res.ChangedIDs, records[i].ID)
		}
	}
	res.ChangedCount = len(res.ChangedIDs)
	return res, log, nil
}

// countTransferCandidates re-evaluates still-unlinked standard records
// against the wider ledger. Candidates are surfaced for review only, never
// auto-linked here.
func (p *Processor) countTransferCandidates(records []model.LedgerRecord, cfg Config, log *history.Log, keepHistory bool) (int, error) {
	count := 0
	for i := range records {
		rec := &records[i]
		if rec.Kind != model.KindStandard || rec.TransferID != nil || rec.Amount.IsZero() {
			continue
		}

		window := time.Duration(cfg.MaxTransferDaysApart) * 24 * time.Hour
		neighbors, err := p.store.Fetch(rec.Date.Add(-window), rec.Date.Add(window))
		if err != nil {
			return 0, fmt.Errorf("fetching transfer window for %s: %w", rec.ID, err)
		}

		for j := range neighbors {
			other := &neighbors[j]
			if other.ID == rec.ID || other.AccountID == rec.AccountID {
				continue
			}
			if other.Kind != model.KindStandard || other.TransferID != nil {
				continue
			}
			if rec.Amount.IsNegative() == other.Amount.IsNegative() {
				continue
			}
			if !rec.Amount.Abs().Equal(other.Amount.Abs()) {
				continue
			}
			count++
			if keepHistory {
				log.Record(rec.ID, history.ActionTransferSuggested, fmt.Sprintf("candidate %s", other.ID))
			}
			break
		}
	}
	return count, nil
}

// Package wizard sequences an import run: file selection, header and
// column mapping, parsing, account/category/tag mapping, review, and the
// chunked commit. The wizard owns all mutable state of a run; the
// components it drives are pure functions over explicit inputs.
package wizard

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/escapebudget/escape/internal/accounts"
	"github.com/escapebudget/escape/internal/config"
	"github.com/escapebudget/escape/internal/extract"
	"github.com/escapebudget/escape/internal/importfile"
	"github.com/escapebudget/escape/internal/mapper"
	"github.com/escapebudget/escape/internal/model"
	"github.com/escapebudget/escape/internal/rules"
	"github.com/escapebudget/escape/internal/store"
	"github.com/escapebudget/escape/internal/transfer"
)

// Step is a wizard state. Transitions are forward-only except the explicit
// Back affordances, which recompute dependent state.
type Step string

const (
	StepSelectFile    Step = "select_file"
	StepSelectHeader  Step = "select_header"
	StepMapColumns    Step = "map_columns"
	StepPreview       Step = "preview"
	StepParsing       Step = "parsing"
	StepMapAccounts   Step = "map_accounts"
	StepMapCategories Step = "map_categories"
	StepMapTags       Step = "map_tags"
	StepReview        Step = "review"
	StepComplete      Step = "complete"
	StepCancelled     Step = "cancelled"
	StepFailed        Step = "failed"
)

// AbortError is a user-facing run abort with a specific reason.
type AbortError struct {
	Reason string
}

func (e *AbortError) Error() string { return e.Reason }

// Summary reports the outcome of a finished run.
type Summary struct {
	Staged     int
	Rejected   int
	Duplicates int
	Committed  int
	Skipped    int
	Processing ProcessingSummary
}

// ProcessingSummary mirrors the post-commit processor's counts.
type ProcessingSummary struct {
	ChangedCount                          int
	PayeesNormalizedCount                 int
	TransactionsWithRulesApplied          int
	TransferSuggestionsInvolvingProcessed int
}

// Wizard drives one import run. Except for Progress and Cancel, its
// methods are meant to be called from a single sequencing goroutine.
type Wizard struct {
	cfg      *config.Config
	accounts *accounts.Service
	store    store.Store
	rules    rules.Engine
	log      zerolog.Logger

	// ledgerRoot is where the history log is flushed.
	ledgerRoot string
	decryptor  importfile.Decryptor

	step Step
	file *importfile.File

	headerCandidates [][]string
	headerRow        int
	headers          []string

	template *mapper.Template
	mapping  model.ColumnMapping

	dateFormat string
	sign       extract.SignConvention

	staged    []model.StagedTransaction
	rejected  int
	flagged   int
	committed int
	skipped   int

	accountMap     map[string]int
	categoryMap    map[string]int
	tagMap         map[string]string
	defaultAccount int

	suggestions []transfer.Suggestion
	accepted    []transfer.Suggestion

	progressMu sync.Mutex
	progress   Progress
	cancelMu   sync.Mutex
	cancelled  bool
	active     bool
}

// Options configures a new run.
type Options struct {
	Config     *config.Config
	Accounts   *accounts.Service
	Store      store.Store
	Rules      rules.Engine
	Logger     zerolog.Logger
	LedgerRoot string
	Decryptor  importfile.Decryptor
}

// New creates a wizard in the SelectFile step.
func New(opts Options) *Wizard {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	return &Wizard{
		cfg:         cfg,
		accounts:    opts.Accounts,
		store:       opts.Store,
		rules:       opts.Rules,
		log:         opts.Logger,
		ledgerRoot:  opts.LedgerRoot,
		decryptor:   opts.Decryptor,
		step:        StepSelectFile,
		accountMap:  make(map[string]int),
		categoryMap: make(map[string]int),
		tagMap:      make(map[string]string),
		sign:        extract.PositiveIsIncome,
	}
}

// Step returns the current wizard step.
func (w *Wizard) Step() Step { return w.step }

// Staged returns the staged batch. Callers must not retain the slice
// across wizard mutations.
func (w *Wizard) Staged() []model.StagedTransaction { return w.staged }

// SetSignConvention sets how a lone Amount column is interpreted.
func (w *Wizard) SetSignConvention(sign extract.SignConvention) { w.sign = sign }

// SetDateFormat pins the date layout instead of auto-detecting.
func (w *Wizard) SetDateFormat(layout string) { w.dateFormat = layout }

// SetDefaultAccount sets the fallback for rows with no resolvable account.
func (w *Wizard) SetDefaultAccount(accountID int) { w.defaultAccount = accountID }

// Cancel abandons the run from any non-terminal step, deleting the temp
// decrypted file and discarding all staged state. Safe to call from
// another goroutine; when a Parse or Commit is in flight the transition
// happens once that unit observes the flag between chunks.
func (w *Wizard) Cancel() {
	w.cancelMu.Lock()
	w.cancelled = true
	busy := w.active
	w.cancelMu.Unlock()
	if busy {
		return
	}

	if w.step == StepComplete || w.step == StepCancelled || w.step == StepFailed {
		return
	}
	w.cleanup()
	w.step = StepCancelled
	w.log.Info().Msg("import cancelled")
}

func (w *Wizard) requireStep(expected Step) error {
	if w.step != expected {
		return fmt.Errorf("step %s not allowed in state %s", expected, w.step)
	}
	return nil
}

func (w *Wizard) isCancelled() bool {
	w.cancelMu.Lock()
	defer w.cancelMu.Unlock()
	return w.cancelled
}

// cleanup releases per-run resources on every exit path.
func (w *Wizard) cleanup() {
	if w.file != nil {
		w.file.Cleanup()
	}
	w.staged = nil
	w.suggestions = nil
	w.accepted = nil
	if cs, ok := w.store.(*store.CSVStore); ok {
		cs.DiscardPending()
	}
}

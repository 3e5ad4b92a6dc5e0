package wizard

import (
	"context"
	"fmt"
	"io"

	"github.com/escapebudget/escape/internal/dedup"
	"github.com/escapebudget/escape/internal/extract"
	"github.com/escapebudget/escape/internal/model"
)

// progressRows is how many rows pass between progress snapshots during
// parsing and between cancellation checks.
const progressRows = 500

// Parse streams the whole file through extraction and duplicate
// detection, then advances to the first mapping step that has unresolved
// values. It is safe to run on a background goroutine while the caller
// polls Progress; cancellation is observed between chunks.
func (w *Wizard) Parse(ctx context.Context) error {
	if err := w.requireStep(StepPreview); err != nil {
		return err
	}
	w.step = StepParsing
	w.setActive(true)
	defer w.setActive(false)

	src, err := OpenRows(w.file.Path)
	if err != nil {
		w.step = StepPreview
		return err
	}
	defer src.Close()

	opts := w.extractOptions()
	maxRows := w.cfg.Import.MaxRows

	var staged []model.StagedTransaction
	rejected := 0
	rowIndex := 0
	dataRows := 0
	for {
		if dataRows%progressRows == 0 {
			if err := w.checkCancel(ctx); err != nil {
				return err
			}
			w.publish(Progress{
				Phase:   PhaseParsing,
				Current: dataRows,
				Total:   TotalUnknown,
				Message: fmt.Sprintf("parsed %d rows", dataRows),
			})
		}
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			w.step = StepPreview
			return err
		}
		if rowIndex <= w.headerRow {
			rowIndex++
			continue
		}
		rowIndex++
		dataRows++
		if dataRows > maxRows {
			w.step = StepPreview
			return &AbortError{Reason: fmt.Sprintf("file exceeds the %d row limit", maxRows)}
		}
		tx, ok := extract.Row(row, w.mapping, opts)
		if !ok {
			rejected++
			continue
		}
		staged = append(staged, tx)
	}

	w.staged = staged
	w.rejected = rejected

	if err := w.detectDuplicates(ctx); err != nil {
		w.staged = nil
		w.step = StepPreview
		return err
	}

	w.log.Info().
		Int("staged", len(w.staged)).
		Int("rejected", w.rejected).
		Int("duplicates", w.flagged).
		Msg("parse complete")
	w.advanceAfterParsing()
	return nil
}

// detectDuplicates fetches the ledger window covering the batch and flags
// likely re-imports. The fetch happens before any record is committed, so
// freshly committed rows never count as duplicates of themselves.
func (w *Wizard) detectDuplicates(ctx context.Context) error {
	if !w.cfg.Import.DetectDuplicates || len(w.staged) == 0 {
		w.flagged = 0
		return nil
	}
	if err := w.checkCancel(ctx); err != nil {
		return err
	}
	cfg := dedup.Config{
		UseNormalizedPayee:  w.cfg.Duplicates.UseNormalizedPayee,
		SimilarityThreshold: w.cfg.Duplicates.SimilarityThreshold,
		DateToleranceDays:   w.cfg.Duplicates.DateToleranceDays,
	}
	from, to, ok := dedup.DateRange(w.staged)
	if !ok {
		w.flagged = 0
		return nil
	}
	from = from.AddDate(0, 0, -cfg.DateToleranceDays)
	to = to.AddDate(0, 0, cfg.DateToleranceDays)
	existing, err := w.store.Fetch(from, to)
	if err != nil {
		return fmt.Errorf("fetch ledger window: %w", err)
	}
	w.flagged = dedup.Annotate(w.staged, existing, w.resolveAccountID, cfg)
	return nil
}

// resolveAccountID maps a staged transaction to a ledger account using the
// run's mapping table first, then the account service, then the default.
func (w *Wizard) resolveAccountID(tx *model.StagedTransaction) int {
	if tx.RawAccount != "" {
		if id, ok := w.accountMap[tx.RawAccount]; ok {
			return id
		}
		if acct, ok := w.accounts.ResolveAccount(tx.RawAccount); ok {
			return acct.ID
		}
	}
	return w.defaultAccount
}

func (w *Wizard) resolveCategoryID(tx *model.StagedTransaction) int {
	if tx.Kind == model.KindTransfer || tx.RawCategory == "" {
		return 0
	}
	if id, ok := w.categoryMap[tx.RawCategory]; ok {
		return id
	}
	if cat, ok := w.accounts.ResolveCategory(tx.RawCategory); ok {
		return cat.ID
	}
	return 0
}

func (w *Wizard) checkCancel(ctx context.Context) error {
	if w.isCancelled() {
		w.cleanup()
		w.step = StepCancelled
		return &AbortError{Reason: "import cancelled"}
	}
	if err := ctx.Err(); err != nil {
		w.cleanup()
		w.step = StepCancelled
		return err
	}
	return nil
}

// advanceAfterParsing lands on the first mapping step with unresolved raw
// values, or straight on review when there are none.
func (w *Wizard) advanceAfterParsing() {
	for _, s := range []Step{StepMapAccounts, StepMapCategories, StepMapTags} {
		if w.mappingStepNeeded(s) {
			w.step = s
			return
		}
	}
	w.step = StepReview
}

func (w *Wizard) mappingStepNeeded(s Step) bool {
	switch s {
	case StepMapAccounts:
		return len(w.UnresolvedAccounts()) > 0
	case StepMapCategories:
		return len(w.UnresolvedCategories()) > 0
	case StepMapTags:
		return len(w.UnresolvedTags()) > 0
	case StepReview:
		return true
	}
	return false
}

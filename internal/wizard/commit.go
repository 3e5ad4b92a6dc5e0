package wizard

import (
	"context"
	"fmt"

	"github.com/escapebudget/escape/internal/model"
	"github.com/escapebudget/escape/internal/postprocess"
	"github.com/escapebudget/escape/internal/transfer"
)

// checkpointRecords is how many records are committed between durable
// checkpoints. Cancelling mid-commit keeps completed checkpoints.
const checkpointRecords = 100

// Commit links the accepted transfer pairs, persists the selected staged
// transactions in chunks, runs post-commit processing over the committed
// batch, and finishes the run. A failure anywhere ends the run in
// StepFailed with its buffers discarded, so a retry cannot re-insert
// checkpointed records; records saved by earlier checkpoints remain in
// the ledger and a re-import flags them as exact duplicates.
func (w *Wizard) Commit(ctx context.Context) (Summary, error) {
	if err := w.requireStep(StepReview); err != nil {
		return Summary{}, err
	}
	w.setActive(true)
	defer w.setActive(false)

	w.publish(Progress{Phase: PhasePreparing, Total: TotalUnknown, Message: "preparing records"})
	if err := w.accounts.Save(w.ledgerRoot); err != nil {
		return Summary{}, fmt.Errorf("save accounts: %w", err)
	}

	// Link the accepted transfer pairs now; pairs gone stale since
	// acceptance are skipped.
	for _, s := range w.accepted {
		transfer.Link(w.staged, s)
	}
	w.accepted = nil

	var committed []model.LedgerRecord
	originalPayee := make(map[string]string)
	selected := 0
	for i := range w.staged {
		if w.staged[i].IsSelected {
			selected++
		} else {
			w.skipped++
		}
	}

	sinceCheckpoint := 0
	for i := range w.staged {
		tx := &w.staged[i]
		if !tx.IsSelected {
			continue
		}
		rec, err := w.buildRecord(tx)
		if err != nil {
			w.committed -= sinceCheckpoint
			return Summary{}, w.failCommit(err)
		}
		originalPayee[rec.ID] = tx.RawPayee
		w.store.Insert(rec)
		committed = append(committed, rec)
		w.committed++
		sinceCheckpoint++

		if sinceCheckpoint >= checkpointRecords {
			if err := w.store.Save(); err != nil {
				w.committed -= sinceCheckpoint
				return Summary{}, w.failCommit(fmt.Errorf("commit checkpoint: %w", err))
			}
			sinceCheckpoint = 0
			w.publish(Progress{
				Phase:   PhaseSaving,
				Current: w.committed,
				Total:   selected,
				Message: fmt.Sprintf("saved %d of %d", w.committed, selected),
			})
			if err := w.checkCancel(ctx); err != nil {
				return Summary{}, err
			}
		}
	}
	if err := w.store.Save(); err != nil {
		w.committed -= sinceCheckpoint
		return Summary{}, w.failCommit(fmt.Errorf("commit save: %w", err))
	}

	summary := Summary{
		Staged:     len(w.staged),
		Rejected:   w.rejected,
		Duplicates: w.flagged,
		Committed:  w.committed,
		Skipped:    w.skipped,
	}

	result, err := w.runProcessing(committed, originalPayee)
	if err != nil {
		return summary, w.failCommit(err)
	}
	summary.Processing = result

	w.log.Info().
		Int("staged", summary.Staged).
		Int("rejected", summary.Rejected).
		Int("duplicates", summary.Duplicates).
		Int("committed", summary.Committed).
		Int("skipped", summary.Skipped).
		Int("changed", summary.Processing.ChangedCount).
		Msg("import complete")

	w.file.Cleanup()
	w.step = StepComplete
	return summary, nil
}

// failCommit ends the run after a commit-phase error. Pending buffers are
// discarded and the temp file deleted; successfully checkpointed records
// stay in the ledger.
func (w *Wizard) failCommit(err error) error {
	w.log.Error().Err(err).Int("committed", w.committed).Msg("commit failed")
	w.cleanup()
	w.step = StepFailed
	return err
}

// buildRecord resolves a staged transaction against the run's mapping
// tables into a durable ledger record.
func (w *Wizard) buildRecord(tx *model.StagedTransaction) (model.LedgerRecord, error) {
	id, err := w.store.NextID(tx.Date)
	if err != nil {
		return model.LedgerRecord{}, fmt.Errorf("allocate record id: %w", err)
	}
	return model.LedgerRecord{
		ID:                     id,
		Date:                   tx.Date,
		Payee:                  tx.Payee,
		Amount:                 tx.Amount,
		Memo:                   tx.Memo,
		AccountID:              w.resolveAccountID(tx),
		CategoryID:             w.resolveCategoryID(tx),
		Tags:                   w.mappedTags(tx.RawTags),
		Status:                 tx.Status,
		Kind:                   tx.Kind,
		TransferID:             tx.TransferID,
		TransferInboxDismissed: tx.TransferInboxDismissed,
		ExternalTransferLabel:  tx.ExternalTransferLabel,
	}, nil
}

func (w *Wizard) mappedTags(raw []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tag := range raw {
		name := tag
		if mapped, ok := w.tagMap[tag]; ok {
			name = mapped
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// runProcessing applies the post-commit behaviors to the records just
// saved and persists whatever they changed.
func (w *Wizard) runProcessing(committed []model.LedgerRecord, originalPayee map[string]string) (ProcessingSummary, error) {
	cfg := w.processingConfig()
	if !cfg.NormalizePayee && !cfg.ApplyAutoRules && !cfg.SuggestTransfers {
		return ProcessingSummary{}, nil
	}
	w.publish(Progress{
		Phase:   PhaseProcessing,
		Total:   len(committed),
		Message: "processing committed records",
	})

	proc := postprocess.New(w.rules, w.store)
	result, histLog, err := proc.Process(committed, originalPayee, cfg)
	if err != nil {
		return ProcessingSummary{}, fmt.Errorf("post-commit processing: %w", err)
	}

	if len(result.ChangedIDs) > 0 {
		changed := make(map[string]bool, len(result.ChangedIDs))
		for _, id := range result.ChangedIDs {
			changed[id] = true
		}
		for i := range committed {
			if changed[committed[i].ID] {
				w.store.Update(committed[i])
			}
		}
		if err := w.store.Save(); err != nil {
			return ProcessingSummary{}, fmt.Errorf("save processed records: %w", err)
		}
	}

	if cfg.SaveProcessingHistory && histLog != nil {
		if err := histLog.Flush(w.ledgerRoot); err != nil {
			return ProcessingSummary{}, fmt.Errorf("flush processing history: %w", err)
		}
	}

	return ProcessingSummary{
		ChangedCount:                          result.ChangedCount,
		PayeesNormalizedCount:                 result.PayeesNormalizedCount,
		TransactionsWithRulesApplied:          result.TransactionsWithRulesApplied,
		TransferSuggestionsInvolvingProcessed: result.TransferSuggestionsInvolvingProcessed,
	}, nil
}

func (w *Wizard) processingConfig() postprocess.Config {
	return postprocess.Config{
		NormalizePayee:          w.cfg.Import.NormalizePayee,
		ApplyAutoRules:          w.cfg.Import.ApplyAutoRules,
		SuggestTransfers:        w.cfg.Import.SuggestTransfers,
		SaveProcessingHistory:   w.cfg.Import.SaveProcessingHistory,
		MaxDetailedTransactions: w.cfg.History.MaxDetailedTransactions,
		MaxEventsPerTransaction: w.cfg.History.MaxEventsPerTransaction,
		MaxTransferDaysApart:    w.cfg.Transfers.MaxDaysApart,
	}
}

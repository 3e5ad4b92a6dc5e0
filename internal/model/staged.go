package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StagedStatus is the clearing state of a staged transaction.
type StagedStatus string

const (
	StatusUncleared  StagedStatus = "uncleared"
	StatusCleared    StagedStatus = "cleared"
	StatusReconciled StagedStatus = "reconciled"
)

// StagedKind classifies a staged transaction.
type StagedKind string

const (
	KindStandard   StagedKind = "standard"
	KindTransfer   StagedKind = "transfer"
	KindIgnored    StagedKind = "ignored"
	KindAdjustment StagedKind = "adjustment"
)

// StagedTransaction is a candidate transaction parsed from an import file,
// not yet committed to the ledger. It is mutated only by the wizard between
// staging and commit; every other component treats it as a value.
type StagedTransaction struct {
	ID       uuid.UUID
	Date     time.Time
	Payee    string
	RawPayee string // untouched original, kept for rule matching
	Amount   decimal.Decimal
	Memo     string

	// Original string labels from the file; resolved against the
	// user-maintained mapping tables during the wizard's mapping steps.
	// Empty means the file carried no value.
	RawCategory string
	RawAccount  string
	RawTags     []string

	Status StagedStatus
	Kind   StagedKind

	// TransferID is shared by exactly two staged transactions forming a
	// transfer pair: one outflow leg and one inflow leg on two distinct
	// accounts, both Kind == KindTransfer.
	TransferID             *uuid.UUID
	TransferInboxDismissed bool
	ExternalTransferLabel  string

	IsDuplicate     bool
	DuplicateReason string
	IsSelected      bool
}

// HasCategory reports whether the row carried a category label.
func (t *StagedTransaction) HasCategory() bool {
	return t.RawCategory != ""
}

// IsOutflow reports whether the amount is strictly negative.
func (t *StagedTransaction) IsOutflow() bool {
	return t.Amount.IsNegative()
}

// IsInflow reports whether the amount is strictly positive.
func (t *StagedTransaction) IsInflow() bool {
	return t.Amount.IsPositive()
}

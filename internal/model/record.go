package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerRecord is a durably committed transaction in the ledger.
type LedgerRecord struct {
	ID         string // "YYYY-MM-NNN"
	Date       time.Time
	Payee      string
	Amount     decimal.Decimal
	Memo       string
	AccountID  int
	CategoryID int // 0 = uncategorized
	Tags       []string
	Status     StagedStatus
	Kind       StagedKind

	TransferID             *uuid.UUID
	TransferInboxDismissed bool
	ExternalTransferLabel  string
}

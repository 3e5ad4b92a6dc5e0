package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/escapebudget/escape/internal/model"
)

// Header is the CSV header for ledger.csv.
const Header = "id,date,payee,amount,memo,account_id,category_id,tags,status,kind,transfer_id,inbox_dismissed,external_transfer_label"

const (
	numFields     = 13
	dateFormat    = "2006-01-02"
	tagSeparator  = ";"
	colID         = 0
	colDate       = 1
	colPayee      = 2
	colAmount     = 3
	colMemo       = 4
	colAcctID     = 5
	colCatID      = 6
	colTags       = 7
	colStatus     = 8
	colKind       = 9
	colTransferID = 10
	colDismissed  = 11
	colExtLabel   = 12
)

// ReadRecords reads all ledger records from a ledger.csv reader.
func ReadRecords(r io.Reader) ([]model.LedgerRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger CSV: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	// Skip header row.
	var records []model.LedgerRecord
	for i, row := range rows[1:] {
		rec, err := UnmarshalRecord(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteRecords writes records to a ledger.csv writer (including header).
func WriteRecords(w io.Writer, records []model.LedgerRecord) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, rec := range records {
		if err := cw.Write(MarshalRecord(rec)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalRecord converts a LedgerRecord to a CSV row.
func MarshalRecord(rec model.LedgerRecord) []string {
	row := make([]string, numFields)
	row[colID] = rec.ID
	row[colDate] = rec.Date.Format(dateFormat)
	row[colPayee] = rec.Payee
	row[colAmount] = rec.Amount.StringFixed(2)
	row[colMemo] = rec.Memo
	row[colAcctID] = strconv.Itoa(rec.AccountID)
	if rec.CategoryID != 0 {
		row[colCatID] = strconv.Itoa(rec.CategoryID)
	}
	row[colTags] = strings.Join(rec.Tags, tagSeparator)
	row[colStatus] = string(rec.Status)
	row[colKind] = string(rec.Kind)
	if rec.TransferID != nil {
		row[colTransferID] = rec.TransferID.String()
	}
	if rec.TransferInboxDismissed {
		row[colDismissed] = "true"
	}
	row[colExtLabel] = rec.ExternalTransferLabel
	return row
}

// UnmarshalRecord converts a CSV row to a LedgerRecord.
func UnmarshalRecord(row []string) (model.LedgerRecord, error) {
	if len(row) != numFields {
		return model.LedgerRecord{}, fmt.Errorf("expected %d fields, got %d", numFields, len(row))
	}

	date, err := time.Parse(dateFormat, row[colDate])
	if err != nil {
		return model.LedgerRecord{}, fmt.Errorf("parsing date %q: %w", row[colDate], err)
	}

	amount, err := decimal.NewFromString(row[colAmount])
	if err != nil {
		return model.LedgerRecord{}, fmt.Errorf("parsing amount %q: %w", row[colAmount], err)
	}

	accountID, err := strconv.Atoi(row[colAcctID])
	if err != nil {
		return model.LedgerRecord{}, fmt.Errorf("parsing account_id %q: %w", row[colAcctID], err)
	}

	categoryID := 0
	if row[colCatID] != "" {
		categoryID, err = strconv.Atoi(row[colCatID])
		if err != nil {
			return model.LedgerRecord{}, fmt.Errorf("parsing category_id %q: %w", row[colCatID], err)
		}
	}

	var transferID *uuid.UUID
	if row[colTransferID] != "" {
		parsed, err := uuid.Parse(row[colTransferID])
		if err != nil {
			return model.LedgerRecord{}, fmt.Errorf("parsing transfer_id %q: %w", row[colTransferID], err)
		}
		transferID = &parsed
	}

	var tags []string
	if row[colTags] != "" {
		tags = strings.Split(row[colTags], tagSeparator)
	}

	return model.LedgerRecord{
		ID:                     row[colID],
		Date:                   date,
		Payee:                  row[colPayee],
		Amount:                 amount,
		Memo:                   row[colMemo],
		AccountID:              accountID,
		CategoryID:             categoryID,
		Tags:                   tags,
		Status:                 model.StagedStatus(row[colStatus]),
		Kind:                   model.StagedKind(row[colKind]),
		TransferID:             transferID,
		TransferInboxDismissed: row[colDismissed] == "true",
		ExternalTransferLabel:  row[colExtLabel],
	}, nil
}

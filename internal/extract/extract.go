// Package extract turns one parsed CSV row into a staged transaction.
//
// Extraction is a pure function over the row, the column mapping, and the
// date/sign conventions, so it is safe to run off the wizard's sequencing
// path. Rows that cannot yield a date and an amount are rejected, not
// errored; the wizard counts rejects for reporting.
package extract

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/escapebudget/escape/internal/model"
)

// SignConvention declares what a positive value means in a single
// Amount-column file. It never applies to inflow/outflow pairs, which are
// already directionally labeled.
type SignConvention string

const (
	PositiveIsIncome  SignConvention = "positive_is_income"
	PositiveIsExpense SignConvention = "positive_is_expense"
)

// dateFormats are tried in order when no format hint is set.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"02.01.2006",
	"2006/01/02",
	"02 Jan 2006",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Options control row extraction.
type Options struct {
	// DateFormat is a Go reference-time layout. Empty means auto-detect.
	DateFormat string
	Sign       SignConvention
	// TagDelimiter splits a mapped Tags cell. Empty defaults to ",".
	TagDelimiter string
}

// Row converts one raw row into a staged transaction. ok is false when the
// row has no parseable date or no resolvable amount.
func Row(row []string, mapping model.ColumnMapping, opts Options) (model.StagedTransaction, bool) {
	date, ok := parseDate(cell(row, mapping, model.FieldDate), opts.DateFormat)
	if !ok {
		return model.StagedTransaction{}, false
	}

	amount, ok := resolveAmount(row, mapping, opts.Sign)
	if !ok {
		return model.StagedTransaction{}, false
	}

	rawPayee := cell(row, mapping, model.FieldPayee)
	txn := model.StagedTransaction{
		ID:          uuid.New(),
		Date:        date,
		Payee:       strings.TrimSpace(rawPayee),
		RawPayee:    rawPayee,
		Amount:      amount,
		Memo:        strings.TrimSpace(cell(row, mapping, model.FieldMemo)),
		RawCategory: strings.TrimSpace(cell(row, mapping, model.FieldCategory)),
		RawAccount:  strings.TrimSpace(cell(row, mapping, model.FieldAccount)),
		RawTags:     splitTags(cell(row, mapping, model.FieldTags), opts.TagDelimiter),
		Status:      parseStatus(cell(row, mapping, model.FieldStatus)),
		Kind:        parseKind(cell(row, mapping, model.FieldKind)),
		IsSelected:  true,
	}

	txn.ExternalTransferLabel = strings.TrimSpace(cell(row, mapping, model.FieldExternalTransferLabel))
	txn.TransferInboxDismissed = parseBool(cell(row, mapping, model.FieldTransferInboxDismissed))

	// An explicit transfer ID binds the pair and forces the kind.
	if raw := strings.TrimSpace(cell(row, mapping, model.FieldTransferID)); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			txn.TransferID = &id
			txn.Kind = model.KindTransfer
		}
	}

	// Transfers never carry a category.
	if txn.Kind == model.KindTransfer {
		txn.RawCategory = ""
	}

	return txn, true
}

func cell(row []string, mapping model.ColumnMapping, field model.ColumnField) string {
	col, ok := mapping.ColumnOf(field)
	if !ok || col >= len(row) {
		return ""
	}
	return row[col]
}

func parseDate(s, hint string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if hint != "" {
		t, err := time.Parse(hint, s)
		return t, err == nil
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// resolveAmount prefers the inflow/outflow scheme when either column is
// mapped; the sign convention applies only to the single-Amount path.
// When neither inflow nor outflow cell holds a number (a DR/CR indicator
// column mapped as outflow, say) a mapped Amount column takes over.
func resolveAmount(row []string, mapping model.ColumnMapping, sign SignConvention) (decimal.Decimal, bool) {
	if mapping.Has(model.FieldInflow) || mapping.Has(model.FieldOutflow) {
		inflow, inOK := parseMoney(cell(row, mapping, model.FieldInflow))
		outflow, outOK := parseMoney(cell(row, mapping, model.FieldOutflow))
		if inOK || outOK {
			return inflow.Abs().Sub(outflow.Abs()), true
		}
		if !mapping.Has(model.FieldAmount) {
			return decimal.Decimal{}, false
		}
	}

	amount, ok := parseMoney(cell(row, mapping, model.FieldAmount))
	if !ok {
		return decimal.Decimal{}, false
	}
	if sign == PositiveIsExpense {
		amount = amount.Neg()
	}
	return amount, true
}

// parseMoney parses a currency cell, tolerating symbols, thousands
// separators, and accounting-style parentheses for negatives.
func parseMoney(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', ',', ' ':
			return -1
		}
		return r
	}, s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// splitTags splits, trims, deduplicates case-insensitively while keeping
// the first-seen casing, and sorts for stable display.
func splitTags(s, delimiter string) []string {
	if delimiter == "" {
		delimiter = ","
	}
	var tags []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, delimiter) {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		return strings.ToLower(tags[i]) < strings.ToLower(tags[j])
	})
	return tags
}

func parseStatus(s string) model.StagedStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cleared", "c", "yes", "true":
		return model.StatusCleared
	case "reconciled", "r":
		return model.StatusReconciled
	default:
		return model.StatusUncleared
	}
}

func parseKind(s string) model.StagedKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "transfer":
		return model.KindTransfer
	case "ignored":
		return model.KindIgnored
	case "adjustment":
		return model.KindAdjustment
	default:
		return model.KindStandard
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true
	}
	return false
}

package model

import "sort"

// ColumnField is the semantic meaning assigned to one CSV column.
type ColumnField string

const (
	FieldDate                   ColumnField = "date"
	FieldPayee                  ColumnField = "payee"
	FieldAmount                 ColumnField = "amount"
	FieldMemo                   ColumnField = "memo"
	FieldCategory               ColumnField = "category"
	FieldAccount                ColumnField = "account"
	FieldTags                   ColumnField = "tags"
	FieldStatus                 ColumnField = "status"
	FieldKind                   ColumnField = "kind"
	FieldTransferID             ColumnField = "transfer_id"
	FieldExternalTransferLabel  ColumnField = "external_transfer_label"
	FieldTransferInboxDismissed ColumnField = "transfer_inbox_dismissed"
	FieldPurchaseItems          ColumnField = "purchase_items"
	FieldInflow                 ColumnField = "inflow"
	FieldOutflow                ColumnField = "outflow"
	FieldSkip                   ColumnField = "skip"
)

// ColumnMapping is a partial assignment of column index to semantic field.
type ColumnMapping map[int]ColumnField

// Set maps a column to a field unless the column is already mapped.
// Returns true if the mapping was applied. First match wins; a mapped
// column is never overwritten.
func (m ColumnMapping) Set(col int, field ColumnField) bool {
	if _, mapped := m[col]; mapped {
		return false
	}
	m[col] = field
	return true
}

// ColumnOf returns the lowest column index mapped to field.
func (m ColumnMapping) ColumnOf(field ColumnField) (int, bool) {
	best := -1
	for col, f := range m {
		if f != field {
			continue
		}
		if best == -1 || col < best {
			best = col
		}
	}
	return best, best != -1
}

// Has reports whether any column is mapped to field.
func (m ColumnMapping) Has(field ColumnField) bool {
	_, ok := m.ColumnOf(field)
	return ok
}

// Advanceable reports whether the mapping is complete enough to parse:
// a Date column plus either an Amount column or an Inflow/Outflow column.
func (m ColumnMapping) Advanceable() bool {
	if !m.Has(FieldDate) {
		return false
	}
	return m.Has(FieldAmount) || m.Has(FieldInflow) || m.Has(FieldOutflow)
}

// Columns returns the mapped column indexes in ascending order.
func (m ColumnMapping) Columns() []int {
	cols := make([]int, 0, len(m))
	for col := range m {
		cols = append(cols, col)
	}
	sort.Ints(cols)
	return cols
}

// Clone returns a copy of the mapping.
func (m ColumnMapping) Clone() ColumnMapping {
	out := make(ColumnMapping, len(m))
	for col, f := range m {
		out[col] = f
	}
	return out
}

package dedup

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escapebudget/escape/internal/model"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func resolveAll(account int) AccountResolver {
	return func(*model.StagedTransaction) int { return account }
}

func TestAnnotate_ExactMatch(t *testing.T) {
	staged := []model.StagedTransaction{
		{Date: day("2024-03-01"), Payee: "Coffee Shop", Amount: money("-20.00"), IsSelected: true},
	}
	existing := []model.LedgerRecord{
		{ID: "2024-03-001", Date: day("2024-03-01"), Payee: "Coffee Shop", Amount: money("-20.00"), AccountID: 1},
	}

	flagged := Annotate(staged, existing, resolveAll(1), DefaultConfig())

	assert.Equal(t, 1, flagged)
	assert.True(t, staged[0].IsDuplicate)
	assert.False(t, staged[0].IsSelected)
	assert.Contains(t, staged[0].DuplicateReason, "same date, amount, and account")
	assert.Contains(t, staged[0].DuplicateReason, "2024-03-001")
}

func TestAnnotate_NoMatchSelects(t *testing.T) {
	staged := []model.StagedTransaction{
		{Date: day("2024-03-01"), Payee: "Coffee Shop", Amount: money("-20.00"), IsSelected: false, IsDuplicate: true, DuplicateReason: "stale"},
	}

	flagged := Annotate(staged, nil, resolveAll(1), DefaultConfig())

	assert.Zero(t, flagged)
	assert.False(t, staged[0].IsDuplicate)
	assert.True(t, staged[0].IsSelected)
	assert.Empty(t, staged[0].DuplicateReason)
}

func TestAnnotate_DifferentAccountNotDuplicate(t *testing.T) {
	staged := []model.StagedTransaction{
		{Date: day("2024-03-01"), Payee: "Coffee Shop", Amount: money("-20.00")},
	}
	existing := []model.LedgerRecord{
		{ID: "a", Date: day("2024-03-01"), Payee: "Coffee Shop", Amount: money("-20.00"), AccountID: 2},
	}

	flagged := Annotate(staged, existing, resolveAll(1), DefaultConfig())
	assert.Zero(t, flagged)
}

func TestAnnotate_FuzzyWithinWindow(t *testing.T) {
	staged := []model.StagedTransaction{
		{Date: day("2024-03-03"), Payee: "STARBUCKS #1234", Amount: money("-5.25")},
	}
	existing := []model.LedgerRecord{
		{ID: "b", Date: day("2024-03-01"), Payee: "Starbucks 1234", Amount: money("-5.25"), AccountID: 1},
	}

	flagged := Annotate(staged, existing, resolveAll(1), DefaultConfig())

	require.Equal(t, 1, flagged)
	assert.Contains(t, staged[0].DuplicateReason, "similar payee")
}

func TestAnnotate_FuzzyOutsideWindow(t *testing.T) {
	staged := []model.StagedTransaction{
		{Date: day("2024-03-05"), Payee: "Starbucks", Amount: money("-5.25")},
	}
	existing := []model.LedgerRecord{
		{ID: "b", Date: day("2024-03-01"), Payee: "Starbucks", Amount: money("-5.25"), AccountID: 1},
	}

	assert.Zero(t, Annotate(staged, existing, resolveAll(1), DefaultConfig()))
}

func TestAnnotate_FuzzyDisabled(t *testing.T) {
	staged := []model.StagedTransaction{
		{Date: day("2024-03-02"), Payee: "Starbucks", Amount: money("-5.25")},
	}
	existing := []model.LedgerRecord{
		{ID: "b", Date: day("2024-03-01"), Payee: "Starbucks", Amount: money("-5.25"), AccountID: 1},
	}

	cfg := DefaultConfig()
	cfg.UseNormalizedPayee = false
	assert.Zero(t, Annotate(staged, existing, resolveAll(1), cfg))
}

func TestAnnotate_ThresholdBoundaryInclusive(t *testing.T) {
	// "abcdefghij" vs "abcdefghiX": distance 1 over length 10 = 0.90.
	staged := []model.StagedTransaction{
		{Date: day("2024-03-01"), Payee: "abcdefghij", Amount: money("-1.00")},
	}
	existing := []model.LedgerRecord{
		{ID: "c", Date: day("2024-03-02"), Payee: "abcdefghix", Amount: money("-1.00"), AccountID: 1},
	}

	cfg := DefaultConfig()
	cfg.SimilarityThreshold = 0.90
	assert.Equal(t, 1, Annotate(staged, existing, resolveAll(1), cfg), "score equal to threshold matches")

	cfg.SimilarityThreshold = 0.91
	assert.Zero(t, Annotate(staged, existing, resolveAll(1), cfg), "score below threshold does not match")
}

func TestAnnotate_Deterministic(t *testing.T) {
	staged := []model.StagedTransaction{
		{Date: day("2024-03-01"), Payee: "Coffee", Amount: money("-20.00")},
	}
	existing := []model.LedgerRecord{
		{ID: "first", Date: day("2024-03-01"), Payee: "Coffee", Amount: money("-20.00"), AccountID: 1},
		{ID: "second", Date: day("2024-03-01"), Payee: "Coffee", Amount: money("-20.00"), AccountID: 1},
	}

	for i := 0; i < 10; i++ {
		Annotate(staged, existing, resolveAll(1), DefaultConfig())
		assert.Contains(t, staged[0].DuplicateReason, "first")
	}
}

func TestDateRange(t *testing.T) {
	staged := []model.StagedTransaction{
		{Date: day("2024-03-05")},
		{Date: day("2024-03-01")},
		{Date: day("2024-03-03")},
	}
	from, to, ok := DateRange(staged)
	require.True(t, ok)
	assert.Equal(t, day("2024-03-01"), from)
	assert.Equal(t, day("2024-03-05"), to)

	_, _, ok = DateRange(nil)
	assert.False(t, ok)
}

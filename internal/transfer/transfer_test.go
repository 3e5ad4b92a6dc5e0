package transfer

import (
	"testing"
	"time"

	"github.com/google/uuid"
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

// resolveByRawAccount maps "a"->1, "b"->2, everything else unresolved.
func resolveByRawAccount(txn *model.StagedTransaction) int {
	switch txn.RawAccount {
	case "a":
		return 1
	case "b":
		return 2
	}
	return 0
}

func noHint(string) bool { return false }

func leg(date, account, amount string) model.StagedTransaction {
	return model.StagedTransaction{
		ID:         uuid.New(),
		Date:       day(date),
		RawAccount: account,
		Amount:     money(amount),
		Kind:       model.KindStandard,
		IsSelected: true,
	}
}

func TestSuggest_ExactPairSameDay(t *testing.T) {
	staged := []model.StagedTransaction{
		leg("2024-03-01", "a", "-500.00"),
		leg("2024-03-01", "b", "500.00"),
	}

	got := Suggest(staged, DefaultConfig(), resolveByRawAccount, noHint)

	require.Len(t, got, 1)
	assert.Equal(t, staged[0].ID, got[0].OutflowID)
	assert.Equal(t, staged[1].ID, got[0].InflowID)
	assert.InDelta(t, 0.90, got[0].Score, 1e-9) // full date + amount, no hint
}

func TestSuggest_HintBoost(t *testing.T) {
	staged := []model.StagedTransaction{
		leg("2024-03-01", "a", "-500.00"),
		leg("2024-03-01", "b", "500.00"),
	}
	staged[0].RawCategory = "Transfer"

	hint := func(raw string) bool { return raw == "" || raw == "Transfer" }
	got := Suggest(staged, DefaultConfig(), resolveByRawAccount, hint)

	require.Len(t, got, 1)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
}

func TestSuggest_SameAccountExcluded(t *testing.T) {
	staged := []model.StagedTransaction{
		leg("2024-03-01", "a", "-500.00"),
		leg("2024-03-01", "a", "500.00"),
	}
	assert.Empty(t, Suggest(staged, DefaultConfig(), resolveByRawAccount, noHint))
}

func TestSuggest_BeyondMaxDaysExcluded(t *testing.T) {
	staged := []model.StagedTransaction{
		leg("2024-03-01", "a", "-500.00"),
		leg("2024-03-10", "b", "500.00"),
	}
	assert.Empty(t, Suggest(staged, DefaultConfig(), resolveByRawAccount, noHint))
}

func TestSuggest_IneligibleExcluded(t *testing.T) {
	base := []model.StagedTransaction{
		leg("2024-03-01", "a", "-500.00"),
		leg("2024-03-01", "b", "500.00"),
	}

	mutations := []func(*model.StagedTransaction){
		func(l *model.StagedTransaction) { l.IsSelected = false },
		func(l *model.StagedTransaction) { l.IsDuplicate = true },
		func(l *model.StagedTransaction) { l.Kind = model.KindIgnored },
		func(l *model.StagedTransaction) { id := uuid.New(); l.TransferID = &id },
		func(l *model.StagedTransaction) { l.Amount = decimal.Zero },
		func(l *model.StagedTransaction) { l.RawAccount = "unknown" },
	}
	for i, mutate := range mutations {
		staged := make([]model.StagedTransaction, len(base))
		copy(staged, base)
		mutate(&staged[0])
		assert.Empty(t, Suggest(staged, DefaultConfig(), resolveByRawAccount, noHint), "mutation %d", i)
	}
}

func TestSuggest_NearMatchScoresLower(t *testing.T) {
	exact := []model.StagedTransaction{
		leg("2024-03-01", "a", "-500.00"),
		leg("2024-03-01", "b", "500.00"),
	}
	near := []model.StagedTransaction{
		leg("2024-03-01", "a", "-500.00"),
		leg("2024-03-01", "b", "500.75"),
	}

	exactGot := Suggest(exact, DefaultConfig(), resolveByRawAccount, noHint)
	nearGot := Suggest(near, DefaultConfig(), resolveByRawAccount, noHint)

	require.Len(t, exactGot, 1)
	require.Len(t, nearGot, 1)
	assert.Greater(t, exactGot[0].Score, nearGot[0].Score)
}

func TestSuggest_SortedAndTruncated(t *testing.T) {
	staged := []model.StagedTransaction{
		leg("2024-03-01", "a", "-500.00"),
		leg("2024-03-01", "b", "500.00"), // same-day exact pair
		leg("2024-03-05", "a", "-200.00"),
		leg("2024-03-06", "b", "200.00"), // one-day-apart pair
	}

	got := Suggest(staged, DefaultConfig(), resolveByRawAccount, noHint)
	require.GreaterOrEqual(t, len(got), 2)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}

	cfg := DefaultConfig()
	cfg.MaxSuggestions = 1
	got = Suggest(staged, cfg, resolveByRawAccount, noHint)
	require.Len(t, got, 1)
	assert.Equal(t, staged[0].ID, got[0].OutflowID)
}

func TestLink_AssignsSharedPair(t *testing.T) {
	staged := []model.StagedTransaction{
		leg("2024-03-01", "a", "-500.00"),
		leg("2024-03-01", "b", "500.00"),
	}
	staged[0].RawCategory = "Misc"
	staged[1].IsSelected = false

	s := Suggest(staged, DefaultConfig(), resolveByRawAccount, noHint)
	// The inflow leg was deselected after suggesting; Link forces it back.
	require.Empty(t, s)
	ok := Link(staged, Suggestion{OutflowID: staged[0].ID, InflowID: staged[1].ID})
	require.True(t, ok)

	require.NotNil(t, staged[0].TransferID)
	require.NotNil(t, staged[1].TransferID)
	assert.Equal(t, *staged[0].TransferID, *staged[1].TransferID)
	for i := range staged {
		assert.Equal(t, model.KindTransfer, staged[i].Kind)
		assert.True(t, staged[i].IsSelected)
		assert.False(t, staged[i].HasCategory())
	}
}

func TestLink_StaleSuggestionSkipped(t *testing.T) {
	staged := []model.StagedTransaction{
		leg("2024-03-01", "a", "-500.00"),
		leg("2024-03-01", "b", "500.00"),
		leg("2024-03-01", "b", "500.00"),
	}

	first := Suggestion{OutflowID: staged[0].ID, InflowID: staged[1].ID}
	second := Suggestion{OutflowID: staged[0].ID, InflowID: staged[2].ID}

	require.True(t, Link(staged, first))
	assert.False(t, Link(staged, second), "outflow already linked")
	assert.Nil(t, staged[2].TransferID)
}

func TestUnlink_ResetsBothLegs(t *testing.T) {
	staged := []model.StagedTransaction{
		leg("2024-03-01", "a", "-500.00"),
		leg("2024-03-01", "b", "500.00"),
	}
	require.True(t, Link(staged, Suggestion{OutflowID: staged[0].ID, InflowID: staged[1].ID}))

	id := *staged[0].TransferID
	assert.Equal(t, 2, Unlink(staged, id))
	for i := range staged {
		assert.Equal(t, model.KindStandard, staged[i].Kind)
		assert.Nil(t, staged[i].TransferID)
	}
}

func TestRetain(t *testing.T) {
	a := Suggestion{OutflowID: uuid.New(), InflowID: uuid.New(), Score: 0.9}
	b := Suggestion{OutflowID: uuid.New(), InflowID: uuid.New(), Score: 0.8}

	kept := Retain([]Suggestion{a, b}, []Suggestion{a})
	require.Len(t, kept, 1)
	assert.Equal(t, a.OutflowID, kept[0].OutflowID)
}

func TestSuggest_AcceptedLegsDropOut(t *testing.T) {
	staged := []model.StagedTransaction{
		leg("2024-03-01", "a", "-500.00"),
		leg("2024-03-01", "b", "500.00"),
		leg("2024-03-02", "b", "500.00"),
	}

	got := Suggest(staged, DefaultConfig(), resolveByRawAccount, noHint)
	require.Len(t, got, 2, "one outflow, two inflow candidates")

	require.True(t, Link(staged, got[0]))
	refreshed := Suggest(staged, DefaultConfig(), resolveByRawAccount, noHint)
	assert.Empty(t, refreshed, "linked legs are no longer eligible")
}

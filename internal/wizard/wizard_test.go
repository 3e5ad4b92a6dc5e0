package wizard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escapebudget/escape/internal/accounts"
	"github.com/escapebudget/escape/internal/config"
	"github.com/escapebudget/escape/internal/logger"
	"github.com/escapebudget/escape/internal/model"
	"github.com/escapebudget/escape/internal/rules"
	"github.com/escapebudget/escape/internal/store"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	wizard *Wizard
	store  *store.CSVStore
	root   string
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	root := t.TempDir()
	st := store.NewCSVStore(root)
	w := New(Options{
		Config:     cfg,
		Accounts:   accounts.NewService(accounts.DefaultAccounts(), accounts.DefaultCategories()),
		Store:      st,
		Rules:      rules.NewKeywordEngine(nil),
		Logger:     logger.Nop(),
		LedgerRoot: root,
	})
	w.SetDefaultAccount(1)
	return &fixture{wizard: w, store: st, root: root}
}

func writeCSV(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

// drive advances a fresh wizard through file and header selection up to
// the preview step.
func (f *fixture) drive(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, f.wizard.SelectFile(path, ""))
	require.Equal(t, StepSelectHeader, f.wizard.Step())
	require.NoError(t, f.wizard.SelectHeader(f.wizard.SuggestedHeaderRow()))
	require.Equal(t, StepMapColumns, f.wizard.Step())
	require.NoError(t, f.wizard.ConfirmMapping())
	require.Equal(t, StepPreview, f.wizard.Step())
}

func TestImportRoundTrip(t *testing.T) {
	path := writeCSV(t,
		"Date,Payee,Amount",
		"2025-01-05,Landlord,-1200.00",
		"2025-01-06,Employer,2500.00",
		"2025-01-06,Employer,2500.00",
	)
	f := newFixture(t, config.Default())
	f.drive(t, path)

	require.NoError(t, f.wizard.Parse(context.Background()))
	require.Equal(t, StepReview, f.wizard.Step())

	staged := f.wizard.Staged()
	require.Len(t, staged, 3)
	// Duplicate detection compares against the ledger only, so the two
	// identical rows within the batch are not flagged.
	for _, tx := range staged {
		assert.True(t, tx.IsSelected)
		assert.False(t, tx.IsDuplicate)
	}
	assert.True(t, staged[0].Amount.IsNegative())
	assert.True(t, staged[1].Amount.IsPositive())

	summary, err := f.wizard.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepComplete, f.wizard.Step())
	assert.Equal(t, 3, summary.Staged)
	assert.Equal(t, 3, summary.Committed)
	assert.Equal(t, 0, summary.Rejected)
	assert.Equal(t, 0, summary.Duplicates)
	assert.Equal(t, 0, summary.Skipped)

	records, err := f.store.Fetch(day("2025-01-01"), day("2025-01-31"))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "2025-01-001", records[0].ID)
	assert.Equal(t, 1, records[0].AccountID)
}

func TestReimportFlagsDuplicates(t *testing.T) {
	path := writeCSV(t,
		"Date,Payee,Amount",
		"2025-01-05,Landlord,-1200.00",
	)
	f := newFixture(t, config.Default())
	f.drive(t, path)
	require.NoError(t, f.wizard.Parse(context.Background()))
	_, err := f.wizard.Commit(context.Background())
	require.NoError(t, err)

	// Importing the same file into the same ledger flags the row.
	again := newFixture(t, config.Default())
	again.store = f.store
	again.wizard = New(Options{
		Config:     config.Default(),
		Accounts:   accounts.NewService(accounts.DefaultAccounts(), accounts.DefaultCategories()),
		Store:      f.store,
		Rules:      rules.NewKeywordEngine(nil),
		Logger:     logger.Nop(),
		LedgerRoot: f.root,
	})
	again.wizard.SetDefaultAccount(1)
	again.drive(t, path)
	require.NoError(t, again.wizard.Parse(context.Background()))

	staged := again.wizard.Staged()
	require.Len(t, staged, 1)
	assert.True(t, staged[0].IsDuplicate)
	assert.False(t, staged[0].IsSelected)
	assert.Contains(t, staged[0].DuplicateReason, "2025-01-001")
}

func TestRejectedRowsCounted(t *testing.T) {
	path := writeCSV(t,
		"Date,Payee,Amount",
		"2025-01-05,Landlord,-1200.00",
		"not a date,Mystery,10.00",
		"2025-01-06,NoAmount,",
	)
	f := newFixture(t, config.Default())
	f.drive(t, path)
	require.NoError(t, f.wizard.Parse(context.Background()))

	assert.Len(t, f.wizard.Staged(), 1)
	summary, err := f.wizard.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Rejected)
	assert.Equal(t, 1, summary.Committed)
}

func TestRowCeilingAborts(t *testing.T) {
	lines := []string{"Date,Payee,Amount"}
	for i := 0; i < 6; i++ {
		lines = append(lines, fmt.Sprintf("2025-01-0%d,Shop,-%d.00", i+1, i+1))
	}
	path := writeCSV(t, lines...)

	cfg := config.Default()
	cfg.Import.MaxRows = 5
	f := newFixture(t, cfg)
	f.drive(t, path)

	err := f.wizard.Parse(context.Background())
	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Empty(t, f.wizard.Staged())
	assert.Equal(t, StepPreview, f.wizard.Step())
}

func TestMapAccountsStepForUnresolvedNames(t *testing.T) {
	path := writeCSV(t,
		"Date,Payee,Amount,Account",
		"2025-01-05,Landlord,-1200.00,My Brokerage",
		"2025-01-06,Employer,2500.00,Checking",
	)
	f := newFixture(t, config.Default())
	f.drive(t, path)
	require.NoError(t, f.wizard.Parse(context.Background()))

	require.Equal(t, StepMapAccounts, f.wizard.Step())
	assert.Equal(t, []string{"My Brokerage"}, f.wizard.UnresolvedAccounts())

	acct := f.wizard.CreateAccountFor("My Brokerage", model.AccountTypeInvestment)
	assert.Empty(t, f.wizard.UnresolvedAccounts())
	require.NoError(t, f.wizard.ConfirmAccounts())
	require.Equal(t, StepReview, f.wizard.Step())

	summary, err := f.wizard.Commit(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Committed)

	records, err := f.store.Fetch(day("2025-01-01"), day("2025-01-31"))
	require.NoError(t, err)
	assert.Equal(t, acct.ID, records[0].AccountID)
	assert.Equal(t, 1, records[1].AccountID)
}

func TestMapToExistingAccountAndCategory(t *testing.T) {
	path := writeCSV(t,
		"Date,Payee,Amount,Account,Category",
		"2025-01-05,Grocer,-55.00,CHK ...1234,Food & Drink",
	)
	f := newFixture(t, config.Default())
	f.drive(t, path)
	require.NoError(t, f.wizard.Parse(context.Background()))

	require.Equal(t, StepMapAccounts, f.wizard.Step())
	require.NoError(t, f.wizard.MapAccount("CHK ...1234", 1))
	assert.Error(t, f.wizard.MapAccount("CHK ...1234", 99))
	require.NoError(t, f.wizard.ConfirmAccounts())

	require.Equal(t, StepMapCategories, f.wizard.Step())
	require.NoError(t, f.wizard.MapCategory("Food & Drink", 3))
	assert.Error(t, f.wizard.MapCategory("Food & Drink", 99))
	require.NoError(t, f.wizard.ConfirmCategories())
	require.Equal(t, StepReview, f.wizard.Step())

	summary, err := f.wizard.Commit(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Committed)

	records, err := f.store.Fetch(day("2025-01-01"), day("2025-01-31"))
	require.NoError(t, err)
	assert.Equal(t, 1, records[0].AccountID)
	assert.Equal(t, 3, records[0].CategoryID)
}

func TestMappingStepsSkippedWhenResolved(t *testing.T) {
	path := writeCSV(t,
		"Date,Payee,Amount,Category",
		"2025-01-05,Grocer,-55.00,Groceries",
	)
	f := newFixture(t, config.Default())
	f.drive(t, path)
	require.NoError(t, f.wizard.Parse(context.Background()))

	// Groceries resolves against the default categories, so no mapping
	// step is shown.
	assert.Equal(t, StepReview, f.wizard.Step())
}

func TestTagMappingRenamesAndDrops(t *testing.T) {
	path := writeCSV(t,
		"Date,Payee,Amount,Tags",
		"2025-01-05,Grocer,-55.00,food;grocery",
	)
	cfg := config.Default()
	cfg.Import.TagDelimiter = ";"
	f := newFixture(t, cfg)
	f.drive(t, path)
	require.NoError(t, f.wizard.Parse(context.Background()))

	require.Equal(t, StepMapTags, f.wizard.Step())
	assert.Equal(t, []string{"food", "grocery"}, f.wizard.UnresolvedTags())

	f.wizard.MapTag("grocery", "food")
	f.wizard.MapTag("food", "")
	require.NoError(t, f.wizard.ConfirmTags())

	summary, err := f.wizard.Commit(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Committed)

	records, err := f.store.Fetch(day("2025-01-01"), day("2025-01-31"))
	require.NoError(t, err)
	assert.Equal(t, []string{"food"}, records[0].Tags)
}

func TestTransferAcceptLinksAtCommit(t *testing.T) {
	path := writeCSV(t,
		"Date,Payee,Amount,Account",
		"2025-01-05,Transfer to Savings,-500.00,Checking",
		"2025-01-05,Transfer from Checking,500.00,Savings",
	)
	f := newFixture(t, config.Default())
	f.drive(t, path)
	require.NoError(t, f.wizard.Parse(context.Background()))
	require.Equal(t, StepReview, f.wizard.Step())

	suggestions := f.wizard.RefreshSuggestions()
	require.NotEmpty(t, suggestions)
	require.True(t, f.wizard.AcceptSuggestion(suggestions[0]))
	require.Len(t, f.wizard.Accepted(), 1)

	// Acceptance defers the link; the staged legs are untouched until
	// the batch commits.
	staged := f.wizard.Staged()
	assert.Nil(t, staged[0].TransferID)

	summary, err := f.wizard.Commit(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Committed)

	records, err := f.store.Fetch(day("2025-01-01"), day("2025-01-31"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NotNil(t, records[0].TransferID)
	require.NotNil(t, records[1].TransferID)
	assert.Equal(t, *records[0].TransferID, *records[1].TransferID)
	assert.Equal(t, model.KindTransfer, records[0].Kind)
	assert.Equal(t, model.KindTransfer, records[1].Kind)
	assert.Equal(t, 0, records[0].CategoryID)
}

func TestAcceptedSuggestionsSurviveRefresh(t *testing.T) {
	path := writeCSV(t,
		"Date,Payee,Amount,Account",
		"2025-01-05,Transfer to Savings,-500.00,Checking",
		"2025-01-05,Transfer from Checking,500.00,Savings",
		"2025-01-10,Grocer,-42.00,Checking",
	)
	f := newFixture(t, config.Default())
	f.drive(t, path)
	require.NoError(t, f.wizard.Parse(context.Background()))

	suggestions := f.wizard.RefreshSuggestions()
	require.NotEmpty(t, suggestions)
	require.True(t, f.wizard.AcceptSuggestion(suggestions[0]))

	// An unrelated refresh keeps the acceptance.
	f.wizard.RefreshSuggestions()
	assert.Len(t, f.wizard.Accepted(), 1)

	// Rejecting drops it; re-accepting takes it back.
	f.wizard.RejectSuggestion(suggestions[0])
	assert.Empty(t, f.wizard.Accepted())
	require.True(t, f.wizard.AcceptSuggestion(suggestions[0]))

	// A stale suggestion from before the refresh is refused.
	stale := suggestions[0]
	stale.Score = 0.123
	assert.False(t, f.wizard.AcceptSuggestion(stale))

	// Deselecting a leg invalidates its suggestions and the acceptance.
	require.NoError(t, f.wizard.SetSelected(suggestions[0].OutflowID, false))
	assert.Empty(t, f.wizard.Suggestions())
	assert.Empty(t, f.wizard.Accepted())
}

func TestUnlinkFileBoundTransfer(t *testing.T) {
	pair := uuid.New().String()
	path := writeCSV(t,
		"Date,Payee,Amount,Account,Status,Kind,Transfer ID",
		"2025-01-05,Transfer to Savings,-500.00,Checking,cleared,transfer,"+pair,
		"2025-01-05,Transfer from Checking,500.00,Savings,cleared,transfer,"+pair,
	)
	f := newFixture(t, config.Default())
	f.drive(t, path)
	require.NoError(t, f.wizard.Parse(context.Background()))

	staged := f.wizard.Staged()
	require.NotNil(t, staged[0].TransferID)
	assert.Equal(t, model.KindTransfer, staged[0].Kind)

	reset := f.wizard.UnlinkTransfer(*staged[0].TransferID)
	assert.Equal(t, 2, reset)
	staged = f.wizard.Staged()
	assert.Nil(t, staged[0].TransferID)
	assert.Equal(t, model.KindStandard, staged[0].Kind)
	// The freed legs are suggestion candidates again.
	assert.NotEmpty(t, f.wizard.Suggestions())
}

func TestDeselectSkipsRecord(t *testing.T) {
	path := writeCSV(t,
		"Date,Payee,Amount",
		"2025-01-05,Landlord,-1200.00",
		"2025-01-06,Employer,2500.00",
	)
	f := newFixture(t, config.Default())
	f.drive(t, path)
	require.NoError(t, f.wizard.Parse(context.Background()))

	staged := f.wizard.Staged()
	require.NoError(t, f.wizard.SetSelected(staged[0].ID, false))

	summary, err := f.wizard.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Committed)
	assert.Equal(t, 1, summary.Skipped)
}

func TestBackFromMapColumnsInvalidatesMapping(t *testing.T) {
	path := writeCSV(t,
		"Date,Payee,Amount",
		"2025-01-05,Landlord,-1200.00",
	)
	f := newFixture(t, config.Default())
	require.NoError(t, f.wizard.SelectFile(path, ""))
	require.NoError(t, f.wizard.SelectHeader(0))
	require.NotEmpty(t, f.wizard.Mapping())

	require.NoError(t, f.wizard.Back())
	assert.Equal(t, StepSelectHeader, f.wizard.Step())
	assert.Empty(t, f.wizard.Mapping())
	assert.Nil(t, f.wizard.Template())

	// The header candidates survive, so the user can pick again.
	require.NoError(t, f.wizard.SelectHeader(0))
	assert.True(t, f.wizard.Mapping().Advanceable())
}

func TestCancelBeforeCommitLeavesLedgerEmpty(t *testing.T) {
	path := writeCSV(t,
		"Date,Payee,Amount",
		"2025-01-05,Landlord,-1200.00",
	)
	f := newFixture(t, config.Default())
	f.drive(t, path)
	require.NoError(t, f.wizard.Parse(context.Background()))

	f.wizard.Cancel()
	assert.Equal(t, StepCancelled, f.wizard.Step())
	assert.Empty(t, f.wizard.Staged())

	records, err := f.store.Fetch(day("2025-01-01"), day("2025-12-31"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

type failingStore struct {
	*store.CSVStore
	failSave bool
}

func (s *failingStore) Save() error {
	if s.failSave {
		return errors.New("disk full")
	}
	return s.CSVStore.Save()
}

func TestCommitFailureIsTerminal(t *testing.T) {
	path := writeCSV(t,
		"Date,Payee,Amount",
		"2025-01-05,Landlord,-1200.00",
	)
	root := t.TempDir()
	st := &failingStore{CSVStore: store.NewCSVStore(root)}
	w := New(Options{
		Config:     config.Default(),
		Accounts:   accounts.NewService(accounts.DefaultAccounts(), accounts.DefaultCategories()),
		Store:      st,
		Rules:      rules.NewKeywordEngine(nil),
		Logger:     logger.Nop(),
		LedgerRoot: root,
	})
	w.SetDefaultAccount(1)

	require.NoError(t, w.SelectFile(path, ""))
	require.NoError(t, w.SelectHeader(w.SuggestedHeaderRow()))
	require.NoError(t, w.ConfirmMapping())
	require.NoError(t, w.Parse(context.Background()))

	st.failSave = true
	_, err := w.Commit(context.Background())
	require.Error(t, err)
	assert.Equal(t, StepFailed, w.Step())
	assert.Empty(t, w.Staged())

	// The run cannot be retried; nothing was durably written.
	_, err = w.Commit(context.Background())
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(root, "2025"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestStepGuards(t *testing.T) {
	f := newFixture(t, config.Default())
	assert.Error(t, f.wizard.SelectHeader(0))
	assert.Error(t, f.wizard.ConfirmMapping())
	_, err := f.wizard.Commit(context.Background())
	assert.Error(t, err)
}

func TestManualColumnOverride(t *testing.T) {
	path := writeCSV(t,
		"When,Who,How Much",
		"2025-01-05,Landlord,-1200.00",
	)
	f := newFixture(t, config.Default())
	require.NoError(t, f.wizard.SelectFile(path, ""))
	require.NoError(t, f.wizard.SelectHeader(0))

	require.NoError(t, f.wizard.SetColumnField(0, model.FieldDate))
	require.NoError(t, f.wizard.SetColumnField(1, model.FieldPayee))
	require.NoError(t, f.wizard.SetColumnField(2, model.FieldAmount))
	require.NoError(t, f.wizard.ConfirmMapping())

	rows, err := f.wizard.Preview(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Rejected)
	assert.Equal(t, "Landlord", rows[0].Staged.Payee)
}

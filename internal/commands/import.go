package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/escapebudget/escape/internal/accounts"
	"github.com/escapebudget/escape/internal/config"
	"github.com/escapebudget/escape/internal/extract"
	"github.com/escapebudget/escape/internal/logger"
	"github.com/escapebudget/escape/internal/model"
	"github.com/escapebudget/escape/internal/rules"
	"github.com/escapebudget/escape/internal/store"
	"github.com/escapebudget/escape/internal/wizard"
)

type importOptions struct {
	dir               string
	account           string
	template          string
	dateFormat        string
	passphrase        string
	headerRow         int
	positiveIsExpense bool
	createAccounts    bool
	linkTransfers     bool
}

func newImportCommand() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a bank CSV export into the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", ".", "ledger directory")
	cmd.Flags().StringVar(&opts.account, "account", "", "account receiving rows with no account column (default: first account)")
	cmd.Flags().StringVar(&opts.template, "template", "", "force a bank format instead of auto-detecting")
	cmd.Flags().StringVar(&opts.dateFormat, "date-format", "", "date layout in Go reference-time form")
	cmd.Flags().StringVar(&opts.passphrase, "passphrase", "", "passphrase for encrypted exports")
	cmd.Flags().IntVar(&opts.headerRow, "header-row", -1, "header row index (default: first non-empty row)")
	cmd.Flags().BoolVar(&opts.positiveIsExpense, "positive-is-expense", false, "treat positive amounts as spending")
	cmd.Flags().BoolVar(&opts.createAccounts, "create-accounts", false, "create accounts for unknown account names")
	cmd.Flags().BoolVar(&opts.linkTransfers, "link-transfers", false, "accept all transfer suggestions")

	return cmd
}

func runImport(cmd *cobra.Command, path string, opts importOptions) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	cfg, err := loadConfig(opts.dir)
	if err != nil {
		return err
	}
	svc, err := accounts.Load(opts.dir)
	if err != nil {
		return fmt.Errorf("loading accounts: %w", err)
	}
	if len(svc.Accounts()) == 0 {
		return fmt.Errorf("no accounts in %s; run `escape init` first", opts.dir)
	}
	engine, err := rules.Load(filepath.Join(opts.dir, "rules.yaml"))
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	w := wizard.New(wizard.Options{
		Config:     cfg,
		Accounts:   svc,
		Store:      store.NewCSVStore(opts.dir),
		Rules:      engine,
		Logger:     logger.New(),
		LedgerRoot: opts.dir,
	})

	defaultAccount, err := pickDefaultAccount(svc, opts.account)
	if err != nil {
		return err
	}
	w.SetDefaultAccount(defaultAccount)
	if opts.positiveIsExpense {
		w.SetSignConvention(extract.PositiveIsExpense)
	}
	if opts.dateFormat != "" {
		w.SetDateFormat(opts.dateFormat)
	}

	if err := w.SelectFile(path, opts.passphrase); err != nil {
		return err
	}
	headerRow := opts.headerRow
	if headerRow < 0 {
		headerRow = w.SuggestedHeaderRow()
	}
	if err := w.SelectHeader(headerRow); err != nil {
		return err
	}
	if opts.template != "" {
		if err := w.UseTemplate(opts.template); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "Detected format: %s\n", w.Template().Name)

	if err := w.ConfirmMapping(); err != nil {
		return err
	}
	if err := w.Parse(ctx); err != nil {
		return err
	}

	if err := resolveMappingSteps(w, opts); err != nil {
		return err
	}

	if opts.linkTransfers {
		linkAllTransfers(w)
	} else if suggestions := w.RefreshSuggestions(); len(suggestions) > 0 {
		fmt.Fprintf(out, "%d possible transfer pairs found; rerun with --link-transfers to link them\n", len(suggestions))
	}

	summary, err := w.Commit(ctx)
	if err != nil {
		return err
	}
	printSummary(out, summary)
	return nil
}

// resolveMappingSteps walks the post-parse mapping steps non-interactively.
// Unknown account names become new checking accounts when requested,
// otherwise rows fall back to the default account. Unknown categories
// commit as uncategorized and tags keep their raw names.
func resolveMappingSteps(w *wizard.Wizard, opts importOptions) error {
	for {
		switch w.Step() {
		case wizard.StepMapAccounts:
			if opts.createAccounts {
				for _, raw := range w.UnresolvedAccounts() {
					w.CreateAccountFor(raw, model.AccountTypeChecking)
				}
			}
			if err := w.ConfirmAccounts(); err != nil {
				return err
			}
		case wizard.StepMapCategories:
			if err := w.ConfirmCategories(); err != nil {
				return err
			}
		case wizard.StepMapTags:
			if err := w.ConfirmTags(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// linkAllTransfers accepts every current suggestion. Overlapping pairs are
// fine: the commit links them in order and skips the ones that went stale.
func linkAllTransfers(w *wizard.Wizard) {
	for _, s := range w.RefreshSuggestions() {
		w.AcceptSuggestion(s)
	}
}

func loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.Load(filepath.Join(dir, "escape.yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func pickDefaultAccount(svc *accounts.Service, name string) (int, error) {
	if name != "" {
		acct, ok := svc.ResolveAccount(name)
		if !ok {
			return 0, fmt.Errorf("no account named %q", name)
		}
		return acct.ID, nil
	}
	return svc.Accounts()[0].ID, nil
}

func printSummary(out io.Writer, s wizard.Summary) {
	fmt.Fprintf(out, "Imported %d of %d staged transactions (%d rejected rows, %d duplicates, %d skipped)\n",
		s.Committed, s.Staged, s.Rejected, s.Duplicates, s.Skipped)
	p := s.Processing
	if p.ChangedCount > 0 || p.TransferSuggestionsInvolvingProcessed > 0 {
		fmt.Fprintf(out, "Processing: %d records changed, %d payees cleaned, %d rule matches, %d transfer candidates\n",
			p.ChangedCount, p.PayeesNormalizedCount, p.TransactionsWithRulesApplied, p.TransferSuggestionsInvolvingProcessed)
	}
}

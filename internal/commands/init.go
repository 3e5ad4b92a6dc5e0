package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/escapebudget/escape/internal/accounts"
	"github.com/escapebudget/escape/internal/config"
)

func newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(absDir)
		},
	}

	return cmd
}

func runInit(dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	// Write escape.yaml.
	if err := config.Save(filepath.Join(dir, "escape.yaml"), config.Default()); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Write starter accounts and categories.
	svc := accounts.NewService(accounts.DefaultAccounts(), accounts.DefaultCategories())
	if err := svc.Save(dir); err != nil {
		return fmt.Errorf("writing accounts: %w", err)
	}

	// Write empty categorization rules.
	rulesContent := "rules: []\n"
	if err := os.WriteFile(filepath.Join(dir, "rules.yaml"), []byte(rulesContent), 0o644); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}

	fmt.Printf("Initialized ledger at %s\n", dir)
	return nil
}

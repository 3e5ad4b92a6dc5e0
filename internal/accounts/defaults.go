package accounts

import "github.com/escapebudget/escape/internal/model"

// DefaultAccounts returns the starter accounts for a new ledger.
func DefaultAccounts() []model.Account {
	return []model.Account{
		{ID: 1, Name: "Checking", Type: model.AccountTypeChecking},
		{ID: 2, Name: "Savings", Type: model.AccountTypeSavings},
		{ID: 3, Name: "Credit Card", Type: model.AccountTypeCreditCard},
		{ID: 4, Name: "Cash", Type: model.AccountTypeCash},
	}
}

// DefaultCategories returns the starter categories for a new ledger.
func DefaultCategories() []model.Category {
	return []model.Category{
		{ID: 1, Name: "Rent", Group: "Housing"},
		{ID: 2, Name: "Utilities", Group: "Housing"},
		{ID: 3, Name: "Groceries", Group: "Food"},
		{ID: 4, Name: "Dining Out", Group: "Food"},
		{ID: 5, Name: "Transportation", Group: "Transport"},
		{ID: 6, Name: "Subscriptions", Group: "Lifestyle"},
		{ID: 7, Name: "Income", Group: "Income"},
		{ID: 8, Name: "Transfer", Group: "Transfers", TransferGroup: true},
		{ID: 9, Name: "Credit Card Payment", Group: "Transfers", TransferGroup: true},
	}
}

package model

// AccountType classifies user accounts.
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeCash       AccountType = "cash"
	AccountTypeInvestment AccountType = "investment"
)

// Account represents one of the user's accounts.
type Account struct {
	ID       int
	Name     string
	Type     AccountType
	LastFour string
	Closed   bool
}

// Category represents a budget category. TransferGroup marks categories
// whose group is used for inter-account transfers; the transfer suggester
// treats such rows as likely transfer legs.
type Category struct {
	ID            int
	Name          string
	Group         string
	TransferGroup bool
	Hidden        bool
}

// Package accounts provides in-memory lookup over the user's accounts and
// categories, backing the wizard's mapping steps. Entities created
// mid-wizard are visible to subsequent lookups immediately.
package accounts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/escapebudget/escape/internal/model"
)

// Service indexes accounts and categories by ID and by name.
type Service struct {
	accounts   []model.Account
	categories []model.Category

	accountByID    map[int]int // index into accounts
	accountByName  map[string]int
	categoryByID   map[int]int
	categoryByName map[string]int
}

// NewService creates a Service from slices of accounts and categories.
func NewService(accts []model.Account, cats []model.Category) *Service {
	s := &Service{
		accountByID:    make(map[int]int),
		accountByName:  make(map[string]int),
		categoryByID:   make(map[int]int),
		categoryByName: make(map[string]int),
	}
	for _, a := range accts {
		s.indexAccount(a)
	}
	for _, c := range cats {
		s.indexCategory(c)
	}
	return s
}

// Load reads accounts.csv and categories.csv from a ledger root. Missing
// files yield empty sets.
func Load(root string) (*Service, error) {
	accts, err := readAccountsFile(filepath.Join(root, "accounts.csv"))
	if err != nil {
		return nil, err
	}
	cats, err := readCategoriesFile(filepath.Join(root, "categories.csv"))
	if err != nil {
		return nil, err
	}
	return NewService(accts, cats), nil
}

// Save writes both CSV files under root.
func (s *Service) Save(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("creating ledger root: %w", err)
	}
	if err := writeAccountsFile(filepath.Join(root, "accounts.csv"), s.accounts); err != nil {
		return err
	}
	return writeCategoriesFile(filepath.Join(root, "categories.csv"), s.categories)
}

// Accounts returns all accounts.
func (s *Service) Accounts() []model.Account { return s.accounts }

// Categories returns all categories.
func (s *Service) Categories() []model.Category { return s.categories }

// Account returns an account by ID.
func (s *Service) Account(id int) (model.Account, bool) {
	i, ok := s.accountByID[id]
	if !ok {
		return model.Account{}, false
	}
	return s.accounts[i], true
}

// Category returns a category by ID.
func (s *Service) Category(id int) (model.Category, bool) {
	i, ok := s.categoryByID[id]
	if !ok {
		return model.Category{}, false
	}
	return s.categories[i], true
}

// AccountExists reports whether an account ID exists.
func (s *Service) AccountExists(id int) bool {
	_, ok := s.accountByID[id]
	return ok
}

// ResolveAccount finds an account by name, case-insensitively.
func (s *Service) ResolveAccount(name string) (model.Account, bool) {
	i, ok := s.accountByName[nameKey(name)]
	if !ok {
		return model.Account{}, false
	}
	return s.accounts[i], true
}

// ResolveCategory finds a category by name, case-insensitively.
func (s *Service) ResolveCategory(name string) (model.Category, bool) {
	i, ok := s.categoryByName[nameKey(name)]
	if !ok {
		return model.Category{}, false
	}
	return s.categories[i], true
}

// CreateAccount adds a new account and returns it. The account is
// immediately visible to Resolve and lookup calls.
func (s *Service) CreateAccount(name string, typ model.AccountType) model.Account {
	a := model.Account{ID: s.nextAccountID(), Name: strings.TrimSpace(name), Type: typ}
	s.indexAccount(a)
	return a
}

// CreateCategory adds a new category and returns it.
func (s *Service) CreateCategory(name, group string) model.Category {
	c := model.Category{ID: s.nextCategoryID(), Name: strings.TrimSpace(name), Group: group}
	s.indexCategory(c)
	return c
}

// IsTransferCategory reports whether a raw category label hints that a row
// is a transfer leg: the label resolves to a transfer-group category, or
// the row carries no label at all.
func (s *Service) IsTransferCategory(rawCategory string) bool {
	if strings.TrimSpace(rawCategory) == "" {
		return true
	}
	c, ok := s.ResolveCategory(rawCategory)
	return ok && c.TransferGroup
}

func (s *Service) indexAccount(a model.Account) {
	s.accounts = append(s.accounts, a)
	i := len(s.accounts) - 1
	s.accountByID[a.ID] = i
	s.accountByName[nameKey(a.Name)] = i
}

func (s *Service) indexCategory(c model.Category) {
	s.categories = append(s.categories, c)
	i := len(s.categories) - 1
	s.categoryByID[c.ID] = i
	s.categoryByName[nameKey(c.Name)] = i
}

func (s *Service) nextAccountID() int {
	max := 0
	for _, a := range s.accounts {
		if a.ID > max {
			max = a.ID
		}
	}
	return max + 1
}

func (s *Service) nextCategoryID() int {
	max := 0
	for _, c := range s.categories {
		if c.ID > max {
			max = c.ID
		}
	}
	return max + 1
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

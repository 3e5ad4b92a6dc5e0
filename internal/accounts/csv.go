package accounts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/escapebudget/escape/internal/model"
)

// AccountsHeader is the CSV header for accounts.csv.
const AccountsHeader = "id,name,type,last_four,closed"

// CategoriesHeader is the CSV header for categories.csv.
const CategoriesHeader = "id,name,group,transfer_group,hidden"

// ReadAccounts reads accounts from an accounts.csv reader.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var accts []model.Account
	for i, row := range rows[1:] {
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing id %q: %w", i+2, row[0], err)
		}
		accts = append(accts, model.Account{
			ID:       id,
			Name:     row[1],
			Type:     model.AccountType(row[2]),
			LastFour: row[3],
			Closed:   row[4] == "true",
		})
	}
	return accts, nil
}

// WriteAccounts writes accounts (including header).
func WriteAccounts(w io.Writer, accts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(AccountsHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, a := range accts {
		row := []string{strconv.Itoa(a.ID), a.Name, string(a.Type), a.LastFour, strconv.FormatBool(a.Closed)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing account %d: %w", a.ID, err)
		}
	}
	return cw.Error()
}

// ReadCategories reads categories from a categories.csv reader.
func ReadCategories(r io.Reader) ([]model.Category, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading categories CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var cats []model.Category
	for i, row := range rows[1:] {
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing id %q: %w", i+2, row[0], err)
		}
		cats = append(cats, model.Category{
			ID:            id,
			Name:          row[1],
			Group:         row[2],
			TransferGroup: row[3] == "true",
			Hidden:        row[4] == "true",
		})
	}
	return cats, nil
}

// WriteCategories writes categories (including header).
func WriteCategories(w io.Writer, cats []model.Category) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(CategoriesHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, c := range cats {
		row := []string{strconv.Itoa(c.ID), c.Name, c.Group, strconv.FormatBool(c.TransferGroup), strconv.FormatBool(c.Hidden)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing category %d: %w", c.ID, err)
		}
	}
	return cw.Error()
}

func readAccountsFile(path string) ([]model.Account, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ReadAccounts(f)
}

func readCategoriesFile(path string) ([]model.Category, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ReadCategories(f)
}

func writeAccountsFile(path string, accts []model.Account) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	return WriteAccounts(f, accts)
}

func writeCategoriesFile(path string, cats []model.Category) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	return WriteCategories(f, cats)
}

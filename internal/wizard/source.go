package wizard

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// RowSource streams raw rows from an import file. Next returns io.EOF
// when the stream is exhausted.
type RowSource interface {
	Next() ([]string, error)
	Close() error
}

// OpenRows opens a streaming row source for a validated import file.
// Tab-separated files get a tab delimiter, everything else a comma.
func OpenRows(path string) (RowSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		r.Comma = '\t'
	}
	return &csvSource{f: f, r: r}, nil
}

type csvSource struct {
	f *os.File
	r *csv.Reader
}

func (s *csvSource) Next() ([]string, error) {
	row, err := s.r.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("read row: %w", err)
	}
	return row, nil
}

func (s *csvSource) Close() error { return s.f.Close() }

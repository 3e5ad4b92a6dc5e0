// Package store persists ledger records. The import pipeline depends only
// on the Store interface; the CSV implementation keeps one ledger.csv per
// month under <root>/YYYY/MM/, the app's on-disk layout.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/escapebudget/escape/internal/id"
	"github.com/escapebudget/escape/internal/model"
)

// Store is the persistence surface the import pipeline consumes. Save is
// all-or-nothing per call; there is no transaction spanning multiple Save
// calls, which is why the wizard commits in checkpointed batches.
type Store interface {
	// Insert buffers a record for the next Save. The record becomes
	// visible to Fetch only after Save succeeds.
	Insert(rec model.LedgerRecord)
	// Update buffers a replacement for an already-saved record with the
	// same ID, applied on the next Save.
	Update(rec model.LedgerRecord)
	// Fetch returns records in the inclusive date window, in stable
	// (file, then row) order.
	Fetch(from, to time.Time) ([]model.LedgerRecord, error)
	// Save durably persists all buffered inserts.
	Save() error
	// NextID reserves the next record ID for the given date.
	NextID(date time.Time) (string, error)
}

// CSVStore is the file-backed Store implementation.
type CSVStore struct {
	root    string
	pending []model.LedgerRecord
	updates []model.LedgerRecord
	// reserved tracks IDs handed out since the last Save, per month key,
	// so a batch of inserts gets sequential IDs before any flush.
	reserved map[string]int
}

// NewCSVStore creates a store rooted at dir.
func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{root: dir, reserved: make(map[string]int)}
}

// Insert buffers a record for the next Save.
func (s *CSVStore) Insert(rec model.LedgerRecord) {
	s.pending = append(s.pending, rec)
}

// Update buffers a replacement for the saved record sharing rec.ID.
func (s *CSVStore) Update(rec model.LedgerRecord) {
	s.updates = append(s.updates, rec)
}

// Pending returns the number of buffered, unsaved records.
func (s *CSVStore) Pending() int {
	return len(s.pending) + len(s.updates)
}

// DiscardPending drops buffered records without saving.
func (s *CSVStore) DiscardPending() {
	s.pending = nil
	s.updates = nil
	s.reserved = make(map[string]int)
}

// Fetch reads every monthly file overlapping the window and filters rows
// to the inclusive date range.
func (s *CSVStore) Fetch(from, to time.Time) ([]model.LedgerRecord, error) {
	var out []model.LedgerRecord
	for _, key := range monthKeys(from, to) {
		records, err := s.readMonth(key.year, key.month)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if rec.Date.Before(from) || rec.Date.After(to.AddDate(0, 0, 1).Add(-time.Nanosecond)) {
				continue
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

// Save appends pending records to their monthly files. Each month is
// rewritten to a temp file and renamed into place, so a failure leaves
// every file either fully updated or untouched.
func (s *CSVStore) Save() error {
	if len(s.pending) == 0 && len(s.updates) == 0 {
		return nil
	}

	type monthBatch struct {
		inserts []model.LedgerRecord
		updates []model.LedgerRecord
	}
	byMonth := make(map[string]*monthBatch)
	batch := func(date time.Time) *monthBatch {
		key := monthKeyOf(date)
		if byMonth[key] == nil {
			byMonth[key] = &monthBatch{}
		}
		return byMonth[key]
	}
	for _, rec := range s.pending {
		b := batch(rec.Date)
		b.inserts = append(b.inserts, rec)
	}
	for _, rec := range s.updates {
		b := batch(rec.Date)
		b.updates = append(b.updates, rec)
	}

	order := make([]string, 0, len(byMonth))
	for key := range byMonth {
		order = append(order, key)
	}
	sort.Strings(order)

	for _, key := range order {
		b := byMonth[key]
		var date time.Time
		if len(b.inserts) > 0 {
			date = b.inserts[0].Date
		} else {
			date = b.updates[0].Date
		}
		if err := s.writeMonth(date, b.inserts, b.updates); err != nil {
			return err
		}
	}

	s.pending = nil
	s.updates = nil
	s.reserved = make(map[string]int)
	return nil
}

// NextID reserves the next sequential record ID for the date's month,
// counting both saved rows and IDs already reserved this batch.
func (s *CSVStore) NextID(date time.Time) (string, error) {
	year, month := date.Year(), int(date.Month())
	key := monthKeyOf(date)

	if _, ok := s.reserved[key]; !ok {
		records, err := s.readMonth(year, month)
		if err != nil {
			return "", err
		}
		maxSeq := 0
		for _, rec := range records {
			_, _, seq, err := id.ParseRecordID(rec.ID)
			if err != nil {
				continue
			}
			if seq > maxSeq {
				maxSeq = seq
			}
		}
		s.reserved[key] = maxSeq
	}

	s.reserved[key]++
	return id.FormatRecordID(year, month, s.reserved[key]), nil
}

func (s *CSVStore) readMonth(year, month int) ([]model.LedgerRecord, error) {
	path := s.monthPath(year, month)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}
	return records, nil
}

func (s *CSVStore) writeMonth(date time.Time, inserts, updates []model.LedgerRecord) error {
	year, month := date.Year(), int(date.Month())
	existing, err := s.readMonth(year, month)
	if err != nil {
		return err
	}

	for _, upd := range updates {
		for i := range existing {
			if existing[i].ID == upd.ID {
				existing[i] = upd
				break
			}
		}
	}

	path := s.monthPath(year, month)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating ledger temp file: %w", err)
	}
	if err := WriteRecords(f, append(existing, inserts...)); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing ledger %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing ledger temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing ledger %s: %w", path, err)
	}
	return nil
}

func (s *CSVStore) monthPath(year, month int) string {
	return filepath.Join(s.root, fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), "ledger.csv")
}

type monthKey struct {
	year  int
	month int
}

func monthKeyOf(date time.Time) string {
	return fmt.Sprintf("%04d-%02d", date.Year(), int(date.Month()))
}

func monthKeys(from, to time.Time) []monthKey {
	var keys []monthKey
	cur := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(end) {
		keys = append(keys, monthKey{year: cur.Year(), month: int(cur.Month())})
		cur = cur.AddDate(0, 1, 0)
	}
	return keys
}

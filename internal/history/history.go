// Package history records a bounded audit trail of post-commit processing.
// Caps on tracked records and per-record events keep the trail from
// growing without bound on large imports.
package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Event is one row in the processing history log.
type Event struct {
	Timestamp time.Time
	RecordID  string
	Action    string
	Details   string
}

// Actions recorded by the post-commit processor.
const (
	ActionPayeeNormalized   = "payee_normalized"
	ActionRuleApplied       = "rule_applied"
	ActionTransferSuggested = "transfer_suggested"
)

// Header is the CSV header for import-history.csv.
const Header = "timestamp,record_id,action,details"

const (
	numFields    = 4
	logFile      = "logs/import-history.csv"
	colTimestamp = 0
	colRecordID  = 1
	colAction    = 2
	colDetails   = 3
)

// Log accumulates events up to its caps.
type Log struct {
	maxRecords         int
	maxEventsPerRecord int
	events             []Event
	perRecord          map[string]int
	now                func() time.Time
}

// NewLog creates a Log capped at maxRecords tracked records and
// maxEventsPerRecord events each. Zero caps mean unbounded.
func NewLog(maxRecords, maxEventsPerRecord int) *Log {
	return &Log{
		maxRecords:         maxRecords,
		maxEventsPerRecord: maxEventsPerRecord,
		perRecord:          make(map[string]int),
		now:                time.Now,
	}
}

// Record appends an event unless a cap is hit. Returns whether the event
// was kept.
func (l *Log) Record(recordID, action, details string) bool {
	if _, tracked := l.perRecord[recordID]; !tracked {
		if l.maxRecords > 0 && len(l.perRecord) >= l.maxRecords {
			return false
		}
		l.perRecord[recordID] = 0
	}
	if l.maxEventsPerRecord > 0 && l.perRecord[recordID] >= l.maxEventsPerRecord {
		return false
	}
	l.perRecord[recordID]++
	l.events = append(l.events, Event{
		Timestamp: l.now(),
		RecordID:  recordID,
		Action:    action,
		Details:   details,
	})
	return true
}

// Events returns the kept events in order.
func (l *Log) Events() []Event { return l.events }

// Flush appends the kept events to <root>/logs/import-history.csv and
// clears the log. Creates the file with a header when new.
func (l *Log) Flush(root string) error {
	if len(l.events) == 0 {
		return nil
	}

	path := filepath.Join(root, filepath.FromSlash(logFile))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	isNew := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		isNew = true
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening history log: %w", err)
	}
	defer f.Close()

	if isNew {
		if _, err := fmt.Fprintln(f, Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	if err := writeEvents(f, l.events); err != nil {
		return err
	}

	l.events = nil
	l.perRecord = make(map[string]int)
	return nil
}

// ReadEvents reads all events from an import-history.csv reader.
func ReadEvents(r io.Reader) ([]Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading history CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var events []Event
	for i, row := range rows[1:] {
		ts, err := time.Parse(time.RFC3339, row[colTimestamp])
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing timestamp %q: %w", i+2, row[colTimestamp], err)
		}
		events = append(events, Event{
			Timestamp: ts,
			RecordID:  row[colRecordID],
			Action:    row[colAction],
			Details:   row[colDetails],
		})
	}
	return events, nil
}

func writeEvents(w io.Writer, events []Event) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	for _, e := range events {
		row := make([]string, numFields)
		row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
		row[colRecordID] = e.RecordID
		row[colAction] = e.Action
		row[colDetails] = e.Details
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing history row: %w", err)
		}
	}
	return cw.Error()
}

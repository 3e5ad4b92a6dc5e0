package wizard

import (
	"fmt"
	"io"

	"github.com/escapebudget/escape/internal/extract"
	"github.com/escapebudget/escape/internal/importfile"
	"github.com/escapebudget/escape/internal/mapper"
	"github.com/escapebudget/escape/internal/model"
)

// headerScanLimit bounds how many leading rows are offered as header
// candidates. Bank exports sometimes put disclaimers above the header.
const headerScanLimit = 25

// SelectFile validates and opens the import file, then advances to header
// selection. Encrypted files are decrypted to a temp file that the wizard
// deletes on every exit path.
func (w *Wizard) SelectFile(path, passphrase string) error {
	if err := w.requireStep(StepSelectFile); err != nil {
		return err
	}
	maxSize := w.cfg.Import.MaxFileSizeMB << 20
	f, err := importfile.Open(path, importfile.Options{
		MaxSize:    maxSize,
		Decryptor:  w.decryptor,
		Passphrase: passphrase,
	})
	if err != nil {
		return err
	}
	w.file = f

	candidates, err := w.scanHeaderCandidates()
	if err != nil {
		w.cleanup()
		return err
	}
	if len(candidates) == 0 {
		w.cleanup()
		return &AbortError{Reason: "file contains no rows"}
	}
	w.headerCandidates = candidates
	w.headerRow = firstNonEmptyRow(candidates)
	w.step = StepSelectHeader
	w.log.Debug().Str("file", path).Int64("bytes", f.Size).Msg("import file opened")
	return nil
}

func (w *Wizard) scanHeaderCandidates() ([][]string, error) {
	src, err := OpenRows(w.file.Path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var rows [][]string
	for len(rows) < headerScanLimit {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func firstNonEmptyRow(rows [][]string) int {
	for i, row := range rows {
		for _, cell := range row {
			if cell != "" {
				return i
			}
		}
	}
	return 0
}

// HeaderCandidates returns the leading rows of the file for the user to
// pick the header from.
func (w *Wizard) HeaderCandidates() [][]string { return w.headerCandidates }

// SuggestedHeaderRow is the index of the first non-empty candidate row.
func (w *Wizard) SuggestedHeaderRow() int { return w.headerRow }

// SelectHeader fixes the header row, detects the best matching template,
// and builds the initial column mapping. Selecting a different header row
// discards any mapping built for the previous one.
func (w *Wizard) SelectHeader(rowIndex int) error {
	if err := w.requireStep(StepSelectHeader); err != nil {
		return err
	}
	if rowIndex < 0 || rowIndex >= len(w.headerCandidates) {
		return fmt.Errorf("header row %d out of range", rowIndex)
	}
	w.headerRow = rowIndex
	w.headers = w.headerCandidates[rowIndex]
	w.template = mapper.Detect(w.headers)
	w.mapping = w.template.Apply(w.headers)
	w.step = StepMapColumns
	w.log.Debug().Str("template", w.template.Name).Msg("header selected")
	return nil
}

// Headers returns the selected header row.
func (w *Wizard) Headers() []string { return w.headers }

// Template returns the detected or overridden template.
func (w *Wizard) Template() *mapper.Template { return w.template }

// Mapping returns the working column mapping.
func (w *Wizard) Mapping() model.ColumnMapping { return w.mapping }

// UseTemplate overrides template detection by name and rebuilds the
// mapping from scratch.
func (w *Wizard) UseTemplate(name string) error {
	if err := w.requireStep(StepMapColumns); err != nil {
		return err
	}
	t := mapper.ByName(name)
	if t == nil {
		return fmt.Errorf("unknown template %q", name)
	}
	w.template = t
	w.mapping = t.Apply(w.headers)
	return nil
}

// SetColumnField manually assigns a field to a column, replacing any
// automatic assignment for that column.
func (w *Wizard) SetColumnField(col int, field model.ColumnField) error {
	if err := w.requireStep(StepMapColumns); err != nil {
		return err
	}
	if col < 0 || col >= len(w.headers) {
		return fmt.Errorf("column %d out of range", col)
	}
	delete(w.mapping, col)
	if !w.mapping.Set(col, field) {
		return fmt.Errorf("column %d already mapped", col)
	}
	return nil
}

// ConfirmMapping advances to the preview once the mapping can produce
// transactions, meaning a date plus an amount or inflow/outflow pair.
func (w *Wizard) ConfirmMapping() error {
	if err := w.requireStep(StepMapColumns); err != nil {
		return err
	}
	if !w.mapping.Advanceable() {
		return &AbortError{Reason: "mapping needs a date column and an amount, inflow, or outflow column"}
	}
	w.step = StepPreview
	return nil
}

// PreviewRow pairs a raw row with its extraction outcome.
type PreviewRow struct {
	Raw      []string
	Staged   model.StagedTransaction
	Rejected bool
}

// Preview extracts up to limit data rows without staging them, so the
// user can check the mapping against real data before the full parse.
func (w *Wizard) Preview(limit int) ([]PreviewRow, error) {
	if err := w.requireStep(StepPreview); err != nil {
		return nil, err
	}
	src, err := OpenRows(w.file.Path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	opts := w.extractOptions()
	var out []PreviewRow
	rowIndex := 0
	for len(out) < limit {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rowIndex <= w.headerRow {
			rowIndex++
			continue
		}
		rowIndex++
		tx, ok := extract.Row(row, w.mapping, opts)
		out = append(out, PreviewRow{Raw: row, Staged: tx, Rejected: !ok})
	}
	return out, nil
}

func (w *Wizard) extractOptions() extract.Options {
	return extract.Options{
		Sign:         w.sign,
		DateFormat:   w.dateFormat,
		TagDelimiter: w.cfg.Import.TagDelimiter,
	}
}

// Back returns to the previous interactive step, discarding state derived
// from the step being left.
func (w *Wizard) Back() error {
	switch w.step {
	case StepSelectHeader:
		w.cleanup()
		w.headerCandidates = nil
		w.headers = nil
		w.step = StepSelectFile
	case StepMapColumns:
		w.headers = nil
		w.template = nil
		w.mapping = nil
		w.step = StepSelectHeader
	case StepPreview:
		w.step = StepMapColumns
	case StepMapAccounts, StepMapCategories, StepMapTags, StepReview:
		w.stepBackThroughMapping()
	default:
		return fmt.Errorf("cannot go back from %s", w.step)
	}
	return nil
}

func (w *Wizard) stepBackThroughMapping() {
	order := []Step{StepMapAccounts, StepMapCategories, StepMapTags, StepReview}
	prev := StepPreview
	for _, s := range order {
		if s == w.step {
			break
		}
		if w.mappingStepNeeded(s) {
			prev = s
		}
	}
	if prev == StepPreview {
		// Re-parsing is required after mapping changes, so drop the batch.
		w.staged = nil
		w.suggestions = nil
	}
	w.step = prev
}

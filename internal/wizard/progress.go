package wizard

// Phase names the long-running unit a progress snapshot belongs to.
type Phase string

const (
	PhaseParsing    Phase = "parsing"
	PhasePreparing  Phase = "preparing"
	PhaseSaving     Phase = "saving"
	PhaseProcessing Phase = "processing"
)

// TotalUnknown marks a progress total that cannot be known up front, such
// as the row count of a stream that is still being read.
const TotalUnknown = -1

// Progress is a point-in-time snapshot of a long-running unit. Snapshots
// are published at amortized intervals, not per row.
type Progress struct {
	Phase   Phase
	Current int
	Total   int
	Message string
}

// Progress returns the latest published snapshot. Safe to call from
// another goroutine while Parse or Commit runs.
func (w *Wizard) Progress() Progress {
	w.progressMu.Lock()
	defer w.progressMu.Unlock()
	return w.progress
}

func (w *Wizard) publish(p Progress) {
	w.progressMu.Lock()
	w.progress = p
	w.progressMu.Unlock()
}

func (w *Wizard) setActive(on bool) {
	w.cancelMu.Lock()
	w.active = on
	w.cancelMu.Unlock()
}

package app

import (
	"time"

	"github.com/matthacksteiner/kinderlosfrei/internal/state"
)

// Phase is a state of the sync state machine
type Phase string

const (
	PhaseIdle               Phase = "IDLE"
	PhaseDiscovering        Phase = "DISCOVERING"
	PhaseFullSyncing        Phase = "FULL_SYNCING"
	PhaseIncrementalSyncing Phase = "INCREMENTAL_SYNCING"
	PhaseDone               Phase = "DONE"
	PhaseFailed             Phase = "FAILED"
)

// Mode selects how resources are written
type Mode string

const (
	// ModeFull cleans the content directory and writes every resource
	ModeFull Mode = "full"
	// ModeIncremental writes only resources whose fingerprint changed
	ModeIncremental Mode = "incremental"
)

// PageOutcome tags the result of syncing a single page
type PageOutcome int

const (
	PageOK PageOutcome = iota
	// PageSkipped means the page is permanently unavailable and was left out
	PageSkipped
	// PageFatal aborts the language pass
	PageFatal
)

func (o PageOutcome) String() string {
	switch o {
	case PageOK:
		return "ok"
	case PageSkipped:
		return "skipped"
	default:
		return "fatal"
	}
}

// SkippedResource describes a page left out of the content tree
type SkippedResource struct {
	Pass       string
	URI        string
	URL        string
	StatusCode int
	Reason     string
}

// PassStats are the counters of one language pass. Files are counted per
// destination, so a resource mirrored to two directories counts twice.
type PassStats struct {
	Pass         string
	TotalFiles   int
	ChangedFiles int
	Pages        int
	Skipped      []SkippedResource
}

// Result summarizes a sync run
type Result struct {
	RunID  string
	Mode   Mode
	Phase  Phase
	// Transitions lists every phase the run entered, in order
	Transitions []Phase
	// FellBack is true when an incremental run was restarted in full mode
	FellBack     bool
	Passes       []PassStats
	TotalFiles   int
	ChangedFiles int
	Skipped      []SkippedResource
	// Pruned counts hashes dropped for resources no longer published
	Pruned   int
	State    state.SyncState
	Duration time.Duration
}

// UpToDate reports whether an incremental run found nothing to write
func (r *Result) UpToDate() bool {
	return r.Mode == ModeIncremental && r.Phase == PhaseDone && r.ChangedFiles == 0
}

func (r *Result) enter(p Phase) {
	r.Phase = p
	r.Transitions = append(r.Transitions, p)
}

// resetCounters drops the counters of an abandoned attempt
func (r *Result) resetCounters() {
	r.Passes = nil
	r.TotalFiles = 0
	r.ChangedFiles = 0
	r.Skipped = nil
	r.Pruned = 0
}

func (r *Result) addPass(s PassStats) {
	r.Passes = append(r.Passes, s)
	r.TotalFiles += s.TotalFiles
	r.ChangedFiles += s.ChangedFiles
	r.Skipped = append(r.Skipped, s.Skipped...)
}

package jobstate

import (
	"errors"
	"sync"
	"time"
)

// State is the lifecycle phase of the job record.
type State string

const (
	StateIdle      State = "idle"
	StatePreparing State = "preparing"
	StateRendering State = "rendering"
	StateDone      State = "done"
	StateError     State = "error"
)

// Active reports whether a run occupies the store.
func (s State) Active() bool {
	return s == StatePreparing || s == StateRendering
}

// Terminal reports whether the run has finished.
func (s State) Terminal() bool {
	return s == StateDone || s == StateError
}

func (s State) rank() int {
	switch s {
	case StatePreparing:
		return 1
	case StateRendering:
		return 2
	case StateDone, StateError:
		return 3
	default:
		return 0
	}
}

// ErrRunActive is returned by Begin while another run is preparing or rendering.
var ErrRunActive = errors.New("a render run is already active")

// Record is the observable state of the current or most recent run.
type Record struct {
	State       State      `json:"state"`
	Percent     int        `json:"percent"`
	ETA         string     `json:"eta"`
	JobStatus   string     `json:"job_status"`
	Message     string     `json:"message"`
	Error       string     `json:"error"`
	StartedAt   *time.Time `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
	JobID       string     `json:"job_id"`
	RunID       string     `json:"run_id,omitempty"`
	FPS         float64    `json:"fps,omitempty"`
	CurrentClip string     `json:"current_clip,omitempty"`
	Timeline    string     `json:"timeline,omitempty"`
	ClipCount   int        `json:"clip_count,omitempty"`
}

// Store guards one Record.
type Store struct {
	mu       sync.Mutex
	rec      Record
	observer func(Record)
}

// New returns a store holding an idle record.
func New() *Store {
	return &Store{rec: Record{State: StateIdle}}
}

// Observe registers fn to receive a copy of the record after every write.
// fn runs outside the lock and must not block for long.
func (s *Store) Observe(fn func(Record)) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

// Snapshot returns a copy of the record.
func (s *Store) Snapshot() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRecord(s.rec)
}

// Begin resets the record for a new run and moves it to preparing. It fails
// with ErrRunActive, leaving the record untouched, when a run is in flight.
func (s *Store) Begin(runID string, now time.Time) error {
	s.mu.Lock()
	if s.rec.State.Active() {
		s.mu.Unlock()
		return ErrRunActive
	}
	started := now
	s.rec = Record{
		State:     StatePreparing,
		Message:   "Preparing",
		StartedAt: &started,
		RunID:     runID,
	}
	out, fn := copyRecord(s.rec), s.observer
	s.mu.Unlock()
	notify(fn, out)
	return nil
}

// Apply runs fn against a working copy of the record and stores the result.
// Backward state transitions are discarded and percent never decreases.
// Once the record is terminal it only accepts a missing finish time.
func (s *Store) Apply(fn func(*Record)) Record {
	s.mu.Lock()
	prev := s.rec
	next := copyRecord(prev)
	fn(&next)
	next = enforce(prev, next)
	s.rec = next
	out, obs := copyRecord(next), s.observer
	s.mu.Unlock()
	notify(obs, out)
	return out
}

// Replace overwrites the record. It is intended for restoring or resetting
// state outside a run and bypasses the transition rules.
func (s *Store) Replace(rec Record) {
	s.mu.Lock()
	rec.Percent = clamp(rec.Percent)
	s.rec = copyRecord(rec)
	out, fn := copyRecord(s.rec), s.observer
	s.mu.Unlock()
	notify(fn, out)
}

func enforce(prev, next Record) Record {
	if prev.State.Terminal() {
		// Finalized records only accept late bookkeeping.
		kept := copyRecord(prev)
		if next.State == prev.State && kept.FinishedAt == nil {
			kept.FinishedAt = next.FinishedAt
		}
		return kept
	}
	if next.State.rank() < prev.State.rank() {
		next.State = prev.State
	}
	next.Percent = clamp(next.Percent)
	if next.Percent < prev.Percent {
		next.Percent = prev.Percent
	}
	return next
}

func clamp(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

func copyRecord(r Record) Record {
	if r.StartedAt != nil {
		t := *r.StartedAt
		r.StartedAt = &t
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		r.FinishedAt = &t
	}
	return r
}

func notify(fn func(Record), rec Record) {
	if fn != nil {
		fn(rec)
	}
}

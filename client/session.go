package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"estateleads/leads"
)

var (
	ErrCommitInFlight = errors.New("client: a commit is already in flight for this lead")
	ErrSessionClosed  = errors.New("client: edit session is closed")
)

// SessionState is where an EditSession is in the commit cycle:
// clean → dirty → committing → clean, or back to dirty on failure
type SessionState int

const (
	StateClean SessionState = iota
	StateDirty
	StateCommitting
)

func (s SessionState) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	case StateCommitting:
		return "committing"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// LeadPatcher sends one batch commit; *Client implements it
type LeadPatcher interface {
	PatchLead(ctx context.Context, id uint, patch leads.PatchRequest) (*leads.PatchResult, error)
}

type SessionOption func(*EditSession)

func WithClock(now func() time.Time) SessionOption {
	return func(s *EditSession) { s.now = now }
}

// WithLocation sets the zone reminder dates are checked in
func WithLocation(loc *time.Location) SessionOption {
	return func(s *EditSession) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithAfterCommit runs fn after every successful commit, outside the session lock
func WithAfterCommit(fn func(ctx context.Context, res *leads.PatchResult)) SessionOption {
	return func(s *EditSession) { s.afterCommit = fn }
}

type edit func(w *leads.WorkingSet) error

// EditSession stages edits to one lead and commits them as a single batch.
// It is safe for concurrent use; the network call runs without the lock held.
type EditSession struct {
	mu      sync.Mutex
	leadID  uint
	patcher LeadPatcher
	work    *leads.WorkingSet
	state   SessionState
	closed  bool

	// edits made while a commit is in flight, replayed onto the reconciled state
	pending []edit

	now         func() time.Time
	loc         *time.Location
	afterCommit func(ctx context.Context, res *leads.PatchResult)
}

// NewEditSession starts a clean session from the last fetched copy of lead
func NewEditSession(lead *Lead, patcher LeadPatcher, opts ...SessionOption) *EditSession {
	s := &EditSession{
		leadID:  lead.ID,
		patcher: patcher,
		work:    leads.NewWorkingSet(lead.State(), lead.Reminders),
		state:   StateClean,
		now:     time.Now,
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *EditSession) LeadID() uint { return s.leadID }

func (s *EditSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dirty reports whether there are edits the server has not seen
func (s *EditSession) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateDirty || len(s.pending) > 0
}

// Snapshot returns a copy of the working state
func (s *EditSession) Snapshot() *leads.WorkingSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.work.Clone()
}

// Close detaches the session; a response still in flight is discarded
func (s *EditSession) Close() {
	s.mu.Lock()
	s.closed = true
	s.pending = nil
	s.mu.Unlock()
}

func (s *EditSession) today() string { return leads.Today(s.now(), s.loc) }

// apply runs do against the working state and marks the session dirty.
// During a commit the edit is also logged; replay defaults to do.
func (s *EditSession) apply(do, replay edit) error {
	if s.closed {
		return ErrSessionClosed
	}
	if err := do(s.work); err != nil {
		return err
	}
	if s.state == StateCommitting {
		if replay == nil {
			replay = do
		}
		s.pending = append(s.pending, replay)
		return nil
	}
	s.state = StateDirty
	return nil
}

func (s *EditSession) SetStatus(status leads.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(func(w *leads.WorkingSet) error { return w.SetStatus(status) }, nil)
}

func (s *EditSession) AddNote(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(func(w *leads.WorkingSet) error { return w.AddNote(text) }, nil)
}

func (s *EditSession) EditNote(index int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(func(w *leads.WorkingSet) error { return w.EditNote(index, text) }, nil)
}

func (s *EditSession) DeleteNote(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(func(w *leads.WorkingSet) error { return w.DeleteNote(index) }, nil)
}

// AddReminder stages a reminder and returns the key it can be edited by.
// The key keeps working after the commit assigns an id.
func (s *EditSession) AddReminder(in leads.ReminderInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var key string
	var staged leads.Reminder
	err := s.apply(func(w *leads.WorkingSet) error {
		var err error
		if key, err = w.AddReminder(in, s.today()); err != nil {
			return err
		}
		staged, _ = w.Reminder(key)
		return nil
	}, func(w *leads.WorkingSet) error {
		return w.InsertReminder(staged)
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (s *EditSession) EditReminder(key string, patch leads.ReminderPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(func(w *leads.WorkingSet) error { return w.EditReminder(key, patch) }, nil)
}

func (s *EditSession) SetReminderStatus(key string, status leads.ReminderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(func(w *leads.WorkingSet) error { return w.SetReminderStatus(key, status) }, nil)
}

func (s *EditSession) DeleteReminder(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(func(w *leads.WorkingSet) error {
		_, err := w.DeleteReminder(key)
		return err
	}, nil)
}

// PromoteNote turns the note at index into a reminder scheduled by sched
func (s *EditSession) PromoteNote(index int, sched leads.ReminderSchedule) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var key string
	var staged leads.Reminder
	err := s.apply(func(w *leads.WorkingSet) error {
		var err error
		if key, err = w.PromoteNote(index, sched, s.today()); err != nil {
			return err
		}
		staged, _ = w.Reminder(key)
		return nil
	}, func(w *leads.WorkingSet) error {
		if err := w.DeleteNote(index); err != nil {
			return err
		}
		return w.InsertReminder(staged)
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (s *EditSession) DemoteReminder(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(func(w *leads.WorkingSet) error { return w.DemoteReminder(key) }, nil)
}

func validatePatch(p leads.PatchRequest, today string) error {
	if p.Notes != nil {
		if err := leads.ValidateNotes(*p.Notes); err != nil {
			return err
		}
	}
	if p.Reminders != nil {
		for _, r := range *p.Reminders {
			if err := leads.ValidateReminder(r, today, r.ID == nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// Commit sends the full status, notes and reminders of the lead. On success
// the working state becomes the server's canonical answer plus any edits made
// while the request was in flight. On failure the working state is left as
// it was and the session stays dirty.
func (s *EditSession) Commit(ctx context.Context) (*leads.PatchResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.state == StateCommitting {
		s.mu.Unlock()
		return nil, ErrCommitInFlight
	}
	snapshot := s.work.Clone()
	patch := snapshot.PatchRequest()
	if err := validatePatch(patch, s.today()); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	prev := s.state
	s.state = StateCommitting
	s.pending = nil
	s.mu.Unlock()

	res, err := s.patcher.PatchLead(ctx, s.leadID, patch)
	if err == nil && res == nil {
		err = errors.New("empty commit response")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if err != nil {
		if prev == StateClean && len(s.pending) == 0 {
			s.state = StateClean
		} else {
			s.state = StateDirty
		}
		s.pending = nil
		s.mu.Unlock()
		return nil, fmt.Errorf("commit lead %d: %w", s.leadID, err)
	}

	snapshot.Reconcile(*res)
	for _, replay := range s.pending {
		// an edit that no longer applies to the server's state is dropped
		_ = replay(snapshot)
	}
	s.work = snapshot
	if len(s.pending) > 0 {
		s.state = StateDirty
	} else {
		s.state = StateClean
	}
	s.pending = nil
	hook := s.afterCommit
	s.mu.Unlock()

	if hook != nil {
		hook(ctx, res)
	}
	return res, nil
}

package leads

import (
	"strconv"

	"github.com/google/uuid"
)

// PatchRequest is the batch commit body. Nil fields are left untouched by the server.
type PatchRequest struct {
	Status    *Status     `json:"status,omitempty"`
	Notes     *[]string   `json:"notes,omitempty"`
	Reminders *[]Reminder `json:"reminders,omitempty"`
	UserID    *uint       `json:"user_id,omitempty"`
	UserType  string      `json:"user_type,omitempty"`
}

type ReminderChanges struct {
	Created []Reminder `json:"created"`
	Updated []Reminder `json:"updated"`
	Deleted []uint     `json:"deleted,omitempty"`
}

// PatchResult is the canonical state returned after a successful commit
type PatchResult struct {
	Data      LeadState       `json:"data"`
	Reminders ReminderChanges `json:"reminders"`
}

// ReminderSchedule is what a note needs to become a reminder
type ReminderSchedule struct {
	ReminderDate string   `json:"reminder_date"`
	ReminderTime string   `json:"reminder_time,omitempty"`
	Priority     Priority `json:"priority,omitempty"`
}

// WorkingSet holds the locally edited status, notes and reminders of one lead
type WorkingSet struct {
	Status        Status     `json:"status"`
	StatusTracker []Status   `json:"status_tracker"`
	Notes         Notes      `json:"notes"`
	Reminders     []Reminder `json:"reminders"`
}

func NewWorkingSet(state LeadState, reminders []Reminder) *WorkingSet {
	w := &WorkingSet{
		Status:        state.Status,
		StatusTracker: append([]Status{}, state.StatusTracker...),
		Notes:         append(Notes{}, state.Notes...),
		Reminders:     cloneReminders(reminders),
	}
	if w.Status == "" {
		w.Status = StatusNew
	}
	return w
}

func (w *WorkingSet) Clone() *WorkingSet {
	return &WorkingSet{
		Status:        w.Status,
		StatusTracker: append([]Status{}, w.StatusTracker...),
		Notes:         append(Notes{}, w.Notes...),
		Reminders:     cloneReminders(w.Reminders),
	}
}

func cloneReminders(rs []Reminder) []Reminder {
	out := make([]Reminder, 0, len(rs))
	for _, r := range rs {
		if r.ID != nil {
			id := *r.ID
			r.ID = &id
		}
		out = append(out, r)
	}
	return out
}

// ReminderKey identifies a reminder in a working set: its id once
// persisted, its client ref before that.
func ReminderKey(r Reminder) string {
	if r.ID != nil {
		return strconv.FormatUint(uint64(*r.ID), 10)
	}
	return r.ClientRef
}

func newClientRef() string {
	return "local-" + uuid.NewString()
}

// indexOf also matches the client ref, which the server echoes on creation,
// so a key handed out before a commit still resolves after reconciliation.
func (w *WorkingSet) indexOf(key string) int {
	if key == "" {
		return -1
	}
	for i, r := range w.Reminders {
		if ReminderKey(r) == key || r.ClientRef == key {
			return i
		}
	}
	return -1
}

// Reminder returns a copy of the reminder stored under key
func (w *WorkingSet) Reminder(key string) (Reminder, bool) {
	i := w.indexOf(key)
	if i < 0 {
		return Reminder{}, false
	}
	return cloneReminders(w.Reminders[i : i+1])[0], true
}

// InsertReminder appends an already staged reminder, keeping its client ref
func (w *WorkingSet) InsertReminder(r Reminder) error {
	if r.ID == nil && r.ClientRef == "" {
		return &ValidationError{Field: "reminder", Message: "staged reminder has no key"}
	}
	if w.indexOf(ReminderKey(r)) >= 0 {
		return nil
	}
	w.Reminders = append(w.Reminders, cloneReminders([]Reminder{r})...)
	return nil
}

func (w *WorkingSet) SetStatus(s Status) error {
	if !s.IsValid() {
		_, err := ParseStatus(string(s))
		return err
	}
	w.Status = s
	return nil
}

func (w *WorkingSet) AddNote(text string) error { return w.Notes.Add(text) }

func (w *WorkingSet) EditNote(index int, text string) error { return w.Notes.Edit(index, text) }

func (w *WorkingSet) DeleteNote(index int) error {
	_, err := w.Notes.Delete(index)
	return err
}

// AddReminder stages a new reminder and returns its key
func (w *WorkingSet) AddReminder(in ReminderInput, today string) (string, error) {
	r, err := NewReminder(in, today)
	if err != nil {
		return "", err
	}
	r.ClientRef = newClientRef()
	w.Reminders = append(w.Reminders, r)
	return r.ClientRef, nil
}

func (w *WorkingSet) EditReminder(key string, patch ReminderPatch) error {
	i := w.indexOf(key)
	if i < 0 {
		return invalid("reminder", ErrReminderNotFound)
	}
	updated, err := patch.Apply(w.Reminders[i])
	if err != nil {
		return err
	}
	w.Reminders[i] = updated
	return nil
}

// SetReminderStatus allows any status to follow any other, including reopening
func (w *WorkingSet) SetReminderStatus(key string, status ReminderStatus) error {
	if !status.IsValid() {
		return &ValidationError{Field: "status", Message: "invalid reminder status " + strconv.Quote(string(status))}
	}
	i := w.indexOf(key)
	if i < 0 {
		return invalid("reminder", ErrReminderNotFound)
	}
	w.Reminders[i].Status = status
	return nil
}

// DeleteReminder hard-removes a reminder; persisted ones disappear from the next commit
func (w *WorkingSet) DeleteReminder(key string) (Reminder, error) {
	i := w.indexOf(key)
	if i < 0 {
		return Reminder{}, invalid("reminder", ErrReminderNotFound)
	}
	removed := w.Reminders[i]
	w.Reminders = append(w.Reminders[:i:i], w.Reminders[i+1:]...)
	return removed, nil
}

// PromoteNote moves the note at index into a new reminder
func (w *WorkingSet) PromoteNote(index int, sched ReminderSchedule, today string) (string, error) {
	if index < 0 || index >= len(w.Notes) {
		return "", invalid("note", ErrNoteIndex)
	}
	r, err := NewReminder(ReminderInput{
		NoteText:     w.Notes[index],
		ReminderDate: sched.ReminderDate,
		ReminderTime: sched.ReminderTime,
		Priority:     sched.Priority,
	}, today)
	if err != nil {
		return "", err
	}
	if _, err := w.Notes.Delete(index); err != nil {
		return "", err
	}
	r.ClientRef = newClientRef()
	w.Reminders = append(w.Reminders, r)
	return r.ClientRef, nil
}

// DemoteReminder removes a reminder and appends its text to the notes
func (w *WorkingSet) DemoteReminder(key string) error {
	i := w.indexOf(key)
	if i < 0 {
		return invalid("reminder", ErrReminderNotFound)
	}
	text := w.Reminders[i].NoteText
	if _, err := w.DeleteReminder(key); err != nil {
		return err
	}
	w.Notes = append(w.Notes, text)
	return nil
}

// PatchRequest builds the full-state commit body
func (w *WorkingSet) PatchRequest() PatchRequest {
	status := w.Status
	notes := append([]string{}, w.Notes...)
	reminders := cloneReminders(w.Reminders)
	for i := range reminders {
		reminders[i].IsOverdue = false
	}
	return PatchRequest{Status: &status, Notes: &notes, Reminders: &reminders}
}

// Reconcile replaces local state with the server's answer. Persisted reminders
// are refreshed by id, new ones matched by client ref; id-less reminders the
// server did not acknowledge are dropped.
func (w *WorkingSet) Reconcile(res PatchResult) {
	w.Status = res.Data.Status
	w.StatusTracker = append([]Status{}, res.Data.StatusTracker...)
	w.Notes = append(Notes{}, res.Data.Notes...)

	updated := make(map[uint]Reminder, len(res.Reminders.Updated))
	for _, r := range res.Reminders.Updated {
		if r.ID != nil {
			updated[*r.ID] = r
		}
	}
	created := make(map[string]int, len(res.Reminders.Created))
	for i, r := range res.Reminders.Created {
		if r.ClientRef != "" {
			created[r.ClientRef] = i
		}
	}

	used := make(map[int]bool)
	seen := make(map[uint]bool)
	out := make([]Reminder, 0, len(w.Reminders)+len(res.Reminders.Created))
	add := func(r Reminder) {
		if r.ID != nil {
			if seen[*r.ID] {
				return
			}
			seen[*r.ID] = true
		}
		out = append(out, r)
	}

	for _, r := range w.Reminders {
		if r.ID != nil {
			if u, ok := updated[*r.ID]; ok {
				add(u)
			} else {
				add(r)
			}
			continue
		}
		if i, ok := created[r.ClientRef]; ok && r.ClientRef != "" {
			used[i] = true
			add(res.Reminders.Created[i])
		}
	}
	for i, r := range res.Reminders.Created {
		if !used[i] && r.ID != nil {
			add(r)
		}
	}
	w.Reminders = cloneReminders(out)
}

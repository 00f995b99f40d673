package models

import (
	"time"

	"estateleads/leads"
)

// Reminder is a dated follow-up task, associated to a lead by GroupedLeadKey.
// No DeletedAt: deletes are hard.
type Reminder struct {
	ID             uint                 `gorm:"primaryKey" json:"id"`
	GroupedLeadKey string               `gorm:"not null;index" json:"grouped_lead_key"`
	UserID         uint                 `gorm:"not null;index:idx_reminders_owner" json:"user_id"`
	UserType       string               `gorm:"type:varchar(20);not null;index:idx_reminders_owner" json:"user_type"`
	NoteText       string               `gorm:"type:text;not null" json:"note_text"`
	ReminderDate   string               `gorm:"type:varchar(10);not null;index" json:"reminder_date"` // YYYY-MM-DD
	ReminderTime   string               `gorm:"type:varchar(5)" json:"reminder_time,omitempty"`       // HH:MM
	Priority       leads.Priority       `gorm:"type:varchar(10);not null;default:'normal'" json:"priority"`
	Status         leads.ReminderStatus `gorm:"type:varchar(12);not null;default:'incomplete';index" json:"status"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// Domain converts the stored reminder, deriving IsOverdue at now
func (r Reminder) Domain(now time.Time, loc *time.Location) leads.Reminder {
	id := r.ID
	out := leads.Reminder{
		ID:             &id,
		GroupedLeadKey: r.GroupedLeadKey,
		NoteText:       r.NoteText,
		ReminderDate:   r.ReminderDate,
		ReminderTime:   r.ReminderTime,
		Priority:       r.Priority,
		Status:         r.Status,
	}
	out.IsOverdue = leads.IsOverdue(out, now, loc)
	return out
}

// Assign copies the editable fields of a submitted reminder
func (r *Reminder) Assign(in leads.Reminder) {
	r.NoteText = in.NoteText
	r.ReminderDate = in.ReminderDate
	r.ReminderTime = in.ReminderTime
	r.Priority = in.Priority
	if r.Priority == "" {
		r.Priority = leads.PriorityNormal
	}
	r.Status = in.Status
	if r.Status == "" {
		r.Status = leads.ReminderIncomplete
	}
}

// DomainReminders converts a slice of stored reminders
func DomainReminders(rs []Reminder, now time.Time, loc *time.Location) []leads.Reminder {
	out := make([]leads.Reminder, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Domain(now, loc))
	}
	return out
}

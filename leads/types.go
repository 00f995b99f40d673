package leads

import "time"

// ActionType is the kind of seeker interaction recorded on a lead
type ActionType string

const (
	ActionPhone       ActionType = "lead_phone"
	ActionMessage     ActionType = "lead_message"
	ActionAppointment ActionType = "lead_appointment"
	ActionEmail       ActionType = "lead_email"
)

// ActionTypes lists every trackable action type
var ActionTypes = []ActionType{ActionPhone, ActionMessage, ActionAppointment, ActionEmail}

func (a ActionType) IsValid() bool {
	switch a {
	case ActionPhone, ActionMessage, ActionAppointment, ActionEmail:
		return true
	}
	return false
}

// Status is the lister-controlled lead status
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusScheduled Status = "scheduled"
	StatusResponded Status = "responded"
	StatusClosed    Status = "closed"
)

var Statuses = []Status{StatusNew, StatusContacted, StatusScheduled, StatusResponded, StatusClosed}

func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusScheduled, StatusResponded, StatusClosed:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type ReminderStatus string

const (
	ReminderIncomplete ReminderStatus = "incomplete"
	ReminderCompleted  ReminderStatus = "completed"
	ReminderCancelled  ReminderStatus = "cancelled"
)

func (s ReminderStatus) IsValid() bool {
	switch s {
	case ReminderIncomplete, ReminderCompleted, ReminderCancelled:
		return true
	}
	return false
}

// Category buckets a lead score
type Category string

const (
	CategoryHigh   Category = "High"
	CategoryMedium Category = "Medium"
	CategoryBase   Category = "Base"
)

// Action is an immutable seeker interaction
type Action struct {
	ID        string                 `json:"action_id"`
	Type      ActionType             `json:"action_type"`
	Date      string                 `json:"action_date"` // YYYYMMDD
	Timestamp *time.Time             `json:"action_timestamp,omitempty"`
	Metadata  map[string]interface{} `json:"action_metadata,omitempty"`
}

// Reminder is a dated follow-up task attached to a lead.
// ID is nil until the reminder has been persisted.
type Reminder struct {
	ID             *uint          `json:"id"`
	ClientRef      string         `json:"client_ref,omitempty"`
	GroupedLeadKey string         `json:"grouped_lead_key,omitempty"`
	NoteText       string         `json:"note_text"`
	ReminderDate   string         `json:"reminder_date"`           // YYYY-MM-DD
	ReminderTime   string         `json:"reminder_time,omitempty"` // HH:MM
	Priority       Priority       `json:"priority"`
	Status         ReminderStatus `json:"status"`
	IsOverdue      bool           `json:"is_overdue"`
}

// LeadState is the lister-editable part of a lead as the server last saw it
type LeadState struct {
	Status        Status   `json:"status"`
	Notes         []string `json:"notes"`
	StatusTracker []Status `json:"status_tracker"`
}

package models

import (
	"time"

	"gorm.io/datatypes"

	"estateleads/leads"
)

// Lister types that can own leads
const (
	ListerDeveloper = "developer"
	ListerAgent     = "agent"
	ListerAgency    = "agency"
)

// UserSeeker is the token user type of marketplace visitors who generate actions
const UserSeeker = "seeker"

// IsListerType reports whether t may own leads
func IsListerType(t string) bool {
	switch t {
	case ListerDeveloper, ListerAgent, ListerAgency:
		return true
	}
	return false
}

// Lead aggregates every action between one seeker and one listing
// (or one seeker and one lister when no listing applies)
type Lead struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	GroupedLeadKey string `gorm:"not null;uniqueIndex" json:"grouped_lead_key"`

	// Identity
	ListerID   uint   `gorm:"not null;index:idx_leads_lister" json:"lister_id"`
	ListerType string `gorm:"type:varchar(20);not null;index:idx_leads_lister" json:"lister_type"`
	SeekerID   uint   `gorm:"not null;index" json:"seeker_id"`
	ListingID  *uint  `gorm:"index" json:"listing_id"`

	// Display data captured from seeker actions
	SeekerName   string `json:"seeker_name"`
	SeekerEmail  string `json:"seeker_email"`
	SeekerPhone  string `json:"seeker_phone"`
	ListingTitle string `json:"listing_title"`

	// Lister-controlled state
	Status        leads.Status                      `gorm:"type:varchar(20);not null;default:'new';index" json:"status"`
	StatusTracker datatypes.JSONSlice[leads.Status] `json:"status_tracker"`
	Notes         datatypes.JSONSlice[string]       `json:"notes"`

	// Derived at read time, never persisted
	LeadScore    int            `gorm:"-" json:"lead_score"`
	LeadCategory leads.Category `gorm:"-" json:"lead_category"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	LeadActions []LeadAction     `gorm:"foreignKey:LeadID" json:"lead_actions"`
	Reminders   []leads.Reminder `gorm:"-" json:"reminders,omitempty"`
}

// LeadAction is an immutable seeker interaction
type LeadAction struct {
	ID              uint              `gorm:"primaryKey" json:"-"`
	ActionID        string            `gorm:"type:varchar(36);not null;uniqueIndex" json:"action_id"`
	LeadID          uint              `gorm:"not null;index" json:"lead_id"`
	ActionType      leads.ActionType  `gorm:"type:varchar(30);not null;index" json:"action_type"`
	ActionDate      string            `gorm:"type:varchar(8);not null;index" json:"action_date"` // YYYYMMDD
	ActionTimestamp *time.Time        `json:"action_timestamp,omitempty"`
	ActionMetadata  datatypes.JSONMap `json:"action_metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Domain converts the stored action to the rules-engine form
func (a LeadAction) Domain() leads.Action {
	return leads.Action{
		ID:        a.ActionID,
		Type:      a.ActionType,
		Date:      a.ActionDate,
		Timestamp: a.ActionTimestamp,
		Metadata:  map[string]interface{}(a.ActionMetadata),
	}
}

// DomainActions converts the loaded actions of l
func (l *Lead) DomainActions() []leads.Action {
	out := make([]leads.Action, 0, len(l.LeadActions))
	for _, a := range l.LeadActions {
		out = append(out, a.Domain())
	}
	return out
}

// ApplyScore fills the derived score fields from the loaded actions
func (l *Lead) ApplyScore(policy leads.ScoringPolicy) {
	l.LeadScore = policy.Score(l.DomainActions())
	l.LeadCategory = leads.Categorize(l.LeadScore)
}

// State returns the lister-editable part of the lead
func (l *Lead) State() leads.LeadState {
	notes := append([]string{}, l.Notes...)
	tracker := append([]leads.Status{}, l.StatusTracker...)
	return leads.LeadState{Status: l.Status, Notes: notes, StatusTracker: tracker}
}

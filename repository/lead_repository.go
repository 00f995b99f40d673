package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"estateleads/leads"
	"estateleads/models"
)

var (
	ErrLeadNotFound     = errors.New("lead not found")
	ErrInvalidLister    = errors.New("invalid lister type")
	ErrMissingLeadOwner = errors.New("lister id and type are required")
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Owner is the lister a lead or reminder belongs to
type Owner struct {
	ID   uint   `json:"user_id"`
	Type string `json:"user_type"`
}

type LeadFilter struct {
	Owner      Owner
	ListingID  *uint
	Status     leads.Status
	ActionType leads.ActionType
	DateFrom   string // YYYYMMDD
	DateTo     string // YYYYMMDD
	Search     string
	Page       int
	PageSize   int
}

// Normalize applies pagination defaults and canonical date forms
func (f *LeadFilter) Normalize() error {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	if f.Status != "" && !f.Status.IsValid() {
		return &leads.ValidationError{Field: "status", Message: fmt.Sprintf("invalid status %q", f.Status), Err: leads.ErrInvalidStatus}
	}
	if f.ActionType != "" && !f.ActionType.IsValid() {
		return &leads.ValidationError{Field: "action_type", Message: fmt.Sprintf("invalid action type %q", f.ActionType), Err: leads.ErrInvalidActionType}
	}
	for _, d := range []*string{&f.DateFrom, &f.DateTo} {
		if *d == "" {
			continue
		}
		compact, err := leads.NormalizeActionDate(*d)
		if err != nil {
			return &leads.ValidationError{Field: "date", Message: err.Error(), Err: err}
		}
		*d = compact
	}
	return nil
}

// ActionInput is one seeker interaction to record
type ActionInput struct {
	ListerID        uint
	ListerType      string
	SeekerID        uint
	ListingID       *uint
	ActionType      leads.ActionType
	ActionDate      string
	ActionTimestamp *time.Time
	ActionMetadata  map[string]interface{}
	SeekerName      string
	SeekerEmail     string
	SeekerPhone     string
	ListingTitle    string
}

type ReminderQuery struct {
	GroupedLeadKey string
	Owner          Owner
}

type LeadStats struct {
	ByStatus   map[leads.Status]int64   `json:"by_status"`
	ByCategory map[leads.Category]int64 `json:"by_category"`
	Total      int64                    `json:"total"`
}

type LeadRepository struct {
	DB       *gorm.DB
	Policy   leads.ScoringPolicy
	Location *time.Location
	Now      func() time.Time
}

func NewLeadRepository(db *gorm.DB, policy leads.ScoringPolicy, loc *time.Location) *LeadRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &LeadRepository{DB: db, Policy: policy, Location: loc, Now: time.Now}
}

func (r *LeadRepository) today() string {
	return leads.Today(r.Now(), r.Location)
}

func ownerScope(o Owner) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("lister_id = ? AND lister_type = ?", o.ID, o.Type)
	}
}

func reminderOwnerScope(o Owner) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ? AND user_type = ?", o.ID, o.Type)
	}
}

func orderedActions(db *gorm.DB) *gorm.DB {
	return db.Order("action_date ASC, id ASC")
}

// RecordAction appends an action to the lead for its grouping, creating the lead on first contact
func (r *LeadRepository) RecordAction(ctx context.Context, in ActionInput) (*models.Lead, *models.LeadAction, error) {
	if !models.IsListerType(in.ListerType) {
		return nil, nil, &leads.ValidationError{Field: "lister_type", Message: fmt.Sprintf("invalid lister type %q", in.ListerType), Err: ErrInvalidLister}
	}
	if !in.ActionType.IsValid() {
		return nil, nil, &leads.ValidationError{Field: "action_type", Message: fmt.Sprintf("invalid action type %q", in.ActionType), Err: leads.ErrInvalidActionType}
	}
	date := in.ActionDate
	if date == "" {
		date = r.Now().In(r.Location).Format(leads.CompactDateLayout)
	}
	date, err := leads.NormalizeActionDate(date)
	if err != nil {
		return nil, nil, &leads.ValidationError{Field: "action_date", Message: err.Error(), Err: err}
	}

	key := leads.GroupedLeadKey(in.ListerType, in.ListerID, in.SeekerID, in.ListingID)
	var lead models.Lead
	var action models.LeadAction

	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		history := leads.NewStatusHistory()
		err := tx.Where(models.Lead{GroupedLeadKey: key}).
			Attrs(models.Lead{
				ListerID:      in.ListerID,
				ListerType:    in.ListerType,
				SeekerID:      in.SeekerID,
				ListingID:     in.ListingID,
				Status:        history.Current,
				StatusTracker: datatypes.JSONSlice[leads.Status](history.Tracker),
				Notes:         datatypes.JSONSlice[string]{},
			}).
			FirstOrCreate(&lead).Error
		if err != nil {
			return fmt.Errorf("failed to find or create lead: %w", err)
		}

		display := map[string]interface{}{}
		for col, v := range map[string]string{
			"seeker_name":   in.SeekerName,
			"seeker_email":  in.SeekerEmail,
			"seeker_phone":  in.SeekerPhone,
			"listing_title": in.ListingTitle,
		} {
			if strings.TrimSpace(v) != "" {
				display[col] = strings.TrimSpace(v)
			}
		}
		if len(display) > 0 {
			if err := tx.Model(&lead).Updates(display).Error; err != nil {
				return fmt.Errorf("failed to update lead details: %w", err)
			}
		}

		action = models.LeadAction{
			ActionID:        uuid.NewString(),
			LeadID:          lead.ID,
			ActionType:      in.ActionType,
			ActionDate:      date,
			ActionTimestamp: in.ActionTimestamp,
			ActionMetadata:  datatypes.JSONMap(in.ActionMetadata),
		}
		if err := tx.Create(&action).Error; err != nil {
			return fmt.Errorf("failed to record action: %w", err)
		}
		// Touch so recently active leads list first
		return tx.Model(&lead).Update("updated_at", r.Now()).Error
	})
	if err != nil {
		return nil, nil, err
	}

	if err := r.DB.WithContext(ctx).Preload("LeadActions", orderedActions).First(&lead, lead.ID).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to reload lead: %w", err)
	}
	lead.ApplyScore(r.Policy)
	return &lead, &action, nil
}

// List returns one page of the owner's leads matching every given filter
func (r *LeadRepository) List(ctx context.Context, f LeadFilter) ([]models.Lead, int64, error) {
	if f.Owner.ID == 0 || f.Owner.Type == "" {
		return nil, 0, ErrMissingLeadOwner
	}
	if err := f.Normalize(); err != nil {
		return nil, 0, err
	}

	query := r.DB.WithContext(ctx).Model(&models.Lead{}).Scopes(ownerScope(f.Owner))
	if f.ListingID != nil {
		query = query.Where("listing_id = ?", *f.ListingID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.ActionType != "" || f.DateFrom != "" || f.DateTo != "" {
		// A lead matches when one of its actions satisfies every action predicate
		sub := r.DB.Model(&models.LeadAction{}).Select("lead_id")
		if f.ActionType != "" {
			sub = sub.Where("action_type = ?", f.ActionType)
		}
		if f.DateFrom != "" {
			sub = sub.Where("action_date >= ?", f.DateFrom)
		}
		if f.DateTo != "" {
			sub = sub.Where("action_date <= ?", f.DateTo)
		}
		query = query.Where("id IN (?)", sub)
	}
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		like := "%" + s + "%"
		query = query.Where("LOWER(seeker_name) LIKE ? OR LOWER(seeker_email) LIKE ? OR LOWER(seeker_phone) LIKE ? OR LOWER(listing_title) LIKE ?", like, like, like, like)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count leads: %w", err)
	}

	var out []models.Lead
	err := query.Preload("LeadActions", orderedActions).
		Order("updated_at DESC, id DESC").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&out).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch leads: %w", err)
	}
	for i := range out {
		out[i].ApplyScore(r.Policy)
	}
	return out, total, nil
}

// Get loads one lead with its actions and the owner's reminders
func (r *LeadRepository) Get(ctx context.Context, id uint, owner Owner) (*models.Lead, error) {
	var lead models.Lead
	err := r.DB.WithContext(ctx).
		Scopes(ownerScope(owner)).
		Preload("LeadActions", orderedActions).
		First(&lead, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lead: %w", err)
	}

	reminders, err := r.ListReminders(ctx, ReminderQuery{GroupedLeadKey: lead.GroupedLeadKey, Owner: owner})
	if err != nil {
		return nil, err
	}
	lead.Reminders = reminders
	lead.ApplyScore(r.Policy)
	return &lead, nil
}

// Patch applies a batch commit in one transaction. Nil fields of req are left untouched.
func (r *LeadRepository) Patch(ctx context.Context, id uint, owner Owner, req leads.PatchRequest) (*leads.PatchResult, error) {
	now := r.Now()
	today := leads.Today(now, r.Location)

	if req.Status != nil && !req.Status.IsValid() {
		_, err := leads.ParseStatus(string(*req.Status))
		return nil, err
	}
	if req.Notes != nil {
		if err := leads.ValidateNotes(*req.Notes); err != nil {
			return nil, err
		}
	}

	result := &leads.PatchResult{
		Reminders: leads.ReminderChanges{Created: []leads.Reminder{}, Updated: []leads.Reminder{}},
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lead models.Lead
		q := tx.Scopes(ownerScope(owner))
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&lead, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLeadNotFound
			}
			return fmt.Errorf("failed to fetch lead: %w", err)
		}

		var existing []models.Reminder
		if req.Reminders != nil {
			if err := tx.Where("grouped_lead_key = ?", lead.GroupedLeadKey).
				Scopes(reminderOwnerScope(owner)).
				Find(&existing).Error; err != nil {
				return fmt.Errorf("failed to fetch reminders: %w", err)
			}
			if err := validateSubmitted(*req.Reminders, existing, today); err != nil {
				return err
			}
		}

		if req.Status != nil {
			history := leads.StatusHistory{Current: lead.Status, Tracker: append([]leads.Status{}, lead.StatusTracker...)}
			if len(history.Tracker) == 0 {
				history.Tracker = []leads.Status{lead.Status}
			}
			if _, err := history.Transition(*req.Status); err != nil {
				return err
			}
			lead.Status = history.Current
			lead.StatusTracker = history.Tracker
		}
		if req.Notes != nil {
			lead.Notes = append(datatypes.JSONSlice[string]{}, (*req.Notes)...)
		}
		if err := tx.Omit(clause.Associations).Save(&lead).Error; err != nil {
			return fmt.Errorf("failed to update lead: %w", err)
		}
		result.Data = lead.State()

		if req.Reminders == nil {
			return nil
		}
		changes, err := r.syncReminders(tx, lead.GroupedLeadKey, owner, *req.Reminders, existing, now)
		if err != nil {
			return err
		}
		result.Reminders = changes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func validateSubmitted(submitted []leads.Reminder, existing []models.Reminder, today string) error {
	known := make(map[uint]bool, len(existing))
	for _, e := range existing {
		known[e.ID] = true
	}
	for _, s := range submitted {
		if s.ID != nil && !known[*s.ID] {
			return &leads.ValidationError{
				Field:   "reminders",
				Message: fmt.Sprintf("reminder %d does not belong to this lead", *s.ID),
				Err:     leads.ErrReminderNotFound,
			}
		}
		if err := leads.ValidateReminder(s, today, s.ID == nil); err != nil {
			return err
		}
	}
	return nil
}

// syncReminders makes the stored reminders of one lead equal the submitted list
func (r *LeadRepository) syncReminders(tx *gorm.DB, key string, owner Owner, submitted []leads.Reminder, existing []models.Reminder, now time.Time) (leads.ReminderChanges, error) {
	changes := leads.ReminderChanges{Created: []leads.Reminder{}, Updated: []leads.Reminder{}}
	byID := make(map[uint]*models.Reminder, len(existing))
	for i := range existing {
		byID[existing[i].ID] = &existing[i]
	}

	kept := make(map[uint]bool, len(submitted))
	for _, s := range submitted {
		if s.ID == nil {
			rec := models.Reminder{GroupedLeadKey: key, UserID: owner.ID, UserType: owner.Type}
			rec.Assign(s)
			if err := tx.Create(&rec).Error; err != nil {
				return changes, fmt.Errorf("failed to create reminder: %w", err)
			}
			out := rec.Domain(now, r.Location)
			out.ClientRef = s.ClientRef
			changes.Created = append(changes.Created, out)
			continue
		}
		rec := byID[*s.ID]
		if kept[rec.ID] {
			continue
		}
		kept[rec.ID] = true
		rec.Assign(s)
		if err := tx.Save(rec).Error; err != nil {
			return changes, fmt.Errorf("failed to update reminder %d: %w", rec.ID, err)
		}
		changes.Updated = append(changes.Updated, rec.Domain(now, r.Location))
	}

	var deleted []uint
	for _, e := range existing {
		if !kept[e.ID] {
			deleted = append(deleted, e.ID)
		}
	}
	if len(deleted) > 0 {
		if err := tx.Delete(&models.Reminder{}, deleted).Error; err != nil {
			return changes, fmt.Errorf("failed to delete reminders: %w", err)
		}
		changes.Deleted = deleted
	}
	return changes, nil
}

// ListReminders returns the owner's reminders, optionally narrowed to one lead
func (r *LeadRepository) ListReminders(ctx context.Context, q ReminderQuery) ([]leads.Reminder, error) {
	query := r.DB.WithContext(ctx).Model(&models.Reminder{}).Scopes(reminderOwnerScope(q.Owner))
	if q.GroupedLeadKey != "" {
		query = query.Where("grouped_lead_key = ?", q.GroupedLeadKey)
	}
	var rows []models.Reminder
	if err := query.Order("reminder_date ASC, reminder_time ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch reminders: %w", err)
	}
	return models.DomainReminders(rows, r.Now(), r.Location), nil
}

// DueReminders returns incomplete reminders whose due instant falls in (from, to]
func (r *LeadRepository) DueReminders(ctx context.Context, from, to time.Time) ([]models.Reminder, error) {
	// Untimed reminders fall due at the end of their day, so look one day back
	first := from.In(r.Location).AddDate(0, 0, -1).Format(leads.DateLayout)
	last := to.In(r.Location).Format(leads.DateLayout)

	var rows []models.Reminder
	err := r.DB.WithContext(ctx).
		Where("status = ? AND reminder_date BETWEEN ? AND ?", leads.ReminderIncomplete, first, last).
		Order("reminder_date ASC, reminder_time ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due reminders: %w", err)
	}

	due := rows[:0]
	for _, row := range rows {
		at, err := leads.DueAt(row.Domain(to, r.Location), r.Location)
		if err != nil {
			continue
		}
		if at.After(from) && !at.After(to) {
			due = append(due, row)
		}
	}
	return due, nil
}

// OverdueReminders returns every incomplete reminder already overdue at now
func (r *LeadRepository) OverdueReminders(ctx context.Context, now time.Time) ([]models.Reminder, error) {
	var rows []models.Reminder
	err := r.DB.WithContext(ctx).
		Where("status = ? AND reminder_date <= ?", leads.ReminderIncomplete, leads.Today(now, r.Location)).
		Order("user_type ASC, user_id ASC, reminder_date ASC, reminder_time ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch overdue reminders: %w", err)
	}

	overdue := rows[:0]
	for _, row := range rows {
		if row.Domain(now, r.Location).IsOverdue {
			overdue = append(overdue, row)
		}
	}
	return overdue, nil
}

// Stats counts the owner's leads per status and per score category
func (r *LeadRepository) Stats(ctx context.Context, owner Owner) (*LeadStats, error) {
	stats := &LeadStats{
		ByStatus:   make(map[leads.Status]int64, len(leads.Statuses)),
		ByCategory: map[leads.Category]int64{leads.CategoryHigh: 0, leads.CategoryMedium: 0, leads.CategoryBase: 0},
	}
	for _, s := range leads.Statuses {
		stats.ByStatus[s] = 0
	}

	var rows []models.Lead
	err := r.DB.WithContext(ctx).
		Select("id", "status").
		Scopes(ownerScope(owner)).
		Preload("LeadActions", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "lead_id", "action_type")
		}).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute lead stats: %w", err)
	}
	for i := range rows {
		rows[i].ApplyScore(r.Policy)
		stats.ByStatus[rows[i].Status]++
		stats.ByCategory[rows[i].LeadCategory]++
		stats.Total++
	}
	return stats, nil
}

package leads

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DateLayout        = "2006-01-02"
	TimeLayout        = "15:04"
	CompactDateLayout = "20060102"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ReminderInput is the structured form used to create a reminder
type ReminderInput struct {
	NoteText     string   `json:"note_text" validate:"required"`
	ReminderDate string   `json:"reminder_date" validate:"required,datetime=2006-01-02"`
	ReminderTime string   `json:"reminder_time,omitempty" validate:"omitempty,datetime=15:04"`
	Priority     Priority `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
}

// ReminderPatch carries the fields to merge into an existing reminder; nil fields are left alone
type ReminderPatch struct {
	NoteText     *string   `json:"note_text,omitempty"`
	ReminderDate *string   `json:"reminder_date,omitempty"`
	ReminderTime *string   `json:"reminder_time,omitempty"`
	Priority     *Priority `json:"priority,omitempty"`
}

// Today formats the calendar date of now in loc
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DateLayout)
}

// NewReminder validates in and returns an unsaved, incomplete reminder
func NewReminder(in ReminderInput, today string) (Reminder, error) {
	r := Reminder{
		NoteText:     in.NoteText,
		ReminderDate: strings.TrimSpace(in.ReminderDate),
		ReminderTime: strings.TrimSpace(in.ReminderTime),
		Priority:     in.Priority,
		Status:       ReminderIncomplete,
	}
	if r.Priority == "" {
		r.Priority = PriorityNormal
	}
	if err := ValidateReminder(r, today, true); err != nil {
		return Reminder{}, err
	}
	return r, nil
}

// ValidateReminder checks a reminder as submitted. The past-date rule only
// applies to reminders being created.
func ValidateReminder(r Reminder, today string, creating bool) error {
	if strings.TrimSpace(r.NoteText) == "" {
		return invalid("note_text", ErrEmptyNote)
	}
	if strings.TrimSpace(r.ReminderDate) == "" {
		return invalid("reminder_date", ErrReminderDateRequired)
	}
	in := ReminderInput{
		NoteText:     r.NoteText,
		ReminderDate: r.ReminderDate,
		ReminderTime: r.ReminderTime,
		Priority:     r.Priority,
	}
	if err := validate.Struct(in); err != nil {
		return fromValidator(err)
	}
	if r.Status != "" && !r.Status.IsValid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("invalid reminder status %q", r.Status)}
	}
	if creating && r.ReminderDate < today {
		return invalid("reminder_date", ErrReminderDateInPast)
	}
	return nil
}

func fromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error(), Err: err}
	}
	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "datetime":
		msg = "must match " + fe.Param()
	case "oneof":
		msg = "must be one of " + fe.Param()
	default:
		msg = "is invalid"
	}
	return &ValidationError{Field: fe.Field(), Message: msg, Err: err}
}

// Apply merges p into r after validating the merged result
func (p ReminderPatch) Apply(r Reminder) (Reminder, error) {
	out := r
	if p.NoteText != nil {
		out.NoteText = *p.NoteText
	}
	if p.ReminderDate != nil {
		out.ReminderDate = strings.TrimSpace(*p.ReminderDate)
	}
	if p.ReminderTime != nil {
		out.ReminderTime = strings.TrimSpace(*p.ReminderTime)
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if err := ValidateReminder(out, "", false); err != nil {
		return r, err
	}
	return out, nil
}

// DueAt is the instant a reminder becomes overdue. Untimed reminders fall
// due at the end of their calendar day.
func DueAt(r Reminder, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if r.ReminderTime == "" {
		day, err := time.ParseInLocation(DateLayout, r.ReminderDate, loc)
		if err != nil {
			return time.Time{}, err
		}
		return day.AddDate(0, 0, 1), nil
	}
	return time.ParseInLocation(DateLayout+" "+TimeLayout, r.ReminderDate+" "+r.ReminderTime, loc)
}

// IsOverdue is derived at read time and never stored
func IsOverdue(r Reminder, now time.Time, loc *time.Location) bool {
	if r.Status != ReminderIncomplete {
		return false
	}
	due, err := DueAt(r, loc)
	if err != nil {
		return false
	}
	if r.ReminderTime == "" {
		return !now.Before(due)
	}
	return due.Before(now)
}

// MarkOverdue sets IsOverdue on every reminder in rs
func MarkOverdue(rs []Reminder, now time.Time, loc *time.Location) []Reminder {
	for i := range rs {
		rs[i].IsOverdue = IsOverdue(rs[i], now, loc)
	}
	return rs
}

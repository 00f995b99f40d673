package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"estateleads/leads"
	"estateleads/metrics"
	"estateleads/models"
	"estateleads/utils"
)

// ReminderSource is the part of the lead store the worker reads
type ReminderSource interface {
	DueReminders(ctx context.Context, from, to time.Time) ([]models.Reminder, error)
	OverdueReminders(ctx context.Context, now time.Time) ([]models.Reminder, error)
}

// Notifier pushes due reminders to connected listers
type Notifier interface {
	Publish(reminders []models.Reminder, now time.Time) int
}

type MailSender interface {
	Send(data utils.EmailData) error
}

type ReminderWorker struct {
	Source    ReminderSource
	Notifier  Notifier
	Mailer    MailSender
	Recipient string
	Metrics   *metrics.Metrics
	Logger    *logrus.Entry
	Location  *time.Location
	Now       func() time.Time

	SweepSpec  string
	DigestSpec string

	mu        sync.Mutex
	lastSweep time.Time
	cron      *cron.Cron
}

func NewReminderWorker(source ReminderSource, notifier Notifier, m *metrics.Metrics, loc *time.Location, logger *logrus.Entry) *ReminderWorker {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderWorker{
		Source:     source,
		Notifier:   notifier,
		Metrics:    m,
		Logger:     logger,
		Location:   loc,
		Now:        time.Now,
		SweepSpec:  "@every 1m",
		DigestSpec: "0 8 * * *",
	}
}

// WithDigest enables the overdue digest mail
func (rw *ReminderWorker) WithDigest(mailer MailSender, recipient string) *ReminderWorker {
	rw.Mailer = mailer
	rw.Recipient = recipient
	return rw
}

// Start schedules the sweep and digest jobs; they stop when ctx is cancelled
func (rw *ReminderWorker) Start(ctx context.Context) error {
	rw.cron = cron.New(cron.WithLocation(rw.Location))

	rw.mu.Lock()
	rw.lastSweep = rw.Now()
	rw.mu.Unlock()

	if _, err := rw.cron.AddFunc(rw.SweepSpec, func() {
		if _, err := rw.Sweep(ctx); err != nil {
			rw.Logger.WithError(err).Error("Reminder sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid reminder sweep schedule %q: %w", rw.SweepSpec, err)
	}

	if rw.Mailer != nil && rw.Recipient != "" {
		if _, err := rw.cron.AddFunc(rw.DigestSpec, func() {
			if err := rw.SendDigest(ctx); err != nil {
				utils.LogError("reminder_digest", err, map[string]interface{}{"recipient": rw.Recipient})
			}
		}); err != nil {
			return fmt.Errorf("invalid reminder digest schedule %q: %w", rw.DigestSpec, err)
		}
	} else {
		rw.Logger.Info("Reminder digest disabled, no mailer or recipient configured")
	}

	rw.cron.Start()
	rw.Logger.WithFields(logrus.Fields{"sweep": rw.SweepSpec, "digest": rw.DigestSpec}).Info("Reminder worker started")

	go func() {
		<-ctx.Done()
		rw.Logger.Info("Reminder worker shutting down...")
		<-rw.cron.Stop().Done()
	}()
	return nil
}

// Sweep pushes every reminder that fell due since the previous sweep
func (rw *ReminderWorker) Sweep(ctx context.Context) (int, error) {
	now := rw.Now()

	rw.mu.Lock()
	if rw.lastSweep.IsZero() {
		rw.lastSweep = now.Add(-time.Minute)
	}
	from := rw.lastSweep
	rw.mu.Unlock()

	due, err := rw.Source.DueReminders(ctx, from, now)
	if err != nil {
		return 0, err
	}

	rw.mu.Lock()
	rw.lastSweep = now
	rw.mu.Unlock()

	if len(due) == 0 {
		return 0, nil
	}
	delivered := rw.Notifier.Publish(due, now)
	if rw.Metrics != nil {
		rw.Metrics.RecordNotified(delivered)
	}
	rw.Logger.WithFields(logrus.Fields{"due": len(due), "delivered": delivered}).Debug("Reminders swept")
	return delivered, nil
}

// SendDigest mails the list of overdue reminders; nothing is sent when there are none
func (rw *ReminderWorker) SendDigest(ctx context.Context) error {
	if rw.Mailer == nil || rw.Recipient == "" {
		return nil
	}
	now := rw.Now()
	overdue, err := rw.Source.OverdueReminders(ctx, now)
	if err != nil {
		return err
	}
	if len(overdue) == 0 {
		return nil
	}

	err = rw.Mailer.Send(utils.EmailData{
		Subject:  fmt.Sprintf("%d overdue lead reminders", len(overdue)),
		To:       []string{rw.Recipient},
		Template: "reminder_digest",
		Data: map[string]interface{}{
			"Date":      leads.Today(now, rw.Location),
			"Reminders": overdue,
		},
	})
	if rw.Metrics != nil {
		if err != nil {
			rw.Metrics.RecordDigest("failed")
		} else {
			rw.Metrics.RecordDigest("sent")
		}
	}
	if err != nil {
		return fmt.Errorf("failed to send reminder digest: %w", err)
	}

	utils.LogEvent("reminder_digest_sent", map[string]interface{}{
		"recipient": rw.Recipient,
		"count":     len(overdue),
	})
	return nil
}

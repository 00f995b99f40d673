package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"estateleads/middleware"
	"estateleads/repository"
	"estateleads/utils"
)

type ReminderController struct {
	Repo   *repository.LeadRepository
	Hub    *ReminderHub
	Logger *logrus.Entry
}

func NewReminderController(repo *repository.LeadRepository, hub *ReminderHub, logger *logrus.Entry) *ReminderController {
	return &ReminderController{
		Repo:   repo,
		Hub:    hub,
		Logger: logger,
	}
}

// GetReminders lists the caller's reminders, for one lead when grouped_lead_key is given
func (rc *ReminderController) GetReminders(c *fiber.Ctx) error {
	owner := currentOwner(c)

	if q := c.Query("user_id"); q != "" && utils.ParseUint(q) != owner.ID {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Cannot list another user's reminders", nil)
	}
	if q := c.Query("user_type"); q != "" && q != owner.Type {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Cannot list another user's reminders", nil)
	}

	reminders, err := rc.Repo.ListReminders(c.UserContext(), repository.ReminderQuery{
		GroupedLeadKey: c.Query("grouped_lead_key"),
		Owner:          owner,
	})
	if err != nil {
		return respondError(c, err, "Failed to fetch reminders")
	}
	return c.JSON(utils.SuccessResponse(reminders))
}

// UpgradeReminderStream only lets websocket upgrades through
func UpgradeReminderStream(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// StreamReminders pushes reminders to the caller as they fall due
func (rc *ReminderController) StreamReminders(conn *websocket.Conn) {
	defer conn.Close()

	user, _ := conn.Locals("user").(*middleware.CurrentUser)
	if user == nil {
		return
	}
	owner := repository.Owner{ID: user.ID, Type: user.Type}
	reminders, unsubscribe := rc.Hub.Subscribe(owner)
	defer unsubscribe()

	log := rc.Logger.WithFields(logrus.Fields{"user_id": owner.ID, "user_type": owner.Type})
	log.Debug("Reminder stream opened")

	// The client never sends anything meaningful; a read error means it went away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			log.Debug("Reminder stream closed")
			return
		case r, ok := <-reminders:
			if !ok {
				return
			}
			if err := conn.WriteJSON(fiber.Map{"type": "reminder_due", "reminder": r}); err != nil {
				log.WithError(err).Warn("Failed to push reminder")
				return
			}
		}
	}
}

package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"estateleads/leads"
	"estateleads/metrics"
	"estateleads/repository"
	"estateleads/utils"
)

type ActionController struct {
	Repo    *repository.LeadRepository
	Metrics *metrics.Metrics
	Logger  *logrus.Entry
}

func NewActionController(repo *repository.LeadRepository, m *metrics.Metrics, logger *logrus.Entry) *ActionController {
	return &ActionController{
		Repo:    repo,
		Metrics: m,
		Logger:  logger,
	}
}

// RecordAction stores one seeker interaction against the lister's lead
func (ac *ActionController) RecordAction(c *fiber.Ctx) error {
	seeker := currentOwner(c)

	var input struct {
		ListerID        uint                   `json:"lister_id" validate:"required"`
		ListerType      string                 `json:"lister_type" validate:"required,oneof=developer agent agency"`
		ListingID       *uint                  `json:"listing_id"`
		ActionType      string                 `json:"action_type" validate:"required,oneof=lead_phone lead_message lead_appointment lead_email"`
		ActionDate      string                 `json:"action_date"`
		ActionTimestamp *time.Time             `json:"action_timestamp"`
		ActionMetadata  map[string]interface{} `json:"action_metadata"`
		SeekerName      string                 `json:"seeker_name" validate:"omitempty,max=200"`
		SeekerEmail     string                 `json:"seeker_email" validate:"omitempty,max=254"`
		SeekerPhone     string                 `json:"seeker_phone" validate:"omitempty,max=32"`
		ListingTitle    string                 `json:"listing_title" validate:"omitempty,max=300"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if err := utils.ValidateEmailFormat(input.SeekerEmail); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	lead, action, err := ac.Repo.RecordAction(c.UserContext(), repository.ActionInput{
		ListerID:        input.ListerID,
		ListerType:      input.ListerType,
		SeekerID:        seeker.ID,
		ListingID:       input.ListingID,
		ActionType:      leads.ActionType(input.ActionType),
		ActionDate:      input.ActionDate,
		ActionTimestamp: input.ActionTimestamp,
		ActionMetadata:  input.ActionMetadata,
		SeekerName:      input.SeekerName,
		SeekerEmail:     input.SeekerEmail,
		SeekerPhone:     input.SeekerPhone,
		ListingTitle:    input.ListingTitle,
	})
	if err != nil {
		return respondError(c, err, "Failed to record action")
	}
	ac.Metrics.RecordAction(input.ActionType)

	ac.Logger.WithFields(logrus.Fields{
		"lead_id":     lead.ID,
		"action_type": input.ActionType,
		"lead_score":  lead.LeadScore,
	}).Debug("Action recorded")

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(fiber.Map{
		"lead":   lead,
		"action": action,
	}))
}

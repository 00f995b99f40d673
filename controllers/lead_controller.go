package controller

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"estateleads/leads"
	"estateleads/metrics"
	"estateleads/repository"
	"estateleads/utils"
)

type LeadController struct {
	Repo    *repository.LeadRepository
	Metrics *metrics.Metrics
	Logger  *logrus.Entry
}

func NewLeadController(repo *repository.LeadRepository, m *metrics.Metrics, logger *logrus.Entry) *LeadController {
	return &LeadController{
		Repo:    repo,
		Metrics: m,
		Logger:  logger,
	}
}

func parseLeadID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid lead id")
	}
	return uint(id), nil
}

// GetLeads returns paginated list of leads with filters
func (lc *LeadController) GetLeads(c *fiber.Ctx) error {
	owner := currentOwner(c)

	// The lister defaults to the caller; asking for another lister is forbidden
	if q := c.Query("lister_id"); q != "" && utils.ParseUint(q) != owner.ID {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Cannot list another lister's leads", nil)
	}
	if q := c.Query("lister_type"); q != "" && q != owner.Type {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Cannot list another lister's leads", nil)
	}

	listingID, err := utils.ParseOptionalUint(c.Query("listing_id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid listing ID", err)
	}
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", strconv.Itoa(repository.DefaultPageSize)))

	filter := repository.LeadFilter{
		Owner:      owner,
		ListingID:  listingID,
		Status:     leads.Status(c.Query("status")),
		ActionType: leads.ActionType(c.Query("action_type")),
		DateFrom:   c.Query("date_from"),
		DateTo:     c.Query("date_to"),
		Search:     c.Query("search"),
		Page:       page,
		PageSize:   pageSize,
	}
	if err := filter.Normalize(); err != nil {
		return respondError(c, err, "Invalid filters")
	}

	found, total, err := lc.Repo.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err, "Failed to fetch leads")
	}

	return c.JSON(utils.PaginatedResponse{
		Success:  true,
		Data:     found,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

// GetLead returns a single lead with its actions and reminders
func (lc *LeadController) GetLead(c *fiber.Ctx) error {
	id, err := parseLeadID(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", err)
	}

	lead, err := lc.Repo.Get(c.UserContext(), id, currentOwner(c))
	if err != nil {
		return respondError(c, err, "Failed to fetch lead")
	}
	return c.JSON(utils.SuccessResponse(lead))
}

// PatchLead applies status, notes and reminders in one transaction
func (lc *LeadController) PatchLead(c *fiber.Ctx) error {
	start := time.Now()
	id, err := parseLeadID(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", err)
	}
	owner := currentOwner(c)

	var input leads.PatchRequest
	if err := c.BodyParser(&input); err != nil {
		lc.Metrics.RecordPatch("invalid", time.Since(start).Seconds())
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if (input.UserID != nil && *input.UserID != owner.ID) || (input.UserType != "" && input.UserType != owner.Type) {
		lc.Metrics.RecordPatch("forbidden", time.Since(start).Seconds())
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Cannot update reminders for another user", nil)
	}

	res, err := lc.Repo.Patch(c.UserContext(), id, owner, input)
	if err != nil {
		result := "error"
		if leads.IsValidation(err) {
			result = "invalid"
		}
		lc.Metrics.RecordPatch(result, time.Since(start).Seconds())
		return respondError(c, err, "Failed to update lead")
	}
	lc.Metrics.RecordPatch("ok", time.Since(start).Seconds())

	lc.Logger.WithFields(logrus.Fields{
		"lead_id":           id,
		"status":            res.Data.Status,
		"reminders_created": len(res.Reminders.Created),
		"reminders_updated": len(res.Reminders.Updated),
		"reminders_deleted": len(res.Reminders.Deleted),
	}).Info("Lead updated")

	return c.JSON(fiber.Map{
		"success":   true,
		"data":      res.Data,
		"reminders": res.Reminders,
	})
}

// GetLeadStats returns per status and per category counts for the caller
func (lc *LeadController) GetLeadStats(c *fiber.Ctx) error {
	stats, err := lc.Repo.Stats(c.UserContext(), currentOwner(c))
	if err != nil {
		return respondError(c, err, "Failed to compute lead stats")
	}
	return c.JSON(utils.SuccessResponse(stats))
}

package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"estateleads/leads"
	"estateleads/middleware"
	"estateleads/repository"
	"estateleads/utils"
)

// respondError maps domain and store errors onto the error envelope
func respondError(c *fiber.Ctx, err error, message string) error {
	var ve *leads.ValidationError
	switch {
	case errors.As(err, &ve):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", ve)
	case errors.Is(err, repository.ErrLeadNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
	case errors.Is(err, repository.ErrMissingLeadOwner):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, message, err)
	}

	utils.LogError("request_failed", err, map[string]interface{}{
		"method": c.Method(),
		"path":   c.Path(),
	})
	return utils.ErrorResponse(c, fiber.StatusInternalServerError, message, nil)
}

// currentOwner is the lister making the request, as set by middleware.Protected
func currentOwner(c *fiber.Ctx) repository.Owner {
	user := middleware.GetUser(c)
	if user == nil {
		return repository.Owner{}
	}
	return repository.Owner{ID: user.ID, Type: user.Type}
}

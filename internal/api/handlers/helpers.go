package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/service"
)

func GetUserID(c *fiber.Ctx) int64 {
	raw, _ := c.Locals("user_id").(string)
	userID, _ := strconv.ParseInt(raw, 10, 64)
	return userID
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrNotClaimable):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrMediaRequired),
		errors.Is(err, service.ErrNoAccount),
		errors.Is(err, service.ErrInvalidFrequency):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrDriveNotLinked):
		return fiber.StatusPreconditionFailed
	}
	return fiber.StatusInternalServerError
}

func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/service"
)

type CronHandler struct {
	s service.CronService
}

func NewCronHandler(service service.CronService) *CronHandler {
	return &CronHandler{s: service}
}

func (h *CronHandler) ProcessScheduled(c *fiber.Ctx) error {
	result, err := h.s.ProcessDue(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"ok":    false,
			"error": err.Error(),
		})
	}
	return c.JSON(result)
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/maheshrc27/postflow/internal/transfer"
)

type RecurrenceHandler struct {
	s service.RecurrenceService
}

func NewRecurrenceHandler(service service.RecurrenceService) *RecurrenceHandler {
	return &RecurrenceHandler{s: service}
}

func (h *RecurrenceHandler) GetSettings(c *fiber.Ctx) error {
	userID := GetUserID(c)

	settings, err := h.s.GetSettings(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load recurrence settings",
		})
	}

	return c.JSON(settings)
}

func (h *RecurrenceHandler) UpdateSettings(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var upd transfer.RecurrenceUpdate
	if err := c.BodyParser(&upd); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	settings, err := h.s.UpdateSettings(c.Context(), userID, &upd)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(settings)
}

func (h *RecurrenceHandler) PostedIDs(c *fiber.Ctx) error {
	userID := GetUserID(c)

	round, err := h.s.PostedRound(c.Context(), userID, c.Query("folderId"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"folderId":  round.FolderID,
		"postedIds": round.FileIDs,
	})
}

func (h *RecurrenceHandler) ClearRound(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.PostedRoundRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to parse json",
			})
		}
	}

	if err := h.s.ClearRound(c.Context(), userID, req.FolderID); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"cleared": true})
}

func (h *RecurrenceHandler) MarkPosted(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.PostedRoundRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}
	if len(req.FileIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "fileIds is required",
		})
	}

	if err := h.s.MarkPosted(c.Context(), userID, req.FolderID, req.FileIDs); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

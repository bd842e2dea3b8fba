package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/maheshrc27/postflow/internal/transfer"
)

const queueUnavailableWarning = "Post saved but the queue is unavailable. It will be published by the scheduled fallback sweep."

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	result, err := h.s.Schedule(c.Context(), userID, &req)
	if err != nil {
		return errorResponse(c, err)
	}

	if !result.Queued {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"post":    result.Post,
			"queued":  false,
			"warning": queueUnavailableWarning,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"post":   result.Post,
		"job_id": result.JobID,
		"queued": true,
	})
}

func (h *PostHandler) PublishNow(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.PublishNowRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	post, err := h.s.PublishNow(c.Context(), userID, &req)
	if err != nil {
		return errorResponse(c, err)
	}
	return publishResponse(c, post)
}

func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	post, err := h.s.Publish(c.Context(), userID, c.Params("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotClaimable) && post != nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
				"post":  post,
			})
		}
		return errorResponse(c, err)
	}
	return publishResponse(c, post)
}

// publishResponse reports a publish that ran but failed as 422 with the post,
// so callers can show the stored reason.
func publishResponse(c *fiber.Ctx, post *models.Post) error {
	if post.Status != models.PostStatusPublished {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": post.Error,
			"post":  post,
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"post": post,
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	posts, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	post, err := h.s.Get(c.Context(), userID, c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) QueueStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"available": h.s.QueueAvailable(c.Context()),
	})
}

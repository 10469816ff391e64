package handlers

import (
	"Foodgram-Backend/domain"
	"Foodgram-Backend/internal/api/presenters"
	"Foodgram-Backend/pkg/subscription"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type (
	SubscriptionHandler interface {
		Subscribe(c *fiber.Ctx) error
		Unsubscribe(c *fiber.Ctx) error
		GetSubscriptions(c *fiber.Ctx) error
	}

	subscriptionHandler struct {
		subscriptionService subscription.SubscriptionService
	}
)

func NewSubscriptionHandler(subscriptionService subscription.SubscriptionService) SubscriptionHandler {
	return &subscriptionHandler{subscriptionService: subscriptionService}
}

func (h *subscriptionHandler) Subscribe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	authorID := c.Params("id")

	res, err := h.subscriptionService.Subscribe(c.Context(), userID, authorID, parseRecipesLimit(c))
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedSubscribe, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessSubscribe)
}

func (h *subscriptionHandler) Unsubscribe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	authorID := c.Params("id")

	if err := h.subscriptionService.Unsubscribe(c.Context(), userID, authorID); err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedUnsubscribe, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *subscriptionHandler) GetSubscriptions(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	page, limit := parsePagination(c)

	res, err := h.subscriptionService.GetSubscriptions(c.Context(), userID, parseRecipesLimit(c), page, limit)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedGetSubscriptions, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetSubscriptions)
}

// parseRecipesLimit reads the optional recipes_limit query parameter; values
// that are not positive integers mean "no limit".
func parseRecipesLimit(c *fiber.Ctx) int {
	limit, err := strconv.Atoi(c.Query("recipes_limit", ""))
	if err != nil || limit < 1 {
		return 0
	}
	return limit
}

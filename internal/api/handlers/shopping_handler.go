package handlers

import (
	"Foodgram-Backend/domain"
	"Foodgram-Backend/internal/api/presenters"
	"Foodgram-Backend/pkg/shopping"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type (
	ShoppingHandler interface {
		DownloadShoppingList(c *fiber.Ctx) error
	}

	shoppingHandler struct {
		shoppingService shopping.ShoppingService
	}
)

func NewShoppingHandler(shoppingService shopping.ShoppingService) ShoppingHandler {
	return &shoppingHandler{shoppingService: shoppingService}
}

func (h *shoppingHandler) DownloadShoppingList(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	list, err := h.shoppingService.DownloadShoppingList(c.Context(), userID)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedDownloadShoppingList, err)
	}

	c.Set(fiber.HeaderContentType, "text/plain")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", list.Filename))
	return c.Status(fiber.StatusOK).SendString(list.Content)
}

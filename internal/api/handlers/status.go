package handlers

import (
	"Foodgram-Backend/domain"
	"errors"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps the service error taxonomy onto response codes: missing
// entities and missing relationships are 404, conflicts and invalid input
// are 400.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrRecipeNotFound),
		errors.Is(err, domain.ErrTagNotFound),
		errors.Is(err, domain.ErrIngredientNotFound),
		errors.Is(err, domain.ErrRecipeNotFavorited),
		errors.Is(err, domain.ErrRecipeNotInCart),
		errors.Is(err, domain.ErrNotSubscribed):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorizedRecipeAccess):
		return fiber.StatusForbidden
	default:
		return fiber.StatusBadRequest
	}
}

package domain

import (
	"errors"
)

var (
	MessageSuccessDownloadShoppingList = "success download shopping list"
	MessageFailedDownloadShoppingList  = "failed to download shopping list"

	ErrShoppingCartEmpty = errors.New("shopping cart is empty")
)

type (
	// ShoppingListItem is one aggregated (ingredient, unit) group with the
	// summed amount across every recipe in the user's cart.
	ShoppingListItem struct {
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}

	ShoppingList struct {
		Filename string `json:"filename"`
		Content  string `json:"content"`
	}
)

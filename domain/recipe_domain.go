package domain

import (
	"errors"
)

var (
	MessageSuccessGetRecipes       = "success get recipes"
	MessageSuccessGetRecipeDetail  = "success get recipe detail"
	MessageSuccessCreateRecipe     = "recipe created successfully"
	MessageSuccessUpdateRecipe     = "recipe updated successfully"
	MessageSuccessDeleteRecipe     = "recipe deleted successfully"
	MessageSuccessAddFavorite      = "recipe added to favorites"
	MessageSuccessRemoveFavorite   = "recipe removed from favorites"
	MessageSuccessAddToCart        = "recipe added to shopping cart"
	MessageSuccessRemoveFromCart   = "recipe removed from shopping cart"

	MessageFailedGetRecipes      = "failed to get recipes"
	MessageFailedGetRecipeDetail = "failed to get recipe detail"
	MessageFailedCreateRecipe    = "failed to create recipe"
	MessageFailedUpdateRecipe    = "failed to update recipe"
	MessageFailedDeleteRecipe    = "failed to delete recipe"
	MessageFailedAddFavorite     = "failed to add recipe to favorites"
	MessageFailedRemoveFavorite  = "failed to remove recipe from favorites"
	MessageFailedAddToCart       = "failed to add recipe to shopping cart"
	MessageFailedRemoveFromCart  = "failed to remove recipe from shopping cart"

	ErrRecipeNotFound           = errors.New("recipe not found")
	ErrUnauthorizedRecipeAccess = errors.New("unauthorized access to recipe")
	ErrRecipeAlreadyFavorited   = errors.New("recipe already in favorites")
	ErrRecipeNotFavorited       = errors.New("recipe not in favorites")
	ErrRecipeAlreadyInCart      = errors.New("recipe already in shopping cart")
	ErrRecipeNotInCart          = errors.New("recipe not in shopping cart")
	ErrIngredientAmountInvalid  = errors.New("ingredient amount must be at least 1")
	ErrNoIngredients            = errors.New("recipe must contain at least one ingredient")
)

type (
	RecipeIngredientRequest struct {
		ID     string `json:"id" validate:"required,uuid"`
		Amount int    `json:"amount" validate:"required,min=1"`
	}

	RecipeRequest struct {
		Name        string                    `json:"name" validate:"required,max=200"`
		Image       string                    `json:"image" validate:"required"`
		Text        string                    `json:"text" validate:"required"`
		CookingTime int                       `json:"cooking_time" validate:"required,min=1"`
		Tags        []string                  `json:"tags" validate:"required,min=1,dive,uuid"`
		Ingredients []RecipeIngredientRequest `json:"ingredients" validate:"required,min=1,dive"`
	}

	RecipeFilter struct {
		Tags              []string
		AuthorID          string
		IsFavorited       bool
		IsInShoppingCart  bool
	}

	// RecipeShort is the lightweight view returned from favorite and
	// shopping cart toggles and from subscription previews.
	RecipeShort struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Image       string `json:"image"`
		CookingTime int    `json:"cooking_time"`
	}

	RecipeIngredientResponse struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}

	RecipeDetail struct {
		ID               string                     `json:"id"`
		Tags             []TagResponse              `json:"tags"`
		Author           UserResponse               `json:"author"`
		Ingredients      []RecipeIngredientResponse `json:"ingredients"`
		IsFavorited      bool                       `json:"is_favorited"`
		IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
		Name             string                     `json:"name"`
		Image            string                     `json:"image"`
		Text             string                     `json:"text"`
		CookingTime      int                        `json:"cooking_time"`
	}

	RecipeListResponse struct {
		Recipes []RecipeDetail `json:"recipes"`
		Total   int64          `json:"total"`
	}
)

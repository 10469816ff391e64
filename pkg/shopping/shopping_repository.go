package shopping

import (
	"Foodgram-Backend/entities"
	"context"

	"gorm.io/gorm"
)

type (
	ShoppingRepository interface {
		HasCartEntries(ctx context.Context, userID string) (bool, error)
		GetCartIngredients(ctx context.Context, userID string) ([]*entities.RecipeIngredient, error)
	}

	shoppingRepository struct {
		db *gorm.DB
	}
)

func NewShoppingRepository(db *gorm.DB) ShoppingRepository {
	return &shoppingRepository{db: db}
}

func (r *shoppingRepository) HasCartEntries(ctx context.Context, userID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.ShoppingCart{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetCartIngredients collects every RecipeIngredient row belonging to a
// recipe in the user's shopping cart, with the referenced ingredient loaded.
func (r *shoppingRepository) GetCartIngredients(ctx context.Context, userID string) ([]*entities.RecipeIngredient, error) {
	var rows []*entities.RecipeIngredient

	if err := r.db.WithContext(ctx).
		Preload("Ingredient").
		Joins("JOIN shopping_carts ON shopping_carts.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_carts.user_id = ?", userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

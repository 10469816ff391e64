package recipe

import (
	"Foodgram-Backend/domain"
	"Foodgram-Backend/entities"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecipeRelation names a (user, recipe) pair table. Favorite and shopping
// cart rows share the same shape and the same toggle semantics, so the
// repository is parameterized by the kind instead of duplicating the queries.
type RecipeRelation string

const (
	RelationFavorite     RecipeRelation = "favorite"
	RelationShoppingCart RecipeRelation = "shopping_cart"
)

type (
	RecipeRepository interface {
		CreateRecipe(ctx context.Context, recipe *entities.Recipe, tags []*entities.Tag, ingredients []*entities.RecipeIngredient) error
		UpdateRecipe(ctx context.Context, recipe *entities.Recipe, tags []*entities.Tag, ingredients []*entities.RecipeIngredient) error
		DeleteRecipe(ctx context.Context, id string) error
		GetRecipeByID(ctx context.Context, id string) (*entities.Recipe, error)
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID string, page, limit int) ([]*entities.Recipe, int64, error)
		GetRecipeIngredients(ctx context.Context, recipeID string) ([]*entities.RecipeIngredient, error)
		GetTagsByIDs(ctx context.Context, ids []string) ([]*entities.Tag, error)
		GetIngredientsByIDs(ctx context.Context, ids []string) ([]*entities.Ingredient, error)
		HasRelation(ctx context.Context, kind RecipeRelation, userID, recipeID string) (bool, error)
		AddRelation(ctx context.Context, kind RecipeRelation, userID, recipeID string) error
		RemoveRelation(ctx context.Context, kind RecipeRelation, userID, recipeID string) error
	}

	recipeRepository struct {
		db *gorm.DB
	}
)

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

func (r *recipeRepository) CreateRecipe(ctx context.Context, recipe *entities.Recipe, tags []*entities.Tag, ingredients []*entities.RecipeIngredient) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(recipe).Error; err != nil {
			return err
		}
		if err := tx.Model(recipe).Association("Tags").Replace(tags); err != nil {
			return err
		}
		return tx.Create(ingredients).Error
	})
}

// UpdateRecipe replaces the recipe row together with its full tag and
// ingredient sets. Old RecipeIngredient rows are deleted outright, never
// diffed against the incoming list.
func (r *recipeRepository) UpdateRecipe(ctx context.Context, recipe *entities.Recipe, tags []*entities.Tag, ingredients []*entities.RecipeIngredient) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(recipe).Error; err != nil {
			return err
		}
		if err := tx.Model(recipe).Association("Tags").Replace(tags); err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&entities.RecipeIngredient{}).Error; err != nil {
			return err
		}
		return tx.Create(ingredients).Error
	})
}

func (r *recipeRepository) DeleteRecipe(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&entities.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&entities.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&entities.ShoppingCart{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM recipe_tags WHERE recipe_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entities.Recipe{}).Error
	})
}

func (r *recipeRepository) GetRecipeByID(ctx context.Context, id string) (*entities.Recipe, error) {
	var recipe entities.Recipe
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		Where("id = ?", id).
		First(&recipe).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID string, page, limit int) ([]*entities.Recipe, int64, error) {
	var recipes []*entities.Recipe
	var count int64
	offset := (page - 1) * limit

	query := r.db.WithContext(ctx).Model(&entities.Recipe{}).Distinct("recipes.*")

	if len(filter.Tags) > 0 {
		query = query.
			Joins("JOIN recipe_tags ON recipe_tags.recipe_id = recipes.id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.Tags)
	}
	if filter.AuthorID != "" {
		query = query.Where("recipes.user_id = ?", filter.AuthorID)
	}
	if filter.IsFavorited && viewerID != "" {
		query = query.
			Joins("JOIN favorites ON favorites.recipe_id = recipes.id").
			Where("favorites.user_id = ?", viewerID)
	}
	if filter.IsInShoppingCart && viewerID != "" {
		query = query.
			Joins("JOIN shopping_carts ON shopping_carts.recipe_id = recipes.id").
			Where("shopping_carts.user_id = ?", viewerID)
	}

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("User").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		Offset(offset).
		Limit(limit).
		Order("recipes.created_at desc").
		Find(&recipes).Error; err != nil {
		return nil, 0, err
	}

	return recipes, count, nil
}

func (r *recipeRepository) GetRecipeIngredients(ctx context.Context, recipeID string) ([]*entities.RecipeIngredient, error) {
	var rows []*entities.RecipeIngredient
	if err := r.db.WithContext(ctx).
		Preload("Ingredient").
		Where("recipe_id = ?", recipeID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *recipeRepository) GetTagsByIDs(ctx context.Context, ids []string) ([]*entities.Tag, error) {
	var tags []*entities.Tag
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *recipeRepository) GetIngredientsByIDs(ctx context.Context, ids []string) ([]*entities.Ingredient, error) {
	var ingredients []*entities.Ingredient
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}

func (r *recipeRepository) HasRelation(ctx context.Context, kind RecipeRelation, userID, recipeID string) (bool, error) {
	model, err := relationModel(kind)
	if err != nil {
		return false, err
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(model).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *recipeRepository) AddRelation(ctx context.Context, kind RecipeRelation, userID, recipeID string) error {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return err
	}

	recipeUUID, err := uuid.Parse(recipeID)
	if err != nil {
		return err
	}

	row, err := relationRow(kind, userUUID, recipeUUID)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *recipeRepository) RemoveRelation(ctx context.Context, kind RecipeRelation, userID, recipeID string) error {
	model, err := relationModel(kind)
	if err != nil {
		return err
	}

	res := r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func relationModel(kind RecipeRelation) (any, error) {
	switch kind {
	case RelationFavorite:
		return &entities.Favorite{}, nil
	case RelationShoppingCart:
		return &entities.ShoppingCart{}, nil
	default:
		return nil, fmt.Errorf("unknown recipe relation %q", kind)
	}
}

func relationRow(kind RecipeRelation, userID, recipeID uuid.UUID) (any, error) {
	switch kind {
	case RelationFavorite:
		return &entities.Favorite{
			ID:        uuid.New(),
			UserID:    userID,
			RecipeID:  recipeID,
			CreatedAt: time.Now(),
		}, nil
	case RelationShoppingCart:
		return &entities.ShoppingCart{
			ID:        uuid.New(),
			UserID:    userID,
			RecipeID:  recipeID,
			CreatedAt: time.Now(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown recipe relation %q", kind)
	}
}

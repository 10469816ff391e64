package entities

import (
	"github.com/google/uuid"
	"time"
)

type Recipe struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID      uuid.UUID `gorm:"not null" json:"user_id"`
	Name        string    `gorm:"not null" json:"name"`
	ImageURL    string    `json:"image_url,omitempty"`
	Text        string    `gorm:"type:text" json:"text"`
	CookingTime int       `gorm:"not null" json:"cooking_time"`

	User        *User               `gorm:"foreignKey:UserID"`
	Tags        []*Tag              `gorm:"many2many:recipe_tags"`
	Ingredients []*RecipeIngredient `gorm:"foreignKey:RecipeID"`
	Timestamp
}

// RecipeIngredient links one recipe to one ingredient with a positive amount.
// The rows for a recipe are replaced wholesale on every recipe update.
type RecipeIngredient struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	RecipeID     uuid.UUID `gorm:"not null" json:"recipe_id"`
	IngredientID uuid.UUID `gorm:"not null" json:"ingredient_id"`
	Amount       int       `gorm:"not null" json:"amount"`

	Recipe     *Recipe     `gorm:"foreignKey:RecipeID"`
	Ingredient *Ingredient `gorm:"foreignKey:IngredientID"`
}

type Favorite struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID    uuid.UUID `gorm:"uniqueIndex:idx_favorite_user_recipe;not null" json:"user_id"`
	RecipeID  uuid.UUID `gorm:"uniqueIndex:idx_favorite_user_recipe;not null" json:"recipe_id"`
	CreatedAt time.Time `gorm:"type:timestamp" json:"created_at"`

	User   *User   `gorm:"foreignKey:UserID"`
	Recipe *Recipe `gorm:"foreignKey:RecipeID"`
}

type ShoppingCart struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID    uuid.UUID `gorm:"uniqueIndex:idx_cart_user_recipe;not null" json:"user_id"`
	RecipeID  uuid.UUID `gorm:"uniqueIndex:idx_cart_user_recipe;not null" json:"recipe_id"`
	CreatedAt time.Time `gorm:"type:timestamp" json:"created_at"`

	User   *User   `gorm:"foreignKey:UserID"`
	Recipe *Recipe `gorm:"foreignKey:RecipeID"`
}

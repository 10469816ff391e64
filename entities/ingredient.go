package entities

import (
	"github.com/google/uuid"
)

// Ingredient is unique on the (name, measurement unit) pair, so the same
// product may exist once per unit ("сахар" in grams and in spoons).
type Ingredient struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name            string    `gorm:"uniqueIndex:idx_name_unit;not null" json:"name"`
	MeasurementUnit string    `gorm:"uniqueIndex:idx_name_unit;not null" json:"measurement_unit"`

	Timestamp
}

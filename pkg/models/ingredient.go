package models

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

// Ingredient is a child row of a Recipe. Quantity is stored as a whole part
// plus a fraction.
type Ingredient struct {
	ID                  int64  `gorm:"column:_id;primaryKey;autoIncrement" json:"_id" mapstructure:"_id"`
	RecipeID            int64  `gorm:"column:recipe_id;not null" json:"recipe_id" mapstructure:"recipe_id"`
	Quantity            int64  `gorm:"column:quantity" json:"quantity" mapstructure:"quantity"`
	QuantityNumerator   int64  `gorm:"column:quantity_numerator" json:"quantity_numerator" mapstructure:"quantity_numerator"`
	QuantityDenominator int64  `gorm:"column:quantity_denominator" json:"quantity_denominator" mapstructure:"quantity_denominator"`
	Unit                string `gorm:"column:unit" json:"unit" mapstructure:"unit"`
	Item                string `gorm:"column:item" json:"item" mapstructure:"item"`
	Preparation         string `gorm:"column:preparation" json:"preparation" mapstructure:"preparation"`
}

// IngredientColumns are the selectable columns of the ingredients table.
var IngredientColumns = []string{
	"_id", "recipe_id", "quantity", "quantity_numerator",
	"quantity_denominator", "unit", "item", "preparation",
}

// TableName specifies the table name.
func (Ingredient) TableName() string {
	return "ingredients"
}

// Validate checks the ingredient before it is written.
func (i Ingredient) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.RecipeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&i.Quantity, validation.Min(int64(0))),
		validation.Field(&i.QuantityNumerator, validation.Min(int64(0))),
		validation.Field(&i.QuantityDenominator, validation.Min(int64(0))),
	)
}

// Create inserts the ingredient.
func (i *Ingredient) Create(db *gorm.DB) error {
	if err := i.Validate(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return db.Create(i).Error
}

// GetIngredientsByRecipe lists the ingredients of a recipe in insertion order.
func GetIngredientsByRecipe(db *gorm.DB, recipeID int64) ([]Ingredient, error) {
	var ingredients []Ingredient
	err := db.Where("recipe_id = ?", recipeID).
		Order("_id ASC").
		Find(&ingredients).Error
	return ingredients, err
}

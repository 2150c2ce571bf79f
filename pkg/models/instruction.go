package models

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

// Instruction is one step of a Recipe.
type Instruction struct {
	ID       int64  `gorm:"column:_id;primaryKey;autoIncrement" json:"_id" mapstructure:"_id"`
	RecipeID int64  `gorm:"column:recipe_id;not null" json:"recipe_id" mapstructure:"recipe_id"`
	Text     string `gorm:"column:instruction" json:"instruction" mapstructure:"instruction"`
}

// InstructionColumns are the selectable columns of the instructions table.
var InstructionColumns = []string{"_id", "recipe_id", "instruction"}

// TableName specifies the table name.
func (Instruction) TableName() string {
	return "instructions"
}

// Validate checks the instruction before it is written.
func (i Instruction) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.RecipeID, validation.Required, validation.Min(int64(1))),
	)
}

// Create inserts the instruction.
func (i *Instruction) Create(db *gorm.DB) error {
	if err := i.Validate(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return db.Create(i).Error
}

// GetInstructionsByRecipe lists the steps of a recipe in order.
func GetInstructionsByRecipe(db *gorm.DB, recipeID int64) ([]Instruction, error) {
	var instructions []Instruction
	err := db.Where("recipe_id = ?", recipeID).
		Order("_id ASC").
		Find(&instructions).Error
	return instructions, err
}

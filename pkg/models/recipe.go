package models

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

// Recipe is the parent record. Ingredients and Instructions reference it and
// are removed with it.
type Recipe struct {
	ID          int64  `gorm:"column:_id;primaryKey;autoIncrement" json:"_id" mapstructure:"_id"`
	Title       string `gorm:"column:title" json:"title" mapstructure:"title"`
	Description string `gorm:"column:description" json:"description" mapstructure:"description"`

	// RemoteFileID links the recipe to a file in the remote change feed.
	// Unique when set.
	RemoteFileID *string `gorm:"column:remote_file_id" json:"remote_file_id,omitempty" mapstructure:"remote_file_id"`
}

// RecipeColumns are the selectable columns of the recipes table.
var RecipeColumns = []string{"_id", "title", "description", "remote_file_id"}

// TableName specifies the table name.
func (Recipe) TableName() string {
	return "recipes"
}

// Validate checks the recipe before it is written.
func (r Recipe) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Min(int64(0))),
		validation.Field(&r.RemoteFileID, validation.NilOrNotEmpty),
	)
}

// Create inserts the recipe and populates its generated ID.
func (r *Recipe) Create(db *gorm.DB) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return db.Create(r).Error
}

// Get retrieves a recipe by ID.
func (r *Recipe) Get(db *gorm.DB, id int64) error {
	if err := validation.Validate(id, validation.Required); err != nil {
		return err
	}
	return db.First(r, "_id = ?", id).Error
}

// GetByRemoteFileID retrieves the recipe linked to a remote file.
func (r *Recipe) GetByRemoteFileID(db *gorm.DB, fileID string) error {
	if err := validation.Validate(fileID, validation.Required); err != nil {
		return err
	}
	return db.Where("remote_file_id = ?", fileID).First(r).Error
}

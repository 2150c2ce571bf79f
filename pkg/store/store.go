// Package store persists recipes and their child rows.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/hashicorp-forge/recipebox/pkg/models"
	"github.com/hashicorp-forge/recipebox/pkg/resource"
)

// ErrNotFound is returned when an addressed row does not exist.
var ErrNotFound = errors.New("record not found")

// Predicate narrows a write or read to rows matching a SQL condition.
// The zero value matches every row.
type Predicate struct {
	Where string
	Args  []any
}

// IsZero returns true if the predicate has no condition.
func (p Predicate) IsZero() bool {
	return p.Where == ""
}

// Store is the gorm-backed record store.
type Store struct {
	db     *gorm.DB
	logger hclog.Logger
}

// New creates a Store on an already migrated database.
func New(db *gorm.DB, logger hclog.Logger) *Store {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Store{
		db:     db,
		logger: logger.Named("store"),
	}
}

// DB returns the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// NewModel returns an empty model for a collection.
func NewModel(c resource.Collection) (any, error) {
	switch c {
	case resource.Recipes:
		return &models.Recipe{}, nil
	case resource.Ingredients:
		return &models.Ingredient{}, nil
	case resource.Instructions:
		return &models.Instruction{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown collection %q", resource.ErrInvalidAddress, c)
	}
}

// Columns returns the selectable columns of a collection.
func Columns(c resource.Collection) []string {
	switch c {
	case resource.Recipes:
		return models.RecipeColumns
	case resource.Ingredients:
		return models.IngredientColumns
	case resource.Instructions:
		return models.InstructionColumns
	default:
		return nil
	}
}

// Insert writes a new row and returns its generated id. The model must be one
// of the pointers returned by NewModel.
func (s *Store) Insert(ctx context.Context, model any) (int64, error) {
	if v, ok := model.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return 0, fmt.Errorf("validation error: %w", err)
		}
	}

	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return 0, err
	}

	switch m := model.(type) {
	case *models.Recipe:
		return m.ID, nil
	case *models.Ingredient:
		return m.ID, nil
	case *models.Instruction:
		return m.ID, nil
	default:
		return 0, fmt.Errorf("unsupported model type %T", model)
	}
}

// scope applies the id and predicate of a request to a query.
func scope(db *gorm.DB, id int64, p Predicate) *gorm.DB {
	if id > 0 {
		db = db.Where("_id = ?", id)
	}
	if !p.IsZero() {
		db = db.Where(p.Where, p.Args...)
	}
	if id == 0 && p.IsZero() {
		// An empty scope addresses the whole collection.
		db = db.Where("1 = 1")
	}
	return db
}

// Update sets values on rows of c selected by id (when non-zero) and p.
// It returns the number of affected rows.
func (s *Store) Update(ctx context.Context, c resource.Collection, id int64, values map[string]any, p Predicate) (int64, error) {
	model, err := NewModel(c)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}

	tx := scope(s.db.WithContext(ctx).Model(model), id, p).Updates(values)
	if tx.Error != nil {
		return 0, fmt.Errorf("failed to update %s: %w", c, tx.Error)
	}
	return tx.RowsAffected, nil
}

// Delete removes rows of c selected by id (when non-zero) and p. Child rows of
// deleted recipes are removed by the database.
func (s *Store) Delete(ctx context.Context, c resource.Collection, id int64, p Predicate) (int64, error) {
	model, err := NewModel(c)
	if err != nil {
		return 0, err
	}

	tx := scope(s.db.WithContext(ctx), id, p).Delete(model)
	if tx.Error != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", c, tx.Error)
	}
	return tx.RowsAffected, nil
}

// Query reads rows of c as column maps. An empty column list selects every
// column; order is a validated ORDER BY clause.
func (s *Store) Query(ctx context.Context, c resource.Collection, id int64, columns []string, p Predicate, order string) ([]map[string]any, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("%w: unknown collection %q", resource.ErrInvalidAddress, c)
	}
	if len(columns) == 0 {
		columns = Columns(c)
	}

	db := scope(s.db.WithContext(ctx).Table(c.Table()).Select(columns), id, p)
	if order != "" {
		db = db.Order(order)
	}

	var rows []map[string]any
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c, err)
	}
	return rows, nil
}

// Count returns the number of rows of c matching p.
func (s *Store) Count(ctx context.Context, c resource.Collection, p Predicate) (int64, error) {
	model, err := NewModel(c)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := scope(s.db.WithContext(ctx).Model(model), 0, p).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c, err)
	}
	return n, nil
}

// FindRecipeByRemoteFileID returns the recipe linked to fileID, or ErrNotFound.
func (s *Store) FindRecipeByRemoteFileID(ctx context.Context, fileID string) (*models.Recipe, error) {
	var r models.Recipe
	if err := r.GetByRemoteFileID(s.db.WithContext(ctx), fileID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find recipe by remote file %q: %w", fileID, err)
	}
	return &r, nil
}

// ReplaceChildren swaps the ingredient and instruction lists of a recipe in a
// single transaction. Either both lists are replaced or nothing changes.
func (s *Store) ReplaceChildren(ctx context.Context, recipeID int64, ingredients []models.Ingredient, instructions []models.Instruction) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipe models.Recipe
		if err := recipe.Get(tx, recipeID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("recipe %d: %w", recipeID, ErrNotFound)
			}
			return fmt.Errorf("failed to load recipe %d: %w", recipeID, err)
		}

		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.Ingredient{}).Error; err != nil {
			return fmt.Errorf("failed to clear ingredients: %w", err)
		}
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.Instruction{}).Error; err != nil {
			return fmt.Errorf("failed to clear instructions: %w", err)
		}

		if err := insertChildren(tx, recipeID, ingredients, instructions); err != nil {
			return err
		}

		s.logger.Debug("replaced recipe children",
			"recipe_id", recipeID,
			"ingredients", len(ingredients),
			"instructions", len(instructions),
		)
		return nil
	})
}

// InsertRecipe creates a recipe together with its ingredients and
// instructions in one transaction and returns the recipe id. On error no row
// is written.
func (s *Store) InsertRecipe(ctx context.Context, recipe *models.Recipe, ingredients []models.Ingredient, instructions []models.Instruction) (int64, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := recipe.Create(tx); err != nil {
			return fmt.Errorf("failed to insert recipe: %w", err)
		}
		return insertChildren(tx, recipe.ID, ingredients, instructions)
	})
	if err != nil {
		recipe.ID = 0
		return 0, err
	}

	s.logger.Debug("inserted recipe with children",
		"recipe_id", recipe.ID,
		"ingredients", len(ingredients),
		"instructions", len(instructions),
	)
	return recipe.ID, nil
}

// insertChildren writes child rows for recipeID. Ids on the inputs are
// ignored.
func insertChildren(tx *gorm.DB, recipeID int64, ingredients []models.Ingredient, instructions []models.Instruction) error {
	for i := range ingredients {
		ing := ingredients[i]
		ing.ID = 0
		ing.RecipeID = recipeID
		if err := ing.Create(tx); err != nil {
			return fmt.Errorf("failed to insert ingredient %d: %w", i, err)
		}
	}
	for i := range instructions {
		ins := instructions[i]
		ins.ID = 0
		ins.RecipeID = recipeID
		if err := ins.Create(tx); err != nil {
			return fmt.Errorf("failed to insert instruction %d: %w", i, err)
		}
	}
	return nil
}

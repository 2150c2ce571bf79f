package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hashicorp-forge/recipebox/internal/testutil"
)

func ptr(s string) *string { return &s }

func TestModelsHaveTables(t *testing.T) {
	db := testutil.NewDB(t)
	for _, m := range ModelsToAutoMigrate() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
}

func TestRecipe(t *testing.T) {
	db := testutil.NewDB(t)

	t.Run("Validate", func(t *testing.T) {
		assert.NoError(t, Recipe{Title: "Soup"}.Validate())
		assert.Error(t, Recipe{RemoteFileID: ptr("")}.Validate())
		assert.Error(t, Recipe{ID: -1}.Validate())
	})

	t.Run("CreateAndGet", func(t *testing.T) {
		r := Recipe{Title: "Soup", Description: "Hot", RemoteFileID: ptr("file-1")}
		require.NoError(t, r.Create(db))
		require.Positive(t, r.ID)

		var got Recipe
		require.NoError(t, got.Get(db, r.ID))
		assert.Equal(t, r, got)

		var byFile Recipe
		require.NoError(t, byFile.GetByRemoteFileID(db, "file-1"))
		assert.Equal(t, r.ID, byFile.ID)

		var missing Recipe
		err := missing.GetByRemoteFileID(db, "file-2")
		assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
		assert.Error(t, missing.Get(db, 0))
	})

	t.Run("RemoteFileIDUnique", func(t *testing.T) {
		r := Recipe{Title: "Copy", RemoteFileID: ptr("file-1")}
		assert.Error(t, r.Create(db))

		// Unlinked recipes do not collide.
		require.NoError(t, (&Recipe{Title: "A"}).Create(db))
		require.NoError(t, (&Recipe{Title: "B"}).Create(db))
	})
}

func TestChildren(t *testing.T) {
	db := testutil.NewDB(t)

	r := Recipe{Title: "Salad"}
	require.NoError(t, r.Create(db))

	assert.Error(t, (&Ingredient{Item: "orphan"}).Create(db), "recipe is required")
	assert.Error(t, (&Ingredient{RecipeID: r.ID, Quantity: -1}).Create(db))
	assert.Error(t, (&Instruction{Text: "orphan"}).Create(db))

	require.NoError(t, (&Ingredient{RecipeID: r.ID, Quantity: 1, Item: "lettuce"}).Create(db))
	require.NoError(t, (&Ingredient{RecipeID: r.ID, QuantityNumerator: 1, QuantityDenominator: 4, Unit: "cup", Item: "oil"}).Create(db))
	require.NoError(t, (&Instruction{RecipeID: r.ID, Text: "Wash"}).Create(db))
	require.NoError(t, (&Instruction{RecipeID: r.ID, Text: "Toss"}).Create(db))

	ingredients, err := GetIngredientsByRecipe(db, r.ID)
	require.NoError(t, err)
	require.Len(t, ingredients, 2)
	assert.Equal(t, "lettuce", ingredients[0].Item)
	assert.Equal(t, int64(4), ingredients[1].QuantityDenominator)

	instructions, err := GetInstructionsByRecipe(db, r.ID)
	require.NoError(t, err)
	require.Len(t, instructions, 2)
	assert.Equal(t, "Toss", instructions[1].Text)

	// Children go with their recipe.
	require.NoError(t, db.Delete(&Recipe{}, r.ID).Error)
	ingredients, err = GetIngredientsByRecipe(db, r.ID)
	require.NoError(t, err)
	assert.Empty(t, ingredients)
	instructions, err = GetInstructionsByRecipe(db, r.ID)
	require.NoError(t, err)
	assert.Empty(t, instructions)
}

func TestChangeCursorUpsert(t *testing.T) {
	db := testutil.NewDB(t)

	var c ChangeCursor
	assert.True(t, errors.Is(c.Get(db, "a"), gorm.ErrRecordNotFound))

	require.NoError(t, (&ChangeCursor{Account: "a", LargestChangeID: 10}).Upsert(db))
	require.NoError(t, (&ChangeCursor{Account: "a", LargestChangeID: 5}).Upsert(db))
	require.NoError(t, c.Get(db, "a"))
	assert.Equal(t, int64(10), c.LargestChangeID, "never moves backward")

	require.NoError(t, (&ChangeCursor{Account: "a", LargestChangeID: 12}).Upsert(db))
	require.NoError(t, c.Get(db, "a"))
	assert.Equal(t, int64(12), c.LargestChangeID)
	assert.False(t, c.UpdatedAt.IsZero())
}

package resource

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		kind       Kind
		id         int64
		collection Collection
	}{
		{"recipe collection", "content://com.hashicorp.recipebox/recipes", KindRecipeCollection, 0, Recipes},
		{"recipe item", "content://com.hashicorp.recipebox/recipes/42", KindRecipeItem, 42, Recipes},
		{"ingredient collection", "content://com.hashicorp.recipebox/ingredients", KindIngredientCollection, 0, Ingredients},
		{"ingredient item", "content://com.hashicorp.recipebox/ingredients/7", KindIngredientItem, 7, Ingredients},
		{"instruction collection", "content://com.hashicorp.recipebox/instructions/", KindInstructionCollection, 0, Instructions},
		{"instruction item", "content://com.hashicorp.recipebox/instructions/1", KindInstructionItem, 1, Instructions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, a.Kind())
			assert.Equal(t, tt.id, a.ID())
			assert.Equal(t, tt.collection, a.Collection())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"http://com.hashicorp.recipebox/recipes",
		"content://com.example.other/recipes",
		"content://com.hashicorp.recipebox/",
		"content://com.hashicorp.recipebox/pantry",
		"content://com.hashicorp.recipebox/recipes/abc",
		"content://com.hashicorp.recipebox/recipes/0",
		"content://com.hashicorp.recipebox/recipes/-3",
		"content://com.hashicorp.recipebox/recipes/+5",
		"content://com.hashicorp.recipebox/recipes/05",
		"content://com.hashicorp.recipebox/ingredients/007",
		"content://com.hashicorp.recipebox/recipes/1/ingredients",
		"content://com.hashicorp.recipebox/recipes?x=1",
		"::not a uri",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw)
			assert.ErrorIs(t, err, ErrInvalidAddress)
		})
	}
}

func TestAddress_String(t *testing.T) {
	for _, c := range ValidCollections() {
		dir := CollectionAddress(c)
		parsed, err := Parse(dir.String())
		require.NoError(t, err)
		assert.Equal(t, dir, parsed)

		item := ItemAddress(c, 99)
		parsed, err = Parse(item.String())
		require.NoError(t, err)
		assert.Equal(t, item, parsed)
	}

	assert.Equal(t, "", Address{}.String())
	assert.Equal(t, "content://com.hashicorp.recipebox/recipes/3", ItemAddress(Recipes, 3).String())
}

func TestKind_ContentType(t *testing.T) {
	assert.Equal(t, "vnd.recipebox.dir/recipe", KindRecipeCollection.ContentType())
	assert.Equal(t, "vnd.recipebox.item/recipe", KindRecipeItem.ContentType())
	assert.Equal(t, "vnd.recipebox.dir/ingredient", KindIngredientCollection.ContentType())
	assert.Equal(t, "vnd.recipebox.item/ingredient", KindIngredientItem.ContentType())
	assert.Equal(t, "vnd.recipebox.dir/instruction", KindInstructionCollection.ContentType())
	assert.Equal(t, "vnd.recipebox.item/instruction", KindInstructionItem.ContentType())
	assert.Equal(t, "", KindUnknown.ContentType())
}

func TestAddress_Contains(t *testing.T) {
	recipes := CollectionAddress(Recipes)
	assert.True(t, recipes.Contains(recipes))
	assert.True(t, recipes.Contains(ItemAddress(Recipes, 5)))
	assert.False(t, recipes.Contains(ItemAddress(Ingredients, 5)))
	assert.False(t, ItemAddress(Recipes, 5).Contains(recipes))
	assert.False(t, ItemAddress(Recipes, 5).Contains(ItemAddress(Recipes, 6)))
	assert.Equal(t, recipes, ItemAddress(Recipes, 5).Parent())
}

func TestAddress_JSON(t *testing.T) {
	type wrapper struct {
		Addr Address `json:"addr"`
	}

	b, err := json.Marshal(wrapper{Addr: ItemAddress(Instructions, 12)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"addr":"content://com.hashicorp.recipebox/instructions/12"}`, string(b))

	var w wrapper
	require.NoError(t, json.Unmarshal(b, &w))
	assert.Equal(t, ItemAddress(Instructions, 12), w.Addr)

	err = json.Unmarshal([]byte(`{"addr":"content://nope/recipes"}`), &w)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestParse_RoundTripsItemAddresses(t *testing.T) {
	for _, raw := range []string{
		"content://com.hashicorp.recipebox/recipes/5",
		"content://com.hashicorp.recipebox/ingredients/10",
		"content://com.hashicorp.recipebox/instructions/9223372036854775807",
	} {
		a, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, a.String())
	}
}

package resource

import "fmt"

// Collection identifies one of the addressable tables.
type Collection string

const (
	// Recipes is the parent collection.
	Recipes Collection = "recipes"

	// Ingredients belong to a recipe.
	Ingredients Collection = "ingredients"

	// Instructions belong to a recipe.
	Instructions Collection = "instructions"
)

// ValidCollections returns all addressable collections.
func ValidCollections() []Collection {
	return []Collection{Recipes, Ingredients, Instructions}
}

// IsValid returns true if this is a recognized collection.
func (c Collection) IsValid() bool {
	switch c {
	case Recipes, Ingredients, Instructions:
		return true
	default:
		return false
	}
}

// String returns the path segment for the collection.
func (c Collection) String() string {
	return string(c)
}

// Table returns the backing table name.
func (c Collection) Table() string {
	return string(c)
}

// Entity returns the singular entity name used in content types.
func (c Collection) Entity() string {
	switch c {
	case Recipes:
		return "recipe"
	case Ingredients:
		return "ingredient"
	case Instructions:
		return "instruction"
	default:
		return ""
	}
}

// DirKind returns the kind of the collection address.
func (c Collection) DirKind() Kind {
	switch c {
	case Recipes:
		return KindRecipeCollection
	case Ingredients:
		return KindIngredientCollection
	case Instructions:
		return KindInstructionCollection
	default:
		return KindUnknown
	}
}

// ItemKind returns the kind of an item address within the collection.
func (c Collection) ItemKind() Kind {
	switch c {
	case Recipes:
		return KindRecipeItem
	case Ingredients:
		return KindIngredientItem
	case Instructions:
		return KindInstructionItem
	default:
		return KindUnknown
	}
}

// ParseCollection parses a path segment into a Collection.
func ParseCollection(s string) (Collection, error) {
	c := Collection(s)
	if !c.IsValid() {
		return "", fmt.Errorf("%w: unknown collection %q (valid: %v)",
			ErrInvalidAddress, s, ValidCollections())
	}
	return c, nil
}

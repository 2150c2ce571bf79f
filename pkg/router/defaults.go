package router

import "github.com/hashicorp-forge/recipebox/pkg/resource"

// Defaults are substituted for fields missing from an insert.
type Defaults struct {
	RecipeTitle           string `hcl:"recipe_title,optional"`
	RecipeDescription     string `hcl:"recipe_description,optional"`
	IngredientUnit        string `hcl:"ingredient_unit,optional"`
	IngredientItem        string `hcl:"ingredient_item,optional"`
	IngredientPreparation string `hcl:"ingredient_preparation,optional"`
	InstructionText       string `hcl:"instruction_text,optional"`
}

// DefaultValues returns the built-in defaults.
func DefaultValues() Defaults {
	return Defaults{
		RecipeTitle:       "Untitled Recipe",
		RecipeDescription: "No description",
	}
}

// Merge fills empty recipe fields of d from other.
func (d Defaults) Merge(other Defaults) Defaults {
	if d.RecipeTitle == "" {
		d.RecipeTitle = other.RecipeTitle
	}
	if d.RecipeDescription == "" {
		d.RecipeDescription = other.RecipeDescription
	}
	return d
}

// values returns the column defaults for a collection.
func (d Defaults) values(c resource.Collection) map[string]any {
	switch c {
	case resource.Recipes:
		return map[string]any{
			"title":       d.RecipeTitle,
			"description": d.RecipeDescription,
		}
	case resource.Ingredients:
		return map[string]any{
			"quantity":             int64(0),
			"quantity_numerator":   int64(0),
			"quantity_denominator": int64(0),
			"unit":                 d.IngredientUnit,
			"item":                 d.IngredientItem,
			"preparation":          d.IngredientPreparation,
		}
	case resource.Instructions:
		return map[string]any{
			"instruction": d.InstructionText,
		}
	default:
		return nil
	}
}

// required returns the columns an insert must supply.
func required(c resource.Collection) []string {
	switch c {
	case resource.Ingredients, resource.Instructions:
		return []string{"recipe_id"}
	default:
		return nil
	}
}

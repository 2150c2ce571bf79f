package resource

// Kind classifies an address.
type Kind int

const (
	KindUnknown Kind = iota
	KindRecipeCollection
	KindRecipeItem
	KindIngredientCollection
	KindIngredientItem
	KindInstructionCollection
	KindInstructionItem
)

const (
	dirTypePrefix  = "vnd.recipebox.dir/"
	itemTypePrefix = "vnd.recipebox.item/"
)

// IsCollection returns true for kinds that name a whole table.
func (k Kind) IsCollection() bool {
	switch k {
	case KindRecipeCollection, KindIngredientCollection, KindInstructionCollection:
		return true
	default:
		return false
	}
}

// IsItem returns true for kinds that name a single row.
func (k Kind) IsItem() bool {
	switch k {
	case KindRecipeItem, KindIngredientItem, KindInstructionItem:
		return true
	default:
		return false
	}
}

// Collection returns the table the kind refers to.
func (k Kind) Collection() Collection {
	switch k {
	case KindRecipeCollection, KindRecipeItem:
		return Recipes
	case KindIngredientCollection, KindIngredientItem:
		return Ingredients
	case KindInstructionCollection, KindInstructionItem:
		return Instructions
	default:
		return ""
	}
}

// ContentType returns the stable type descriptor for the kind, or "" for
// KindUnknown.
func (k Kind) ContentType() string {
	c := k.Collection()
	switch {
	case k.IsCollection():
		return dirTypePrefix + c.Entity()
	case k.IsItem():
		return itemTypePrefix + c.Entity()
	default:
		return ""
	}
}

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindRecipeCollection:
		return "recipe-collection"
	case KindRecipeItem:
		return "recipe-item"
	case KindIngredientCollection:
		return "ingredient-collection"
	case KindIngredientItem:
		return "ingredient-item"
	case KindInstructionCollection:
		return "instruction-collection"
	case KindInstructionItem:
		return "instruction-item"
	default:
		return "unknown"
	}
}

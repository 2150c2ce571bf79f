package models

// ModelsToAutoMigrate returns the models in dependency order. The schema is
// owned by versioned migrations; this list is used by tests and tooling that
// need to enumerate tables.
func ModelsToAutoMigrate() []interface{} {
	return []interface{}{
		&Recipe{}, // Must be first - children reference it
		&Ingredient{},
		&Instruction{},
		&ChangeCursor{},
	}
}

package router

import (
	"fmt"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/iancoleman/strcase"
	"github.com/mitchellh/mapstructure"

	"github.com/hashicorp-forge/recipebox/pkg/resource"
	"github.com/hashicorp-forge/recipebox/pkg/store"
)

// Values are column values keyed by column name. camelCase field names
// (quantityNumerator) and "id" are accepted as aliases.
type Values map[string]any

// normalize maps value keys onto the columns of c.
func normalize(c resource.Collection, values Values) (map[string]any, error) {
	columns := store.Columns(c)
	out := make(map[string]any, len(values))
	for key, v := range values {
		col := columnName(key)
		if !slices.Contains(columns, col) {
			return nil, fmt.Errorf("%w: %q for %s", ErrUnknownColumn, key, c)
		}
		out[col] = v
	}
	return out, nil
}

func columnName(key string) string {
	switch key {
	case "_id", "id", "ID":
		return "_id"
	}
	if strings.Contains(key, "_") {
		return strings.ToLower(key)
	}
	return strcase.ToSnake(key)
}

// decode converts loosely typed values into a model of c.
func decode(c resource.Collection, values map[string]any) (any, error) {
	model, err := store.NewModel(c)
	if err != nil {
		return nil, err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           model,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		ZeroFields:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(values); err != nil {
		return nil, err
	}
	return model, nil
}

// coerce converts update values to the column types of c, keeping only the
// supplied keys.
func coerce(c resource.Collection, values map[string]any) (map[string]any, error) {
	model, err := decode(c, values)
	if err != nil {
		return nil, err
	}

	var all map[string]any
	if err := mapstructure.Decode(model, &all); err != nil {
		return nil, fmt.Errorf("failed to read decoded values: %w", err)
	}

	out := make(map[string]any, len(values))
	for key := range values {
		v := all[key]
		if p, ok := v.(*string); ok {
			if p == nil {
				v = nil
			} else {
				v = *p
			}
		}
		out[key] = v
	}
	return out, nil
}

// isEmpty reports whether v is nil or the zero value of its type. A recipe
// id of 0 never names a row.
func isEmpty(v any) bool {
	return validation.IsEmpty(v)
}

package router

import (
	"errors"

	"github.com/hashicorp-forge/recipebox/pkg/resource"
)

var (
	// ErrInvalidAddress is returned for addresses that do not name a known
	// collection or item, or that are the wrong shape for the operation.
	ErrInvalidAddress = resource.ErrInvalidAddress

	// ErrMissingRequiredField is returned when a child row is inserted without
	// its recipe_id.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrInsertFailed wraps a store rejection of an insert.
	ErrInsertFailed = errors.New("insert failed")

	// ErrUnknownColumn is returned for values, projections or orderings that
	// name a column the collection does not have.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrImmutableField is returned when an update tries to change _id.
	ErrImmutableField = errors.New("field cannot be changed")
)

// Package router resolves resource addresses to record store operations and
// publishes change notifications for every write.
package router

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/recipebox/pkg/models"
	"github.com/hashicorp-forge/recipebox/pkg/notifications"
	"github.com/hashicorp-forge/recipebox/pkg/resource"
	"github.com/hashicorp-forge/recipebox/pkg/store"
)

// Query selects rows from an address.
type Query struct {
	// Projection lists the columns to return. Empty selects every column.
	Projection []string

	// Predicate narrows the rows. The zero value matches every row.
	Predicate store.Predicate

	// Order is an ORDER BY clause of "column [ASC|DESC]" terms. Empty uses the
	// collection default.
	Order string
}

// Result is the outcome of a Query.
type Result struct {
	Address     resource.Address
	ContentType string
	Rows        []map[string]any

	hub *notifications.Hub
}

// Subscribe returns a stream of invalidations for the queried address and,
// for collections, its items. Close the subscription when done.
func (r *Result) Subscribe() *notifications.Subscription {
	return r.hub.Subscribe(r.Address, true)
}

// Router maps addresses onto the record store.
type Router struct {
	store    *store.Store
	hub      *notifications.Hub
	defaults Defaults
	logger   hclog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithDefaults sets the insert defaults. Empty recipe fields fall back to
// DefaultValues.
func WithDefaults(d Defaults) Option {
	return func(r *Router) {
		r.defaults = d.Merge(DefaultValues())
	}
}

// WithHub sets the notification hub.
func WithHub(h *notifications.Hub) Option {
	return func(r *Router) {
		r.hub = h
	}
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// New creates a Router over s.
func New(s *store.Store, opts ...Option) *Router {
	r := &Router{
		store:    s,
		defaults: DefaultValues(),
		logger:   hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("router")
	if r.hub == nil {
		r.hub = notifications.NewHub(r.logger)
	}
	return r
}

// Hub returns the hub change notifications are published on.
func (r *Router) Hub() *notifications.Hub {
	return r.hub
}

// Type returns the content type descriptor of a raw address.
func (r *Router) Type(raw string) (string, error) {
	addr, err := resource.Parse(raw)
	if err != nil {
		return "", err
	}
	return addr.ContentType(), nil
}

// Insert adds a row to the collection named by addr and returns the new item
// address.
func (r *Router) Insert(ctx context.Context, addr resource.Address, values Values) (resource.Address, error) {
	if !addr.IsCollection() {
		return resource.Address{}, fmt.Errorf("%w: insert requires a collection address, got %q",
			ErrInvalidAddress, addr.String())
	}
	c := addr.Collection()

	model, err := r.prepareInsert(c, values)
	if err != nil {
		return resource.Address{}, err
	}

	id, err := r.store.Insert(ctx, model)
	if err != nil {
		return resource.Address{}, fmt.Errorf("%w: %w", ErrInsertFailed, err)
	}

	item := resource.ItemAddress(c, id)
	r.logger.Debug("inserted row", "address", item.String())
	r.hub.Notify(ctx, notifications.OperationInsert, item, 1)
	return item, nil
}

// InsertRecipe adds a recipe together with its ingredients and instructions.
// Either every row is written or none is.
func (r *Router) InsertRecipe(ctx context.Context, values Values, ingredients []models.Ingredient, instructions []models.Instruction) (resource.Address, error) {
	model, err := r.prepareInsert(resource.Recipes, values)
	if err != nil {
		return resource.Address{}, err
	}

	id, err := r.store.InsertRecipe(ctx, model.(*models.Recipe), ingredients, instructions)
	if err != nil {
		return resource.Address{}, fmt.Errorf("%w: %w", ErrInsertFailed, err)
	}

	item := resource.ItemAddress(resource.Recipes, id)
	r.logger.Debug("inserted recipe", "address", item.String(),
		"ingredients", len(ingredients), "instructions", len(instructions))
	r.hub.Notify(ctx, notifications.OperationInsert, item, 1)
	if len(ingredients) > 0 {
		r.hub.Notify(ctx, notifications.OperationInsert, resource.CollectionAddress(resource.Ingredients), int64(len(ingredients)))
	}
	if len(instructions) > 0 {
		r.hub.Notify(ctx, notifications.OperationInsert, resource.CollectionAddress(resource.Instructions), int64(len(instructions)))
	}
	return item, nil
}

// prepareInsert checks required columns, fills defaults and decodes values
// into a model of c.
func (r *Router) prepareInsert(c resource.Collection, values Values) (any, error) {
	row, err := normalize(c, values)
	if err != nil {
		return nil, err
	}

	for _, col := range required(c) {
		if v, ok := row[col]; !ok || isEmpty(v) {
			return nil, fmt.Errorf("%w: %s requires %s", ErrMissingRequiredField, c, col)
		}
	}
	for col, def := range r.defaults.values(c) {
		if v, ok := row[col]; !ok || v == nil {
			row[col] = def
		}
	}

	model, err := decode(c, row)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInsertFailed, err)
	}
	return model, nil
}

// Update sets values on the row named by an item address, or on the rows of
// a collection matching p. It returns the number of affected rows.
func (r *Router) Update(ctx context.Context, addr resource.Address, values Values, p store.Predicate) (int64, error) {
	if addr.IsZero() {
		return 0, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	c := addr.Collection()

	row, err := normalize(c, values)
	if err != nil {
		return 0, err
	}
	if _, ok := row["_id"]; ok {
		return 0, fmt.Errorf("%w: _id", ErrImmutableField)
	}
	if len(row) == 0 {
		return 0, nil
	}

	row, err = coerce(c, row)
	if err != nil {
		return 0, fmt.Errorf("failed to convert values for %s: %w", c, err)
	}

	n, err := r.store.Update(ctx, c, addr.ID(), row, p)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		r.logger.Debug("updated rows", "address", addr.String(), "rows", n)
		r.hub.Notify(ctx, notifications.OperationUpdate, addr.Parent(), n)
	}
	return n, nil
}

// Delete removes the row named by an item address, or the rows of a
// collection matching p. Deleting recipes also removes their children.
func (r *Router) Delete(ctx context.Context, addr resource.Address, p store.Predicate) (int64, error) {
	if addr.IsZero() {
		return 0, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	c := addr.Collection()

	n, err := r.store.Delete(ctx, c, addr.ID(), p)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		r.logger.Debug("deleted rows", "address", addr.String(), "rows", n)
		r.hub.Notify(ctx, notifications.OperationDelete, addr, n)
		if c == resource.Recipes {
			// Children went with their recipes.
			r.hub.Notify(ctx, notifications.OperationDelete, resource.CollectionAddress(resource.Ingredients), 0)
			r.hub.Notify(ctx, notifications.OperationDelete, resource.CollectionAddress(resource.Instructions), 0)
		}
	}
	return n, nil
}

// Query reads rows from addr.
func (r *Router) Query(ctx context.Context, addr resource.Address, q Query) (*Result, error) {
	if addr.IsZero() {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	c := addr.Collection()
	columns := store.Columns(c)

	projection := make([]string, 0, len(q.Projection))
	for _, col := range q.Projection {
		name := columnName(col)
		if !slices.Contains(columns, name) {
			return nil, fmt.Errorf("%w: %q for %s", ErrUnknownColumn, col, c)
		}
		projection = append(projection, name)
	}

	order, err := parseOrder(c, q.Order)
	if err != nil {
		return nil, err
	}

	rows, err := r.store.Query(ctx, c, addr.ID(), projection, q.Predicate, order)
	if err != nil {
		return nil, err
	}

	return &Result{
		Address:     addr,
		ContentType: addr.ContentType(),
		Rows:        rows,
		hub:         r.hub,
	}, nil
}

// ReplaceChildren replaces the ingredient and instruction lists of a recipe
// atomically.
func (r *Router) ReplaceChildren(ctx context.Context, recipe resource.Address, ingredients []models.Ingredient, instructions []models.Instruction) error {
	if recipe.Kind() != resource.KindRecipeItem {
		return fmt.Errorf("%w: expected a recipe item address, got %q", ErrInvalidAddress, recipe.String())
	}

	if err := r.store.ReplaceChildren(ctx, recipe.ID(), ingredients, instructions); err != nil {
		return err
	}

	r.hub.Notify(ctx, notifications.OperationUpdate, resource.CollectionAddress(resource.Ingredients), int64(len(ingredients)))
	r.hub.Notify(ctx, notifications.OperationUpdate, resource.CollectionAddress(resource.Instructions), int64(len(instructions)))
	return nil
}

// FindByRemoteFileID returns the address of the recipe linked to a remote
// file. ok is false when no recipe is linked.
func (r *Router) FindByRemoteFileID(ctx context.Context, fileID string) (addr resource.Address, ok bool, err error) {
	recipe, err := r.store.FindRecipeByRemoteFileID(ctx, fileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return resource.Address{}, false, nil
		}
		return resource.Address{}, false, err
	}
	return resource.ItemAddress(resource.Recipes, recipe.ID), true, nil
}

// defaultOrder returns the ordering used when a query names none.
func defaultOrder(c resource.Collection) string {
	if c == resource.Recipes {
		return "title DESC"
	}
	return "_id ASC"
}

// parseOrder validates an ORDER BY clause against the columns of c.
func parseOrder(c resource.Collection, order string) (string, error) {
	if strings.TrimSpace(order) == "" {
		return defaultOrder(c), nil
	}

	columns := store.Columns(c)
	terms := strings.Split(order, ",")
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		fields := strings.Fields(term)
		if len(fields) == 0 || len(fields) > 2 {
			return "", fmt.Errorf("%w: invalid order term %q", ErrUnknownColumn, term)
		}

		col := columnName(fields[0])
		if !slices.Contains(columns, col) {
			return "", fmt.Errorf("%w: %q for %s", ErrUnknownColumn, fields[0], c)
		}

		dir := "ASC"
		if len(fields) == 2 {
			dir = strings.ToUpper(fields[1])
			if dir != "ASC" && dir != "DESC" {
				return "", fmt.Errorf("%w: invalid order direction %q", ErrUnknownColumn, fields[1])
			}
		}
		out = append(out, col+" "+dir)
	}
	return strings.Join(out, ", "), nil
}

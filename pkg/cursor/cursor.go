// Package cursor stores the per-account high-water mark of consumed remote
// changes.
package cursor

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hashicorp-forge/recipebox/pkg/models"
)

// ErrBackward is returned when Advance is given a value below the stored one.
var ErrBackward = errors.New("change cursor cannot move backward")

// Store loads and advances change cursors. Implementations never move a
// cursor backward.
type Store interface {
	// Load returns the cursor for account. found is false when no pass has
	// completed yet.
	Load(ctx context.Context, account string) (value int64, found bool, err error)

	// Advance records value for account.
	Advance(ctx context.Context, account string, value int64) error
}

// DBStore keeps cursors in the change_cursors table.
type DBStore struct {
	db *gorm.DB
}

// NewDBStore creates a Store backed by db.
func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db}
}

// Load implements Store.
func (s *DBStore) Load(ctx context.Context, account string) (int64, bool, error) {
	var c models.ChangeCursor
	if err := c.Get(s.db.WithContext(ctx), account); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to load change cursor for %q: %w", account, err)
	}
	return c.LargestChangeID, true, nil
}

// Advance implements Store.
func (s *DBStore) Advance(ctx context.Context, account string, value int64) error {
	if value < 0 {
		return fmt.Errorf("%w: negative value %d", ErrBackward, value)
	}

	current, found, err := s.Load(ctx, account)
	if err != nil {
		return err
	}
	if found && value < current {
		return fmt.Errorf("%w: %d < %d", ErrBackward, value, current)
	}

	c := models.ChangeCursor{Account: account, LargestChangeID: value}
	if err := c.Upsert(s.db.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to save change cursor for %q: %w", account, err)
	}
	return nil
}

package router

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/recipebox/pkg/resource"
	"github.com/hashicorp-forge/recipebox/pkg/store"
)

func TestAsync_DeliversResults(t *testing.T) {
	ctx := context.Background()
	r := newRouter(t)
	async := NewAsync(r)

	var (
		mu       sync.Mutex
		inserted resource.Address
		updated  int64
		queried  *Result
		deleted  int64
	)

	async.Insert(ctx, recipesAddr, Values{"title": "Async"}, Callbacks{
		OnInserted: func(addr resource.Address) {
			mu.Lock()
			defer mu.Unlock()
			inserted = addr
		},
		OnError: func(err error) { t.Errorf("unexpected error: %v", err) },
	})
	async.Wait()
	require.Equal(t, resource.KindRecipeItem, inserted.Kind())

	async.Update(ctx, inserted, Values{"description": "later"}, store.Predicate{}, Callbacks{
		OnUpdated: func(n int64) { updated = n },
	})
	async.Wait()
	assert.EqualValues(t, 1, updated)

	async.Query(ctx, inserted, Query{}, Callbacks{
		OnQueried: func(res *Result) { queried = res },
	})
	async.Wait()
	require.NotNil(t, queried)
	require.Len(t, queried.Rows, 1)
	assert.Equal(t, "later", queried.Rows[0]["description"])

	async.Delete(ctx, inserted, store.Predicate{}, Callbacks{
		OnDeleted: func(n int64) { deleted = n },
	})
	async.Wait()
	assert.EqualValues(t, 1, deleted)
}

func TestAsync_ReportsErrors(t *testing.T) {
	r := newRouter(t)
	async := NewAsync(r)

	errs := make(chan error, 1)
	async.Insert(context.Background(), ingredientsAddr, Values{}, Callbacks{
		OnInserted: func(resource.Address) { t.Error("insert should fail") },
		OnError:    func(err error) { errs <- err },
	})
	async.Wait()

	require.Len(t, errs, 1)
	assert.ErrorIs(t, <-errs, ErrMissingRequiredField)
}

func TestAsync_CancelledContextSuppressesDelivery(t *testing.T) {
	r := newRouter(t)
	async := NewAsync(r)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	async.Insert(ctx, recipesAddr, Values{}, Callbacks{
		OnInserted: func(resource.Address) { called = true },
		OnError:    func(error) { called = true },
	})
	async.Wait()
	assert.False(t, called)

	res, err := r.Query(context.Background(), recipesAddr, Query{})
	require.NoError(t, err)
	assert.Empty(t, res.Rows, "cancelled operations do not run")
}

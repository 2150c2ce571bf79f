package router

import (
	"context"
	"sync"

	"github.com/hashicorp-forge/recipebox/pkg/resource"
	"github.com/hashicorp-forge/recipebox/pkg/store"
)

// Callbacks receive the results of Async operations. Nil callbacks are
// skipped. Callbacks run on the operation's goroutine.
type Callbacks struct {
	OnInserted func(addr resource.Address)
	OnUpdated  func(rows int64)
	OnDeleted  func(rows int64)
	OnQueried  func(result *Result)
	OnError    func(err error)
}

func (cb Callbacks) fail(err error) {
	if cb.OnError != nil {
		cb.OnError(err)
	}
}

// Async runs Router operations off the caller's goroutine. An operation whose
// context is cancelled before it starts is skipped, and one cancelled while
// running delivers nothing.
type Async struct {
	router *Router
	wg     sync.WaitGroup
}

// NewAsync wraps r.
func NewAsync(r *Router) *Async {
	return &Async{router: r}
}

// Wait blocks until every started operation has finished.
func (a *Async) Wait() {
	a.wg.Wait()
}

func dispatch[T any](a *Async, ctx context.Context, op func(context.Context) (T, error), deliver func(T), onError func(error)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		if ctx.Err() != nil {
			return
		}
		result, err := op(ctx)
		if ctx.Err() != nil {
			a.router.logger.Trace("async operation cancelled, dropping result")
			return
		}
		if err != nil {
			onError(err)
			return
		}
		if deliver != nil {
			deliver(result)
		}
	}()
}

// Insert runs Router.Insert and reports to cb.OnInserted.
func (a *Async) Insert(ctx context.Context, addr resource.Address, values Values, cb Callbacks) {
	dispatch(a, ctx, func(ctx context.Context) (resource.Address, error) {
		return a.router.Insert(ctx, addr, values)
	}, cb.OnInserted, cb.fail)
}

// Update runs Router.Update and reports to cb.OnUpdated.
func (a *Async) Update(ctx context.Context, addr resource.Address, values Values, p store.Predicate, cb Callbacks) {
	dispatch(a, ctx, func(ctx context.Context) (int64, error) {
		return a.router.Update(ctx, addr, values, p)
	}, cb.OnUpdated, cb.fail)
}

// Delete runs Router.Delete and reports to cb.OnDeleted.
func (a *Async) Delete(ctx context.Context, addr resource.Address, p store.Predicate, cb Callbacks) {
	dispatch(a, ctx, func(ctx context.Context) (int64, error) {
		return a.router.Delete(ctx, addr, p)
	}, cb.OnDeleted, cb.fail)
}

// Query runs Router.Query and reports to cb.OnQueried.
func (a *Async) Query(ctx context.Context, addr resource.Address, q Query, cb Callbacks) {
	dispatch(a, ctx, func(ctx context.Context) (*Result, error) {
		return a.router.Query(ctx, addr, q)
	}, cb.OnQueried, cb.fail)
}

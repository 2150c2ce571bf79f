// Package syncer reconciles local recipes against a remote change feed.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/recipebox/pkg/changefeed"
	"github.com/hashicorp-forge/recipebox/pkg/cursor"
	"github.com/hashicorp-forge/recipebox/pkg/models"
	"github.com/hashicorp-forge/recipebox/pkg/resource"
	"github.com/hashicorp-forge/recipebox/pkg/router"
	"github.com/hashicorp-forge/recipebox/pkg/store"
)

// DefaultPageSize is the number of changes requested per page.
const DefaultPageSize = 100

// State is the phase of a pass.
type State int32

const (
	StateIdle State = iota
	StateFetchingPages
	StateClassifying
	StateApplyingDeletes
	StateApplyingUpserts
	StatePersistingCursor
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetchingPages:
		return "fetching_pages"
	case StateClassifying:
		return "classifying"
	case StateApplyingDeletes:
		return "applying_deletes"
	case StateApplyingUpserts:
		return "applying_upserts"
	case StatePersistingCursor:
		return "persisting_cursor"
	default:
		return "unknown"
	}
}

// Config configures an Engine.
type Config struct {
	// Account names the remote account; cursors are kept per account.
	Account string

	Feed    changefeed.Feed
	Router  *router.Router
	Cursors cursor.Store

	// PageSize is the number of changes requested per page.
	PageSize int64

	// FetchDocuments downloads file bodies for upserts when the feed is a
	// changefeed.DocumentSource.
	FetchDocuments bool

	Logger  hclog.Logger
	Metrics *Metrics

	// OnStateChange, when set, is called on every state transition.
	OnStateChange func(account string, s State)

	// OnReauthenticate, when set, is called by Reauthenticate before the
	// engine is re-enabled. Use it to drop cached credentials.
	OnReauthenticate func()
}

// Engine runs sync passes for one account. Passes are serialized.
type Engine struct {
	cfg    Config
	logger hclog.Logger
	docs   changefeed.DocumentSource

	mu       sync.Mutex
	state    atomic.Int32
	disabled atomic.Bool

	statsMu sync.Mutex
	stats   Stats
}

// NewEngine creates an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Account == "" {
		return nil, fmt.Errorf("account is required")
	}
	if cfg.Feed == nil {
		return nil, fmt.Errorf("feed is required")
	}
	if cfg.Router == nil {
		return nil, fmt.Errorf("router is required")
	}
	if cfg.Cursors == nil {
		return nil, fmt.Errorf("cursor store is required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	e := &Engine{
		cfg:    cfg,
		logger: cfg.Logger.Named("syncer").With("account", cfg.Account),
	}
	if cfg.FetchDocuments {
		if ds, ok := cfg.Feed.(changefeed.DocumentSource); ok {
			e.docs = ds
		}
	}
	return e, nil
}

// Account returns the account the engine syncs.
func (e *Engine) Account() string {
	return e.cfg.Account
}

// State returns the current phase.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Disabled reports whether the engine is waiting for reauthentication.
func (e *Engine) Disabled() bool {
	return e.disabled.Load()
}

// Reauthenticate re-enables an engine disabled by rejected credentials.
func (e *Engine) Reauthenticate() {
	if e.cfg.OnReauthenticate != nil {
		e.cfg.OnReauthenticate()
	}
	if e.disabled.CompareAndSwap(true, false) {
		e.logger.Info("sync re-enabled")
	}
}

// Stats returns a copy of the cumulative counters.
func (e *Engine) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
	if e.cfg.OnStateChange != nil {
		e.cfg.OnStateChange(e.cfg.Account, s)
	}
}

// Run performs one pass: read every page after the stored cursor, apply
// deletions then upserts, and advance the cursor. The cursor only moves when
// every step succeeds, so a failed pass is retried from the same point.
func (e *Engine) Run(ctx context.Context) (*PassResult, error) {
	if e.disabled.Load() {
		return nil, ErrDisabled
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.setState(StateIdle)

	start := time.Now()
	res, err := e.pass(ctx)
	if err != nil {
		e.recordFailure(err)
		return nil, err
	}
	res.Duration = time.Since(start)
	e.recordSuccess(res)
	return res, nil
}

func (e *Engine) pass(ctx context.Context) (*PassResult, error) {
	account := e.cfg.Account

	stored, found, err := e.cfg.Cursors.Load(ctx, account)
	if err != nil {
		return nil, err
	}

	e.setState(StateFetchingPages)
	feed, err := changefeed.Collect(ctx, e.cfg.Feed, changefeed.StartFor(stored, found), e.cfg.PageSize)
	if err != nil {
		return nil, err
	}

	e.setState(StateClassifying)
	plan := changefeed.Classify(feed.Entries)
	e.logger.Debug("classified changes",
		"entries", len(feed.Entries),
		"deletions", len(plan.Deletions),
		"upserts", len(plan.Upserts),
		"discarded", plan.Discarded,
	)

	result := &PassResult{
		Account:   account,
		Pages:     feed.Pages,
		Entries:   len(feed.Entries),
		Deletions: len(plan.Deletions),
		Upserts:   len(plan.Upserts),
		Discarded: plan.Discarded,
		Cursor:    stored,
	}

	e.setState(StateApplyingDeletes)
	recipes := resource.CollectionAddress(resource.Recipes)
	for _, fileID := range plan.Deletions {
		n, err := e.cfg.Router.Delete(ctx, recipes, store.Predicate{
			Where: "remote_file_id = ?",
			Args:  []any{fileID},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to delete recipe for %s: %w", fileID, err)
		}
		result.Deleted += n
	}

	e.setState(StateApplyingUpserts)
	for _, entry := range plan.Upserts {
		inserted, err := e.upsert(ctx, entry)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert recipe for %s: %w", entry.FileID, err)
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}

	e.setState(StatePersistingCursor)
	if feed.LargestChangeID > stored {
		if err := e.cfg.Cursors.Advance(ctx, account, feed.LargestChangeID); err != nil {
			return nil, fmt.Errorf("failed to persist change cursor: %w", err)
		}
		result.Cursor = feed.LargestChangeID
	}
	return result, nil
}

// upsert creates or updates the recipe linked to entry's file.
func (e *Engine) upsert(ctx context.Context, entry changefeed.Entry) (inserted bool, err error) {
	var doc *changefeed.Document
	if e.docs != nil {
		doc, err = e.docs.FetchDocument(ctx, entry.FileID)
		if err != nil {
			return false, err
		}
		if doc != nil {
			if verr := doc.Validate(); verr != nil {
				e.logger.Warn("ignoring invalid recipe document, syncing metadata only",
					"file_id", entry.FileID,
					"error", verr,
				)
				doc = nil
			}
		}
	}

	values := router.Values{}
	if entry.File != nil && entry.File.Title != "" {
		values["title"] = entry.File.Title
	}
	if doc != nil {
		if doc.Title != "" {
			values["title"] = doc.Title
		}
		if doc.Description != "" {
			values["description"] = doc.Description
		}
	}

	addr, ok, err := e.cfg.Router.FindByRemoteFileID(ctx, entry.FileID)
	if err != nil {
		return false, err
	}

	if !ok {
		values["remote_file_id"] = entry.FileID
		recipes := resource.CollectionAddress(resource.Recipes)
		if doc == nil {
			_, err = e.cfg.Router.Insert(ctx, recipes, values)
		} else {
			ingredients, instructions := documentChildren(doc)
			_, err = e.cfg.Router.InsertRecipe(ctx, values, ingredients, instructions)
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}

	if len(values) > 0 {
		if _, err := e.cfg.Router.Update(ctx, addr, values, store.Predicate{}); err != nil {
			return false, err
		}
	}
	if doc != nil {
		ingredients, instructions := documentChildren(doc)
		if err := e.cfg.Router.ReplaceChildren(ctx, addr, ingredients, instructions); err != nil {
			return false, err
		}
	}
	return false, nil
}

func documentChildren(doc *changefeed.Document) ([]models.Ingredient, []models.Instruction) {
	ingredients := make([]models.Ingredient, 0, len(doc.Ingredients))
	for _, ing := range doc.Ingredients {
		ingredients = append(ingredients, models.Ingredient{
			Quantity:            ing.Quantity,
			QuantityNumerator:   ing.QuantityNumerator,
			QuantityDenominator: ing.QuantityDenominator,
			Unit:                ing.Unit,
			Item:                ing.Item,
			Preparation:         ing.Preparation,
		})
	}
	instructions := make([]models.Instruction, 0, len(doc.Instructions))
	for _, text := range doc.Instructions {
		instructions = append(instructions, models.Instruction{Text: text})
	}
	return ingredients, instructions
}

func (e *Engine) recordFailure(err error) {
	kind := "other"
	e.statsMu.Lock()
	switch {
	case errors.Is(err, changefeed.ErrAuth):
		kind = "auth"
		e.stats.AuthErrors++
		e.disabled.Store(true)
	case errors.Is(err, changefeed.ErrRemoteIO):
		kind = "io"
		e.stats.IOErrors++
	}
	e.stats.LastError = err.Error()
	e.statsMu.Unlock()

	if kind == "auth" {
		e.logger.Error("credentials rejected, sync disabled until reauthentication", "error", err)
	} else {
		e.logger.Warn("sync pass failed", "kind", kind, "error", err)
	}

	if m := e.cfg.Metrics; m != nil {
		m.Passes.WithLabelValues(e.cfg.Account, "failure").Inc()
		m.Errors.WithLabelValues(e.cfg.Account, kind).Inc()
	}
}

func (e *Engine) recordSuccess(res *PassResult) {
	e.statsMu.Lock()
	e.stats.Passes++
	e.stats.Entries += int64(res.Entries)
	e.stats.Deletes += res.Deleted
	e.stats.Inserts += res.Inserted
	e.stats.Updates += res.Updated
	e.stats.Skipped += int64(res.Discarded)
	e.stats.Cursor = res.Cursor
	e.stats.LastSuccess = time.Now().UTC()
	e.stats.LastError = ""
	e.statsMu.Unlock()

	e.logger.Info("sync pass complete",
		"pages", res.Pages,
		"entries", res.Entries,
		"deleted", res.Deleted,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"discarded", res.Discarded,
		"cursor", res.Cursor,
		"duration", res.Duration,
	)

	if m := e.cfg.Metrics; m != nil {
		account := e.cfg.Account
		m.Passes.WithLabelValues(account, "success").Inc()
		m.Entries.WithLabelValues(account, "delete").Add(float64(res.Deletions))
		m.Entries.WithLabelValues(account, "upsert").Add(float64(res.Upserts))
		m.Writes.WithLabelValues(account, "delete").Add(float64(res.Deleted))
		m.Writes.WithLabelValues(account, "insert").Add(float64(res.Inserted))
		m.Writes.WithLabelValues(account, "update").Add(float64(res.Updated))
		m.Entries.WithLabelValues(account, "discard").Add(float64(res.Discarded))
		m.Cursor.WithLabelValues(account).Set(float64(res.Cursor))
		m.PassDuration.WithLabelValues(account).Observe(res.Duration.Seconds())
	}
}

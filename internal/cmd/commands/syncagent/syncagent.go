package syncagent

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"gorm.io/gorm"

	"github.com/hashicorp-forge/recipebox/internal/cmd/base"
	"github.com/hashicorp-forge/recipebox/internal/config"
	"github.com/hashicorp-forge/recipebox/pkg/changefeed"
	"github.com/hashicorp-forge/recipebox/pkg/changefeed/drive"
	"github.com/hashicorp-forge/recipebox/pkg/cursor"
	"github.com/hashicorp-forge/recipebox/pkg/database"
	"github.com/hashicorp-forge/recipebox/pkg/notifications"
	"github.com/hashicorp-forge/recipebox/pkg/notifications/backends"
	"github.com/hashicorp-forge/recipebox/pkg/router"
	"github.com/hashicorp-forge/recipebox/pkg/store"
	"github.com/hashicorp-forge/recipebox/pkg/syncer"
)

type Command struct {
	*base.Command

	flagConfig  string
	flagOnce    bool
	flagAccount string

	// newFeed builds the change feed for an account. Tests replace it.
	newFeed func(ctx context.Context, account config.Account) (changefeed.Feed, error)

	// tokens are the cached token sources of token file accounts, by
	// account id.
	tokens map[string]*cachedTokenSource
}

func (c *Command) Synopsis() string {
	return "Synchronize recipes from the remote change feed"
}

func (c *Command) Help() string {
	return `Usage: recipebox sync [options]

  Pulls remote changes for every configured account into the local recipe
  database. Runs until interrupted unless -once is given.

  Send SIGHUP to re-enable accounts whose credentials were rejected.` +
		c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("sync", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "", "Path to recipebox config file",
	)
	f.BoolVar(
		&c.flagOnce, "once", false,
		"Run a single pass for each account and exit.",
	)
	f.StringVar(
		&c.flagAccount, "account", "",
		"Only sync the named account.",
	)

	return f
}

func (c *Command) Run(args []string) int {
	logger, ui := c.Log, c.UI

	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	cfg, err := c.LoadConfig(c.flagConfig)
	if err != nil {
		ui.Error(fmt.Sprintf("error parsing config file: %v", err))
		return 1
	}

	accounts := cfg.Sync.Accounts
	if c.flagAccount != "" {
		accounts = nil
		for _, a := range cfg.Sync.Accounts {
			if a.ID == c.flagAccount {
				accounts = append(accounts, a)
			}
		}
	}
	if len(accounts) == 0 {
		ui.Error("no sync accounts configured")
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := c.OpenDatabase(cfg)
	if err != nil {
		ui.Error(fmt.Sprintf("error initializing database: %v", err))
		return 1
	}
	defer func() { _ = database.Close(db) }()

	registry, err := backends.NewRegistry(cfg.Notifications, logger)
	if err != nil {
		ui.Error(fmt.Sprintf("error initializing notification backends: %v", err))
		return 1
	}
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Warn("error closing notification backends", "error", err)
		}
	}()

	hub := notifications.NewHub(logger, registry.Sinks()...)
	r := router.New(store.New(db, logger),
		router.WithDefaults(*cfg.Defaults),
		router.WithHub(hub),
		router.WithLogger(logger),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		database.NewPoolCollector(db),
	)
	metrics := syncer.NewMetrics(reg)

	cursors := cursorStore(cfg, db)
	newFeed := c.newFeed
	if newFeed == nil {
		newFeed = c.driveFeed
	}

	engines := make([]*syncer.Engine, 0, len(accounts))
	for _, a := range accounts {
		id := a.ID
		feed, err := newFeed(ctx, a)
		if err != nil {
			ui.Error(fmt.Sprintf("error creating change feed for %s: %v", a.ID, err))
			return 1
		}
		e, err := syncer.NewEngine(syncer.Config{
			Account:        a.ID,
			Feed:           feed,
			Router:         r,
			Cursors:        cursors,
			PageSize:       cfg.Sync.PageSize,
			FetchDocuments: cfg.Sync.FetchDocuments,
			Logger:         logger,
			Metrics:        metrics,
			OnReauthenticate: func() {
				c.resetCredentials(id)
			},
		})
		if err != nil {
			ui.Error(fmt.Sprintf("error creating sync engine for %s: %v", a.ID, err))
			return 1
		}
		engines = append(engines, e)
	}

	scheduler, err := syncer.NewScheduler(syncer.SchedulerConfig{
		Interval:   cfg.SyncInterval(),
		MaxBackoff: cfg.SyncMaxBackoff(),
		Logger:     logger,
	}, engines...)
	if err != nil {
		ui.Error(fmt.Sprintf("error creating scheduler: %v", err))
		return 1
	}

	if c.flagOnce {
		if err := scheduler.RunOnce(ctx); err != nil {
			ui.Error(fmt.Sprintf("sync failed: %v", err))
			return 1
		}
		for _, e := range engines {
			s := e.Stats()
			ui.Info(fmt.Sprintf("%s: cursor %d, %d inserted, %d updated, %d deleted",
				e.Account(), s.Cursor, s.Inserts, s.Updates, s.Deletes))
		}
		return 0
	}

	if cfg.Metrics.Enabled {
		srv := serveMetrics(cfg.Metrics.Address, reg, c)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	go c.handleHangup(ctx, scheduler)

	if err := scheduler.Run(ctx); err != nil {
		ui.Error(fmt.Sprintf("sync stopped: %v", err))
		return 1
	}
	return 0
}

func (c *Command) driveFeed(ctx context.Context, account config.Account) (changefeed.Feed, error) {
	opts, src, err := clientOptions(account)
	if err != nil {
		return nil, err
	}
	if src != nil {
		if c.tokens == nil {
			c.tokens = make(map[string]*cachedTokenSource)
		}
		c.tokens[account.ID] = src
	}
	return drive.New(ctx, c.Log.With("account", account.ID), opts...)
}

func (c *Command) resetCredentials(account string) {
	if src, ok := c.tokens[account]; ok {
		c.Log.Debug("dropping cached token", "account", account)
		src.Reset()
	}
}

// handleHangup re-enables every account on SIGHUP.
func (c *Command) handleHangup(ctx context.Context, s *syncer.Scheduler) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			c.Log.Info("reauthenticating all accounts")
			for _, account := range s.Accounts() {
				_ = s.Reauthenticate(account)
			}
		}
	}
}

func cursorStore(cfg *config.Config, db *gorm.DB) cursor.Store {
	if cfg.Sync.PrefsFile != "" {
		return cursor.NewPrefsStore(afero.NewOsFs(), cfg.Sync.PrefsFile)
	}
	return cursor.NewDBStore(db)
}

func serveMetrics(addr string, reg *prometheus.Registry, c *Command) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		c.Log.Info("serving metrics", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.Log.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

const (
	DefaultInterval   = 5 * time.Minute
	DefaultMaxBackoff = 30 * time.Minute
)

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// Interval is the wait between successful rounds.
	Interval time.Duration

	// MaxBackoff caps the wait after failed rounds.
	MaxBackoff time.Duration

	Logger hclog.Logger
}

// Scheduler runs passes for a set of accounts on an interval. Failed rounds
// are retried with exponential backoff.
type Scheduler struct {
	cfg     SchedulerConfig
	logger  hclog.Logger
	engines map[string]*Engine
	order   []string
	trigger chan struct{}
}

// NewScheduler creates a Scheduler owning engines.
func NewScheduler(cfg SchedulerConfig, engines ...*Engine) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	s := &Scheduler{
		cfg:     cfg,
		logger:  cfg.Logger.Named("scheduler"),
		engines: make(map[string]*Engine, len(engines)),
		trigger: make(chan struct{}, 1),
	}
	for _, e := range engines {
		if _, ok := s.engines[e.Account()]; ok {
			return nil, fmt.Errorf("duplicate sync account %q", e.Account())
		}
		s.engines[e.Account()] = e
		s.order = append(s.order, e.Account())
	}
	return s, nil
}

// Accounts returns the owned accounts in registration order.
func (s *Scheduler) Accounts() []string {
	return append([]string(nil), s.order...)
}

// Engine returns the engine for account.
func (s *Scheduler) Engine(account string) (*Engine, error) {
	e, ok := s.engines[account]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAccount, account)
	}
	return e, nil
}

// Reauthenticate re-enables account and requests an immediate round.
func (s *Scheduler) Reauthenticate(account string) error {
	e, err := s.Engine(account)
	if err != nil {
		return err
	}
	e.Reauthenticate()
	s.Trigger()
	return nil
}

// Trigger requests a round without waiting for the interval. Requests made
// while one is pending are coalesced.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// RunOnce runs one pass for every enabled account. Accounts are independent:
// a failure in one does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var result *multierror.Error
	for _, account := range s.order {
		if err := ctx.Err(); err != nil {
			return err
		}

		e := s.engines[account]
		if e.Disabled() {
			s.logger.Debug("skipping disabled account", "account", account)
			continue
		}
		if _, err := e.Run(ctx); err != nil && !errors.Is(err, ErrDisabled) {
			result = multierror.Append(result, fmt.Errorf("account %q: %w", account, err))
		}
	}
	return result.ErrorOrNil()
}

// Run runs rounds until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = min(time.Second*10, s.cfg.MaxBackoff)
	bo.MaxInterval = s.cfg.MaxBackoff
	bo.MaxElapsedTime = 0
	bo.Reset()

	s.logger.Info("starting sync scheduler",
		"accounts", len(s.order),
		"interval", s.cfg.Interval,
		"max_backoff", s.cfg.MaxBackoff,
	)

	for {
		delay := s.cfg.Interval
		if err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			delay = bo.NextBackOff()
			s.logger.Warn("sync round failed, backing off", "delay", delay, "error", err)
		} else {
			bo.Reset()
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("sync scheduler stopped")
			return nil
		case <-s.trigger:
			timer.Stop()
		case <-timer.C:
		}
	}

	s.logger.Info("sync scheduler stopped")
	return nil
}

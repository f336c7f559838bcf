// Package engine wires all Boxline subsystems together and executes the
// production-floor commands: start, submit, stop, hold, resume, and the
// job-wide major hold. It sits above the subsystem packages and below the
// application layer.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/activity"
	"github.com/plantfloor/boxline/aggregate"
	"github.com/plantfloor/boxline/archive"
	"github.com/plantfloor/boxline/auth"
	"github.com/plantfloor/boxline/hold"
	mw "github.com/plantfloor/boxline/middleware"
	"github.com/plantfloor/boxline/quantity"
	"github.com/plantfloor/boxline/reconcile"
	"github.com/plantfloor/boxline/sequence"
	"github.com/plantfloor/boxline/shift"
	"github.com/plantfloor/boxline/store"
)

// Engine executes engine commands against a Tracker's store.
// Use Build() to create one from a Tracker.
type Engine struct {
	t      *boxline.Tracker
	store  store.Store
	logger *slog.Logger

	authz    auth.Authorizer
	clock    shift.Clock
	calendar shift.Calendar
	activity activity.Logger

	resolver   *quantity.Resolver
	guard      *sequence.Guard
	aggregator *aggregate.Aggregator
	holds      *hold.Coordinator
	reconciler *reconcile.Service
	archiver   *archive.Service

	mws   []mw.Middleware
	chain mw.Middleware
}

// Option configures an Engine.
type Option func(*Engine)

// WithAuthorizer sets the machine-access authorizer.
func WithAuthorizer(a auth.Authorizer) Option {
	return func(e *Engine) { e.authz = a }
}

// WithClock sets the clock used for timestamps and shift resolution.
func WithClock(c shift.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithCalendar sets the shift calendar. Defaults to a cron calendar built
// from the tracker's configured shift boundaries.
func WithCalendar(c shift.Calendar) Option {
	return func(e *Engine) { e.calendar = c }
}

// WithActivityLog sets the fire-and-forget activity sink.
func WithActivityLog(l activity.Logger) Option {
	return func(e *Engine) { e.activity = l }
}

// WithMiddleware adds middleware to the engine's chain.
func WithMiddleware(m mw.Middleware) Option {
	return func(e *Engine) { e.mws = append(e.mws, m) }
}

// Build creates an Engine from a Tracker. The tracker's store must
// implement the full store.Store composite interface.
func Build(t *boxline.Tracker, opts ...Option) (*Engine, error) {
	if t.Store() == nil {
		return nil, boxline.ErrNoStore
	}
	st, ok := t.Store().(store.Store)
	if !ok {
		return nil, fmt.Errorf("%w: store does not implement store.Store", boxline.ErrNoStore)
	}

	e := &Engine{
		t:      t,
		store:  st,
		logger: t.Logger(),
		authz:  auth.AllowAll(),
		clock:  shift.SystemClock{},
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.calendar == nil {
		cfg := t.Config()
		cal, err := shift.NewCronCalendar(cfg.DayShiftStart, cfg.NightShiftStart)
		if err != nil {
			return nil, err
		}
		e.calendar = cal
	}
	if e.activity == nil {
		e.activity = activity.NewSlogLogger(e.logger)
	}

	e.resolver = quantity.NewResolver(st, st)
	e.guard = sequence.NewGuard(st)
	e.aggregator = aggregate.NewAggregator(e.clock, e.calendar)
	e.reconciler = reconcile.NewService(st, e.logger)
	e.holds = hold.NewCoordinator(st, st, st, e.reconciler, e.logger)
	e.archiver = archive.NewService(st, st, st, st, st, e.reconciler, e.logger)

	if len(e.mws) == 0 {
		e.mws = []mw.Middleware{mw.Logging(e.logger), mw.Recover(e.logger)}
	}
	e.chain = mw.Chain(e.mws...)

	return e, nil
}

// Tracker returns the underlying tracker.
func (e *Engine) Tracker() *boxline.Tracker { return e.t }

// Store returns the engine's composite store.
func (e *Engine) Store() store.Store { return e.store }

// Reconciler returns the reconciliation ledger service.
func (e *Engine) Reconciler() *reconcile.Service { return e.reconciler }

// run executes fn through the middleware chain, honoring the configured
// operation timeout.
func (e *Engine) run(ctx context.Context, op *mw.Operation, fn mw.Handler) error {
	if timeout := e.t.Config().OperationTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return e.chain(ctx, op, fn)
}

package boxline

import (
	"context"
	"log/slog"
)

// Option configures a Tracker.
type Option func(*Tracker) error

// Storer is the minimal store interface held by the Tracker.
// It covers lifecycle operations only. The full composite interface
// (store.Store) is used in subsystem layers that don't create import
// cycles. Implementations satisfy store.Store which embeds all
// subsystem stores.
type Storer interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Tracker is the central coordinator for the production workflow engine.
//
// Create one with New() and functional options. The Tracker holds the
// store, logger, and configuration; use engine.Build() to wire the
// subsystem layers on top of it.
type Tracker struct {
	config Config
	logger *slog.Logger
	store  Storer
}

// New creates a new Tracker with the given options.
func New(opts ...Option) (*Tracker, error) {
	t := &Tracker{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Logger returns the tracker's logger.
func (t *Tracker) Logger() *slog.Logger { return t.logger }

// Store returns the tracker's store.
func (t *Tracker) Store() Storer { return t.store }

// Config returns a copy of the tracker's configuration.
func (t *Tracker) Config() Config { return t.config }

// Close releases the underlying store.
func (t *Tracker) Close() error {
	if t.store != nil {
		return t.store.Close()
	}
	return nil
}

// WithLogger sets the structured logger for the tracker.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) error {
		t.logger = l
		return nil
	}
}

// WithStore sets the persistence backend for the tracker.
// The store must implement Storer at minimum; typically it will be a
// store.Store which embeds all subsystem store interfaces.
func WithStore(s Storer) Option {
	return func(t *Tracker) error {
		t.store = s
		return nil
	}
}

// WithConfig replaces the tracker's configuration wholesale.
func WithConfig(c Config) Option {
	return func(t *Tracker) error {
		t.config = c
		return nil
	}
}

// WithShiftBoundaries sets the cron expressions for the day and night
// shift starts used by the default shift calendar.
func WithShiftBoundaries(dayStart, nightStart string) Option {
	return func(t *Tracker) error {
		t.config.DayShiftStart = dayStart
		t.config.NightShiftStart = nightStart
		return nil
	}
}

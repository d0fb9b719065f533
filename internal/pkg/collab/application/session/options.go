package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/vinayj16/PromptPad-sub000/internal/infrastructure/telemetry"
	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/usecase"
)

// SaveRequester hands force-save signals to the document store.
type SaveRequester interface {
	Execute(ctx context.Context, in usecase.RequestSaveInput) (string, error)
}

// Notifier is told whenever a room's membership changes.
type Notifier interface {
	Notify(documentID string)
}

type options struct {
	logger      *slog.Logger
	metrics     *telemetry.Metrics
	now         func() time.Time
	notifier    Notifier
	saver       SaveRequester
	saveTimeout time.Duration
}

// Option configures the Gateway, Router and Reaper.
type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithNotifier registers a listener for membership changes.
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithSaveRequester forwards force-save events to s with the given timeout.
func WithSaveRequester(s SaveRequester, timeout time.Duration) Option {
	return func(o *options) {
		o.saver = s
		o.saveTimeout = timeout
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:      slog.Default(),
		now:         time.Now,
		saveTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.saveTimeout <= 0 {
		o.saveTimeout = 5 * time.Second
	}
	return o
}

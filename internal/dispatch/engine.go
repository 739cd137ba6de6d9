package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/keepmind9/villabot/internal/event"
	"github.com/keepmind9/villabot/internal/logger"
	"github.com/keepmind9/villabot/internal/observability"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// ErrHandlerPanic wraps a panic recovered from a handler callback
var ErrHandlerPanic = errors.New("handler panicked")

// Engine dispatches events over a registry
type Engine struct {
	registry    *Registry
	concurrency int
}

// Option configures an Engine
type Option func(*Engine)

// WithConcurrency limits how many handlers of one bucket run at once.
// Zero or less means no limit.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		e.concurrency = n
	}
}

// NewEngine creates an engine dispatching over registry
func NewEngine(registry *Registry, opts ...Option) *Engine {
	e := &Engine{registry: registry}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine dispatches over
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Result summarizes one dispatch
type Result struct {
	// Matched is the number of handlers that ran
	Matched int
	// Failed is the number of handlers that returned an error or panicked
	Failed int
	// BlockedBy names the handler that stopped propagation, if any
	BlockedBy string
}

// Dispatch runs every matching handler for ev and returns once they are done.
// Handler errors never escape; they are logged and counted in the result.
func (e *Engine) Dispatch(ctx context.Context, ev event.Event) Result {
	ctx, span := observability.StartSpan(ctx, "dispatch "+ev.Type().String(),
		attribute.String("bot.id", ev.BotID()),
		attribute.String("event.name", ev.Name()),
	)
	defer span.End()

	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"bot_id": ev.BotID(),
		"event":  ev.Name(),
	})

	var res Result
	for _, bucket := range e.registry.Buckets() {
		matched := make([]*Handler, 0, len(bucket))
		for _, h := range bucket {
			if h.Check(ev) {
				matched = append(matched, h)
			}
		}
		if len(matched) == 0 {
			continue
		}

		errs := e.runBucket(ctx, log, ev, matched)

		var blocker *Handler
		for i, h := range matched {
			res.Matched++
			if errs[i] != nil {
				res.Failed++
			}
			if h.Block && blocker == nil {
				blocker = h
			}
		}
		if blocker != nil {
			res.BlockedBy = blocker.Name
			log.WithField("handler", blocker.Name).Debug("event-propagation-stopped")
			break
		}
	}

	span.SetAttributes(
		attribute.Int("handlers.matched", res.Matched),
		attribute.Int("handlers.failed", res.Failed),
	)
	if res.Matched == 0 {
		log.Debug("event-not-handled")
	} else {
		log.WithFields(logrus.Fields{
			"matched": res.Matched,
			"failed":  res.Failed,
		}).Info("event-handle-completed")
	}
	return res
}

// runBucket runs handlers concurrently and returns their errors by index
func (e *Engine) runBucket(ctx context.Context, log *logrus.Entry, ev event.Event, handlers []*Handler) []error {
	errs := make([]error, len(handlers))
	if len(handlers) == 1 {
		errs[0] = e.run(ctx, log, ev, handlers[0])
		return errs
	}

	var g errgroup.Group
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}
	for i, h := range handlers {
		g.Go(func() error {
			errs[i] = e.run(ctx, log, ev, h)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func (e *Engine) run(ctx context.Context, log *logrus.Entry, ev event.Event, h *Handler) (err error) {
	ctx, span := observability.StartSpan(ctx, "handler "+h.Name,
		attribute.Int("handler.priority", h.Priority),
		attribute.Bool("handler.block", h.Block),
	)
	hlog := log.WithFields(logrus.Fields{
		"handler":  h.Name,
		"priority": h.Priority,
	})

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
		if err != nil {
			hlog.WithField("error", err).Error("handler-failed")
		}
		observability.EndSpan(span, err)
	}()

	hlog.Info("event-will-be-handled")
	return h.Callback(ctx, ev)
}

package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/keepmind9/villabot/internal/logger"
	"github.com/keepmind9/villabot/pkg/constants"
	"github.com/sirupsen/logrus"
)

// ErrDuplicateBot is returned when registering a bot id twice
var ErrDuplicateBot = errors.New("bot already registered")

// ShutdownHook runs after the HTTP server stopped
type ShutdownHook func(ctx context.Context) error

// App serves the webhooks of every registered bot
type App struct {
	addr string

	mu    sync.RWMutex
	bots  map[string]*Bot
	order []string
	hooks []ShutdownHook

	// background tracks dispatches answered before they finished
	background sync.WaitGroup
}

// NewApp creates an app listening on addr
func NewApp(addr string) *App {
	return &App{
		addr: addr,
		bots: make(map[string]*Bot),
	}
}

// Register adds a bot. Bots are usually registered before Run.
func (a *App) Register(bot *Bot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.bots[bot.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateBot, bot.ID())
	}
	a.bots[bot.ID()] = bot
	a.order = append(a.order, bot.ID())
	return nil
}

// Bot returns the registered bot with id
func (a *App) Bot(id string) (*Bot, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	bot, ok := a.bots[id]
	return bot, ok
}

// Bots returns every registered bot in registration order
func (a *App) Bots() []*Bot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Bot, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.bots[id])
	}
	return out
}

// OnShutdown registers a hook run during graceful shutdown, in registration order
func (a *App) OnShutdown(hook ShutdownHook) {
	a.mu.Lock()
	a.hooks = append(a.hooks, hook)
	a.mu.Unlock()
}

// Run serves webhooks until ctx is cancelled, then shuts down gracefully
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{Handler: a.Router()}

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.WithField("panic", r).Error("webhook-server-panic-recovered")
				errCh <- fmt.Errorf("webhook server panic: %v", r)
			}
		}()
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	logger.WithFields(logrus.Fields{
		"addr": ln.Addr().String(),
		"bots": len(a.Bots()),
	}).Info("webhook-server-started")

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.WithField("error", serveErr).Error("webhook-server-failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithField("error", err).Warn("webhook-server-shutdown-failed")
	}
	if err := a.WaitBackground(shutdownCtx); err != nil {
		logger.WithField("error", err).Warn("background-dispatch-abandoned")
	}
	a.shutdown(shutdownCtx)

	logger.Info("webhook-server-stopped")
	return serveErr
}

// WaitBackground waits for dispatches still running after their webhook was answered
func (a *App) WaitBackground(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *App) shutdown(ctx context.Context) {
	a.mu.RLock()
	hooks := append([]ShutdownHook(nil), a.hooks...)
	a.mu.RUnlock()

	for i, hook := range hooks {
		if err := hook(ctx); err != nil {
			logger.WithFields(logrus.Fields{
				"hook":  i,
				"error": err,
			}).Warn("shutdown-hook-failed")
		}
	}
	for _, bot := range a.Bots() {
		bot.Close()
	}
}

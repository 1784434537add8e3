// File: internal/service/components.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/dispatch"
	"github.com/xkilldash9x/courier-cli/internal/history"
	"github.com/xkilldash9x/courier-cli/internal/humanoid"
	"github.com/xkilldash9x/courier-cli/internal/messages"
	"github.com/xkilldash9x/courier-cli/internal/presets"
)

// historyConnectTimeout bounds connecting to the optional history database.
const historyConnectTimeout = 10 * time.Second

// Components holds everything an interactive or one-shot session needs, and
// releases it in order on Shutdown.
type Components struct {
	Config     *config.Manager
	Controller *Controller
	History    *history.Store

	closeHistory func()
	logger       *zap.Logger
}

// NewComponents wires the application from the config manager. A history database
// that cannot be reached is logged and skipped; it never prevents sending.
func NewComponents(ctx context.Context, mgr *config.Manager, logger *zap.Logger) *Components {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := mgr.Current()
	c := &Components{Config: mgr, logger: logger}

	// 1. Optional run history.
	var recorder history.Recorder
	if cfg.Database.URL != "" {
		dbCtx, cancel := context.WithTimeout(ctx, historyConnectTimeout)
		store, closeFn, err := history.Open(dbCtx, cfg.Database.URL, logger)
		cancel()
		if err != nil {
			logger.Warn("Run history disabled; database unavailable.", zap.Error(err))
		} else {
			c.History, c.closeHistory, recorder = store, closeFn, store
		}
	}

	// 2. Presets and the controller.
	c.Controller = NewController(Deps{
		Session: browser.NewSession(cfg, logger),
		Engine:  dispatch.NewEngine(logger),
		Queue:   messages.NewQueue(),
		Presets: presets.Open(cfg.Presets.Path, logger),
		History: recorder,
		Typist:  humanoid.NewTypist(),
		Options: func() dispatch.Options { return mgr.Current().Dispatch.Options() },
		Logger:  logger,
	})
	return c
}

// Shutdown stops any run, closes the browser, then the database pool.
func (c *Components) Shutdown() {
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger.Debug("Beginning components shutdown sequence.")

	// 1. Stop the producer side first.
	if c.Controller != nil {
		if err := c.Controller.Shutdown(); err != nil {
			c.logger.Warn("Error during controller shutdown.", zap.Error(err))
		}
	}

	// 2. Then the history pool.
	if c.closeHistory != nil {
		c.closeHistory()
		c.closeHistory = nil
		c.logger.Debug("History connection pool closed.")
	}
	c.logger.Debug("All components shut down.")
}

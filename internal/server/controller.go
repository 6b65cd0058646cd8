// Package server exposes the run catalog and recompute operations over
// HTTP. It can also rescan the input directory on a timer so new mask
// deliveries are folded in without an operator request.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/wetlandtools/hydroperiod/internal/app"
	"github.com/wetlandtools/hydroperiod/internal/catalog"
	"github.com/wetlandtools/hydroperiod/pkg/config"
	"go.uber.org/zap"
)

// Runner executes a single hydroperiod pipeline run.
type Runner interface {
	RunOnce(ctx context.Context) (*app.RunResult, error)
}

// Controller represents the hydroperiod API controller
type Controller struct {
	ctx            context.Context
	wg             *sync.WaitGroup
	configProvider config.ConfigProvider
	serverConfig   config.ServerData
	Server         http.Server
	logger         *zap.SugaredLogger
	handlers       *Handlers
	runner         Runner
	catalog        *catalog.Catalog
	rescanEvery    time.Duration

	// runMu serializes pipeline runs across the recompute endpoint and
	// the rescan loop.
	runMu sync.Mutex
}

// NewController creates a new API controller
func NewController(ctx context.Context, wg *sync.WaitGroup, configProvider config.ConfigProvider, sc config.ServerData, logger *zap.SugaredLogger, runner Runner) (*Controller, error) {
	ctrl := &Controller{
		ctx:            ctx,
		wg:             wg,
		configProvider: configProvider,
		serverConfig:   sc,
		logger:         logger,
		runner:         runner,
	}

	if ctrl.serverConfig.Port == 0 {
		logger.Info("API port not specified; defaulting to 8120")
		ctrl.serverConfig.Port = 8120
	}
	if ctrl.serverConfig.ListenAddr == "" {
		logger.Info("API listen-addr not provided; defaulting to 127.0.0.1 (localhost only)")
		ctrl.serverConfig.ListenAddr = "127.0.0.1"
	}

	if sc.RescanInterval != "" {
		every, err := time.ParseDuration(sc.RescanInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid rescan-interval %q: %w", sc.RescanInterval, err)
		}
		ctrl.rescanEvery = every
	}

	catalogConfig, err := configProvider.GetCatalogConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog configuration: %w", err)
	}
	if catalogConfig != nil && catalogConfig.Path != "" {
		cat, err := catalog.Open(catalogConfig.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open run catalog: %w", err)
		}
		ctrl.catalog = cat
	} else {
		logger.Warn("no run catalog configured; run endpoints will be unavailable")
	}

	ctrl.handlers = NewHandlers(ctrl)

	router := ctrl.setupRouter()
	ctrl.Server.Addr = fmt.Sprintf("%v:%v", ctrl.serverConfig.ListenAddr, ctrl.serverConfig.Port)
	ctrl.Server.Handler = router

	return ctrl, nil
}

// StartController starts the API server and, when configured, the
// periodic rescan loop
func (c *Controller) StartController() error {
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		c.logger.Infof("API server starting on %s", c.Server.Addr)
		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			c.logger.Errorf("API server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("shutting down the API server...")
		c.Server.Shutdown(context.Background())
		if c.catalog != nil {
			c.catalog.Close()
		}
	}()

	if c.rescanEvery > 0 {
		c.wg.Add(1)
		go c.runRescanLoop()
	}

	return nil
}

// runRescanLoop recomputes the hydroperiod on a fixed interval. Errors
// are logged and the loop keeps running.
func (c *Controller) runRescanLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.rescanEvery)
	defer ticker.Stop()

	c.logger.Infof("rescan loop started, recomputing every %s", c.rescanEvery)
	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("rescan loop stopped")
			return
		case <-ticker.C:
			if !c.runMu.TryLock() {
				c.logger.Info("previous run still in progress; skipping scheduled rescan")
				continue
			}
			result, err := c.runner.RunOnce(c.ctx)
			c.runMu.Unlock()
			if err != nil {
				c.logger.Errorf("scheduled recompute failed: %v", err)
				continue
			}
			c.logger.Infof("scheduled recompute finished in %s (%d samples)", result.Elapsed, result.SampleCount)
		}
	}
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	router.Use(c.loggingMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", c.handlers.GetStatus).Methods("GET")
	api.HandleFunc("/runs", c.handlers.GetRuns).Methods("GET")
	api.HandleFunc("/runs/latest", c.handlers.GetLatestRun).Methods("GET")
	api.HandleFunc("/runs/{id}", c.handlers.GetRun).Methods("GET")
	api.HandleFunc("/runs/{id}/visualization", c.handlers.GetVisualization).Methods("GET")
	api.HandleFunc("/recompute", c.handlers.Recompute).Methods("POST")

	return router
}

// loggingMiddleware logs all HTTP requests
func (c *Controller) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		c.logger.Infof("%s %s %s %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}

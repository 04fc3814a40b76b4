// Package dashboard serves a read-only JSON status API over the running
// bot's components.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/yukki/internal/app"
	"go.uber.org/zap"
)

// shutdownTimeout bounds graceful shutdown once ctx is cancelled.
const shutdownTimeout = 5 * time.Second

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	App  *app.App
	Port int
	Log  *zap.Logger
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.App == nil {
		return fmt.Errorf("dashboard: app is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	log := opts.Log.Named("dashboard")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           NewRouter(opts.App),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("dashboard listening", zap.Int("port", opts.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// NewRouter returns the dashboard's gin engine.
func NewRouter(a *app.App) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, a)
	return router
}

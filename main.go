package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kavishka-rasanjana/Transit-Guard/internal/mailer"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
	corsMaxAge        = 12 * time.Hour
)

type App struct {
	cfg *Config
	log *slog.Logger

	store    Store
	catalog  *catalogResolver
	evidence *evidenceStore
	geocoder Geocoder
	mailer   *mailer.Mailer
	metrics  *appMetrics

	now      func() time.Time
	mockSeed int64

	// lifecycle bounds background work started by handlers.
	lifecycle  context.Context
	background sync.WaitGroup
}

func newApp(ctx context.Context, cfg *Config, store Store, logger *slog.Logger) (*App, error) {
	metrics, err := newAppMetrics()
	if err != nil {
		return nil, err
	}

	var mailProvider mailer.Provider
	if cfg.ResendAPIKey != "" {
		mailProvider = mailer.NewResendProvider(cfg.ResendAPIKey)
	} else {
		mailProvider = mailer.NewLogProvider(logger)
	}
	logger.Info("mailer initialized", "provider", mailProvider.Name())

	mockSeed := cfg.MockSeed
	if mockSeed == 0 {
		mockSeed = time.Now().UnixNano()
	}

	return &App{
		cfg:      cfg,
		log:      logger,
		store:    store,
		catalog:  newCatalogResolver(store, cfg.CatalogCacheTTL),
		evidence: newEvidenceStore(cfg.DataRoot),
		geocoder: newNominatimGeocoder(
			cfg.NominatimBaseURL,
			cfg.GeocoderUserAgent,
			&http.Client{Timeout: geocodeTimeout},
		),
		mailer:    mailer.New(mailProvider, cfg.MailerFromAddresses[mailProvider.Name()]),
		metrics:   metrics,
		now:       time.Now,
		mockSeed:  mockSeed,
		lifecycle: ctx,
	}, nil
}

func (a *App) buildRouter() *gin.Engine {
	r := gin.New()
	r.RedirectFixedPath = true
	r.MaxMultipartMemory = a.cfg.MaxMultipartMemory
	r.Use(gin.Recovery())
	r.Use(a.loggingMiddleware())
	r.Use(a.corsMiddleware())

	r.GET("/healthz", a.healthHandler)
	r.GET("/metrics", a.metrics.handler())
	r.Static("/uploads", filepath.Join(a.cfg.DataRoot, uploadsDirName))

	api := r.Group("/api")
	{
		api.GET("/location", a.locationsHandler)
		api.GET("/location/districts", a.districtsHandler)
		api.POST("/location/seed-data", a.seedHandler(a.locationSeed))

		api.GET("/violationtype", a.violationTypesHandler)
		api.POST("/violationtype/seed-data", a.seedHandler(a.violationTypeSeed))

		api.POST("/report", a.submitReportHandler)
		api.GET("/report", a.listReportsHandler)
		api.GET("/report/:id", a.getReportHandler)
		api.POST("/report/:id/status", a.updateReportStatusHandler)

		api.GET("/locate", a.locateHandler)

		dash := api.Group("/dashboard")
		{
			dash.GET("/stats", a.dashboardStatsHandler)
			dash.GET("/provinces", a.dashboardProvincesHandler)
			dash.GET("/categories", a.dashboardCategoriesHandler)
			dash.GET("/trend", a.dashboardTrendHandler)
			dash.GET("/recent", a.dashboardRecentHandler)
			dash.GET("/map", a.dashboardMapHandler)
			dash.GET("/export", a.dashboardExportHandler)
		}
	}
	return r
}

func (a *App) healthHandler(c *gin.Context) {
	if err := a.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "store": a.store.Name()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": a.store.Name()})
}

func (a *App) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		)
	}
}

// corsMiddleware allows any origin unless CORS_ALLOWED_ORIGINS names some.
func (a *App) corsMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       corsMaxAge,
	}
	if len(a.cfg.CORSAllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = a.cfg.CORSAllowedOrigins
	}
	return cors.New(cfg)
}

// serve runs the HTTP server and the evidence reconciler until ctx is done,
// then drains in-flight requests and background sends.
func (a *App) serve(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.buildRouter(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	reconcileDone := a.startEvidenceReconciler(runCtx, a.cfg.ReconcileInterval)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting gin API", "addr", a.cfg.Addr, "store", a.store.Name(), "dashboard_source", a.cfg.DashboardSource)
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		a.log.Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, fmt.Errorf("shutdown: %w", err))
	}

	cancel()
	<-reconcileDone
	a.background.Wait()
	return serveErr
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

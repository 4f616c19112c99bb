package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/Hobrus/hobrushealth.git/internal/app/tracker"
	"github.com/Hobrus/hobrushealth.git/internal/app/tracker/config"
	"github.com/Hobrus/hobrushealth.git/internal/app/tracker/handlers"
	"github.com/Hobrus/hobrushealth.git/internal/app/tracker/health"
	"github.com/Hobrus/hobrushealth.git/internal/app/tracker/middleware"
	"github.com/Hobrus/hobrushealth.git/internal/app/tracker/registry"
	"github.com/Hobrus/hobrushealth.git/internal/app/tracker/repository"
	"github.com/Hobrus/hobrushealth.git/internal/app/tracker/source"
	"github.com/Hobrus/hobrushealth.git/internal/pkg/buildinfo"
	"github.com/Hobrus/hobrushealth.git/internal/pkg/retry"
)

const shutdownTimeout = 5 * time.Second

type app struct {
	server      *http.Server
	tracker     *tracker.Tracker
	provisioner *repository.Provisioner
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.WithField("level", level).Warn("Unknown log level, using info")
	}
	return logger
}

// setupApp wires every component together. Nothing here touches the
// database or the network.
func setupApp(logger *logrus.Logger, cfg *config.Config, fs afero.Fs) (*app, error) {
	reg := prometheus.NewRegistry()
	gauges, err := registry.New(reg)
	if err != nil {
		return nil, err
	}

	params := cfg.ConnParams()
	dialer := repository.NewPgDialer(params)
	provisioner := repository.NewProvisioner(dialer, params, logger)

	t := &tracker.Tracker{
		Interval:    cfg.UpdateInterval,
		Source:      source.NewReader(fs, cfg.MetricsFilePath),
		Transformer: health.NewTransformer(logger),
		Provisioner: provisioner,
		Writer:      repository.NewWriter(dialer, params, logger),
		Exporter:    gauges,
		Logger:      logger,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware(logger))
	handlers.NewHandler(reg, t, logger).SetupRoutes(router)

	return &app{
		server: &http.Server{
			Addr:              cfg.MetricsAddress(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		tracker:     t,
		provisioner: provisioner,
	}, nil
}

type ensurer interface {
	Ensure(ctx context.Context) error
}

// initDatabase provisions the database with startup retries. When ctx is
// cancelled first it returns ctx.Err() instead of the last attempt's error.
func initDatabase(ctx context.Context, p ensurer) error {
	err := retry.DoWithRetry(ctx, func() error { return p.Ensure(ctx) })
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func main() {
	info := buildinfo.Current()
	info.Print()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("Failed to load .env file")
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	logger := newLogger(cfg.LogLevel)
	logger.WithFields(info.Fields()).Info("Health tracker is starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setupApp(logger, cfg, afero.NewOsFs())
	if err != nil {
		logger.Fatal(err)
	}

	if err := initDatabase(ctx, a.provisioner); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Gracefully shutting down...")
			return
		}
		logger.WithError(err).Fatal("Database and table initialization failed")
	}
	logger.Info("Database and table initialization completed")

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start metrics server: %v", err)
		}
	}()
	logger.WithField("address", a.server.Addr).Info("Metrics server started")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.tracker.Run(ctx)
	}()

	<-ctx.Done()
	logger.Info("Gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown error: %v", err)
	}

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("Update loop did not stop in time")
	}

	logger.Info("Shutdown complete")
}

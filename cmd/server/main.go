package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/castlemilk/pfinance/analytics/internal/app"
	"github.com/castlemilk/pfinance/analytics/internal/config"
	"github.com/castlemilk/pfinance/analytics/internal/httpapi"
	"github.com/castlemilk/pfinance/analytics/internal/logging"
	"github.com/castlemilk/pfinance/analytics/internal/scheduler"
	"github.com/castlemilk/pfinance/analytics/internal/service"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (defaults to $PFA_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialise")
	}
	defer a.Close()

	analyticsService := service.NewAnalyticsService(a.Engine)
	path, handler := service.NewAnalyticsServiceHandler(
		analyticsService,
		connect.WithInterceptors(service.LoggingInterceptor(logging.Component(logger, "rpc"))),
	)

	// REST routes, Connect procedures and health share one router
	router := httpapi.NewRouter(httpapi.NewHandler(a.Engine, logger))
	router.PathPrefix(path).Handler(handler)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(a.Engine, a.Store, cfg.Scheduler.Spec, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to create scheduler")
		}
		sched.Start()
	}

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Connect-Protocol-Version",
			"Connect-Timeout-Ms",
			"Content-Type",
			"User-Agent",
			"X-User-Agent",
		},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           h2c.NewHandler(c.Handler(router), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if sched != nil {
			if err := sched.Stop(shutdownCtx); err != nil {
				logger.WithError(err).Warn("scheduler did not stop cleanly")
			}
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("server shutdown failed")
		}
	}()

	logger.WithField("port", cfg.Server.Port).Info("starting server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("failed to start server")
	}
	logger.Info("server stopped")
}

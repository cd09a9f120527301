package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"call-review-go/internal/app"
	"call-review-go/internal/config"
	"call-review-go/internal/httpapi"
	"call-review-go/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().WithError(err).Fatal("failed to load configuration")
	}
	log := logger.NewWith(cfg.Environment, cfg.LogLevel, os.Stdout)
	log.WithField("service", "call-review-go").Info("starting service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize")
	}

	e := httpapi.New(httpapi.Deps{
		Orchestrator: a.Orchestrator,
		Records:      a.Processor,
		Gatherer:     a.Registry,
		Log:          log,
		MaxUploadMB:  cfg.HTTP.MaxUploadMB,
	})

	addr := fmt.Sprintf(":%s", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go a.Orchestrator.Janitor(ctx, cfg.Pipeline.SweepInterval)

	go func() {
		log.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server terminated")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
	a.Close(shutdownCtx)
}

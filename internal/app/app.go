// Package app wires the configured components into one process-wide object.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"call-review-go/internal/config"
	"call-review-go/internal/evaluator"
	"call-review-go/internal/events"
	"call-review-go/internal/gate"
	"call-review-go/internal/logger"
	"call-review-go/internal/metrics"
	"call-review-go/internal/pipeline"
	"call-review-go/internal/processor"
	"call-review-go/internal/store"
	"call-review-go/internal/transcription"
)

// Application holds everything built once at startup.
type Application struct {
	Cfg          *config.Config
	Log          *logger.Logger
	Registry     *prometheus.Registry
	Metrics      *metrics.Metrics
	Store        store.Store
	Publisher    *events.Publisher
	Processor    *processor.Processor
	Orchestrator *pipeline.Orchestrator
}

// New connects the store and builds the pipeline. Call Close when done.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Application, error) {
	tr, err := transcription.New(cfg.Transcribe, log)
	if err != nil {
		return nil, fmt.Errorf("transcription: %w", err)
	}
	ev, err := evaluator.New(cfg.LLM, log)
	if err != nil {
		return nil, fmt.Errorf("evaluator: %w", err)
	}

	st, err := store.Open(ctx, cfg.Store, log)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	pub := events.New(cfg.Kafka, log, m)

	proc := processor.New(processor.Deps{
		Transcriber: tr,
		Evaluator:   ev,
		Gate:        gate.Gate{MinSeconds: cfg.Gate.MinDurationSeconds},
		Store:       st,
		Publisher:   pub,
		Metrics:     m,
		Log:         log,
	})

	log.WithField("transcribe_provider", cfg.Transcribe.Provider).
		WithField("llm_provider", cfg.LLM.Provider).
		WithField("store_driver", cfg.Store.Driver).
		WithField("min_duration_seconds", cfg.Gate.MinDurationSeconds).
		Info("application ready")

	return &Application{
		Cfg:          cfg,
		Log:          log,
		Registry:     reg,
		Metrics:      m,
		Store:        st,
		Publisher:    pub,
		Processor:    proc,
		Orchestrator: pipeline.New(proc, m, log, pipeline.WithRunTTL(cfg.Pipeline.RunTTL)),
	}, nil
}

// Close releases the publisher and the store connection.
func (a *Application) Close(ctx context.Context) {
	if err := a.Publisher.Close(); err != nil {
		a.Log.WithError(err).Warn("closing event publisher")
	}
	if err := a.Store.Close(ctx); err != nil {
		a.Log.WithError(err).Warn("closing store")
	}
}

package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"call-review-go/internal/config"
	"call-review-go/internal/errs"
	"call-review-go/internal/logger"
	"call-review-go/internal/types"
)

// Evaluator scores a transcript against the rubric.
type Evaluator interface {
	Evaluate(ctx context.Context, transcript string) (types.Scorecard, error)
}

// New builds the configured backend. It refuses to start when the rubric and
// the scorecard type have drifted apart.
func New(cfg config.LLMConfig, log *logger.Logger) (Evaluator, error) {
	if err := CheckConformance(DefaultRubric); err != nil {
		return nil, err
	}
	log = log.Component("evaluator")

	var backend Evaluator
	switch cfg.Provider {
	case "openai":
		c, err := NewChatClient(cfg, DefaultRubric)
		if err != nil {
			return nil, err
		}
		backend = c
	case "mock":
		log.Info("mock evaluation mode ON")
		backend = MockEvaluator{Rubric: DefaultRubric}
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	return Guard(backend, cfg.Timeout, log), nil
}

type guarded struct {
	backend Evaluator
	timeout time.Duration
	log     *logger.Logger
}

// Guard bounds each evaluation by timeout and makes sure every failure is an
// EvaluationFormatError.
func Guard(backend Evaluator, timeout time.Duration, log *logger.Logger) Evaluator {
	return &guarded{backend: backend, timeout: timeout, log: log}
}

func (g *guarded) Evaluate(ctx context.Context, transcript string) (types.Scorecard, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	sc, err := g.backend.Evaluate(ctx, transcript)
	log := g.log.WithField("duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = errs.EvaluationFormat(fmt.Sprintf("evaluation timed out after %s", g.timeout), err)
		} else if errs.KindOf(err) == "" {
			err = errs.EvaluationFormat("evaluation failed", err)
		}
		log.WithField("error", err.Error()).Warn("evaluation failed")
		return types.Scorecard{}, err
	}
	log.WithField("overall_score", sc.OverallScore).Info("evaluation complete")
	return sc, nil
}

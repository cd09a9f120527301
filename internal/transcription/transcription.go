package transcription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"call-review-go/internal/config"
	"call-review-go/internal/duration"
	"call-review-go/internal/errs"
	"call-review-go/internal/logger"
	"call-review-go/internal/types"
)

// Transcriber turns one audio upload into text plus a duration.
type Transcriber interface {
	Transcribe(ctx context.Context, audio types.AudioInput) (types.TranscriptionResult, error)
}

// CheckFormat rejects names without an accepted audio extension.
func CheckFormat(name string) error {
	if !types.HasAudioExtension(name) {
		return errs.Unsupported(name)
	}
	return nil
}

// New builds the configured backend wrapped with format checking and a timeout.
func New(cfg config.TranscribeConfig, log *logger.Logger) (Transcriber, error) {
	log = log.Component("transcription")
	var backend Transcriber
	switch cfg.Provider {
	case "openai":
		backend = NewOpenAIClient(cfg)
	case "assemblyai":
		backend = NewAssemblyAIClient(cfg)
	case "mock":
		log.Info("mock transcription mode ON")
		backend = MockClient{}
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.Provider)
	}
	return Guard(backend, cfg.Timeout, log), nil
}

type guarded struct {
	backend Transcriber
	timeout time.Duration
	log     *logger.Logger
}

// Guard checks the file format before any network call and bounds each call
// by timeout. Every failure it returns carries an errs kind.
func Guard(backend Transcriber, timeout time.Duration, log *logger.Logger) Transcriber {
	return &guarded{backend: backend, timeout: timeout, log: log}
}

func (g *guarded) Transcribe(ctx context.Context, audio types.AudioInput) (types.TranscriptionResult, error) {
	if err := CheckFormat(audio.Name); err != nil {
		return types.TranscriptionResult{}, err
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := g.backend.Transcribe(ctx, audio)
	log := g.log.WithField("file_name", audio.Name).WithField("duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errs.Is(err, errs.TranscriptionError) {
			err = errs.Transcription(fmt.Sprintf("transcription timed out after %s", g.timeout), err)
		} else if errs.KindOf(err) == "" {
			err = errs.Transcription("Unknown error", err)
		}
		log.WithField("error", err.Error()).Warn("transcription failed")
		return types.TranscriptionResult{}, err
	}
	log.WithField("duration_seconds", duration.FormatPtr(res.DurationSeconds)).Info("transcription complete")
	return res, nil
}

// result fills in the duration from the text when the upstream did not report one.
func result(text string, reported *float64) types.TranscriptionResult {
	if reported != nil && *reported > 0 {
		d := *reported
		return types.TranscriptionResult{Text: text, DurationSeconds: &d}
	}
	return types.TranscriptionResult{Text: text, DurationSeconds: duration.Estimate(text)}
}

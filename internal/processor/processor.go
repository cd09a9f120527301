// Package processor holds the per-file steps of a review run: transcribe and
// gate on intake, then evaluate, persist and publish once participants are known.
package processor

import (
	"context"
	"time"

	"call-review-go/internal/duration"
	"call-review-go/internal/errs"
	"call-review-go/internal/evaluator"
	"call-review-go/internal/gate"
	"call-review-go/internal/logger"
	"call-review-go/internal/metrics"
	"call-review-go/internal/store"
	"call-review-go/internal/transcription"
	"call-review-go/internal/types"
)

// RecordPublisher announces persisted records.
type RecordPublisher interface {
	PublishRecord(ctx context.Context, rec types.CallRecord) error
}

type Deps struct {
	Transcriber transcription.Transcriber
	Evaluator   evaluator.Evaluator
	Gate        gate.Gate
	Store       store.Store
	Publisher   RecordPublisher // optional
	Metrics     *metrics.Metrics
	Log         *logger.Logger
}

type Processor struct {
	transcriber transcription.Transcriber
	evaluator   evaluator.Evaluator
	gate        gate.Gate
	store       store.Store
	publisher   RecordPublisher
	metrics     *metrics.Metrics
	log         *logger.Logger
}

func New(d Deps) *Processor {
	return &Processor{
		transcriber: d.Transcriber,
		evaluator:   d.Evaluator,
		gate:        d.Gate,
		store:       d.Store,
		publisher:   d.Publisher,
		metrics:     d.Metrics,
		log:         d.Log.Component("processor"),
	}
}

// Admission is the outcome of transcribing and gating one file.
type Admission struct {
	Transcript string
	Duration   *float64
	Admitted   bool
	// Message explains a rejection.
	Message string
}

// Intake transcribes audio and applies the duration gate.
func (p *Processor) Intake(ctx context.Context, audio types.AudioInput) (Admission, error) {
	start := time.Now()
	tr, err := p.transcriber.Transcribe(ctx, audio)
	p.metrics.ObserveCall("transcription", start)
	if err != nil {
		return Admission{}, err
	}

	a := Admission{Transcript: tr.Text, Duration: tr.DurationSeconds}
	if p.gate.Admit(tr.DurationSeconds) {
		a.Admitted = true
	} else {
		a.Message = p.gate.Shortfall(audio.Name, tr.DurationSeconds)
	}
	return a, nil
}

// Complete evaluates an admitted transcript and persists the record. Nothing
// is stored when evaluation fails. A publish failure is logged and does not
// fail the file.
func (p *Processor) Complete(ctx context.Context, fileName string, a Admission, meta types.ParticipantMetadata) (types.CallRecord, error) {
	if !a.Admitted || a.Duration == nil {
		return types.CallRecord{}, errs.Invalid("file was not admitted for evaluation").WithDetail("file_name", fileName)
	}
	meta = meta.Normalize()
	if !meta.Complete() {
		return types.CallRecord{}, errs.Invalid("salesperson_name and prospect_name are required")
	}

	start := time.Now()
	sc, err := p.evaluator.Evaluate(ctx, a.Transcript)
	p.metrics.ObserveCall("evaluation", start)
	if err != nil {
		return types.CallRecord{}, err
	}

	rec := types.CallRecord{
		FileName:          fileName,
		SalespersonName:   meta.SalespersonName,
		ProspectName:      meta.ProspectName,
		Transcription:     a.Transcript,
		EstimatedDuration: duration.Format(*a.Duration),
		Evaluation:        sc,
	}
	if err := p.store.Save(ctx, &rec); err != nil {
		return types.CallRecord{}, err
	}
	p.metrics.Saved()

	if p.publisher != nil {
		if err := p.publisher.PublishRecord(ctx, rec); err != nil {
			p.log.WithField("record_id", rec.ID).WithError(err).Warn("record saved but event not published")
		}
	}
	return rec, nil
}

// Search looks up stored records.
func (p *Processor) Search(ctx context.Context, field types.SearchField, query string) ([]types.CallRecord, error) {
	return p.store.Search(ctx, field, query)
}

// Package pipeline runs uploaded recordings through the review steps and keeps
// track of each file until it reaches a final state.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"call-review-go/internal/duration"
	"call-review-go/internal/errs"
	"call-review-go/internal/logger"
	"call-review-go/internal/metrics"
	"call-review-go/internal/processor"
	"call-review-go/internal/types"
)

type State string

const (
	StateUploaded         State = "uploaded"
	StateTranscribing     State = "transcribing"
	StateFailed           State = "failed"
	StateGated            State = "gated"
	StateRejected         State = "rejected"
	StateAwaitingMetadata State = "awaiting_metadata"
	StateEvaluating       State = "evaluating"
	StatePersisted        State = "persisted"
	StateDiscarded        State = "discarded"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StateFailed, StateRejected, StatePersisted, StateDiscarded:
		return true
	}
	return false
}

// FileResult is the operator-visible status of one uploaded file.
type FileResult struct {
	ID                string           `json:"id"`
	FileName          string           `json:"file_name"`
	State             State            `json:"state"`
	Message           string           `json:"message,omitempty"`
	ErrorKind         errs.Kind        `json:"error_kind,omitempty"`
	Transcript        string           `json:"transcript,omitempty"`
	DurationSeconds   *float64         `json:"duration_seconds,omitempty"`
	EstimatedDuration string           `json:"estimated_duration,omitempty"`
	Scorecard         *types.Scorecard `json:"scorecard,omitempty"`
	RecordID          string           `json:"record_id,omitempty"`
	ElapsedMs         int64            `json:"elapsed_ms"`
}

// Run is a snapshot of one batch upload.
type Run struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Files     []FileResult `json:"files"`
}

// Pending returns the files still waiting for participant names.
func (r Run) Pending() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.State == StateAwaitingMetadata {
			out = append(out, f)
		}
	}
	return out
}

type fileEntry struct {
	result    FileResult
	admission processor.Admission
}

type run struct {
	// work serializes processing within the run.
	work sync.Mutex
	// mu guards the fields below.
	mu        sync.Mutex
	id        string
	createdAt time.Time
	touched   time.Time
	files     []*fileEntry
}

func (r *run) touch(now time.Time) {
	r.mu.Lock()
	r.touched = now
	r.mu.Unlock()
}

func (r *run) idleSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.touched
}

func (r *run) hasPending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f.result.State == StateAwaitingMetadata {
			return true
		}
	}
	return false
}

func (r *run) snapshot() Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := Run{ID: r.id, CreatedAt: r.createdAt, Files: make([]FileResult, len(r.files))}
	for i, f := range r.files {
		out.Files[i] = f.result
	}
	return out
}

func (r *run) update(f *fileEntry, fn func(*FileResult)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&f.result)
}

func (r *run) find(fileID string) *fileEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f.result.ID == fileID {
			return f
		}
	}
	return nil
}

// DefaultRunTTL is how long a run with files awaiting metadata may sit idle
// before Sweep discards it.
const DefaultRunTTL = time.Hour

// Orchestrator owns the runs in flight. Runs live in memory only and are
// dropped as soon as no file awaits metadata; pending files are lost when a
// run is discarded, swept after idling past its TTL, or the process stops.
type Orchestrator struct {
	proc    *processor.Processor
	metrics *metrics.Metrics
	log     *logger.Logger
	ttl     time.Duration
	now     func() time.Time

	mu   sync.RWMutex
	runs map[string]*run
}

type Option func(*Orchestrator)

// WithRunTTL sets how long an idle run with pending files is kept.
func WithRunTTL(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.ttl = d
		}
	}
}

func New(proc *processor.Processor, m *metrics.Metrics, log *logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		proc:    proc,
		metrics: m,
		log:     log.Component("pipeline"),
		ttl:     DefaultRunTTL,
		now:     time.Now,
		runs:    map[string]*run{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Active returns the number of runs still held in memory.
func (o *Orchestrator) Active() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.runs)
}

// Start processes files one at a time in upload order. Files whose names
// appear in meta with both participants set are evaluated straight away;
// other admitted files wait in StateAwaitingMetadata. A failure in one file
// never stops the others.
func (o *Orchestrator) Start(ctx context.Context, files []types.AudioInput, meta map[string]types.ParticipantMetadata) Run {
	now := o.now()
	r := &run{id: uuid.NewString(), createdAt: now.UTC(), touched: now}
	for _, f := range files {
		r.files = append(r.files, &fileEntry{result: FileResult{
			ID:       uuid.NewString(),
			FileName: f.Name,
			State:    StateUploaded,
		}})
	}

	o.mu.Lock()
	o.runs[r.id] = r
	o.mu.Unlock()

	r.work.Lock()
	defer r.work.Unlock()

	o.log.WithField("run_id", r.id).WithField("files", len(files)).Info("run started")
	for i, audio := range files {
		entry := r.files[i]
		o.intake(ctx, r, entry, audio)

		if entry.result.State != StateAwaitingMetadata {
			continue
		}
		if m, ok := meta[audio.Name]; ok && m.Complete() {
			o.complete(ctx, r, entry, m)
		}
	}
	r.touch(o.now())
	o.retireIfDone(r)
	return r.snapshot()
}

// retireIfDone drops a run from the registry once no file awaits metadata.
// The caller must hold r.work.
func (o *Orchestrator) retireIfDone(r *run) {
	if r.hasPending() {
		return
	}
	o.mu.Lock()
	delete(o.runs, r.id)
	o.mu.Unlock()
	o.log.WithField("run_id", r.id).Debug("run finished")
}

func (o *Orchestrator) intake(ctx context.Context, r *run, f *fileEntry, audio types.AudioInput) {
	log := o.log.WithFile(r.id, f.result.ID, audio.Name)
	start := time.Now()
	r.update(f, func(fr *FileResult) { fr.State = StateTranscribing })

	a, err := o.proc.Intake(ctx, audio)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		o.fail(r, f, err, elapsed)
		log.WithField("error", err.Error()).Warn("file failed during intake")
		return
	}

	f.admission = a
	r.update(f, func(fr *FileResult) {
		fr.State = StateGated
		fr.Transcript = a.Transcript
		fr.DurationSeconds = a.Duration
		fr.EstimatedDuration = duration.FormatPtr(a.Duration)
		fr.ElapsedMs += elapsed
		if a.Admitted {
			fr.State = StateAwaitingMetadata
			fr.Message = fmt.Sprintf("Provide the salesperson and prospect names to evaluate '%s'.", audio.Name)
		} else {
			fr.State = StateRejected
			fr.Message = a.Message
		}
	})

	if a.Admitted {
		o.metrics.Awaiting()
		log.WithField("duration_seconds", duration.FormatPtr(a.Duration)).Info("file admitted, awaiting metadata")
	} else {
		o.metrics.Outcome("rejected")
		log.WithField("duration_seconds", duration.FormatPtr(a.Duration)).Info("file rejected by duration gate")
	}
}

func (o *Orchestrator) complete(ctx context.Context, r *run, f *fileEntry, meta types.ParticipantMetadata) {
	log := o.log.WithFile(r.id, f.result.ID, f.result.FileName)
	start := time.Now()
	r.update(f, func(fr *FileResult) {
		fr.State = StateEvaluating
		fr.Message = ""
	})
	o.metrics.Resolved()

	rec, err := o.proc.Complete(ctx, f.result.FileName, f.admission, meta)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		o.fail(r, f, err, elapsed)
		log.WithField("error", err.Error()).Warn("file failed during evaluation")
		return
	}

	sc := rec.Evaluation
	r.update(f, func(fr *FileResult) {
		fr.State = StatePersisted
		fr.Scorecard = &sc
		fr.RecordID = rec.ID
		fr.ElapsedMs += elapsed
		fr.Message = fmt.Sprintf("Call '%s' evaluated and saved.", fr.FileName)
	})
	o.metrics.Outcome("persisted")
	log.WithField("record_id", rec.ID).Info("file persisted")
}

func (o *Orchestrator) fail(r *run, f *fileEntry, err error, elapsed int64) {
	kind := errs.KindOf(err)
	r.update(f, func(fr *FileResult) {
		fr.State = StateFailed
		fr.ErrorKind = kind
		fr.Message = failureMessage(err)
		fr.ElapsedMs += elapsed
	})
	o.metrics.Outcome("failed")
	o.metrics.Failure(string(kind))
}

// failureMessage prefers the error's own message so upstream text reaches the
// operator unchanged.
func failureMessage(err error) string {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func (o *Orchestrator) lookup(runID string) (*run, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r, ok := o.runs[runID]
	if !ok {
		return nil, errs.Missing("run", runID)
	}
	return r, nil
}

// Run returns a snapshot of the run.
func (o *Orchestrator) Run(runID string) (Run, error) {
	r, err := o.lookup(runID)
	if err != nil {
		return Run{}, err
	}
	return r.snapshot(), nil
}

// SupplyMetadata evaluates a file that is awaiting participant names. An
// evaluation or store failure is reported in the returned result, not as an
// error.
func (o *Orchestrator) SupplyMetadata(ctx context.Context, runID, fileID string, meta types.ParticipantMetadata) (FileResult, error) {
	r, err := o.lookup(runID)
	if err != nil {
		return FileResult{}, err
	}
	r.work.Lock()
	defer r.work.Unlock()

	f := r.find(fileID)
	if f == nil {
		return FileResult{}, errs.Missing("file", fileID)
	}
	if state := r.snapshotFile(f).State; state != StateAwaitingMetadata {
		return FileResult{}, errs.Invalid(fmt.Sprintf("file is %s, not awaiting metadata", state)).
			WithDetail("file_id", fileID)
	}
	if !meta.Complete() {
		return FileResult{}, errs.Invalid("salesperson_name and prospect_name are required")
	}

	o.complete(ctx, r, f, meta)
	r.touch(o.now())
	o.retireIfDone(r)
	return r.snapshotFile(f), nil
}

func (r *run) snapshotFile(f *fileEntry) FileResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return f.result
}

// Discard drops the run. Files still awaiting metadata end as StateDiscarded
// and nothing is persisted for them.
func (o *Orchestrator) Discard(runID string) (Run, error) {
	r, err := o.lookup(runID)
	if err != nil {
		return Run{}, err
	}
	r.work.Lock()
	defer r.work.Unlock()

	discarded := o.discard(r, "Discarded before participant names were supplied.")
	o.log.WithField("run_id", runID).WithField("discarded", discarded).Info("run discarded")
	return r.snapshot(), nil
}

// discard marks pending files discarded and removes the run. The caller must
// hold r.work.
func (o *Orchestrator) discard(r *run, reason string) int {
	discarded := 0
	r.mu.Lock()
	for _, f := range r.files {
		if f.result.State == StateAwaitingMetadata {
			f.result.State = StateDiscarded
			f.result.Message = reason
			f.admission = processor.Admission{}
			discarded++
		}
	}
	r.mu.Unlock()
	for i := 0; i < discarded; i++ {
		o.metrics.Resolved()
		o.metrics.Outcome("discarded")
	}

	o.mu.Lock()
	delete(o.runs, r.id)
	o.mu.Unlock()
	return discarded
}

// Sweep discards runs that have been idle longer than the TTL and returns how
// many were dropped.
func (o *Orchestrator) Sweep() int {
	o.mu.RLock()
	candidates := make([]*run, 0, len(o.runs))
	for _, r := range o.runs {
		candidates = append(candidates, r)
	}
	o.mu.RUnlock()

	swept := 0
	for _, r := range candidates {
		r.work.Lock()
		_, err := o.lookup(r.id)
		if err == nil && o.now().Sub(r.idleSince()) > o.ttl {
			n := o.discard(r, "Discarded after the session expired before participant names were supplied.")
			o.log.WithField("run_id", r.id).WithField("discarded", n).Info("idle run expired")
			swept++
		}
		r.work.Unlock()
	}
	return swept
}

// Janitor runs Sweep every interval until ctx is done.
func (o *Orchestrator) Janitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			o.Sweep()
		}
	}
}

package processor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"call-review-go/internal/errs"
	"call-review-go/internal/gate"
	"call-review-go/internal/logger"
	"call-review-go/internal/metrics"
	"call-review-go/internal/store"
	"call-review-go/internal/types"
)

type stubTranscriber struct {
	res types.TranscriptionResult
	err error
}

func (s stubTranscriber) Transcribe(context.Context, types.AudioInput) (types.TranscriptionResult, error) {
	return s.res, s.err
}

type stubEvaluator struct{ err error }

func (s stubEvaluator) Evaluate(context.Context, string) (types.Scorecard, error) {
	if s.err != nil {
		return types.Scorecard{}, s.err
	}
	return types.Scorecard{PitchFollowed: 6, ClosingSkills: 3, OverallScore: 5.5, Conclusion: "Close harder."}, nil
}

type stubPublisher struct {
	err  error
	sent []types.CallRecord
}

func (s *stubPublisher) PublishRecord(_ context.Context, rec types.CallRecord) error {
	s.sent = append(s.sent, rec)
	return s.err
}

func seconds(v float64) *float64 { return &v }

func newProcessor(tr stubTranscriber, ev stubEvaluator, pub RecordPublisher) (*Processor, *store.MemoryStore, *metrics.Metrics) {
	st := store.NewMemoryStore()
	m := metrics.New(prometheus.NewRegistry())
	p := New(Deps{
		Transcriber: tr,
		Evaluator:   ev,
		Gate:        gate.Default(),
		Store:       st,
		Publisher:   pub,
		Metrics:     m,
		Log:         logger.Discard(),
	})
	return p, st, m
}

var names = types.ParticipantMetadata{SalespersonName: " Asha ", ProspectName: "Ravi"}

func TestIntake(t *testing.T) {
	tests := []struct {
		name      string
		duration  *float64
		admitted  bool
		wantInMsg string
	}{
		{name: "long call", duration: seconds(300), admitted: true},
		{name: "exactly threshold", duration: seconds(200), wantInMsg: "200 seconds"},
		{name: "short call", duration: seconds(45), wantInMsg: "45 seconds"},
		{name: "unknown duration", wantInMsg: "could not be determined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, _ := newProcessor(stubTranscriber{res: types.TranscriptionResult{Text: "hi", DurationSeconds: tt.duration}}, stubEvaluator{}, nil)
			a, err := p.Intake(context.Background(), types.AudioInput{Name: "call.mp3"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if a.Admitted != tt.admitted {
				t.Fatalf("admitted = %v, want %v", a.Admitted, tt.admitted)
			}
			if tt.wantInMsg != "" && !strings.Contains(a.Message, tt.wantInMsg) {
				t.Fatalf("message %q missing %q", a.Message, tt.wantInMsg)
			}
		})
	}
}

func TestIntakeTranscriptionFailure(t *testing.T) {
	p, _, _ := newProcessor(stubTranscriber{err: errs.Transcription("bad audio", nil)}, stubEvaluator{}, nil)
	if _, err := p.Intake(context.Background(), types.AudioInput{Name: "call.mp3"}); !errs.Is(err, errs.TranscriptionError) {
		t.Fatalf("expected transcription error, got %v", err)
	}
}

func TestCompletePersistsAndPublishes(t *testing.T) {
	pub := &stubPublisher{}
	p, st, m := newProcessor(stubTranscriber{}, stubEvaluator{}, pub)
	a := Admission{Transcript: "hello there", Duration: seconds(452.5), Admitted: true}

	rec, err := p.Complete(context.Background(), "call.mp3", a, names)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID == "" || rec.SalespersonName != "Asha" || rec.EstimatedDuration != "452.5 seconds" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if st.Len() != 1 || len(pub.sent) != 1 {
		t.Fatalf("expected one stored and one published, got %d and %d", st.Len(), len(pub.sent))
	}
	if got := testutil.ToFloat64(m.RecordsSaved); got != 1 {
		t.Fatalf("records saved = %v", got)
	}
}

func TestCompletePublishFailureKeepsRecord(t *testing.T) {
	pub := &stubPublisher{err: errors.New("broker down")}
	p, st, _ := newProcessor(stubTranscriber{}, stubEvaluator{}, pub)
	a := Admission{Transcript: "hello", Duration: seconds(300), Admitted: true}
	if _, err := p.Complete(context.Background(), "call.mp3", a, names); err != nil {
		t.Fatalf("publish failure must not fail the file: %v", err)
	}
	if st.Len() != 1 {
		t.Fatal("record should be stored")
	}
}

func TestCompleteRejects(t *testing.T) {
	tests := []struct {
		name     string
		a        Admission
		meta     types.ParticipantMetadata
		evalErr  error
		wantKind errs.Kind
	}{
		{name: "not admitted", a: Admission{Duration: seconds(45)}, meta: names, wantKind: errs.InvalidArgument},
		{name: "missing prospect", a: Admission{Duration: seconds(300), Admitted: true}, meta: types.ParticipantMetadata{SalespersonName: "Asha", ProspectName: "  "}, wantKind: errs.InvalidArgument},
		{name: "bad evaluation", a: Admission{Duration: seconds(300), Admitted: true}, meta: names, evalErr: errs.EvaluationFormat("model response contains no JSON object", nil), wantKind: errs.EvaluationFormatError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, st, _ := newProcessor(stubTranscriber{}, stubEvaluator{err: tt.evalErr}, nil)
			_, err := p.Complete(context.Background(), "call.mp3", tt.a, tt.meta)
			if !errs.Is(err, tt.wantKind) {
				t.Fatalf("expected %s, got %v", tt.wantKind, err)
			}
			if st.Len() != 0 {
				t.Fatal("nothing should be stored")
			}
		})
	}
}

func TestCompleteStoreFailure(t *testing.T) {
	p, st, _ := newProcessor(stubTranscriber{}, stubEvaluator{}, nil)
	st.FailWith = errors.New("connection refused")
	a := Admission{Transcript: "hello", Duration: seconds(300), Admitted: true}
	if _, err := p.Complete(context.Background(), "call.mp3", a, names); !errs.Is(err, errs.StoreError) {
		t.Fatalf("expected store error, got %v", err)
	}
}

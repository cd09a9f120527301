package types

import (
	"path/filepath"
	"strings"
	"time"

	"call-review-go/internal/errs"
)

// AudioExtensions lists the upload formats accepted for transcription.
var AudioExtensions = []string{".wav", ".mp3", ".m4a"}

// AudioInput is one uploaded recording. It is never persisted.
type AudioInput struct {
	Name string
	Data []byte
}

// HasAudioExtension reports whether name ends in an accepted extension, ignoring case.
func HasAudioExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range AudioExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

type TranscriptionResult struct {
	Text string `json:"text"`
	// DurationSeconds is nil when the duration is unknown.
	DurationSeconds *float64 `json:"duration_seconds"`
}

type ParticipantMetadata struct {
	SalespersonName string `json:"salesperson_name" validate:"required"`
	ProspectName    string `json:"prospect_name" validate:"required"`
}

// Normalize trims surrounding whitespace from both names.
func (m ParticipantMetadata) Normalize() ParticipantMetadata {
	return ParticipantMetadata{
		SalespersonName: strings.TrimSpace(m.SalespersonName),
		ProspectName:    strings.TrimSpace(m.ProspectName),
	}
}

// Complete reports whether both names are present.
func (m ParticipantMetadata) Complete() bool {
	n := m.Normalize()
	return n.SalespersonName != "" && n.ProspectName != ""
}

type CallRecord struct {
	ID                string    `json:"id" bson:"record_id"`
	FileName          string    `json:"file_name" bson:"file_name"`
	SalespersonName   string    `json:"salesperson_name" bson:"salesperson_name"`
	ProspectName      string    `json:"prospect_name" bson:"prospect_name"`
	Transcription     string    `json:"transcription" bson:"transcription"`
	EstimatedDuration string    `json:"estimated_duration" bson:"estimated_duration"`
	Evaluation        Scorecard `json:"evaluation" bson:"evaluation"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
}

type SearchField string

const (
	FieldFileName        SearchField = "file_name"
	FieldSalespersonName SearchField = "salesperson_name"
	FieldProspectName    SearchField = "prospect_name"
)

// ParseSearchField accepts a field key or the label shown to operators.
func ParseSearchField(s string) (SearchField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "file_name", "filename", "file name":
		return FieldFileName, nil
	case "salesperson_name", "salesperson", "salesperson's name":
		return FieldSalespersonName, nil
	case "prospect_name", "prospect", "prospect's name":
		return FieldProspectName, nil
	}
	return "", errs.Invalid("unknown search field: " + s).WithDetail("field", s)
}

// Value returns the record's value for the field.
func (f SearchField) Value(r CallRecord) string {
	switch f {
	case FieldFileName:
		return r.FileName
	case FieldSalespersonName:
		return r.SalespersonName
	case FieldProspectName:
		return r.ProspectName
	}
	return ""
}

package transcription

import (
	"bytes"
	"context"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"

	"call-review-go/internal/config"
	"call-review-go/internal/errs"
	"call-review-go/internal/types"
)

// AssemblyAIClient transcribes through the AssemblyAI SDK. The SDK uploads the
// bytes and waits for the transcript to finish.
type AssemblyAIClient struct {
	client   *aai.Client
	language string
}

func NewAssemblyAIClient(cfg config.TranscribeConfig) *AssemblyAIClient {
	return &AssemblyAIClient{
		client:   aai.NewClient(cfg.APIKey),
		language: cfg.Language,
	}
}

func (c *AssemblyAIClient) Transcribe(ctx context.Context, audio types.AudioInput) (types.TranscriptionResult, error) {
	params := &aai.TranscriptOptionalParams{
		LanguageCode: aai.TranscriptLanguageCode(c.language),
	}
	transcript, err := c.client.Transcripts.TranscribeFromReader(ctx, bytes.NewReader(audio.Data), params)
	if err != nil {
		return types.TranscriptionResult{}, errs.Transcription(err.Error(), err)
	}

	if transcript.Status == aai.TranscriptStatusError {
		msg := "Unknown error"
		if transcript.Error != nil && *transcript.Error != "" {
			msg = *transcript.Error
		}
		return types.TranscriptionResult{}, errs.Transcription(msg, nil)
	}

	var text string
	if transcript.Text != nil {
		text = *transcript.Text
	}
	var reported *float64
	if transcript.AudioDuration != nil {
		d := float64(*transcript.AudioDuration)
		reported = &d
	}
	return result(text, reported), nil
}

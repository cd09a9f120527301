package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"call-review-go/internal/config"
	"call-review-go/internal/errs"
	"call-review-go/internal/types"
)

// OpenAIClient calls an OpenAI-compatible /audio/transcriptions endpoint.
type OpenAIClient struct {
	apiKey   string
	baseURL  string
	model    string
	language string
	client   *http.Client
}

func NewOpenAIClient(cfg config.TranscribeConfig) *OpenAIClient {
	return &OpenAIClient{
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		model:    cfg.Model,
		language: cfg.Language,
		// calls are bounded by the caller's context
		client: &http.Client{},
	}
}

type transcriptionResponse struct {
	Text     string   `json:"text"`
	Duration *float64 `json:"duration"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) Transcribe(ctx context.Context, audio types.AudioInput) (types.TranscriptionResult, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	fw, err := w.CreateFormFile("file", audio.Name)
	if err != nil {
		return types.TranscriptionResult{}, errs.Transcription("build request", err)
	}
	if _, err := fw.Write(audio.Data); err != nil {
		return types.TranscriptionResult{}, errs.Transcription("build request", err)
	}
	w.WriteField("model", c.model)
	w.WriteField("language", c.language)
	// verbose_json is the format that reports the audio duration
	w.WriteField("response_format", "verbose_json")
	if err := w.Close(); err != nil {
		return types.TranscriptionResult{}, errs.Transcription("build request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &b)
	if err != nil {
		return types.TranscriptionResult{}, errs.Transcription("build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return types.TranscriptionResult{}, errs.Transcription("transcription request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.TranscriptionResult{}, errs.Transcription("read transcription response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.TranscriptionResult{}, errs.Transcription(upstreamMessage(body), nil).
			WithDetail("status", fmt.Sprintf("%d", resp.StatusCode))
	}

	var tr transcriptionResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return types.TranscriptionResult{}, errs.Transcription(fmt.Sprintf("json decode error body=%s", string(body)), err)
	}
	return result(tr.Text, tr.Duration), nil
}

// upstreamMessage returns error.message from an error body, or a generic message.
func upstreamMessage(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Message != "" {
		return er.Error.Message
	}
	return "Unknown error"
}

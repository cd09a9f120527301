package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"call-review-go/internal/config"
	"call-review-go/internal/errs"
	"call-review-go/internal/types"
)

// ChatClient scores transcripts through an OpenAI-compatible
// /chat/completions endpoint.
type ChatClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	rubric      Rubric
	system      string
	client      *http.Client
}

func NewChatClient(cfg config.LLMConfig, r Rubric) (*ChatClient, error) {
	system, err := BuildSystemPrompt(r)
	if err != nil {
		return nil, err
	}
	return &ChatClient{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		rubric:      r,
		system:      system,
		client:      &http.Client{},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

func (c *ChatClient) Evaluate(ctx context.Context, transcript string) (types.Scorecard, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.system},
			{Role: "user", Content: BuildPrompt(c.rubric, transcript)},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return types.Scorecard{}, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return types.Scorecard{}, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return types.Scorecard{}, errs.EvaluationFormat("chat completion request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Scorecard{}, errs.EvaluationFormat("read chat completion body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.Scorecard{}, errs.EvaluationFormat(upstreamMessage(body), nil).
			WithDetail("status", fmt.Sprintf("%d", resp.StatusCode))
	}

	content, ok := contentFromChoices(body)
	if !ok {
		return types.Scorecard{}, errs.EvaluationFormat("chat completion has no choices", nil).
			WithDetail("response", truncate(string(body), 200))
	}
	return ParseScorecard(content, c.rubric)
}

func upstreamMessage(body []byte) string {
	var er struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Message != "" {
		return er.Error.Message
	}
	return "Unknown error"
}

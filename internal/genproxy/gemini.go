// Package genproxy implements the question generator endpoint on top of the
// Gemini generateContent REST API.
package genproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ErrEmptyResponse is returned when Gemini answers without any text part.
var ErrEmptyResponse = errors.New("gemini returned empty response")

// StatusError is a non-2xx answer from Gemini.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string { return fmt.Sprintf("gemini status %d", e.Status) }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig map[string]any  `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// ClientConfig configures the Gemini client.
type ClientConfig struct {
	APIKey   string
	Model    string // e.g. models/gemini-2.5-flash
	BaseURL  string
	Attempts int
	Timeout  time.Duration
}

// Client calls Gemini and returns the raw text of the first candidate.
type Client struct {
	http   *http.Client
	cfg    ClientConfig
	logger zerolog.Logger
}

func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "models/gemini-2.5-flash"
	}
	if !strings.HasPrefix(cfg.Model, "models/") {
		cfg.Model = "models/" + cfg.Model
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 40 * time.Second
	}
	return &Client{
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 50,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cfg:    cfg,
		logger: logger.With().Str("component", "gemini_client").Str("model", cfg.Model).Logger(),
	}
}

// BuildPrompt asks for count questions about topic in the question set shape.
func BuildPrompt(topic string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d multiple choice/select questions about %s in JSON format.\n", count, topic)
	b.WriteString("Each question object must have:\n")
	b.WriteString("{\n")
	b.WriteString("  \"question_number\": number,\n")
	b.WriteString("  \"question\": string,\n")
	b.WriteString("  \"options\": [string],\n")
	b.WriteString("  \"correct_answer\": [string],\n")
	b.WriteString("  \"explanation\": string\n")
	b.WriteString("}")
	return b.String()
}

// Generate returns Gemini's raw answer for the prompt. Transport errors and
// 5xx/429 answers are retried with a short backoff.
func (c *Client) Generate(ctx context.Context, topic string, count int) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: BuildPrompt(topic, count)}}}},
		GenerationConfig: map[string]any{
			"temperature": 0.4,
		},
	})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)

	var lastErr error
	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		text, retry, err := c.call(ctx, url, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retry || attempt == c.cfg.Attempts {
			break
		}
		c.logger.Warn().Err(err).Int("attempt", attempt).Msg("gemini call failed, retrying")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
		}
	}
	return "", lastErr
}

func (c *Client) call(ctx context.Context, url string, body []byte) (text string, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", ctx.Err() == nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retry := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return "", retry, &StatusError{Status: resp.StatusCode}
	}

	var gResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return "", true, fmt.Errorf("gemini decode failed: %w", err)
	}
	for _, cand := range gResp.Candidates {
		var parts []string
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				parts = append(parts, p.Text)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ""), false, nil
		}
	}
	return "", true, ErrEmptyResponse
}

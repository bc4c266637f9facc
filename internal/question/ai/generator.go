package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds connection details for the AI generator service.
type Config struct {
	GeneratorURL string
	GeneratorKey string
	Timeout      time.Duration
}

// NetworkError reports a failed or timed out generation request.
type NetworkError struct {
	Status int // HTTP status, 0 when the request never completed
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("generator returned status %d", e.Status)
	}
	return fmt.Sprintf("generator request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Generator calls the question generation endpoint and returns its raw text.
type Generator struct {
	httpClient  *http.Client
	config      Config
	logger      zerolog.Logger
	generateURL string
}

func NewGenerator(cfg Config, logger zerolog.Logger) *Generator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := strings.TrimSuffix(cfg.GeneratorURL, "/")

	return &Generator{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		config:      cfg,
		logger:      logger.With().Str("component", "ai_generator").Logger(),
		generateURL: base + "/generate",
	}
}

// Generate asks for count questions about topic. The returned text is
// expected to contain a JSON array of questions, possibly inside a code fence.
func (g *Generator) Generate(ctx context.Context, topic string, count int) (string, error) {
	if g.config.GeneratorURL == "" {
		return "", &NetworkError{Err: fmt.Errorf("generator endpoint not configured")}
	}

	body, err := json.Marshal(GenerateRequest{Topic: topic, Count: count})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.generateURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.config.GeneratorKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.config.GeneratorKey)
	}

	started := time.Now()
	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &NetworkError{Status: resp.StatusCode}
	}

	var genResp GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", &NetworkError{Err: fmt.Errorf("decode generator payload: %w", err)}
	}

	g.logger.Debug().
		Str("topic", topic).
		Int("count", count).
		Int("text_bytes", len(genResp.Text)).
		Dur("took", time.Since(started)).
		Msg("generator responded")

	return genResp.Text, nil
}

// GenerateRequest is the generation wire request.
type GenerateRequest struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// GenerateResponse is the generation wire response.
type GenerateResponse struct {
	Text string `json:"text"`
}

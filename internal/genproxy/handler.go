package genproxy

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizforge/internal/question/ai"
	httperrors "github.com/gokatarajesh/quizforge/pkg/http/errors"
)

// TextGenerator produces raw question text.
type TextGenerator interface {
	Generate(ctx context.Context, topic string, count int) (string, error)
}

// Handler serves POST /generate with the same request and response shapes the
// quiz service's ai.Generator sends and expects.
type Handler struct {
	gen      TextGenerator
	apiKey   string
	maxCount int
	timeout  time.Duration
	logger   zerolog.Logger
}

func NewHandler(gen TextGenerator, apiKey string, maxCount int, timeout time.Duration, logger zerolog.Logger) *Handler {
	if maxCount <= 0 {
		maxCount = 20
	}
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &Handler{
		gen:      gen,
		apiKey:   apiKey,
		maxCount: maxCount,
		timeout:  timeout,
		logger:   logger.With().Str("component", "genproxy").Logger(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+h.apiKey {
		httperrors.RespondError(w, http.StatusUnauthorized, httperrors.ErrCodeUnauthorized, "Invalid API key")
		return
	}

	var req ai.GenerateRequest
	r.Body = http.MaxBytesReader(w, r.Body, 16<<10)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid payload")
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeTopicRequired, "Enter a topic", "topic")
		return
	}
	if req.Count <= 0 {
		req.Count = 5
	}
	if req.Count > h.maxCount {
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidCount, "Too many questions requested", "count")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	started := time.Now()
	text, err := h.gen.Generate(ctx, req.Topic, req.Count)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", req.Topic).Msg("generation failed")
		httperrors.RespondBadGateway(w, httperrors.ErrCodeUpstreamError, "Generation failed")
		return
	}
	h.logger.Info().
		Str("topic", req.Topic).
		Int("count", req.Count).
		Dur("took", time.Since(started)).
		Msg("questions generated")

	httperrors.RespondJSON(w, http.StatusOK, ai.GenerateResponse{Text: text})
}

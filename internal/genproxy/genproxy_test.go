package genproxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quizforge/internal/question/ai"
)

func geminiServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientGenerate(t *testing.T) {
	var gotPath, gotKey string
	var gotReq geminiRequest
	srv := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"` + "```json\\n[]\\n```" + `"}]}}]}`))
	})

	c := NewClient(ClientConfig{APIKey: "k", Model: "gemini-2.5-flash", BaseURL: srv.URL}, zerolog.Nop())
	text, err := c.Generate(context.Background(), "Oceans", 3)
	require.NoError(t, err)

	assert.Equal(t, "```json\n[]\n```", text)
	assert.Equal(t, "/models/gemini-2.5-flash:generateContent", gotPath)
	assert.Equal(t, "k", gotKey)
	require.Len(t, gotReq.Contents, 1)
	assert.Contains(t, gotReq.Contents[0].Parts[0].Text, "Generate 3 multiple choice/select questions about Oceans")
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"[]"}]}}]}`))
	})

	c := NewClient(ClientConfig{BaseURL: srv.URL}, zerolog.Nop())
	text, err := c.Generate(context.Background(), "Oceans", 3)
	require.NoError(t, err)
	assert.Equal(t, "[]", text)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})

	c := NewClient(ClientConfig{BaseURL: srv.URL}, zerolog.Nop())
	_, err := c.Generate(context.Background(), "Oceans", 3)
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusForbidden, serr.Status)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClientEmptyResponse(t *testing.T) {
	srv := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})
	c := NewClient(ClientConfig{BaseURL: srv.URL, Attempts: 1}, zerolog.Nop())
	_, err := c.Generate(context.Background(), "Oceans", 3)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

type stubText struct {
	text string
	err  error
}

func (s stubText) Generate(context.Context, string, int) (string, error) { return s.text, s.err }

func post(h http.Handler, body, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler(t *testing.T) {
	h := NewHandler(stubText{text: "[...]"}, "secret", 20, time.Second, zerolog.Nop())

	rec := post(h, `{"topic":"Oceans","count":3}`, "Bearer secret")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ai.GenerateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "[...]", resp.Text)

	assert.Equal(t, http.StatusUnauthorized, post(h, `{"topic":"Oceans"}`, "").Code)
	assert.Equal(t, http.StatusBadRequest, post(h, `{"topic":" "}`, "Bearer secret").Code)
	assert.Equal(t, http.StatusBadRequest, post(h, `{"topic":"Oceans","count":50}`, "Bearer secret").Code)
	assert.Equal(t, http.StatusBadRequest, post(h, `nope`, "Bearer secret").Code)
}

func TestHandlerUpstreamFailure(t *testing.T) {
	h := NewHandler(stubText{err: errors.New("boom")}, "", 20, time.Second, zerolog.Nop())
	rec := post(h, `{"topic":"Oceans"}`, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestProxyServesQuizGenerator(t *testing.T) {
	proxy := httptest.NewServer(NewHandler(stubText{text: "```json\n[]\n```"}, "key", 20, time.Second, zerolog.Nop()))
	t.Cleanup(proxy.Close)

	gen := ai.NewGenerator(ai.Config{GeneratorURL: proxy.URL, GeneratorKey: "key"}, zerolog.Nop())
	text, err := gen.Generate(context.Background(), "Oceans", 3)
	require.NoError(t, err)
	assert.Equal(t, "```json\n[]\n```", text)
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quizforge/internal/config"
	"github.com/gokatarajesh/quizforge/internal/identity"
	"github.com/gokatarajesh/quizforge/internal/metrics"
	"github.com/gokatarajesh/quizforge/internal/quiz"
	"github.com/gokatarajesh/quizforge/internal/store"
	"github.com/gokatarajesh/quizforge/internal/web"
	"github.com/gokatarajesh/quizforge/pkg/http/ws"
)

const oceans = "```JSON\n" + `[
  {"question_number": 1, "question": "Largest ocean?", "options": ["Atlantic", "Pacific", "Indian"], "correct_answer": "Pacific", "explanation": "By area."},
  {"question_number": 2, "question": "Deepest trench?", "options": ["Mariana", "Tonga"], "correct_answer": ["Mariana"], "explanation": "Challenger Deep."},
  {"question_number": 3, "question": "Oceans touching Antarctica?", "options": ["Southern", "Arctic", "Pacific"], "correct_answer": ["Southern", "Pacific"], "explanation": "Arctic is north."}
]` + "\n```"

type fakeGenerator struct {
	text  string
	err   error
	delay time.Duration
}

func (g fakeGenerator) Generate(ctx context.Context, topic string, count int) (string, error) {
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	return g.text, g.err
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return assert.AnError }

func newTestServer(t *testing.T, gen quiz.Generator, pinger Pinger) *httptest.Server {
	t.Helper()
	cfg := &config.App{
		Env:      "test",
		Security: config.Security{CookieName: "quiz_session"},
		CORS:     config.CORS{AllowedOrigins: []string{"http://localhost:3000"}, AllowedMethods: []string{"GET", "POST", "DELETE"}},
	}

	st := store.NewMemory(time.Hour)
	t.Cleanup(func() { st.Close() })
	reg := prometheus.NewRegistry()
	svc := quiz.NewService(st, gen, metrics.New(reg), quiz.ServiceOptions{DefaultCount: 5, MaxCount: 20, UploadLimit: 1 << 20}, zerolog.Nop())
	h, err := web.NewHandler(svc, web.Options{ProgressInterval: 10 * time.Millisecond}, zerolog.Nop())
	require.NoError(t, err)

	if pinger == nil {
		pinger = st
	}
	router := NewRouter(cfg, zerolog.Nop(), Deps{
		Web:      h,
		Sessions: identity.NewManager(identity.TokenConfig{Secret: []byte("test"), TTL: time.Hour}),
		Store:    pinger,
		Gatherer: reg,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postForm(t *testing.T, c *http.Client, u string, form url.Values) *http.Response {
	t.Helper()
	resp, err := c.PostForm(u, form)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, c *http.Client, u string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestOpsEndpoints(t *testing.T) {
	srv := newTestServer(t, fakeGenerator{text: oceans}, nil)
	c := newClient(t)

	resp, body := get(t, c, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	resp, _ = get(t, c, srv.URL+"/v1/ping")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = get(t, c, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "quizforge_quizzes_completed_total")

	resp, _ = get(t, c, srv.URL+"/")
	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	assert.Equal(t, "/quiz", resp.Header.Get("Location"))
}

func TestPingReportsStoreFailure(t *testing.T) {
	srv := newTestServer(t, fakeGenerator{}, failingPinger{})
	resp, _ := get(t, newClient(t), srv.URL+"/v1/ping")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestViewFlowGenerateTakeResultRetake(t *testing.T) {
	srv := newTestServer(t, fakeGenerator{text: oceans}, nil)
	c := newClient(t)

	resp, body := get(t, c, srv.URL+"/quiz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Generate")
	require.NotEmpty(t, resp.Cookies(), "first visit issues the session cookie")

	resp, body = get(t, c, srv.URL+"/test")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "No quiz loaded.")

	resp = postForm(t, c, srv.URL+"/quiz/generate", url.Values{"topic": {"Oceans"}, "count": {"3"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/test", resp.Header.Get("Location"))

	_, body = get(t, c, srv.URL+"/test")
	assert.Contains(t, body, "Question 1 / 3")
	assert.Contains(t, body, "Largest ocean?")

	answers := [][]string{{"Pacific"}, {"Tonga"}, {"Southern", "Pacific"}}
	for i, picks := range answers {
		for _, p := range picks {
			postForm(t, c, srv.URL+"/test/select", url.Values{"option": {p}})
		}
		postForm(t, c, srv.URL+"/test/submit", nil)
		if i == 0 {
			_, body = get(t, c, srv.URL+"/test")
			assert.Contains(t, body, "Correct!")
			assert.Contains(t, body, "By area.")
		}
		resp = postForm(t, c, srv.URL+"/test/next", nil)
		if i < len(answers)-1 {
			assert.Equal(t, "/test", resp.Header.Get("Location"))
		} else {
			assert.Equal(t, "/test/result", resp.Header.Get("Location"))
		}
	}

	_, body = get(t, c, srv.URL+"/test/result")
	assert.Contains(t, body, "2 / 3")
	assert.Contains(t, body, "67%")
	assert.Contains(t, body, "grade-fair")

	resp = postForm(t, c, srv.URL+"/test/result/retake", nil)
	assert.Equal(t, "/test", resp.Header.Get("Location"))

	_, body = get(t, c, srv.URL+"/test/result")
	assert.Contains(t, body, "0 / 0")
	_, body = get(t, c, srv.URL+"/test")
	assert.Contains(t, body, "Question 1 / 3")
}

func TestViewFlowSkipsUnansweredQuestions(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	c := newClient(t)

	set := `[
  {"question": "First?", "options": ["a", "b"], "correct_answer": "a", "explanation": ""},
  {"question": "Second?", "options": ["c", "d"], "correct_answer": "d", "explanation": ""}
]`
	resp := uploadForm(t, c, srv.URL+"/quiz/upload", set)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := get(t, c, srv.URL+"/test")
	assert.Contains(t, body, `action="/test/next"`, "next is offered before submitting")
	assert.Contains(t, body, ">Next<")

	resp = postForm(t, c, srv.URL+"/test/next", nil)
	assert.Equal(t, "/test", resp.Header.Get("Location"))

	postForm(t, c, srv.URL+"/test/select", url.Values{"option": {"d"}})
	_, body = get(t, c, srv.URL+"/test")
	assert.Contains(t, body, "Question 2 / 2")
	assert.Contains(t, body, ">Finish<")

	resp = postForm(t, c, srv.URL+"/test/next", nil)
	assert.Equal(t, "/test/result", resp.Header.Get("Location"))

	_, body = get(t, c, srv.URL+"/test/result")
	assert.Contains(t, body, "0 / 2")
	assert.Contains(t, body, "0%")
}

func TestGenerateFormErrors(t *testing.T) {
	srv := newTestServer(t, fakeGenerator{text: "no json here"}, nil)
	c := newClient(t)

	resp := postForm(t, c, srv.URL+"/quiz/generate", url.Values{"topic": {"  "}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Enter a topic")

	resp = postForm(t, c, srv.URL+"/quiz/generate", url.Values{"topic": {"Oceans"}, "count": {"99"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postForm(t, c, srv.URL+"/quiz/generate", url.Values{"topic": {"Oceans"}, "count": {"3"}})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Failed to generate questions")
	assert.Contains(t, string(body), `value="Oceans"`)
}

func uploadForm(t *testing.T, c *http.Client, u, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "quiz.json")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := c.Post(u, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestUploadFormRejectsNonArray(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	c := newClient(t)

	resp := uploadForm(t, c, srv.URL+"/quiz/upload", `{"not": "an array"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Location"), "no navigation")
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Invalid JSON file")

	_, page := get(t, c, srv.URL+"/test")
	assert.Contains(t, page, "No quiz loaded.")
}

func TestUploadFormAccepts(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	c := newClient(t)

	set := `[{"question": "Q?", "options": ["a", "b"], "correct_answer": "a", "explanation": ""}]`
	resp := uploadForm(t, c, srv.URL+"/quiz/upload", set)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, page := get(t, c, srv.URL+"/test")
	assert.Contains(t, page, "Question 1 / 1")
}

func doJSON(t *testing.T, c *http.Client, method, u, body string, out any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, u, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestAPIFlow(t *testing.T) {
	srv := newTestServer(t, fakeGenerator{text: oceans}, nil)
	c := newClient(t)
	api := srv.URL + "/v1"

	var errBody map[string]any
	resp := doJSON(t, c, http.MethodGet, api+"/session", "", &errBody)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "no_quiz", errBody["error"])

	var loaded struct {
		Count   int       `json:"count"`
		Session quiz.View `json:"session"`
	}
	resp = doJSON(t, c, http.MethodPost, api+"/generate", `{"topic":"Oceans","count":3}`, &loaded)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 3, loaded.Count)
	assert.Equal(t, "Largest ocean?", loaded.Session.Question)

	resp = doJSON(t, c, http.MethodPost, api+"/session/submit", "", &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "nothing_selected", errBody["error"])

	resp = doJSON(t, c, http.MethodPost, api+"/session/select", `{"option":"Nowhere"}`, &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown_option", errBody["error"])

	var view quiz.View
	doJSON(t, c, http.MethodPost, api+"/session/select", `{"option":"Pacific"}`, &view)
	doJSON(t, c, http.MethodPost, api+"/session/submit", "", &view)
	require.NotNil(t, view.Correct)
	assert.True(t, *view.Correct)
	assert.Equal(t, 1, view.Score)

	resp = doJSON(t, c, http.MethodPost, api+"/session/submit", "", &errBody)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	doJSON(t, c, http.MethodPost, api+"/session/previous", "", &view)
	assert.Equal(t, 0, view.Index)

	var next struct {
		Done   bool         `json:"done"`
		Result *quiz.Result `json:"result"`
	}
	for i := 0; i < 2; i++ {
		doJSON(t, c, http.MethodPost, api+"/session/next", "", &next)
		assert.False(t, next.Done)
	}
	doJSON(t, c, http.MethodPost, api+"/session/next", "", &next)
	require.True(t, next.Done)
	assert.Equal(t, quiz.Result{Score: 1, Total: 3, Percent: 33}, *next.Result)

	var result struct {
		quiz.Result
		Grade string `json:"grade"`
	}
	doJSON(t, c, http.MethodGet, api+"/result", "", &result)
	assert.Equal(t, 33, result.Percent)
	assert.Equal(t, quiz.GradeLow, result.Grade)

	resp = doJSON(t, c, http.MethodDelete, api+"/result", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	doJSON(t, c, http.MethodGet, api+"/result", "", &result)
	assert.Zero(t, result.Total)
}

func TestAPIUploadErrors(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	c := newClient(t)

	var errBody map[string]any
	resp := doJSON(t, c, http.MethodPost, srv.URL+"/v1/upload", `{"not": "an array"}`, &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "parse_failed", errBody["error"])

	resp = doJSON(t, c, http.MethodPost, srv.URL+"/v1/upload", `[{"question":"Q","options":["a","a"],"correct_answer":"a"}]`, &errBody)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "schema_invalid", errBody["error"])
	details := errBody["details"].(map[string]any)
	assert.EqualValues(t, 1, details["question_number"])

	oversize := "[" + strings.Repeat(" ", 1<<20) + "]"
	resp = doJSON(t, c, http.MethodPost, srv.URL+"/v1/upload", oversize, &errBody)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "payload_too_large", errBody["error"])
}

func TestAPIGenerateValidation(t *testing.T) {
	srv := newTestServer(t, fakeGenerator{text: oceans}, nil)
	c := newClient(t)

	var errBody map[string]any
	resp := doJSON(t, c, http.MethodPost, srv.URL+"/v1/generate", `{"topic":""}`, &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "topic_required", errBody["error"])
	assert.Equal(t, "topic", errBody["field"])

	resp = doJSON(t, c, http.MethodPost, srv.URL+"/v1/generate", `not json`, &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request", errBody["error"])
}

func dialStream(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/generate"
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntilTerminal(t *testing.T, conn *websocket.Conn) (phases []string, last ws.Message) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg ws.Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type != ws.TypeGenerationProgress {
			return phases, msg
		}
		var p ws.GenerationProgressPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &p))
		phases = append(phases, p.Phase)
	}
}

func TestGenerateStreamProgressAndComplete(t *testing.T) {
	srv := newTestServer(t, fakeGenerator{text: oceans, delay: 80 * time.Millisecond}, nil)
	conn := dialStream(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "generate",
		"payload": map[string]any{"topic": "Oceans", "count": 3},
	}))

	phases, last := readUntilTerminal(t, conn)
	require.GreaterOrEqual(t, len(phases), 3)
	assert.Equal(t, []string{"Thinking...", "Creating...", "Almost done..."}, phases[:3])

	require.Equal(t, ws.TypeGenerationComplete, last.Type)
	var done ws.GenerationCompletePayload
	require.NoError(t, json.Unmarshal(last.Payload, &done))
	assert.Equal(t, 3, done.Count)
	assert.Equal(t, "/test", done.Redirect)
}

func TestGenerateStreamReportsErrors(t *testing.T) {
	srv := newTestServer(t, fakeGenerator{text: oceans}, nil)
	conn := dialStream(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "bogus"}))
	var msg ws.Message
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.TypeError, msg.Type)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "generate",
		"payload": map[string]any{"topic": " "},
	}))
	_, last := readUntilTerminal(t, conn)
	require.Equal(t, ws.TypeError, last.Type)
	var p ws.ErrorPayload
	require.NoError(t, json.Unmarshal(last.Payload, &p))
	assert.Equal(t, "topic_required", p.Code)
	assert.Equal(t, "Enter a topic", p.Message)
}

func TestGenerateStreamAcceptsCorrectedRequest(t *testing.T) {
	srv := newTestServer(t, fakeGenerator{text: oceans}, nil)
	conn := dialStream(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "generate",
		"payload": map[string]any{"topic": "Oceans", "count": 99},
	}))
	_, last := readUntilTerminal(t, conn)
	require.Equal(t, ws.TypeError, last.Type)
	var p ws.ErrorPayload
	require.NoError(t, json.Unmarshal(last.Payload, &p))
	assert.Equal(t, "invalid_count", p.Code)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "generate",
		"payload": map[string]any{"topic": "Oceans", "count": 3},
	}))
	_, last = readUntilTerminal(t, conn)
	require.Equal(t, ws.TypeGenerationComplete, last.Type)
	var done ws.GenerationCompletePayload
	require.NoError(t, json.Unmarshal(last.Payload, &done))
	assert.Equal(t, 3, done.Count)
}

package quiz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizforge/internal/metrics"
	"github.com/gokatarajesh/quizforge/internal/question"
	"github.com/gokatarajesh/quizforge/internal/store"
)

var (
	ErrTopicRequired      = errors.New("enter a topic")
	ErrGenerationInFlight = errors.New("a question set is already being generated")
)

// CountError reports a requested question count outside the allowed range.
type CountError struct {
	Min, Max int
}

func (e *CountError) Error() string {
	return fmt.Sprintf("number of questions must be between %d and %d", e.Min, e.Max)
}

// Generator produces raw question text for a topic (implemented by ai.Generator).
type Generator interface {
	Generate(ctx context.Context, topic string, count int) (string, error)
}

type ServiceOptions struct {
	DefaultCount int
	MaxCount     int
	UploadLimit  int64
}

// Service runs the quiz operations on top of a per-browser Workspace.
type Service struct {
	store   store.Store
	gen     Generator
	metrics *metrics.Metrics
	logger  zerolog.Logger
	opts    ServiceOptions

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewService(s store.Store, gen Generator, m *metrics.Metrics, opts ServiceOptions, logger zerolog.Logger) *Service {
	if opts.DefaultCount <= 0 {
		opts.DefaultCount = 5
	}
	if opts.MaxCount <= 0 {
		opts.MaxCount = 20
	}
	if opts.DefaultCount > opts.MaxCount {
		opts.DefaultCount = opts.MaxCount
	}
	return &Service{
		store:    s,
		gen:      gen,
		metrics:  m,
		logger:   logger.With().Str("component", "quiz_service").Logger(),
		opts:     opts,
		inflight: make(map[string]struct{}),
	}
}

func (s *Service) DefaultCount() int { return s.opts.DefaultCount }

func (s *Service) MaxCount() int { return s.opts.MaxCount }

func (s *Service) workspace(sessionID string) *Workspace {
	return NewWorkspace(s.store, sessionID, s.logger)
}

// CheckRequest validates a generation request and returns the trimmed topic
// and the count with the default applied.
func (s *Service) CheckRequest(topic string, count int) (string, int, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", 0, ErrTopicRequired
	}
	if count == 0 {
		count = s.opts.DefaultCount
	}
	if count < 1 || count > s.opts.MaxCount {
		return "", 0, &CountError{Min: 1, Max: s.opts.MaxCount}
	}
	return topic, count, nil
}

// Generate asks the generator for a question set and makes it the active
// one. Only one generation per session may be pending; the call is not
// cancelled when the caller goes away so a late answer is still stored.
func (s *Service) Generate(ctx context.Context, sessionID, topic string, count int) (question.Set, error) {
	topic, count, err := s.CheckRequest(topic, count)
	if err != nil {
		return nil, err
	}
	if s.gen == nil {
		return nil, errors.New("question generator not configured")
	}

	if !s.acquire(sessionID) {
		s.metrics.ObserveGeneration(metrics.OutcomeBusy, 0)
		return nil, ErrGenerationInFlight
	}
	defer s.release(sessionID)

	ctx = context.WithoutCancel(ctx)
	ws := s.workspace(sessionID)

	started := time.Now()
	raw, err := s.gen.Generate(ctx, topic, count)
	took := time.Since(started)
	if err != nil {
		s.metrics.ObserveGeneration(metrics.OutcomeNetwork, took)
		s.logger.Warn().Err(err).Str("session_id", sessionID).Str("topic", topic).Msg("generation failed")
		return nil, err
	}
	if err := ws.SaveRawText(ctx, raw); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("raw text not cached")
	}

	set, err := question.Normalize(raw)
	if err != nil {
		var serr *question.SchemaError
		outcome := metrics.OutcomeParse
		if errors.As(err, &serr) {
			outcome = metrics.OutcomeSchema
		}
		s.metrics.ObserveGeneration(outcome, took)
		s.logger.Warn().Err(err).Str("session_id", sessionID).Str("topic", topic).Msg("generator output rejected")
		return nil, err
	}

	if err := ws.SaveQuestionSet(ctx, set); err != nil {
		s.metrics.ObserveGeneration(metrics.OutcomeStoreFailed, took)
		return nil, err
	}
	s.metrics.ObserveGeneration(metrics.OutcomeOK, took)
	s.logger.Info().
		Str("session_id", sessionID).
		Str("topic", topic).
		Int("requested", count).
		Int("received", len(set)).
		Dur("took", took).
		Msg("question set generated")
	return set, nil
}

// Upload parses r as a question set and makes it the active one. Nothing is
// stored when parsing or validation fails.
func (s *Service) Upload(ctx context.Context, sessionID string, r io.Reader) (question.Set, error) {
	set, err := question.ParseUpload(r, s.opts.UploadLimit)
	if err != nil {
		var serr *question.SchemaError
		if errors.As(err, &serr) {
			s.metrics.ObserveUpload(metrics.OutcomeSchema)
		} else {
			s.metrics.ObserveUpload(metrics.OutcomeParse)
		}
		return nil, err
	}
	if err := s.workspace(sessionID).SaveQuestionSet(ctx, set); err != nil {
		s.metrics.ObserveUpload(metrics.OutcomeStoreFailed)
		return nil, err
	}
	s.metrics.ObserveUpload(metrics.OutcomeOK)
	return set, nil
}

// View is a snapshot of the current question for rendering.
type View struct {
	Number      int      `json:"question_number"`
	Index       int      `json:"index"`
	Total       int      `json:"total"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Mode        string   `json:"mode"`
	Selected    []string `json:"selected"`
	Phase       Phase    `json:"phase"`
	IsFirst     bool     `json:"is_first"`
	IsLast      bool     `json:"is_last"`
	Score       int      `json:"score"`
	Correct     *bool    `json:"correct,omitempty"`
	Answer      []string `json:"correct_answer,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// OptionSelected reports whether opt is part of the current selection.
func (v View) OptionSelected(opt string) bool {
	for _, s := range v.Selected {
		if s == opt {
			return true
		}
	}
	return false
}

// OptionCorrect reports whether opt is a correct answer; false until submitted.
func (v View) OptionCorrect(opt string) bool {
	for _, a := range v.Answer {
		if a == opt {
			return true
		}
	}
	return false
}

func newView(sess *Session) View {
	q := sess.Current()
	v := View{
		Number:   q.Number,
		Index:    sess.Index(),
		Total:    sess.Total(),
		Question: q.Text,
		Options:  q.Options,
		Mode:     q.AnswerMode(),
		Selected: sess.Selected(),
		Phase:    sess.Phase(),
		IsFirst:  sess.IsFirst(),
		IsLast:   sess.IsLast(),
		Score:    sess.Score(),
	}
	if v.Phase == PhaseSubmitted {
		correct := sess.Correct()
		v.Correct = &correct
		v.Answer = q.CorrectAnswer
		v.Explanation = q.Explanation
	}
	return v
}

func (s *Service) load(ctx context.Context, sessionID string) (*Workspace, *Session, error) {
	ws := s.workspace(sessionID)
	set, err := ws.LoadQuestionSet(ctx)
	if err != nil {
		return nil, nil, err
	}
	st, err := ws.LoadState(ctx)
	if err != nil {
		return nil, nil, err
	}
	sess, err := NewSession(set, st)
	if err != nil {
		return nil, nil, err
	}
	return ws, sess, nil
}

// View returns the current question, or ErrNoQuestions for an empty session.
func (s *Service) View(ctx context.Context, sessionID string) (View, error) {
	_, sess, err := s.load(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	return newView(sess), nil
}

// Select toggles or replaces the selection. Rejected selections
// (ErrAlreadySubmitted, ErrUnknownOption) leave the state untouched.
func (s *Service) Select(ctx context.Context, sessionID, option string) (View, error) {
	ws, sess, err := s.load(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	if err := sess.Select(option); err != nil {
		return newView(sess), err
	}
	if err := ws.SaveState(ctx, sess.State()); err != nil {
		return View{}, err
	}
	return newView(sess), nil
}

// Submit grades the current selection.
func (s *Service) Submit(ctx context.Context, sessionID string) (View, error) {
	ws, sess, err := s.load(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	correct, err := sess.Submit()
	if err != nil {
		return newView(sess), err
	}
	if err := ws.SaveState(ctx, sess.State()); err != nil {
		return View{}, err
	}
	s.metrics.ObserveAnswer(correct, sess.Current().AnswerMode())
	return newView(sess), nil
}

// Next advances. When the last question is passed the result is stored and
// returned with done=true.
func (s *Service) Next(ctx context.Context, sessionID string) (View, *Result, error) {
	ws, sess, err := s.load(ctx, sessionID)
	if err != nil {
		return View{}, nil, err
	}
	res, done := sess.Next()
	if done {
		if err := ws.SaveResult(ctx, res); err != nil {
			return View{}, nil, err
		}
		s.metrics.ObserveCompletion(res.Percent)
		s.logger.Info().
			Str("session_id", sessionID).
			Int("score", res.Score).
			Int("total", res.Total).
			Int("percent", res.Percent).
			Msg("quiz completed")
		return newView(sess), &res, nil
	}
	if err := ws.SaveState(ctx, sess.State()); err != nil {
		return View{}, nil, err
	}
	return newView(sess), nil, nil
}

// Previous steps back; a no-op on the first question.
func (s *Service) Previous(ctx context.Context, sessionID string) (View, error) {
	ws, sess, err := s.load(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	if sess.Previous() {
		if err := ws.SaveState(ctx, sess.State()); err != nil {
			return View{}, err
		}
	}
	return newView(sess), nil
}

// Result returns the stored result, zeros when absent or malformed.
func (s *Service) Result(ctx context.Context, sessionID string) Result {
	return s.workspace(sessionID).LoadResult(ctx)
}

// Retake clears the result and restarts the active set from question one.
func (s *Service) Retake(ctx context.Context, sessionID string) error {
	ws := s.workspace(sessionID)
	if err := ws.ClearResult(ctx); err != nil {
		return err
	}
	return ws.ClearState(ctx)
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) acquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[sessionID]; busy {
		return false
	}
	s.inflight[sessionID] = struct{}{}
	return true
}

func (s *Service) release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, sessionID)
}

// Generating reports whether a generation is pending for the session.
func (s *Service) Generating(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.inflight[sessionID]
	return busy
}

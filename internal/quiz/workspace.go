package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizforge/internal/question"
	"github.com/gokatarajesh/quizforge/internal/store"
)

// Workspace is the explicit session context for one browser: every value the
// views share is loaded, saved and cleared through it.
type Workspace struct {
	store     store.Store
	sessionID string
	logger    zerolog.Logger
}

func NewWorkspace(s store.Store, sessionID string, logger zerolog.Logger) *Workspace {
	return &Workspace{
		store:     s,
		sessionID: sessionID,
		logger:    logger.With().Str("session_id", sessionID).Logger(),
	}
}

func (w *Workspace) SessionID() string { return w.sessionID }

// LoadQuestionSet returns ErrNoQuestions when nothing usable is stored.
func (w *Workspace) LoadQuestionSet(ctx context.Context) (question.Set, error) {
	data, err := w.store.Get(ctx, w.sessionID, store.KeyQuizData)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoQuestions
	}
	if err != nil {
		return nil, fmt.Errorf("load question set: %w", err)
	}
	var set question.Set
	if err := json.Unmarshal(data, &set); err != nil || len(set) == 0 {
		w.logger.Warn().Err(err).Msg("stored question set unreadable")
		return nil, ErrNoQuestions
	}
	return set, nil
}

// SaveQuestionSet replaces the active set and discards progress and result
// that belonged to the previous one.
func (w *Workspace) SaveQuestionSet(ctx context.Context, set question.Set) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode question set: %w", err)
	}
	if err := w.store.Set(ctx, w.sessionID, store.KeyQuizData, data); err != nil {
		return fmt.Errorf("save question set: %w", err)
	}
	if err := w.ClearState(ctx); err != nil {
		return err
	}
	return w.ClearResult(ctx)
}

func (w *Workspace) SaveRawText(ctx context.Context, raw string) error {
	if err := w.store.Set(ctx, w.sessionID, store.KeyRawText, []byte(raw)); err != nil {
		return fmt.Errorf("save raw text: %w", err)
	}
	return nil
}

// LoadRawText returns the last generator response, or "" if none is cached.
func (w *Workspace) LoadRawText(ctx context.Context) (string, error) {
	data, err := w.store.Get(ctx, w.sessionID, store.KeyRawText)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load raw text: %w", err)
	}
	return string(data), nil
}

// LoadState returns the zero State when no progress is stored.
func (w *Workspace) LoadState(ctx context.Context) (State, error) {
	data, err := w.store.Get(ctx, w.sessionID, store.KeyQuizState)
	if errors.Is(err, store.ErrNotFound) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("load state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		w.logger.Warn().Err(err).Msg("stored quiz state unreadable, restarting")
		return State{}, nil
	}
	return st, nil
}

func (w *Workspace) SaveState(ctx context.Context, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := w.store.Set(ctx, w.sessionID, store.KeyQuizState, data); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (w *Workspace) ClearState(ctx context.Context) error {
	if err := w.store.Delete(ctx, w.sessionID, store.KeyQuizState); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}

// LoadResult never fails: a missing, malformed or unreadable result reads as
// zeros.
func (w *Workspace) LoadResult(ctx context.Context) Result {
	data, err := w.store.Get(ctx, w.sessionID, store.KeyQuizResult)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			w.logger.Warn().Err(err).Msg("load result failed")
		}
		return Result{}
	}
	res, ok := DecodeResult(data)
	if !ok {
		w.logger.Debug().Msg("stored result malformed, using defaults")
	}
	return res
}

func (w *Workspace) SaveResult(ctx context.Context, res Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := w.store.Set(ctx, w.sessionID, store.KeyQuizResult, data); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (w *Workspace) ClearResult(ctx context.Context) error {
	if err := w.store.Delete(ctx, w.sessionID, store.KeyQuizResult); err != nil {
		return fmt.Errorf("clear result: %w", err)
	}
	return nil
}

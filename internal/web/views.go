package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gokatarajesh/quizforge/internal/identity"
	"github.com/gokatarajesh/quizforge/internal/logging"
	"github.com/gokatarajesh/quizforge/internal/question"
	"github.com/gokatarajesh/quizforge/internal/quiz"
)

type entryData struct {
	Alert    string
	Topic    string
	Count    int
	MaxCount int
}

type testData struct {
	Alert     string
	Empty     bool
	View      quiz.View
	Submitted bool
}

type resultData struct {
	Alert  string
	Result quiz.Result
}

func (h *Handler) entryPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "quiz.html", entryData{
		Count:    h.svc.DefaultCount(),
		MaxCount: h.svc.MaxCount(),
	})
}

func (h *Handler) entryFailure(w http.ResponseWriter, r *http.Request, err error, upload bool, topic string, count int) {
	f := classify(err, upload)
	if f.status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error().Err(err).Msg("entry action failed")
	}
	if count <= 0 {
		count = h.svc.DefaultCount()
	}
	h.render(w, r, f.status, "quiz.html", entryData{
		Alert:    f.message,
		Topic:    topic,
		Count:    count,
		MaxCount: h.svc.MaxCount(),
	})
}

// parseCount treats an empty field as "use the default".
func parseCount(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

func (h *Handler) generateForm(w http.ResponseWriter, r *http.Request) {
	topic := r.PostFormValue("topic")
	count, ok := parseCount(r.PostFormValue("count"))
	if !ok {
		h.entryFailure(w, r, &quiz.CountError{Min: 1, Max: h.svc.MaxCount()}, false, topic, 0)
		return
	}

	if _, err := h.svc.Generate(r.Context(), identity.SessionID(r.Context()), topic, count); err != nil {
		h.entryFailure(w, r, err, false, topic, count)
		return
	}
	http.Redirect(w, r, "/test", http.StatusSeeOther)
}

func (h *Handler) uploadForm(w http.ResponseWriter, r *http.Request) {
	// room for the multipart envelope around the file itself
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.UploadLimit+64<<10)
	file, _, err := r.FormFile("file")
	if err != nil {
		var mberr *http.MaxBytesError
		if !errors.As(err, &mberr) {
			err = &question.ParseError{Source: "upload", Err: err}
		}
		h.entryFailure(w, r, err, true, "", 0)
		return
	}
	defer file.Close()

	if _, err := h.svc.Upload(r.Context(), identity.SessionID(r.Context()), file); err != nil {
		h.entryFailure(w, r, err, true, "", 0)
		return
	}
	http.Redirect(w, r, "/test", http.StatusSeeOther)
}

func (h *Handler) testPage(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.View(r.Context(), identity.SessionID(r.Context()))
	if errors.Is(err, quiz.ErrNoQuestions) {
		h.render(w, r, http.StatusOK, "test.html", testData{Empty: true})
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error().Err(err).Msg("load quiz view")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.render(w, r, http.StatusOK, "test.html", testData{
		View:      view,
		Submitted: view.Phase == quiz.PhaseSubmitted,
	})
}

// afterAction redirects back to the question view. Rejected transitions are
// no-ops for the browser; only store failures surface.
func (h *Handler) afterAction(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil && classify(err, false).status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error().Err(err).Msg("quiz action failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/test", http.StatusSeeOther)
}

func (h *Handler) selectForm(w http.ResponseWriter, r *http.Request) {
	_, err := h.svc.Select(r.Context(), identity.SessionID(r.Context()), r.PostFormValue("option"))
	h.afterAction(w, r, err)
}

func (h *Handler) submitForm(w http.ResponseWriter, r *http.Request) {
	_, err := h.svc.Submit(r.Context(), identity.SessionID(r.Context()))
	h.afterAction(w, r, err)
}

func (h *Handler) nextForm(w http.ResponseWriter, r *http.Request) {
	_, res, err := h.svc.Next(r.Context(), identity.SessionID(r.Context()))
	if err == nil && res != nil {
		http.Redirect(w, r, "/test/result", http.StatusSeeOther)
		return
	}
	h.afterAction(w, r, err)
}

func (h *Handler) previousForm(w http.ResponseWriter, r *http.Request) {
	_, err := h.svc.Previous(r.Context(), identity.SessionID(r.Context()))
	h.afterAction(w, r, err)
}

func (h *Handler) resultPage(w http.ResponseWriter, r *http.Request) {
	res := h.svc.Result(r.Context(), identity.SessionID(r.Context()))
	h.render(w, r, http.StatusOK, "result.html", resultData{Result: res})
}

func (h *Handler) retakeForm(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Retake(r.Context(), identity.SessionID(r.Context())); err != nil {
		logging.FromContext(r.Context()).Error().Err(err).Msg("retake failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/test", http.StatusSeeOther)
}

package web

import (
	"encoding/json"
	"net/http"

	"github.com/gokatarajesh/quizforge/internal/identity"
	"github.com/gokatarajesh/quizforge/internal/quiz"
	httperrors "github.com/gokatarajesh/quizforge/pkg/http/errors"
)

type generateRequest struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

type selectRequest struct {
	Option string `json:"option"`
}

// loadedResponse answers generate and upload: the size of the new set and
// its first question.
type loadedResponse struct {
	Count   int       `json:"count"`
	Session quiz.View `json:"session"`
}

type nextResponse struct {
	Done    bool         `json:"done"`
	Session quiz.View    `json:"session"`
	Result  *quiz.Result `json:"result,omitempty"`
}

type resultResponse struct {
	quiz.Result
	Grade string `json:"grade"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) respondLoaded(w http.ResponseWriter, r *http.Request, sessionID string, count int) {
	view, err := h.svc.View(r.Context(), sessionID)
	if err != nil {
		respondFailure(w, r, err, false)
		return
	}
	httperrors.RespondJSON(w, http.StatusCreated, loadedResponse{Count: count, Session: view})
}

func (h *Handler) apiGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sessionID := identity.SessionID(r.Context())
	set, err := h.svc.Generate(r.Context(), sessionID, req.Topic, req.Count)
	if err != nil {
		respondFailure(w, r, err, false)
		return
	}
	h.respondLoaded(w, r, sessionID, len(set))
}

// apiUpload takes the question set as the raw request body.
func (h *Handler) apiUpload(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionID(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.UploadLimit)
	set, err := h.svc.Upload(r.Context(), sessionID, r.Body)
	if err != nil {
		respondFailure(w, r, err, true)
		return
	}
	h.respondLoaded(w, r, sessionID, len(set))
}

func (h *Handler) apiSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.View(r.Context(), identity.SessionID(r.Context()))
	if err != nil {
		respondFailure(w, r, err, false)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, view)
}

func (h *Handler) apiSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.svc.Select(r.Context(), identity.SessionID(r.Context()), req.Option)
	if err != nil {
		respondFailure(w, r, err, false)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, view)
}

func (h *Handler) apiSubmit(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Submit(r.Context(), identity.SessionID(r.Context()))
	if err != nil {
		respondFailure(w, r, err, false)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, view)
}

func (h *Handler) apiNext(w http.ResponseWriter, r *http.Request) {
	view, res, err := h.svc.Next(r.Context(), identity.SessionID(r.Context()))
	if err != nil {
		respondFailure(w, r, err, false)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, nextResponse{Done: res != nil, Session: view, Result: res})
}

func (h *Handler) apiPrevious(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Previous(r.Context(), identity.SessionID(r.Context()))
	if err != nil {
		respondFailure(w, r, err, false)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, view)
}

func (h *Handler) apiResult(w http.ResponseWriter, r *http.Request) {
	res := h.svc.Result(r.Context(), identity.SessionID(r.Context()))
	httperrors.RespondJSON(w, http.StatusOK, resultResponse{Result: res, Grade: res.Grade()})
}

func (h *Handler) apiRetake(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Retake(r.Context(), identity.SessionID(r.Context())); err != nil {
		respondFailure(w, r, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

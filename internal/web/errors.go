package web

import (
	"errors"
	"net/http"

	"github.com/gokatarajesh/quizforge/internal/logging"
	"github.com/gokatarajesh/quizforge/internal/question"
	"github.com/gokatarajesh/quizforge/internal/question/ai"
	"github.com/gokatarajesh/quizforge/internal/quiz"
	httperrors "github.com/gokatarajesh/quizforge/pkg/http/errors"
)

// Messages shown to the browser.
const (
	msgGenerationFailed = "Failed to generate questions"
	msgInvalidFile      = "Invalid JSON file"
	msgInFlight         = "Questions are already being generated"
)

// failure is the HTTP rendering of a domain error.
type failure struct {
	status  int
	code    string
	message string
	field   string
	details map[string]any
}

// classify maps an error from quiz.Service onto a status, code and message.
// upload selects how ParseError and SchemaError are reported: as bad client
// input for uploads, as an upstream failure for generation.
func classify(err error, upload bool) failure {
	var (
		cerr  *quiz.CountError
		perr  *question.ParseError
		serr  *question.SchemaError
		nerr  *ai.NetworkError
		mberr *http.MaxBytesError
	)
	switch {
	case errors.Is(err, quiz.ErrTopicRequired):
		return failure{http.StatusBadRequest, httperrors.ErrCodeTopicRequired, "Enter a topic", "topic", nil}
	case errors.As(err, &cerr):
		return failure{http.StatusBadRequest, httperrors.ErrCodeInvalidCount, cerr.Error(), "count", nil}
	case errors.Is(err, quiz.ErrGenerationInFlight):
		return failure{http.StatusConflict, httperrors.ErrCodeGenerationInFlight, msgInFlight, "", nil}
	case errors.Is(err, quiz.ErrNoQuestions):
		return failure{http.StatusNotFound, httperrors.ErrCodeNoQuiz, "No quiz loaded.", "", nil}
	case errors.Is(err, quiz.ErrAlreadySubmitted):
		return failure{http.StatusConflict, httperrors.ErrCodeAlreadySubmitted, err.Error(), "", nil}
	case errors.Is(err, quiz.ErrNothingSelected):
		return failure{http.StatusBadRequest, httperrors.ErrCodeNothingSelected, err.Error(), "option", nil}
	case errors.Is(err, quiz.ErrUnknownOption):
		return failure{http.StatusBadRequest, httperrors.ErrCodeUnknownOption, err.Error(), "option", nil}
	case errors.As(err, &mberr):
		return failure{http.StatusRequestEntityTooLarge, httperrors.ErrCodePayloadTooLarge, msgInvalidFile + ": file too large", "file", nil}
	case errors.As(err, &serr):
		details := map[string]any{"kind": "schema", "question_number": serr.Number, "field": serr.Field}
		if upload {
			return failure{http.StatusUnprocessableEntity, httperrors.ErrCodeSchemaInvalid, msgInvalidFile + ": " + serr.Error(), "", details}
		}
		return failure{http.StatusBadGateway, httperrors.ErrCodeGenerationFailed, msgGenerationFailed + ": " + serr.Error(), "", details}
	case errors.As(err, &perr):
		if upload {
			return failure{http.StatusBadRequest, httperrors.ErrCodeParseFailed, msgInvalidFile, "file", nil}
		}
		return failure{http.StatusBadGateway, httperrors.ErrCodeGenerationFailed, msgGenerationFailed, "", map[string]any{"kind": "parse"}}
	case errors.As(err, &nerr):
		return failure{http.StatusBadGateway, httperrors.ErrCodeGenerationFailed, msgGenerationFailed, "", map[string]any{"kind": "network"}}
	default:
		return failure{http.StatusInternalServerError, httperrors.ErrCodeInternalError, "Something went wrong", "", nil}
	}
}

func respondFailure(w http.ResponseWriter, r *http.Request, err error, upload bool) {
	f := classify(err, upload)
	if f.status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error().Err(err).Msg("request failed")
	}
	switch {
	case f.details != nil:
		httperrors.RespondErrorWithDetails(w, f.status, f.code, f.message, f.details)
	case f.field != "" && f.status == http.StatusBadRequest:
		httperrors.RespondValidationError(w, f.code, f.message, f.field)
	default:
		httperrors.RespondError(w, f.status, f.code, f.message)
	}
}

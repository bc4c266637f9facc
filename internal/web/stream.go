package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gokatarajesh/quizforge/internal/identity"
	"github.com/gokatarajesh/quizforge/internal/logging"
	httperrors "github.com/gokatarajesh/quizforge/pkg/http/errors"
	"github.com/gokatarajesh/quizforge/pkg/http/ws"
)

// Phrases rotated on the stream while a generation is pending.
var progressPhases = []string{"Thinking...", "Creating...", "Almost done..."}

// generateStream upgrades to a WebSocket, accepts one valid generate message
// and streams progress phases until the generation resolves.
func (h *Handler) generateStream(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionID(r.Context())
	logger := logging.FromContext(r.Context()).With().Str("component", "generate_stream").Logger()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := ws.NewConnection(conn, logger)
	go c.WritePump()

	// one generation per connection; rejected requests may be corrected and resent
	started := false
	c.ReadPump(func(msg ws.Message) error {
		switch msg.Type {
		case ws.TypePing:
			return c.SendPayload(ws.TypePong, nil)
		case ws.TypeGenerate:
			var payload ws.GeneratePayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				return c.SendPayload(ws.TypeError, ws.ErrorPayload{
					Code:    httperrors.ErrCodeInvalidPayload,
					Message: "Invalid generate payload",
				})
			}
			if _, _, err := h.svc.CheckRequest(payload.Topic, payload.Count); err != nil {
				f := classify(err, false)
				return c.SendPayload(ws.TypeError, ws.ErrorPayload{Code: f.code, Message: f.message})
			}
			if started {
				return c.SendPayload(ws.TypeError, ws.ErrorPayload{
					Code:    httperrors.ErrCodeGenerationInFlight,
					Message: msgInFlight,
				})
			}
			started = true
			// ReadPump keeps draining control frames while this runs.
			go h.runGeneration(r, c, sessionID, payload)
			return nil
		default:
			return c.SendPayload(ws.TypeError, ws.ErrorPayload{
				Code:    httperrors.ErrCodeUnknownMessageType,
				Message: "Unknown message type " + msg.Type,
			})
		}
	})
	<-c.Done()
}

func (h *Handler) runGeneration(r *http.Request, c *ws.Connection, sessionID string, payload ws.GeneratePayload) {
	defer c.Close()

	type outcome struct {
		count int
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		set, err := h.svc.Generate(r.Context(), sessionID, payload.Topic, payload.Count)
		done <- outcome{count: len(set), err: err}
	}()

	started := time.Now()
	ticker := time.NewTicker(h.opts.ProgressInterval)
	defer ticker.Stop()

	phase := 0
	sendPhase := func() {
		_ = c.SendPayload(ws.TypeGenerationProgress, ws.GenerationProgressPayload{
			Phase:   progressPhases[phase%len(progressPhases)],
			Elapsed: int(time.Since(started).Milliseconds()),
		})
		phase++
	}
	sendPhase()

	for {
		select {
		case <-ticker.C:
			sendPhase()
		case out := <-done:
			if out.err != nil {
				f := classify(out.err, false)
				_ = c.SendPayload(ws.TypeError, ws.ErrorPayload{Code: f.code, Message: f.message})
				return
			}
			_ = c.SendPayload(ws.TypeGenerationComplete, ws.GenerationCompletePayload{
				Count:    out.count,
				Redirect: "/test",
			})
			return
		}
	}
}

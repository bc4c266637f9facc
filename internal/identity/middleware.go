package identity

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizforge/internal/logging"
)

// CookieOptions controls the session cookie attributes.
type CookieOptions struct {
	Name   string
	Secure bool
}

type sessionKey struct{}

// Middleware resolves the browser's session id from the cookie, issuing a
// fresh session when the cookie is missing, invalid or expired. Tokens past
// half their lifetime are re-issued so active browsers keep their session.
func Middleware(m *Manager, opts CookieOptions, logger zerolog.Logger) func(http.Handler) http.Handler {
	if opts.Name == "" {
		opts.Name = "quiz_session"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, expires, err := fromCookie(m, r, opts.Name)
			if err != nil {
				if !errors.Is(err, http.ErrNoCookie) {
					logger.Debug().Err(err).Msg("session cookie rejected")
				}
				sessionID = uuid.New()
			}

			if err != nil || time.Until(expires) < m.TTL()/2 {
				token, exp, ierr := m.Issue(sessionID)
				if ierr != nil {
					logger.Error().Err(ierr).Msg("issue session token")
					http.Error(w, "session unavailable", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     opts.Name,
					Value:    token,
					Path:     "/",
					Expires:  exp,
					MaxAge:   int(m.TTL().Seconds()),
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := WithSessionID(r.Context(), sessionID.String())
			reqLogger := logging.FromContext(ctx).With().Str("session_id", sessionID.String()).Logger()
			ctx = logging.IntoContext(ctx, reqLogger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func fromCookie(m *Manager, r *http.Request, name string) (uuid.UUID, time.Time, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return uuid.Nil, time.Time{}, err
	}
	return m.Validate(c.Value)
}

// WithSessionID stores the session id in ctx.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionID returns the session id resolved by Middleware, or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

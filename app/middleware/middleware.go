package appMiddleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	appLogger "github.com/FACorreiaa/go-map-poster/app/logger"
)

type contextKey string

const SessionIDKey contextKey = "sessionID"

// SessionCookieName identifies the browser's UI session.
const SessionCookieName = "poster_session"

// SessionOptions configures the session cookie.
type SessionOptions struct {
	Secure bool
	MaxAge time.Duration
}

// Session makes sure every request carries a UI session id. An existing,
// well-formed cookie is reused; otherwise a new id is minted and set on the
// response. The id is added to the request context.
func Session(opts SessionOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if c, err := r.Cookie(SessionCookieName); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					sessionID = id.String()
				}
			}

			minted := sessionID == ""
			if minted {
				sessionID = uuid.NewString()
			}
			appLogger.Annotate(r.Context(),
				slog.String("session_id", sessionID),
				slog.Bool("session_new", minted),
			)

			// Refresh on every request so the cookie outlives the sliding server TTL.
			cookie := &http.Cookie{
				Name:     SessionCookieName,
				Value:    sessionID,
				Path:     "/",
				HttpOnly: true,
				Secure:   opts.Secure,
				SameSite: http.SameSiteLaxMode,
			}
			if opts.MaxAge > 0 {
				cookie.MaxAge = int(opts.MaxAge.Seconds())
			}
			http.SetCookie(w, cookie)

			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
		})
	}
}

// GetSessionIDFromContext returns the session id set by Session.
func GetSessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(SessionIDKey).(string)
	return id, ok && id != ""
}

// WithSessionID stores a session id in ctx.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

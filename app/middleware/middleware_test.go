package appMiddleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appLogger "github.com/FACorreiaa/go-map-poster/app/logger"
)

func sessionEcho(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var seen string
	h := Session(SessionOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetSessionIDFromContext(r.Context())
		require.True(t, ok)
		seen = id
	}))
	return h, &seen
}

func TestSession(t *testing.T) {
	t.Run("mints a session when no cookie is present", func(t *testing.T) {
		h, seen := sessionEcho(t)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		_, err := uuid.Parse(*seen)
		require.NoError(t, err)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, SessionCookieName, cookies[0].Name)
		assert.Equal(t, *seen, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("reuses a valid cookie", func(t *testing.T) {
		h, seen := sessionEcho(t)
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: id})

		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, id, *seen)
	})

	t.Run("replaces a malformed cookie", func(t *testing.T) {
		h, seen := sessionEcho(t)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "not-a-uuid"})

		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.NotEqual(t, "not-a-uuid", *seen)
		_, err := uuid.Parse(*seen)
		assert.NoError(t, err)
	})
}

func TestGetSessionIDFromContext_Missing(t *testing.T) {
	_, ok := GetSessionIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}

func TestSession_AnnotatesRequestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := appLogger.StructuredLogger(logger)(Session(SessionOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: id})
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, id, entry["session_id"])
	assert.Equal(t, false, entry["session_new"])
}

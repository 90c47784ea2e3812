package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appLogger "github.com/FACorreiaa/go-map-poster/app/logger"
	appMiddleware "github.com/FACorreiaa/go-map-poster/app/middleware"
)

func TestDecodeJSONBody(t *testing.T) {
	type payload struct {
		City string `json:"city"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"city":"Paris"}`, ""},
		{"empty", ``, "body must not be empty"},
		{"syntax", `{"city":}`, "badly-formed JSON"},
		{"unknown key", `{"town":"Paris"}`, `unknown key "town"`},
		{"wrong type", `{"city":7}`, `incorrect JSON type for field "city"`},
		{"two values", `{"city":"a"}{"city":"b"}`, "single JSON value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst payload
			err := DecodeJSONBody(httptest.NewRecorder(), req, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "Paris", dst.City)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestErrorResponse(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(appMiddleware.WithSessionID(req.Context(), "0b3f5d8e-6a0c-4f0e-9d6e-2c4b1a7e9f10"))

	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, http.StatusBadGateway, "upstream down")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "upstream down", body.Error)
	assert.Equal(t, "0b3f5d8e-6a0c-4f0e-9d6e-2c4b1a7e9f10", body.SessionID)
}

func TestErrorResponse_AnnotatesRequestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := appLogger.StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(w, r, http.StatusUnprocessableEntity, "city is required")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/generate", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "city is required", entry["error"])
}

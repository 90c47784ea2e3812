package logger

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

type fieldsKey struct{}

// requestFields collects attributes that handlers further down the chain want
// on the completion line, such as the UI session id.
type requestFields struct {
	mu    sync.Mutex
	attrs []slog.Attr
}

// Annotate adds attrs to the "Request completed" line of the current request.
// Outside StructuredLogger it does nothing.
func Annotate(ctx context.Context, attrs ...slog.Attr) {
	f, ok := ctx.Value(fieldsKey{}).(*requestFields)
	if !ok {
		return
	}
	f.mu.Lock()
	f.attrs = append(f.attrs, attrs...)
	f.mu.Unlock()
}

// StructuredLogger logs one line per request. RequestID must run before it.
// Server errors are logged at Error, client errors at Warn.
func StructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			fields := &requestFields{}
			ctx := context.WithValue(r.Context(), fieldsKey{}, fields)

			l := logger.With(
				slog.String("req_id", middleware.GetReqID(ctx)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
			)
			l.DebugContext(ctx, "Request started", slog.String("user_agent", r.UserAgent()))

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []slog.Attr{
				slog.Int("status", status),
				slog.Int("bytes_written", ww.BytesWritten()),
				slog.Duration("latency", time.Since(start)),
			}
			if name := attachmentName(ww.Header()); name != "" {
				attrs = append(attrs, slog.String("download_filename", name))
			}
			fields.mu.Lock()
			attrs = append(attrs, fields.attrs...)
			fields.mu.Unlock()

			l.LogAttrs(ctx, levelFor(status), "Request completed", attrs...)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// attachmentName is the filename of a poster download response.
func attachmentName(h http.Header) string {
	disposition, params, err := mime.ParseMediaType(h.Get("Content-Disposition"))
	if err != nil || disposition != "attachment" {
		return ""
	}
	return params["filename"]
}

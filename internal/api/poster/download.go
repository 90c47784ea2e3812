package poster

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-map-poster/internal/types"
)

// Download is a poster ready to be saved locally.
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Download fetches the image currently on screen. It is refused while a
// request is in flight. A failure is surfaced as a notice and leaves the
// presenter state alone.
func (s *Session) Download(ctx context.Context) (*Download, error) {
	ctx, span := otel.Tracer("PosterSession").Start(ctx, "Download")
	defer span.End()

	l := s.logger.With(slog.String("method", "Download"))

	s.mu.Lock()
	img := s.state.Displayed()
	_, busy := s.state.(Loading)
	s.mu.Unlock()

	if busy {
		span.SetStatus(codes.Error, "generating")
		return nil, ErrGenerating
	}
	if img == nil {
		span.SetStatus(codes.Error, "nothing to download")
		return nil, ErrNothingToDownload
	}

	payload, err := s.client.Fetch(ctx, img.URL)
	if err != nil {
		l.ErrorContext(ctx, "Download failed", slog.String("url", img.URL), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "download failed")
		s.metrics.RecordDownload(ctx, "failure")

		s.mu.Lock()
		s.notice = types.DownloadFailedMessage
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	s.mu.Lock()
	if s.notice == types.DownloadFailedMessage {
		s.notice = ""
	}
	s.mu.Unlock()

	s.metrics.RecordDownload(ctx, "success")
	span.SetStatus(codes.Ok, "downloaded")
	return &Download{
		Filename:    DownloadFilename(img.URL, img.Request.City, img.Request.Country),
		ContentType: payload.ContentType,
		Data:        payload.Data,
	}, nil
}

// DownloadFilename is the last path segment of the image url, or
// map-{city}-{country}.png when the url has none.
func DownloadFilename(rawURL, city, country string) string {
	fallback := fmt.Sprintf("map-%s-%s.png", city, country)

	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}

	p := u.Path
	segment := p[strings.LastIndex(p, "/")+1:]
	if segment == "" || segment == "." || segment == ".." {
		return fallback
	}
	return segment
}

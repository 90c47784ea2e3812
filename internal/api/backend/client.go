package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-map-poster/internal/types"
)

var (
	ErrBackendStatus = errors.New("backend returned non-success status")
	ErrEmptyURL      = errors.New("backend returned no poster url")
)

const maxErrorBody = 512

var _ Client = (*ClientImpl)(nil)

// Client is the poster backend contract consumed by the UI.
type Client interface {
	// ListThemes issues GET {base}/themes.
	ListThemes(ctx context.Context) ([]string, error)
	// Generate issues POST {base}/generate and returns the raw url field.
	Generate(ctx context.Context, req types.PosterRequest) (string, error)
	// ResolveURL turns a returned url into a directly loadable one.
	ResolveURL(ref string) string
	// Fetch retrieves the bytes behind an image url.
	Fetch(ctx context.Context, url string) (*Payload, error)
}

// Payload is a retrieved image.
type Payload struct {
	Data        []byte
	ContentType string
}

type ClientImpl struct {
	logger  *slog.Logger
	baseURL string
	http    *http.Client
}

// NewClient builds a client rooted at baseURL. A zero timeout lets calls run
// until their context is cancelled.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *ClientImpl {
	return NewClientWithHTTP(baseURL, &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}, logger)
}

func NewClientWithHTTP(baseURL string, httpClient *http.Client, logger *slog.Logger) *ClientImpl {
	return &ClientImpl{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *ClientImpl) ListThemes(ctx context.Context) ([]string, error) {
	ctx, span := otel.Tracer("BackendClient").Start(ctx, "ListThemes")
	defer span.End()

	l := c.logger.With(slog.String("method", "ListThemes"))

	var out types.ThemesResponse
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/themes", nil, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "theme listing failed")
		return nil, fmt.Errorf("error listing themes: %w", err)
	}

	l.DebugContext(ctx, "Themes listed", slog.Int("count", len(out.Themes)))
	span.SetAttributes(attribute.Int("themes.count", len(out.Themes)))
	span.SetStatus(codes.Ok, "themes listed")
	return out.Themes, nil
}

func (c *ClientImpl) Generate(ctx context.Context, req types.PosterRequest) (string, error) {
	ctx, span := otel.Tracer("BackendClient").Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("poster.city", req.City),
		attribute.String("poster.country", req.Country),
		attribute.String("poster.theme", req.Theme),
		attribute.String("poster.quality", string(req.Quality)),
	))
	defer span.End()

	l := c.logger.With(slog.String("method", "Generate"),
		slog.String("city", req.City),
		slog.String("quality", string(req.Quality)))

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("error encoding generate request: %w", err)
	}

	var out types.GenerateResponse
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/generate", body, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		return "", fmt.Errorf("error generating poster: %w", err)
	}
	if out.URL == "" {
		span.SetStatus(codes.Error, "empty url")
		return "", ErrEmptyURL
	}

	l.InfoContext(ctx, "Poster generated", slog.String("url", out.URL))
	span.SetStatus(codes.Ok, "poster generated")
	return out.URL, nil
}

// ResolveURL keeps absolute urls and prefixes anything else with the base.
func (c *ClientImpl) ResolveURL(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return c.baseURL + ref
}

func (c *ClientImpl) Fetch(ctx context.Context, url string) (*Payload, error) {
	ctx, span := otel.Tracer("BackendClient").Start(ctx, "Fetch", trace.WithAttributes(
		attribute.String("image.url", url),
	))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error building fetch request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, fmt.Errorf("error fetching image: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return nil, fmt.Errorf("error reading image body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	span.SetAttributes(attribute.Int("image.bytes", len(data)))
	span.SetStatus(codes.Ok, "image fetched")
	return &Payload{Data: data, ContentType: contentType}, nil
}

func (c *ClientImpl) doJSON(ctx context.Context, method, url string, body []byte, dst any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("%w: %d %s", ErrBackendStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
}

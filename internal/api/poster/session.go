package poster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-map-poster/app/observability/metrics"
	"github.com/FACorreiaa/go-map-poster/internal/api/backend"
	"github.com/FACorreiaa/go-map-poster/internal/types"
)

var (
	// ErrSuperseded is returned by a generation whose result was discarded
	// because a newer request started meanwhile.
	ErrSuperseded        = errors.New("generation superseded by a newer request")
	ErrNothingToDownload = errors.New("no poster to download")
	ErrDownloadFailed    = errors.New("poster download failed")
	// ErrGenerating refuses downloads while a request is in flight.
	ErrGenerating        = errors.New("poster is still generating")
)

// Session is one browser's UI state: the form fields, the theme catalog and
// the presenter state. All mutation goes through its methods.
type Session struct {
	ID string

	logger  *slog.Logger
	client  backend.Client
	metrics *metrics.AppMetrics
	catalog *Catalog

	mu      sync.Mutex
	city    string
	country string
	theme   string
	state   State
	notice  string
	seq     uint64
	cancel  context.CancelFunc
}

func NewSession(id string, client backend.Client, m *metrics.AppMetrics, logger *slog.Logger) *Session {
	return &Session{
		ID:      id,
		logger:  logger.With(slog.String("session_id", id)),
		client:  client,
		metrics: m,
		catalog: NewCatalog(),
		theme:   types.DefaultTheme,
		state:   Empty{},
	}
}

func (s *Session) Catalog() *Catalog { return s.catalog }

// SetForm stores the form fields. An empty theme keeps the current one.
func (s *Session) SetForm(city, country, theme string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.city = strings.TrimSpace(city)
	s.country = strings.TrimSpace(country)
	if theme = strings.TrimSpace(theme); theme != "" {
		s.theme = theme
	}
}

// State returns the current presenter state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SessionID: s.ID,
		State:     s.state.Kind(),
		City:      s.city,
		Country:   s.country,
		Theme:     s.theme,
		Themes:    s.catalog.Options(),
		Image:     s.state.Displayed(),
		Error:     s.notice,
	}
	switch st := s.state.(type) {
	case Loading:
		snap.Busy = true
		snap.Quality = string(st.Quality)
	case Failed:
		snap.Error = st.Message
	}
	return snap
}

// Generation is a started request. Run completes it.
type Generation struct {
	session *Session
	ctx     context.Context
	cancel  context.CancelFunc
	seq     uint64
	req     types.PosterRequest
	prev    *types.Image
}

func (g *Generation) Request() types.PosterRequest { return g.req }

// Start moves the session into Loading and returns the pending request.
// A preview clears the shown image right away; a print keeps it on screen and
// regenerates the parameters of the image being shown. Any earlier request
// still in flight is cancelled.
func (s *Session) Start(ctx context.Context, quality types.Quality) (*Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := types.NewPosterRequest(s.city, s.country, s.theme, quality)
	var prev *types.Image
	if quality == types.QualityPrint {
		prev = s.state.Displayed()
		if prev != nil {
			req = types.NewPosterRequest(prev.Request.City, prev.Request.Country, prev.Request.Theme, quality)
		}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if s.cancel != nil {
		s.cancel()
	}
	genCtx, cancel := context.WithCancel(ctx)
	s.seq++
	s.cancel = cancel
	s.notice = ""
	s.state = Loading{Quality: quality, Previous: prev}

	return &Generation{
		session: s,
		ctx:     genCtx,
		cancel:  cancel,
		seq:     s.seq,
		req:     req,
		prev:    prev,
	}, nil
}

// Run performs the backend call and leaves Loading on every path, unless a
// newer request has taken over the session.
func (g *Generation) Run() error {
	s := g.session
	ctx, span := otel.Tracer("PosterSession").Start(g.ctx, "Generate", trace.WithAttributes(
		attribute.String("poster.city", g.req.City),
		attribute.String("poster.quality", string(g.req.Quality)),
		attribute.Int64("poster.seq", int64(g.seq)),
	))
	defer span.End()
	defer g.cancel()

	l := s.logger.With(slog.String("method", "Generate"), slog.String("quality", string(g.req.Quality)))
	l.InfoContext(ctx, "Requesting poster", slog.String("city", g.req.City), slog.String("country", g.req.Country))

	start := time.Now()
	ref, err := s.client.Generate(ctx, g.req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if g.seq != s.seq {
		l.DebugContext(ctx, "Discarding superseded poster response")
		span.SetStatus(codes.Error, "superseded")
		return ErrSuperseded
	}
	s.cancel = nil

	if errors.Is(err, backend.ErrEmptyURL) {
		// No image came back: the screen returns to what it showed before.
		s.state = resting(g.prev)
		s.metrics.RecordGenerate(ctx, string(g.req.Quality), "empty", time.Since(start))
		l.WarnContext(ctx, "Backend returned no poster url")
		span.SetStatus(codes.Ok, "no image")
		return nil
	}
	if err != nil {
		s.metrics.RecordGenerate(ctx, string(g.req.Quality), "failure", time.Since(start))
		l.ErrorContext(ctx, "Generation failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		s.state = Failed{Message: types.GenerateFailedMessage, Previous: g.prev}
		return fmt.Errorf("%w: %w", types.ErrGenerateFailure, err)
	}

	img := types.Image{URL: s.client.ResolveURL(ref), Request: g.req}
	s.state = Ready{Image: img}
	s.metrics.RecordGenerate(ctx, string(g.req.Quality), "success", time.Since(start))
	l.InfoContext(ctx, "Poster ready", slog.String("url", img.URL))
	span.SetStatus(codes.Ok, "poster ready")
	return nil
}

func resting(prev *types.Image) State {
	if prev == nil {
		return Empty{}
	}
	return Ready{Image: *prev}
}

// Generate starts a request and waits for it.
func (s *Session) Generate(ctx context.Context, quality types.Quality) error {
	g, err := s.Start(ctx, quality)
	if err != nil {
		return err
	}
	return g.Run()
}

// Close cancels any request still in flight.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

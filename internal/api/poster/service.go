package poster

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/go-map-poster/app/observability/metrics"
	"github.com/FACorreiaa/go-map-poster/internal/api/backend"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	// Session returns the UI session for id, creating it and starting its
	// theme load on first use.
	Session(ctx context.Context, id string) *Session
	// Close cancels every in-flight request and drops all sessions.
	Close()
}

type ServiceImpl struct {
	logger   *slog.Logger
	client   backend.Client
	metrics  *metrics.AppMetrics
	sessions *cache.Cache
	themes   singleflight.Group
	mu       sync.Mutex
}

// NewPosterService keeps sessions in memory for ttl after their last use.
func NewPosterService(client backend.Client, ttl, cleanup time.Duration, m *metrics.AppMetrics, logger *slog.Logger) *ServiceImpl {
	s := &ServiceImpl{
		logger:   logger,
		client:   client,
		metrics:  m,
		sessions: cache.New(ttl, cleanup),
	}
	s.sessions.OnEvicted(func(id string, v any) {
		if sess, ok := v.(*Session); ok {
			sess.Close()
			s.metrics.SessionClosed(context.Background())
			s.logger.Debug("Session evicted", slog.String("session_id", id))
		}
	})
	return s
}

func (s *ServiceImpl) Session(ctx context.Context, id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, found := s.sessions.Get(id); found {
		sess := v.(*Session)
		// Sliding expiry.
		s.sessions.SetDefault(id, sess)
		return sess
	}

	ctx, span := otel.Tracer("PosterService").Start(ctx, "NewSession", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	sess := NewSession(id, s.client, s.metrics, s.logger)
	s.sessions.SetDefault(id, sess)
	s.metrics.SessionOpened(ctx)
	s.logger.InfoContext(ctx, "Session created", slog.String("session_id", id))

	// The catalog load outlives the request that created the session.
	go sess.Catalog().Load(context.WithoutCancel(ctx), s.fetchThemes, sess.logger, s.metrics)
	return sess
}

// fetchThemes coalesces concurrent theme listings from fresh sessions.
func (s *ServiceImpl) fetchThemes(ctx context.Context) ([]string, error) {
	v, err, _ := s.themes.Do("themes", func() (any, error) {
		return s.client.ListThemes(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (s *ServiceImpl) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.sessions.Items() {
		s.sessions.Delete(id)
	}
}

package poster

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/FACorreiaa/go-map-poster/app/observability/metrics"
	"github.com/FACorreiaa/go-map-poster/internal/types"
)

// ThemeFetcher lists the backend's themes.
type ThemeFetcher func(ctx context.Context) ([]string, error)

// Catalog is the theme selector's option list for one session. It is loaded
// at most once.
type Catalog struct {
	mu      sync.RWMutex
	options []string
	once    sync.Once
	done    chan struct{}
}

func NewCatalog() *Catalog {
	return &Catalog{
		options: []string{types.DefaultTheme},
		done:    make(chan struct{}),
	}
}

// Options returns a copy of the current options.
func (c *Catalog) Options() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.options)
}

// Done is closed once the single load attempt has finished.
func (c *Catalog) Done() <-chan struct{} {
	return c.done
}

// Load fetches the themes once. A failure keeps the current options and is
// only logged.
func (c *Catalog) Load(ctx context.Context, fetch ThemeFetcher, logger *slog.Logger, m *metrics.AppMetrics) {
	c.once.Do(func() {
		defer close(c.done)

		themes, err := fetch(ctx)
		if err != nil {
			logger.WarnContext(ctx, "Failed to fetch themes", slog.Any("error", err))
			m.RecordThemeFetchError(ctx)
			return
		}

		c.mu.Lock()
		c.options = MergeThemes(themes)
		c.mu.Unlock()
		logger.DebugContext(ctx, "Theme catalog loaded", slog.Int("count", len(themes)))
	})
}

// MergeThemes returns the fetched list with the default theme appended when
// it is missing.
func MergeThemes(fetched []string) []string {
	out := slices.Clone(fetched)
	if !slices.Contains(out, types.DefaultTheme) {
		out = append(out, types.DefaultTheme)
	}
	return out
}

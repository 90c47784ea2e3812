package poster

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/stretchr/testify/mock"

	"github.com/FACorreiaa/go-map-poster/internal/api/backend"
	"github.com/FACorreiaa/go-map-poster/internal/types"
)

const testBase = "http://backend.test"

// MockClient is a mock implementation of backend.Client. ResolveURL follows
// the real rule so tests can assert on resolved urls.
type MockClient struct {
	mock.Mock
}

var _ backend.Client = (*MockClient)(nil)

func (m *MockClient) ListThemes(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockClient) Generate(ctx context.Context, req types.PosterRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockClient) ResolveURL(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return testBase + ref
}

func (m *MockClient) Fetch(ctx context.Context, url string) (*backend.Payload, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.Payload), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupSessionTest() (*Session, *MockClient) {
	client := new(MockClient)
	return NewSession("test-session", client, nil, testLogger()), client
}

func withQuality(q types.Quality) any {
	return mock.MatchedBy(func(req types.PosterRequest) bool { return req.Quality == q })
}

package metrics

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	GenerateRequestsTotal   metric.Int64Counter
	GenerateDurationSeconds metric.Float64Histogram
	ThemeFetchErrorsTotal   metric.Int64Counter
	DownloadsTotal          metric.Int64Counter
	ActiveSessions          metric.Int64UpDownCounter
}

var (
	// Global instance of AppMetrics (initialized once)
	appMetrics *AppMetrics
	once       sync.Once
)

// New creates the instruments on the given meter.
func New(meter metric.Meter) (*AppMetrics, error) {
	var err error
	m := &AppMetrics{}

	m.GenerateRequestsTotal, err = meter.Int64Counter(
		"poster_generate_requests_total",
		metric.WithDescription("Total number of poster generation requests sent to the backend"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("poster_generate_requests_total: %w", err)
	}

	m.GenerateDurationSeconds, err = meter.Float64Histogram(
		"poster_generate_duration_seconds",
		metric.WithDescription("Duration of poster generation round trips in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("poster_generate_duration_seconds: %w", err)
	}

	m.ThemeFetchErrorsTotal, err = meter.Int64Counter(
		"poster_theme_fetch_errors_total",
		metric.WithDescription("Total number of failed theme catalog loads"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("poster_theme_fetch_errors_total: %w", err)
	}

	m.DownloadsTotal, err = meter.Int64Counter(
		"poster_downloads_total",
		metric.WithDescription("Total number of poster downloads"),
		metric.WithUnit("{download}"),
	)
	if err != nil {
		return nil, fmt.Errorf("poster_downloads_total: %w", err)
	}

	m.ActiveSessions, err = meter.Int64UpDownCounter(
		"poster_active_sessions",
		metric.WithDescription("Number of live UI sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("poster_active_sessions: %w", err)
	}

	return m, nil
}

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics(serviceName string) {
	once.Do(func() {
		m, err := New(otel.GetMeterProvider().Meter(serviceName))
		if err != nil {
			log.Fatalf("Metrics: %v", err)
		}
		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}

func (m *AppMetrics) RecordGenerate(ctx context.Context, quality, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("quality", quality),
		attribute.String("outcome", outcome),
	)
	m.GenerateRequestsTotal.Add(ctx, 1, attrs)
	m.GenerateDurationSeconds.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *AppMetrics) RecordThemeFetchError(ctx context.Context) {
	if m == nil {
		return
	}
	m.ThemeFetchErrorsTotal.Add(ctx, 1)
}

func (m *AppMetrics) RecordDownload(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.DownloadsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *AppMetrics) SessionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, 1)
}

func (m *AppMetrics) SessionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1)
}

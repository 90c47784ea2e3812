package poster

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/go-map-poster/internal/types"
)

func TestMergeThemes(t *testing.T) {
	tests := []struct {
		name    string
		fetched []string
		want    []string
	}{
		{"default present keeps order", []string{"noir", "terracotta", "blueprint"}, []string{"noir", "terracotta", "blueprint"}},
		{"default absent is appended", []string{"noir", "blueprint"}, []string{"noir", "blueprint", types.DefaultTheme}},
		{"empty list", nil, []string{types.DefaultTheme}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeThemes(tt.fetched))
		})
	}
}

func TestCatalog_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("success replaces the options", func(t *testing.T) {
		c := NewCatalog()
		c.Load(ctx, func(context.Context) ([]string, error) {
			return []string{"noir", "blueprint"}, nil
		}, testLogger(), nil)

		assert.Equal(t, []string{"noir", "blueprint", types.DefaultTheme}, c.Options())
		select {
		case <-c.Done():
		default:
			t.Fatal("catalog not marked done after load")
		}
	})

	t.Run("failure keeps the defaults", func(t *testing.T) {
		c := NewCatalog()
		c.Load(ctx, func(context.Context) ([]string, error) {
			return nil, errors.New("connection refused")
		}, testLogger(), nil)

		assert.Equal(t, []string{types.DefaultTheme}, c.Options())
		<-c.Done()
	})

	t.Run("runs once", func(t *testing.T) {
		var calls atomic.Int32
		fetch := func(context.Context) ([]string, error) {
			calls.Add(1)
			return []string{"noir"}, nil
		}

		c := NewCatalog()
		c.Load(ctx, fetch, testLogger(), nil)
		c.Load(ctx, fetch, testLogger(), nil)
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("options are copies", func(t *testing.T) {
		c := NewCatalog()
		opts := c.Options()
		opts[0] = "mutated"
		assert.Equal(t, []string{types.DefaultTheme}, c.Options())
	})
}

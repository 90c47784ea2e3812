package poster

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-map-poster/internal/api/backend"
	"github.com/FACorreiaa/go-map-poster/internal/types"
)

func TestDownloadFilename(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example.com/posters/map-paris-france-abc123.png", "map-paris-france-abc123.png"},
		{"http://backend.test/files/paris123.png?v=2", "paris123.png"},
		{"/posters/lisbon_portugal_1a2b3c4d.png", "lisbon_portugal_1a2b3c4d.png"},
		{"https://cdn.example.com", "map-Paris-France.png"},
		{"https://cdn.example.com/", "map-Paris-France.png"},
		{"https://cdn.example.com/posters/", "map-Paris-France.png"},
		{"://bad url", "map-Paris-France.png"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DownloadFilename(tt.url, "Paris", "France"))
		})
	}
}

func TestSession_Download(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing shown", func(t *testing.T) {
		sess, client := setupSessionTest()
		_, err := sess.Download(ctx)
		assert.ErrorIs(t, err, ErrNothingToDownload)
		client.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	})

	t.Run("refused while generating", func(t *testing.T) {
		sess, client, _ := readySession(t)
		gen, err := sess.Start(ctx, types.QualityPrint)
		require.NoError(t, err)
		defer gen.cancel()

		_, err = sess.Download(ctx)
		assert.ErrorIs(t, err, ErrGenerating)
		assert.Empty(t, sess.Snapshot().Error)
		client.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	})

	t.Run("success", func(t *testing.T) {
		sess, client, img := readySession(t)
		client.On("Fetch", mock.Anything, img.URL).
			Return(&backend.Payload{Data: []byte("png"), ContentType: "image/png"}, nil).Once()

		dl, err := sess.Download(ctx)
		require.NoError(t, err)
		assert.Equal(t, "paris123.png", dl.Filename)
		assert.Equal(t, "image/png", dl.ContentType)
		assert.Equal(t, []byte("png"), dl.Data)
	})

	t.Run("failure keeps the image and shows a notice", func(t *testing.T) {
		sess, client, img := readySession(t)
		client.On("Fetch", mock.Anything, img.URL).Return(nil, errors.New("404")).Once()

		_, err := sess.Download(ctx)
		assert.ErrorIs(t, err, ErrDownloadFailed)

		snap := sess.Snapshot()
		assert.Equal(t, KindReady, snap.State)
		require.NotNil(t, snap.Image)
		assert.Equal(t, img.URL, snap.Image.URL)
		assert.Equal(t, types.DownloadFailedMessage, snap.Error)

		// A later successful download clears the notice.
		client.On("Fetch", mock.Anything, img.URL).
			Return(&backend.Payload{Data: []byte("png")}, nil).Once()
		_, err = sess.Download(ctx)
		require.NoError(t, err)
		assert.Empty(t, sess.Snapshot().Error)
	})
}
